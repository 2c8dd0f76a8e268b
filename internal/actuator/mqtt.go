package actuator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
	"github.com/Agrid-Dev/dualstat/internal/ui"
)

const (
	payloadOn  = "ON"
	payloadOff = "OFF"

	publishTimeout = 2 * time.Second
)

// MQTTConfig describes switches commanded through <base>/<actuator>/set and
// reporting through <base>/<actuator>/state.
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	BaseTopic string
	QoS       byte
	Username  string
	Password  string

	// Optimistic assumes a command took effect once published, for
	// switches that never report their state.
	Optimistic bool
}

type MQTT struct {
	observed
	cfg    MQTTConfig
	client mqtt.Client
}

func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.BaseTopic == "" {
		return nil, errors.New("mqtt actuator: BaseTopic is required")
	}
	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "dualstat-actuators"
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt actuator: QoS must be 0 or 1")
	}
	d := &MQTT{observed: newObserved(), cfg: cfg}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(cl mqtt.Client) {
		if err := d.subscribe(cl); err != nil {
			ui.Error("mqtt actuator: %v", err)
		}
	}
	d.client = mqtt.NewClient(opts)
	return d, nil
}

func (d *MQTT) topic(a thermostat.Actuator, suffix string) string {
	return strings.TrimRight(d.cfg.BaseTopic, "/") + "/" + a.String() + "/" + suffix
}

// Run connects to the broker and follows the state topics until ctx is done.
// The client is created by NewMQTT and never replaced, commands may be
// issued from any goroutine while Run is connecting.
func (d *MQTT) Run(ctx context.Context) error {
	tok := d.client.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		d.client.Disconnect(0)
		return ctx.Err()
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt actuator connect: %w", err)
	}

	<-ctx.Done()
	d.client.Disconnect(250)
	return ctx.Err()
}

func (d *MQTT) subscribe(cl mqtt.Client) error {
	filters := map[string]byte{
		d.topic(thermostat.Heater, "state"): d.cfg.QoS,
		d.topic(thermostat.Cooler, "state"): d.cfg.QoS,
	}
	tok := cl.SubscribeMultiple(filters, d.onState)
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("subscribe state topics: %w", err)
	}
	return nil
}

func (d *MQTT) onState(_ mqtt.Client, msg mqtt.Message) {
	for _, a := range []thermostat.Actuator{thermostat.Heater, thermostat.Cooler} {
		if msg.Topic() != d.topic(a, "state") {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(string(msg.Payload()))) {
		case payloadOn:
			d.set(a, true)
		case payloadOff:
			d.set(a, false)
		default:
			ui.Warning("mqtt actuator: unexpected %s state %q", a, msg.Payload())
		}
		return
	}
}

func (d *MQTT) TurnOn(a thermostat.Actuator)  { d.publish(a, true) }
func (d *MQTT) TurnOff(a thermostat.Actuator) { d.publish(a, false) }

func (d *MQTT) publish(a thermostat.Actuator, on bool) {
	if !d.client.IsConnectionOpen() {
		ui.Error("mqtt actuator: not connected, dropping %s command", a)
		return
	}
	payload := payloadOff
	if on {
		payload = payloadOn
	}
	tok := d.client.Publish(d.topic(a, "set"), d.cfg.QoS, false, payload)
	if !tok.WaitTimeout(publishTimeout) {
		ui.Error("mqtt actuator: publish %s %s: timed out after %s", a, payload, publishTimeout)
		return
	}
	if err := tok.Error(); err != nil {
		ui.Error("mqtt actuator: publish %s %s: %v", a, payload, err)
		return
	}
	if d.cfg.Optimistic {
		d.set(a, on)
	}
}
