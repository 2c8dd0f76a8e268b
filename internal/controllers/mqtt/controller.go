package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Agrid-Dev/dualstat/internal/ports"
	"github.com/Agrid-Dev/dualstat/internal/thermostat"
	"github.com/Agrid-Dev/dualstat/internal/ui"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc ports.ThermostatService
	cfg Config

	client  mqtt.Client
	changed chan struct{}
}

func New(svc ports.ThermostatService, cfg Config) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "dualstat/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "dualstat-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Controller{
		svc:     svc,
		cfg:     cfg,
		changed: make(chan struct{}, 1),
	}, nil
}

// Notify asks for a snapshot publish without waiting for the next tick.
// It never blocks, so it can be registered as a thermostat listener.
func (c *Controller) Notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		topic := c.topic("set/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			ui.Error("mqtt: subscribe %s: %v", topic, err)
		}
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		// still retrying against an unreachable broker
		c.client.Disconnect(0)
		return ctx.Err()
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	// Publish loop: publish snapshot on interval or notification, only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	last := c.publishSnapshot()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
		case <-c.changed:
		}

		if cur := c.svc.Get(); !reflect.DeepEqual(cur, last) {
			last = c.publishSnapshot()
		}
	}
}

func (c *Controller) publishSnapshot() thermostat.Snapshot {
	s := c.svc.Get()
	b, _ := json.Marshal(toDTO(s))
	c.client.Publish(c.topic("snapshot"), c.cfg.QoS, c.cfg.RetainSnapshot, b)
	return s
}

type snapshotDTO struct {
	Mode               string   `json:"mode"`
	HVACAction         string   `json:"hvac_action"`
	Active             bool     `json:"active"`
	CurrentTemperature *float64 `json:"current_temperature"`
	TargetLow          *float64 `json:"target_low"`
	TargetHigh         *float64 `json:"target_high"`
	HeaterOn           bool     `json:"heater_on"`
	CoolerOn           bool     `json:"cooler_on"`
}

func toDTO(s thermostat.Snapshot) snapshotDTO {
	return snapshotDTO{
		Mode:               s.Mode.String(),
		HVACAction:         s.Action.String(),
		Active:             s.Active,
		CurrentTemperature: s.CurrentTemperature,
		TargetLow:          s.TargetLow,
		TargetHigh:         s.TargetHigh,
		HeaterOn:           s.HeaterOn,
		CoolerOn:           s.CoolerOn,
	}
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

type rangeValue struct {
	Low  *float64 `json:"low"`
	High *float64 `json:"high"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := strings.TrimRight(c.cfg.BaseTopic, "/") + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	if err := c.apply(field, msg.Payload()); err != nil {
		ui.Warning("mqtt: rejected %s command: %v", field, err)
	}
}

func (c *Controller) apply(field string, payload []byte) error {
	switch field {
	case "mode":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return err
		}
		m, err := thermostat.ParseMode(s)
		if err != nil {
			return err
		}
		return c.svc.SetMode(m)

	case "target_range":
		v, err := decodeValueStrict[rangeValue](payload)
		if err != nil {
			return err
		}
		if v.Low == nil || v.High == nil {
			return errors.New("both 'low' and 'high' are required")
		}
		return c.svc.SetTargetRange(*v.Low, *v.High)

	case "target_low":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return err
		}
		_, high := currentRange(c.svc.Get())
		return c.svc.SetTargetRange(v, high)

	case "target_high":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return err
		}
		low, _ := currentRange(c.svc.Get())
		return c.svc.SetTargetRange(low, v)

	default:
		return fmt.Errorf("unknown field %q", field)
	}
}

func currentRange(snap thermostat.Snapshot) (low, high float64) {
	low, high = snap.MinTemp, snap.MaxTemp
	if snap.TargetLow != nil {
		low = *snap.TargetLow
	}
	if snap.TargetHigh != nil {
		high = *snap.TargetHigh
	}
	return low, high
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
