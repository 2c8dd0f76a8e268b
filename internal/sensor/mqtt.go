package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
	"github.com/Agrid-Dev/dualstat/internal/ui"
)

type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Topic     string
	QoS       byte
	Username  string
	Password  string

	// ValueKey selects a field of a JSON object payload. Empty means the
	// payload is the plain state.
	ValueKey string
}

type MQTT struct {
	cfg    MQTTConfig
	fn     Func
	client mqtt.Client
}

func NewMQTT(cfg MQTTConfig, fn Func) (*MQTT, error) {
	if cfg.Topic == "" {
		return nil, errors.New("mqtt sensor: Topic is required")
	}
	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "dualstat-sensor"
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt sensor: QoS must be 0 or 1")
	}
	return &MQTT{cfg: cfg, fn: fn}, nil
}

func (s *MQTT) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}
	opts.OnConnect = func(cl mqtt.Client) {
		token := cl.Subscribe(s.cfg.Topic, s.cfg.QoS, s.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			ui.Error("mqtt sensor: subscribe %s: %v", s.cfg.Topic, err)
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		ui.Warning("mqtt sensor: connection lost, keeping last reading: %v", err)
	}

	s.client = mqtt.NewClient(opts)
	tok := s.client.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		// still retrying against an unreachable broker
		s.client.Disconnect(0)
		return ctx.Err()
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt sensor connect: %w", err)
	}

	<-ctx.Done()
	s.client.Disconnect(250)
	return ctx.Err()
}

func (s *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	state, err := s.extract(msg.Payload())
	if err != nil {
		ui.Warning("mqtt sensor: %s: %v", msg.Topic(), err)
		return
	}
	s.fn(state)
}

func (s *MQTT) extract(payload []byte) (string, error) {
	if s.cfg.ValueKey == "" {
		return strings.TrimSpace(string(payload)), nil
	}

	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	v, ok := obj[s.cfg.ValueKey]
	if !ok {
		return "", fmt.Errorf("missing key %q", s.cfg.ValueKey)
	}
	switch val := v.(type) {
	case nil:
		return thermostat.StateUnknown, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case string:
		return strings.TrimSpace(val), nil
	default:
		return "", fmt.Errorf("unsupported %q value %v", s.cfg.ValueKey, v)
	}
}
