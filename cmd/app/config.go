package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
)

const EnvPrefix = "DUALSTAT_"

type Config struct {
	DeviceID         string        `koanf:"device_id"`
	EvaluateInterval time.Duration `koanf:"evaluate_interval"` // 0 disables the periodic evaluation

	Thermostat  ThermostatConfig  `koanf:"thermostat"`
	Sensor      SensorConfig      `koanf:"sensor"`
	Actuators   ActuatorsConfig   `koanf:"actuators"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Statistics  StatisticsConfig  `koanf:"statistics"`
	Controllers ControllersConfig `koanf:"controllers"`
}

type ThermostatConfig struct {
	ColdTolerance    float64       `koanf:"cold_tolerance"`
	HotTolerance     float64       `koanf:"hot_tolerance"`
	MinCycleDuration time.Duration `koanf:"min_cycle_duration"`
	ReverseCycle     bool          `koanf:"reverse_cycle"`

	MinTemp    *float64 `koanf:"min_temp"`
	MaxTemp    *float64 `koanf:"max_temp"`
	TargetLow  *float64 `koanf:"target_low"`
	TargetHigh *float64 `koanf:"target_high"`

	InitialMode string  `koanf:"initial_mode"` // "off" | "heat" | "cool" | "heat_cool", empty for none
	Unit        string  `koanf:"unit"`         // "C" | "F"
	Precision   float64 `koanf:"precision"`
}

type SensorConfig struct {
	Type string           `koanf:"type"` // "mqtt" | "file", empty for none
	MQTT SensorMQTTConfig `koanf:"mqtt"`
	File SensorFileConfig `koanf:"file"`
}

type SensorMQTTConfig struct {
	BrokerURL string `koanf:"broker_url"`
	ClientID  string `koanf:"client_id"`
	Topic     string `koanf:"topic"`
	QoS       byte   `koanf:"qos"`
	ValueKey  string `koanf:"value_key"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
}

type SensorFileConfig struct {
	Path     string        `koanf:"path"`
	Divisor  float64       `koanf:"divisor"`
	Interval time.Duration `koanf:"interval"`
}

type ActuatorsConfig struct {
	Type   string               `koanf:"type"` // "memory" | "modbus" | "mqtt" | "gpio"
	Modbus ActuatorModbusConfig `koanf:"modbus"`
	MQTT   ActuatorMQTTConfig   `koanf:"mqtt"`
	GPIO   ActuatorGPIOConfig   `koanf:"gpio"`
}

type ActuatorModbusConfig struct {
	Addr         string        `koanf:"addr"`
	UnitID       byte          `koanf:"unit_id"`
	HeaterCoil   uint16        `koanf:"heater_coil"`
	CoolerCoil   uint16        `koanf:"cooler_coil"`
	Timeout      time.Duration `koanf:"timeout"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

type ActuatorMQTTConfig struct {
	BrokerURL  string `koanf:"broker_url"`
	ClientID   string `koanf:"client_id"`
	BaseTopic  string `koanf:"base_topic"`
	QoS        byte   `koanf:"qos"`
	Optimistic bool   `koanf:"optimistic"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
}

type ActuatorGPIOConfig struct {
	Chip       string `koanf:"chip"`
	HeaterLine int    `koanf:"heater_line"`
	CoolerLine int    `koanf:"cooler_line"`
	ActiveLow  bool   `koanf:"active_low"`
}

type PersistenceConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type StatisticsConfig struct {
	Enabled bool `koanf:"enabled"` // mounts /metrics on the http controller
}

type ControllersConfig struct {
	HTTP   HTTPConfig   `koanf:"http"`
	MQTT   MQTTConfig   `koanf:"mqtt"`
	Modbus ModbusConfig `koanf:"modbus"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	UnitID  byte   `koanf:"unit_id"`
}

func Defaults() Config {
	return Config{
		DeviceID: "default",

		Thermostat: ThermostatConfig{
			ColdTolerance: thermostat.DefaultTolerance,
			HotTolerance:  thermostat.DefaultTolerance,
			Unit:          string(thermostat.Celsius),
		},
		Sensor: SensorConfig{
			File: SensorFileConfig{Divisor: 1, Interval: 10 * time.Second},
		},
		Actuators: ActuatorsConfig{
			Type: "memory",
			Modbus: ActuatorModbusConfig{
				UnitID:       1,
				HeaterCoil:   0,
				CoolerCoil:   1,
				Timeout:      2 * time.Second,
				PollInterval: 5 * time.Second,
			},
			GPIO: ActuatorGPIOConfig{Chip: "gpiochip0"},
		},
		Persistence: PersistenceConfig{Path: "/var/lib/dualstat/dualstat.db"},
		Controllers: ControllersConfig{
			HTTP:   HTTPConfig{Enabled: true, Addr: ":8080"},
			MQTT:   MQTTConfig{BrokerURL: "tcp://localhost:1883", PublishInterval: 1 * time.Second},
			Modbus: ModbusConfig{Addr: "127.0.0.1:1502", UnitID: 1},
		},
	}
}

// Load layers defaults, the config file at path (.yaml/.yml/.json, optional)
// and DUALSTAT_* environment variables, in that order.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Config file missing → use defaults
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			parser, err := parserFor(path)
			if err != nil {
				return Config{}, err
			}
			if err := k.Load(file.Provider(path), parser); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	// PORT is common in containers, an explicit address wins.
	if v := os.Getenv("PORT"); v != "" && os.Getenv(EnvPrefix+"CONTROLLERS_HTTP_ADDR") == "" {
		if err := k.Set("controllers.http.addr", ":"+v); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = "default"
	}
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
}

var subsections = map[string][]string{
	"sensor":    {"mqtt", "file"},
	"actuators": {"modbus", "mqtt", "gpio"},
}

// envKeyTransform maps an environment key without prefix to a koanf path:
// CONTROLLERS_HTTP_ADDR → controllers.http.addr,
// THERMOSTAT_HOT_TOLERANCE → thermostat.hot_tolerance,
// SENSOR_MQTT_VALUE_KEY → sensor.mqtt.value_key, DEVICE_ID → device_id.
func envKeyTransform(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "_")

	switch parts[0] {
	case "controllers":
		if len(parts) < 3 {
			return s
		}
		return parts[0] + "." + parts[1] + "." + strings.Join(parts[2:], "_")

	case "sensor", "actuators":
		if len(parts) >= 3 && slices.Contains(subsections[parts[0]], parts[1]) {
			return parts[0] + "." + parts[1] + "." + strings.Join(parts[2:], "_")
		}
		fallthrough

	case "thermostat", "persistence", "statistics":
		if len(parts) < 2 {
			return s
		}
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
	return s
}

// Core converts the file representation into the thermostat config.
func (c ThermostatConfig) Core() (thermostat.Config, error) {
	cfg := thermostat.Config{
		ColdTolerance:    c.ColdTolerance,
		HotTolerance:     c.HotTolerance,
		MinCycleDuration: c.MinCycleDuration,
		ReverseCycle:     c.ReverseCycle,
		MinTemp:          c.MinTemp,
		MaxTemp:          c.MaxTemp,
		TargetLow:        c.TargetLow,
		TargetHigh:       c.TargetHigh,
		Unit:             thermostat.Unit(strings.ToUpper(c.Unit)),
		Precision:        c.Precision,
	}
	if c.InitialMode != "" {
		m, err := thermostat.ParseMode(strings.ToLower(c.InitialMode))
		if err != nil {
			return thermostat.Config{}, fmt.Errorf("thermostat.initial_mode: %w", err)
		}
		cfg.InitialMode = m
	}
	if err := cfg.Validate(); err != nil {
		return thermostat.Config{}, fmt.Errorf("thermostat: %w", err)
	}
	return cfg, nil
}
