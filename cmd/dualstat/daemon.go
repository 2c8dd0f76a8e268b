package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Agrid-Dev/dualstat/cmd/app"
	"github.com/Agrid-Dev/dualstat/internal/actuator"
	httpctrl "github.com/Agrid-Dev/dualstat/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/dualstat/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/dualstat/internal/controllers/mqtt"
	"github.com/Agrid-Dev/dualstat/internal/device"
	"github.com/Agrid-Dev/dualstat/internal/persistence"
	"github.com/Agrid-Dev/dualstat/internal/sensor"
	"github.com/Agrid-Dev/dualstat/internal/statistics"
	"github.com/Agrid-Dev/dualstat/internal/thermostat"
	"github.com/Agrid-Dev/dualstat/internal/ui"
)

// switches is a thermostat.Driver that reports observed transitions.
type switches interface {
	thermostat.Driver
	OnStateChange(fn actuator.StateFunc)
}

// actor is a long running part of the daemon, stopped through ctx.
type actor struct {
	name string
	run  func(ctx context.Context) error
}

func runDaemon(parent context.Context, cfg app.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	coreCfg, err := cfg.Thermostat.Core()
	if err != nil {
		return err
	}

	driver, actors, closeDriver, err := newSwitches(cfg.Actuators)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDriver(); err != nil {
			ui.Warning("Error releasing actuators: %v", err)
		}
	}()

	var store persistence.Persistence
	if cfg.Persistence.Enabled {
		store = persistence.NewPersistence(cfg.Persistence.Path)
		if err := store.Init(); err != nil {
			return fmt.Errorf("init persistence: %w", err)
		}
	}

	dev, err := device.New(cfg.DeviceID, coreCfg, driver, store)
	if err != nil {
		return err
	}
	th := dev.T
	driver.OnStateChange(th.OnActuatorStateChange)

	sensorActor, err := newSensor(cfg.Sensor, th.OnSensorUpdate)
	if err != nil {
		return err
	}
	if sensorActor != nil {
		actors = append(actors, *sensorActor)
	} else {
		ui.Warning("No temperature sensor configured, the thermostat stays inactive")
	}

	controllers, err := newControllers(cfg, dev)
	if err != nil {
		return err
	}
	actors = append(actors, controllers...)

	if cfg.EvaluateInterval > 0 {
		actors = append(actors, actor{name: "evaluation ticker", run: func(ctx context.Context) error {
			return th.Run(ctx, cfg.EvaluateInterval)
		}})
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var g run.Group
	for _, a := range actors {
		g.Add(func() error {
			err := a.run(ctx)
			ui.Info("%s stopped.", a.name)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}, func(err error) {
			if err != nil {
				ui.Warning("Error in %s: %v", a.name, err)
			}
			cancel()
		})
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-sig:
				ui.Info("Received SIGTERM signal, exiting...")
			case <-ctx.Done():
			}
			return nil
		}, func(err error) {
			signal.Stop(sig)
			cancel()
		})
	}

	ui.Info("dualstat %s running for device %s", version, dev.ID)
	if err := g.Run(); err != nil {
		return err
	}
	ui.Info("Done.")
	return nil
}

func newSwitches(cfg app.ActuatorsConfig) (switches, []actor, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Type {
	case "", "memory":
		ui.Warning("Using in-memory actuators, nothing is switched for real")
		return actuator.NewMemory(), nil, noop, nil

	case "modbus":
		d, err := actuator.NewModbus(actuator.ModbusConfig{
			Addr:       cfg.Modbus.Addr,
			UnitID:     cfg.Modbus.UnitID,
			HeaterCoil: cfg.Modbus.HeaterCoil,
			CoolerCoil: cfg.Modbus.CoolerCoil,
			Timeout:    cfg.Modbus.Timeout,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := d.Connect(); err != nil {
			return nil, nil, nil, err
		}
		poll := actor{name: "modbus actuator poller", run: func(ctx context.Context) error {
			return d.Poll(ctx, cfg.Modbus.PollInterval)
		}}
		return d, []actor{poll}, d.Close, nil

	case "mqtt":
		d, err := actuator.NewMQTT(actuator.MQTTConfig{
			BrokerURL:  cfg.MQTT.BrokerURL,
			ClientID:   cfg.MQTT.ClientID,
			BaseTopic:  cfg.MQTT.BaseTopic,
			QoS:        cfg.MQTT.QoS,
			Optimistic: cfg.MQTT.Optimistic,
			Username:   cfg.MQTT.Username,
			Password:   cfg.MQTT.Password,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return d, []actor{{name: "mqtt actuators", run: d.Run}}, noop, nil

	case "gpio":
		d, err := actuator.NewGPIO(actuator.GPIOConfig{
			Chip:       cfg.GPIO.Chip,
			HeaterLine: cfg.GPIO.HeaterLine,
			CoolerLine: cfg.GPIO.CoolerLine,
			ActiveLow:  cfg.GPIO.ActiveLow,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return d, nil, d.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown actuators type %q", cfg.Type)
	}
}

func newSensor(cfg app.SensorConfig, fn sensor.Func) (*actor, error) {
	switch cfg.Type {
	case "":
		return nil, nil

	case "mqtt":
		s, err := sensor.NewMQTT(sensor.MQTTConfig{
			BrokerURL: cfg.MQTT.BrokerURL,
			ClientID:  cfg.MQTT.ClientID,
			Topic:     cfg.MQTT.Topic,
			QoS:       cfg.MQTT.QoS,
			ValueKey:  cfg.MQTT.ValueKey,
			Username:  cfg.MQTT.Username,
			Password:  cfg.MQTT.Password,
		}, fn)
		if err != nil {
			return nil, err
		}
		return &actor{name: "mqtt sensor", run: s.Run}, nil

	case "file":
		s, err := sensor.NewFile(sensor.FileConfig{
			Path:     cfg.File.Path,
			Divisor:  cfg.File.Divisor,
			Interval: cfg.File.Interval,
		}, fn)
		if err != nil {
			return nil, err
		}
		return &actor{name: "file sensor", run: s.Run}, nil

	default:
		return nil, fmt.Errorf("unknown sensor type %q", cfg.Type)
	}
}

func newControllers(cfg app.Config, dev *device.Device) ([]actor, error) {
	var actors []actor
	c := cfg.Controllers

	if cfg.Statistics.Enabled {
		statistics.Register(statistics.NewThermostatCollector(dev.ID, dev.T))
		if !c.HTTP.Enabled {
			ui.Warning("statistics are enabled but the http controller is not, /metrics is not served")
		}
	}

	if c.HTTP.Enabled {
		var opts []httpctrl.Option
		if cfg.Statistics.Enabled {
			opts = append(opts, httpctrl.WithMetricsHandler(promhttp.Handler()))
		}
		srv := httpctrl.New(dev.T, c.HTTP.Addr, dev.ID, opts...)
		ui.Info("http controller listening on %s", c.HTTP.Addr)
		actors = append(actors, actor{name: "http controller", run: srv.Run})
	}

	if c.MQTT.Enabled {
		ctrl, err := mqttctrl.New(dev.T, mqttctrl.Config{
			DeviceID:        dev.ID,
			BrokerURL:       c.MQTT.BrokerURL,
			ClientID:        c.MQTT.ClientID,
			BaseTopic:       c.MQTT.BaseTopic,
			QoS:             c.MQTT.QoS,
			RetainSnapshot:  c.MQTT.RetainSnapshot,
			PublishInterval: c.MQTT.PublishInterval,
			Username:        c.MQTT.Username,
			Password:        c.MQTT.Password,
		})
		if err != nil {
			return nil, err
		}
		dev.T.Subscribe(ctrl.Notify)
		actors = append(actors, actor{name: "mqtt controller", run: ctrl.Run})
	}

	if c.Modbus.Enabled {
		ctrl, err := modbusctrl.New(dev.T, modbusctrl.Config{
			DeviceID: dev.ID,
			Addr:     c.Modbus.Addr,
			UnitID:   c.Modbus.UnitID,
		})
		if err != nil {
			return nil, err
		}
		ui.Info("modbus controller listening on %s", c.Modbus.Addr)
		actors = append(actors, actor{name: "modbus controller", run: ctrl.Run})
	}

	if len(actors) == 0 {
		ui.Warning("No controller enabled, settings can only change through the configuration")
	}
	return actors, nil
}
