package statistics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
)

const thermostatSubsystem = "thermostat"

type ThermostatCollector struct {
	deviceID string
	source   Source

	currentTemperature *prometheus.Desc
	targetLow          *prometheus.Desc
	targetHigh         *prometheus.Desc
	mode               *prometheus.Desc
	action             *prometheus.Desc
	active             *prometheus.Desc
	actuatorOn         *prometheus.Desc
	evaluations        *prometheus.Desc
	debouncedSkips     *prometheus.Desc
	sensorParseErrors  *prometheus.Desc
	commands           *prometheus.Desc
}

func desc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, thermostatSubsystem, name), help,
		append([]string{"id"}, labels...), nil)
}

func NewThermostatCollector(deviceID string, source Source) *ThermostatCollector {
	return &ThermostatCollector{
		deviceID:           deviceID,
		source:             source,
		currentTemperature: desc("current_temperature", "Last temperature reported by the sensor"),
		targetLow:          desc("target_low", "Lower setpoint of the target range"),
		targetHigh:         desc("target_high", "Upper setpoint of the target range"),
		mode:               desc("mode", "1 for the current hvac mode", "mode"),
		action:             desc("hvac_action", "1 for what the equipment is currently doing", "action"),
		active:             desc("active", "1 once temperature and both setpoints were known"),
		actuatorOn:         desc("actuator_on", "Observed actuator state", "actuator"),
		evaluations:        desc("evaluations_total", "Number of control law evaluations past the activation and mode gates"),
		debouncedSkips:     desc("debounced_skips_total", "Evaluations stopped by the minimum cycle duration"),
		sensorParseErrors:  desc("sensor_parse_errors_total", "Sensor states that could not be parsed"),
		commands:           desc("commands_total", "Commands sent to the actuators", "actuator", "command"),
	}
}

func (c *ThermostatCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.currentTemperature
	ch <- c.targetLow
	ch <- c.targetHigh
	ch <- c.mode
	ch <- c.action
	ch <- c.active
	ch <- c.actuatorOn
	ch <- c.evaluations
	ch <- c.debouncedSkips
	ch <- c.sensorParseErrors
	ch <- c.commands
}

// Collect implements required collect function for all prometheus collectors
func (c *ThermostatCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Get()
	stats := c.source.Statistics()
	id := c.deviceID

	if snap.CurrentTemperature != nil {
		ch <- prometheus.MustNewConstMetric(c.currentTemperature, prometheus.GaugeValue, *snap.CurrentTemperature, id)
	}
	if snap.TargetLow != nil {
		ch <- prometheus.MustNewConstMetric(c.targetLow, prometheus.GaugeValue, *snap.TargetLow, id)
	}
	if snap.TargetHigh != nil {
		ch <- prometheus.MustNewConstMetric(c.targetHigh, prometheus.GaugeValue, *snap.TargetHigh, id)
	}

	for _, m := range []thermostat.Mode{thermostat.ModeOff, thermostat.ModeHeat, thermostat.ModeCool, thermostat.ModeHeatCool} {
		ch <- prometheus.MustNewConstMetric(c.mode, prometheus.GaugeValue, boolValue(snap.Mode == m), id, m.String())
	}
	for _, a := range []thermostat.HVACAction{thermostat.ActionOff, thermostat.ActionIdle, thermostat.ActionHeating, thermostat.ActionCooling} {
		ch <- prometheus.MustNewConstMetric(c.action, prometheus.GaugeValue, boolValue(snap.Action == a), id, a.String())
	}
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, boolValue(snap.Active), id)
	ch <- prometheus.MustNewConstMetric(c.actuatorOn, prometheus.GaugeValue, boolValue(snap.HeaterOn), id, thermostat.Heater.String())
	ch <- prometheus.MustNewConstMetric(c.actuatorOn, prometheus.GaugeValue, boolValue(snap.CoolerOn), id, thermostat.Cooler.String())

	ch <- prometheus.MustNewConstMetric(c.evaluations, prometheus.CounterValue, float64(stats.Evaluations), id)
	ch <- prometheus.MustNewConstMetric(c.debouncedSkips, prometheus.CounterValue, float64(stats.DebouncedSkips), id)
	ch <- prometheus.MustNewConstMetric(c.sensorParseErrors, prometheus.CounterValue, float64(stats.SensorParseErrors), id)

	heater, cooler := thermostat.Heater.String(), thermostat.Cooler.String()
	ch <- prometheus.MustNewConstMetric(c.commands, prometheus.CounterValue, float64(stats.HeaterOnCommands), id, heater, "on")
	ch <- prometheus.MustNewConstMetric(c.commands, prometheus.CounterValue, float64(stats.HeaterOffCommands), id, heater, "off")
	ch <- prometheus.MustNewConstMetric(c.commands, prometheus.CounterValue, float64(stats.CoolerOnCommands), id, cooler, "on")
	ch <- prometheus.MustNewConstMetric(c.commands, prometheus.CounterValue, float64(stats.CoolerOffCommands), id, cooler, "off")
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
