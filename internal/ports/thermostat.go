package ports

import "github.com/Agrid-Dev/dualstat/internal/thermostat"

// ThermostatService is the control-plane port used by controllers (HTTP/MQTT/Modbus).
type ThermostatService interface {
	Get() thermostat.Snapshot
	SetMode(thermostat.Mode) error
	SetTargetRange(low, high float64) error
}
