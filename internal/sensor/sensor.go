// Package sensor feeds raw temperature states to the thermostat.
package sensor

// Func receives a raw sensor state, usually Thermostat.OnSensorUpdate.
type Func func(state string)
