// Package simulation runs a thermostat against a simulated room, for
// tuning tolerances and cycle durations offline.
package simulation

import (
	"errors"
	"time"
)

var (
	ErrNegativeLossCoefficient = errors.New("loss coefficient must be >= 0")
	ErrNegativePower           = errors.New("heater and cooler power must be >= 0")
	ErrInvalidStep             = errors.New("step must be > 0")
)

type RoomParams struct {
	OutdoorTemperature float64
	LossCoefficient    float64 // >= 0, represents conductivity. 0 for no loss.
	HeaterPower        float64 // degrees per second while the heater runs
	CoolerPower        float64 // degrees per second while the cooler runs
}

func (params *RoomParams) Validate() error {
	if params.LossCoefficient < 0 {
		return ErrNegativeLossCoefficient
	}
	if params.HeaterPower < 0 || params.CoolerPower < 0 {
		return ErrNegativePower
	}
	return nil
}

// Room is a single thermal mass losing heat towards the outdoor temperature.
type Room struct {
	params      RoomParams
	temperature float64
}

func NewRoom(params RoomParams, initialTemperature float64) (*Room, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Room{params: params, temperature: initialTemperature}, nil
}

func (r *Room) Temperature() float64 {
	return r.temperature
}

// DeltaTemperature is the change over dt with the given equipment running.
func (r *Room) DeltaTemperature(heaterOn, coolerOn bool, dt time.Duration) float64 {
	diff := r.params.OutdoorTemperature - r.temperature
	delta := r.params.LossCoefficient * diff * dt.Seconds()
	if heaterOn {
		delta += r.params.HeaterPower * dt.Seconds()
	}
	if coolerOn {
		delta -= r.params.CoolerPower * dt.Seconds()
	}
	return delta
}

// Step advances the room by dt and returns the new temperature.
func (r *Room) Step(heaterOn, coolerOn bool, dt time.Duration) float64 {
	r.temperature += r.DeltaTemperature(heaterOn, coolerOn, dt)
	return r.temperature
}
