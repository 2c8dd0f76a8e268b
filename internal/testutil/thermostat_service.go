package testutil

import "github.com/Agrid-Dev/dualstat/internal/thermostat"

// FakeThermostatService is a reusable fake implementing ports.ThermostatService.
// Put ONLY what multiple test packages need here.
type FakeThermostatService struct {
	S thermostat.Snapshot

	SetModeCalled bool
	SetModeArg    thermostat.Mode
	SetModeErr    error

	SetTargetRangeCalled bool
	SetTargetRangeLow    float64
	SetTargetRangeHigh   float64
	SetTargetRangeErr    error
}

func NewFakeThermostatService() *FakeThermostatService {
	cur, low, high := 21.0, 19.0, 24.0
	return &FakeThermostatService{
		S: thermostat.Snapshot{
			Mode:               thermostat.ModeHeatCool,
			Action:             thermostat.ActionIdle,
			Active:             true,
			CurrentTemperature: &cur,
			TargetLow:          &low,
			TargetHigh:         &high,
			MinTemp:            7,
			MaxTemp:            35,
			Unit:               thermostat.Celsius,
			Precision:          thermostat.PrecisionTenths,
		},
	}
}

func (f *FakeThermostatService) Get() thermostat.Snapshot { return f.S }

func (f *FakeThermostatService) SetMode(m thermostat.Mode) error {
	f.SetModeCalled = true
	f.SetModeArg = m
	if f.SetModeErr != nil {
		return f.SetModeErr
	}
	f.S.Mode = m
	return nil
}

func (f *FakeThermostatService) SetTargetRange(low, high float64) error {
	f.SetTargetRangeCalled = true
	f.SetTargetRangeLow = low
	f.SetTargetRangeHigh = high
	if f.SetTargetRangeErr != nil {
		return f.SetTargetRangeErr
	}
	f.S.TargetLow = &low
	f.S.TargetHigh = &high
	return nil
}
