package actuator

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
)

type transition struct {
	a     thermostat.Actuator
	state string
}

type recorder struct {
	mu  sync.Mutex
	got []transition
}

func (r *recorder) fn(a thermostat.Actuator, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, transition{a, state})
}

func (r *recorder) transitions() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.got...)
}

func TestMemory_ReportsOnlyTransitions(t *testing.T) {
	// GIVEN
	rec := &recorder{}
	m := NewMemory()
	m.OnStateChange(rec.fn)

	// WHEN
	m.TurnOff(thermostat.Heater)
	m.TurnOn(thermostat.Heater)
	m.TurnOn(thermostat.Heater)
	m.TurnOn(thermostat.Cooler)
	m.TurnOff(thermostat.Heater)

	// THEN
	assert.False(t, m.IsOn(thermostat.Heater))
	assert.True(t, m.IsOn(thermostat.Cooler))
	assert.Equal(t, []transition{
		{thermostat.Heater, thermostat.StateOn},
		{thermostat.Cooler, thermostat.StateOn},
		{thermostat.Heater, thermostat.StateOff},
	}, rec.transitions())
}

func TestMemory_DrivesThermostat(t *testing.T) {
	m := NewMemory()
	low, high := 18.0, 22.0
	th, err := thermostat.New(thermostat.Config{
		ColdTolerance: 0.3,
		HotTolerance:  0.3,
		TargetLow:     &low,
		TargetHigh:    &high,
		InitialMode:   thermostat.ModeHeatCool,
	}, m)
	require.NoError(t, err)
	m.OnStateChange(th.OnActuatorStateChange)

	th.OnSensorUpdate("17")

	assert.True(t, m.IsOn(thermostat.Heater))
	assert.Equal(t, thermostat.ActionHeating, th.HVACAction())
}

type fakeLine struct {
	value  int
	setErr error
	closed bool
}

func (l *fakeLine) SetValue(v int) error {
	if l.setErr != nil {
		return l.setErr
	}
	l.value = v
	return nil
}

func (l *fakeLine) Value() (int, error) { return l.value, nil }

func (l *fakeLine) Close() error {
	l.closed = true
	return nil
}

func TestGPIO_SwitchesLines(t *testing.T) {
	heater, cooler := &fakeLine{}, &fakeLine{value: 1}
	chipClosed := false
	g := newGPIO(heater, cooler, func() error { chipClosed = true; return nil })

	assert.False(t, g.IsOn(thermostat.Heater))
	assert.True(t, g.IsOn(thermostat.Cooler), "initial line level is picked up")

	g.TurnOn(thermostat.Heater)
	g.TurnOff(thermostat.Cooler)
	assert.Equal(t, 1, heater.value)
	assert.Equal(t, 0, cooler.value)
	assert.True(t, g.IsOn(thermostat.Heater))
	assert.False(t, g.IsOn(thermostat.Cooler))

	require.NoError(t, g.Close())
	assert.Equal(t, 0, heater.value, "relays are released off")
	assert.True(t, heater.closed)
	assert.True(t, cooler.closed)
	assert.True(t, chipClosed)
}

func TestGPIO_FailedWriteKeepsState(t *testing.T) {
	heater := &fakeLine{setErr: errors.New("line busy")}
	g := newGPIO(heater, &fakeLine{}, nil)
	rec := &recorder{}
	g.OnStateChange(rec.fn)

	g.TurnOn(thermostat.Heater)

	assert.False(t, g.IsOn(thermostat.Heater))
	assert.Empty(t, rec.transitions())
}
