// Package actuator provides thermostat.Driver implementations for the heater
// and cooler switches.
package actuator

import (
	"sync"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
)

// StateFunc receives observed switch transitions, state is "on" or "off".
type StateFunc func(a thermostat.Actuator, state string)

func stateString(on bool) string {
	if on {
		return thermostat.StateOn
	}
	return thermostat.StateOff
}

// observed is the last known switch state shared by all drivers.
type observed struct {
	mu sync.Mutex
	on map[thermostat.Actuator]bool
	fn StateFunc
}

func newObserved() observed {
	return observed{on: make(map[thermostat.Actuator]bool)}
}

// OnStateChange registers fn to be called on every observed transition.
func (o *observed) OnStateChange(fn StateFunc) {
	o.mu.Lock()
	o.fn = fn
	o.mu.Unlock()
}

func (o *observed) IsOn(a thermostat.Actuator) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.on[a]
}

// set stores the state and calls the StateFunc outside the lock when it changed.
func (o *observed) set(a thermostat.Actuator, on bool) {
	o.mu.Lock()
	prev, known := o.on[a]
	o.on[a] = on
	fn := o.fn
	o.mu.Unlock()

	if known && prev == on {
		return
	}
	if !known && !on {
		return
	}
	if fn != nil {
		fn(a, stateString(on))
	}
}
