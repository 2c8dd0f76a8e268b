package actuator

import "github.com/Agrid-Dev/dualstat/internal/thermostat"

// Memory switches exist only in process. Used by the simulator and tests.
type Memory struct {
	observed
}

func NewMemory() *Memory {
	return &Memory{observed: newObserved()}
}

func (m *Memory) TurnOn(a thermostat.Actuator)  { m.set(a, true) }
func (m *Memory) TurnOff(a thermostat.Actuator) { m.set(a, false) }
