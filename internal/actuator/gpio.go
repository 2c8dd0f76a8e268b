package actuator

import (
	"fmt"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
	"github.com/Agrid-Dev/dualstat/internal/ui"
)

// GPIOConfig selects the relay lines on a GPIO chip (BCM offsets on a Pi).
type GPIOConfig struct {
	Chip       string
	HeaterLine int
	CoolerLine int
	// ActiveLow is for relay boards that energize on a low level.
	ActiveLow bool
}

// outputLine is the part of a requested GPIO line we use.
type outputLine interface {
	SetValue(value int) error
	Value() (int, error)
	Close() error
}

// GPIO drives relays wired to GPIO output lines.
type GPIO struct {
	observed
	lines  map[thermostat.Actuator]outputLine
	closer func() error
}

func newGPIO(heater, cooler outputLine, closer func() error) *GPIO {
	g := &GPIO{
		observed: newObserved(),
		lines: map[thermostat.Actuator]outputLine{
			thermostat.Heater: heater,
			thermostat.Cooler: cooler,
		},
		closer: closer,
	}
	for a, l := range g.lines {
		if v, err := l.Value(); err == nil {
			g.set(a, v == 1)
		}
	}
	return g
}

func (g *GPIO) TurnOn(a thermostat.Actuator)  { g.write(a, true) }
func (g *GPIO) TurnOff(a thermostat.Actuator) { g.write(a, false) }

func (g *GPIO) write(a thermostat.Actuator, on bool) {
	v := 0
	if on {
		v = 1
	}
	if err := g.lines[a].SetValue(v); err != nil {
		ui.Error("gpio actuator: set %s: %v", a, err)
		return
	}
	g.set(a, on)
}

// Close switches both relays off and releases the lines.
func (g *GPIO) Close() error {
	var errs []error
	for a, l := range g.lines {
		if err := l.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("switch off %s: %w", a, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s line: %w", a, err))
		}
	}
	if g.closer != nil {
		if err := g.closer(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
