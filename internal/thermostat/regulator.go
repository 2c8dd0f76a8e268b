package thermostat

import "github.com/Agrid-Dev/dualstat/internal/ui"

// thresholds are the four hysteresis predicates. They are not negations of
// each other: the tolerance is applied on both sides of a setpoint.
type thresholds struct {
	tooCold    bool
	tooHot     bool
	coolEnough bool
	warmEnough bool
}

func computeThresholds(cur, low, high, coldTolerance, hotTolerance float64) thresholds {
	return thresholds{
		tooCold:    low-cur >= coldTolerance,
		tooHot:     cur-high >= hotTolerance,
		coolEnough: high-cur >= hotTolerance,
		warmEnough: cur-low >= coldTolerance,
	}
}

type command struct {
	actuator Actuator
	on       bool
}

// decide maps the predicates to actuator commands. When the device is
// running only turn-offs are considered, when it is idle at most one
// actuator is turned on.
func decide(th thresholds, mode Mode, deviceActive bool) []command {
	var cmds []command
	heating := mode == ModeHeat || mode == ModeHeatCool
	cooling := mode == ModeCool || mode == ModeHeatCool

	if deviceActive {
		if th.coolEnough && cooling {
			cmds = append(cmds, command{actuator: Cooler, on: false})
		}
		if th.warmEnough && heating {
			cmds = append(cmds, command{actuator: Heater, on: false})
		}
		return cmds
	}

	if th.tooHot && cooling {
		cmds = append(cmds, command{actuator: Cooler, on: true})
	} else if th.tooCold && heating {
		cmds = append(cmds, command{actuator: Heater, on: true})
	}
	return cmds
}

// evaluate must be called with evalMu held.
func (t *Thermostat) evaluate(force bool) {
	t.mu.Lock()
	if !t.active && t.cur != nil && t.low != nil && t.high != nil {
		t.active = true
		ui.Info("Obtained current and target temperature, thermostat active: %.2f, %.2f, %.2f", *t.cur, *t.low, *t.high)
	}
	if !t.active {
		t.mu.Unlock()
		ui.Debug("Thermostat not active")
		return
	}
	t.stats.Evaluations++
	mode := t.mode
	cur, low, high := *t.cur, *t.low, *t.high
	t.mu.Unlock()

	if mode == ModeOff {
		ui.Debug("Mode is off")
		return
	}

	deviceActive := t.isDeviceActive()

	if !force && t.cfg.minCycleDuration > 0 {
		now := t.now()
		t.guard.Observe(Heater, t.driver.IsOn(Heater), now)
		t.guard.Observe(Cooler, t.driver.IsOn(Cooler), now)

		longEnoughCool := t.guard.HasHeldStateFor(Cooler, deviceActive, t.cfg.minCycleDuration, now)
		longEnoughHeat := t.guard.HasHeldStateFor(Heater, deviceActive, t.cfg.minCycleDuration, now)
		if !longEnoughCool && !longEnoughHeat {
			ui.Debug("Minimum cycle duration of %s not reached", t.cfg.minCycleDuration)
			t.mu.Lock()
			t.stats.DebouncedSkips++
			t.mu.Unlock()
			return
		}
	}

	th := computeThresholds(cur, low, high, t.cfg.coldTolerance, t.cfg.hotTolerance)
	ui.Debug("States: too_cold=%v too_hot=%v cool_enough=%v warm_enough=%v", th.tooCold, th.tooHot, th.coolEnough, th.warmEnough)
	ui.Debug("Mode: %s, device active: %v", mode, deviceActive)

	for _, c := range decide(th, mode, deviceActive) {
		t.command(c.actuator, c.on)
	}
}

func (t *Thermostat) command(a Actuator, on bool) {
	t.mu.Lock()
	switch {
	case a == Heater && on:
		t.stats.HeaterOnCommands++
	case a == Heater:
		t.stats.HeaterOffCommands++
	case on:
		t.stats.CoolerOnCommands++
	default:
		t.stats.CoolerOffCommands++
	}
	t.mu.Unlock()

	if on {
		ui.Info("Turning on %s", a)
		t.driver.TurnOn(a)
		return
	}
	ui.Info("Turning off %s", a)
	t.driver.TurnOff(a)
}
