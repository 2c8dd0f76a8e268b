package thermostat

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Agrid-Dev/dualstat/internal/ui"
)

// Driver switches the heater and cooler. TurnOn and TurnOff are fire and
// forget; IsOn returns the last state the driver observed.
type Driver interface {
	TurnOn(a Actuator)
	TurnOff(a Actuator)
	IsOn(a Actuator) bool
}

// Listener is called after the observable state changed. It carries no
// payload, listeners read what they need through the getters.
type Listener func()

type Snapshot struct {
	Mode               Mode
	Action             HVACAction
	Active             bool
	CurrentTemperature *float64
	TargetLow          *float64
	TargetHigh         *float64
	MinTemp            float64
	MaxTemp            float64
	HeaterOn           bool
	CoolerOn           bool
	Unit               Unit
	Precision          float64
}

// RestoredState is what a previous run persisted. Nil fields were missing.
type RestoredState struct {
	TargetLow  *float64
	TargetHigh *float64
	Mode       *Mode
}

// Statistics counts what the control law did since start.
type Statistics struct {
	Evaluations       int
	DebouncedSkips    int
	SensorParseErrors int
	HeaterOnCommands  int
	HeaterOffCommands int
	CoolerOnCommands  int
	CoolerOffCommands int
}

type Option func(*Thermostat)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Thermostat) { t.now = now }
}

type Thermostat struct {
	cfg         resolved
	initialMode Mode
	driver      Driver
	guard       *CycleGuard
	now         func() time.Time

	// evalMu serializes evaluations and mode transitions.
	evalMu sync.Mutex

	mu     sync.RWMutex
	mode   Mode
	cur    *float64
	low    *float64
	high   *float64
	active bool
	stats  Statistics

	obsMu     sync.Mutex
	observers map[int]Listener
	nextObs   int
}

func New(cfg Config, driver Driver, opts ...Option) (*Thermostat, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, ErrNilDriver
	}
	r := cfg.resolve()
	if r.minTemp > r.maxTemp {
		return nil, ErrInvalidMinMax
	}

	t := &Thermostat{
		cfg:         r,
		initialMode: cfg.InitialMode,
		driver:      driver,
		guard:       NewCycleGuard(),
		now:         time.Now,
		observers:   make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(t)
	}

	// cold start defaults, replaced by Restore when a previous state exists
	t.low = floatPtr(r.minTemp)
	if cfg.TargetLow != nil {
		t.low = floatPtr(*cfg.TargetLow)
	}
	t.high = floatPtr(r.maxTemp)
	if cfg.TargetHigh != nil {
		t.high = floatPtr(*cfg.TargetHigh)
	}
	t.mode = ModeOff
	if cfg.InitialMode.Valid() {
		t.mode = cfg.InitialMode
	}

	now := t.now()
	t.guard.Observe(Heater, driver.IsOn(Heater), now)
	t.guard.Observe(Cooler, driver.IsOn(Cooler), now)
	return t, nil
}

// Restore applies a previously persisted state. Missing setpoints fall back
// to the min/max temperatures and a missing mode to the configured initial
// mode, or off. An inverted restored range is discarded the same way.
func (t *Thermostat) Restore(rs RestoredState) {
	t.evalMu.Lock()
	defer t.evalMu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()

	low, high := rs.TargetLow, rs.TargetHigh
	if low != nil && high != nil && *high < *low {
		ui.Warning("Restored target range is inverted (%.2f > %.2f), ignoring it", *low, *high)
		low, high = nil, nil
	}

	if low == nil {
		t.low = floatPtr(t.cfg.minTemp)
		ui.Warning("Undefined target low temperature, falling back to %.2f", t.cfg.minTemp)
	} else {
		t.low = floatPtr(*low)
	}
	if high == nil {
		t.high = floatPtr(t.cfg.maxTemp)
		ui.Warning("Undefined target high temperature, falling back to %.2f", t.cfg.maxTemp)
	} else {
		t.high = floatPtr(*high)
	}

	switch {
	case t.initialMode.Valid():
		// configured initial mode wins over the restored one
		t.mode = t.initialMode
	case rs.Mode != nil && rs.Mode.Valid():
		t.mode = *rs.Mode
	default:
		ui.Warning("Undefined hvac mode, falling back to %s", ModeOff)
		t.mode = ModeOff
	}
}

// Get returns a consistent copy of the observable state.
func (t *Thermostat) Get() Snapshot {
	t.mu.RLock()
	s := Snapshot{
		Mode:               t.mode,
		Active:             t.active,
		CurrentTemperature: copyPtr(t.cur),
		TargetLow:          copyPtr(t.low),
		TargetHigh:         copyPtr(t.high),
		MinTemp:            t.cfg.minTemp,
		MaxTemp:            t.cfg.maxTemp,
		Unit:               t.cfg.unit,
		Precision:          t.cfg.precision,
	}
	t.mu.RUnlock()

	s.HeaterOn = t.driver.IsOn(Heater)
	s.CoolerOn = t.driver.IsOn(Cooler)
	s.Action = action(s.Mode, s.HeaterOn, s.CoolerOn)
	return s
}

func (t *Thermostat) Mode() Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

func (t *Thermostat) CurrentTemperature() (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.cur == nil {
		return 0, false
	}
	return *t.cur, true
}

func (t *Thermostat) TargetRange() (low, high float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return *t.low, *t.high
}

func (t *Thermostat) Active() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

func (t *Thermostat) MinTemp() float64 { return t.cfg.minTemp }

func (t *Thermostat) MaxTemp() float64 { return t.cfg.maxTemp }

func (t *Thermostat) Statistics() Statistics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// HVACAction derives what the equipment is doing right now.
func (t *Thermostat) HVACAction() HVACAction {
	return action(t.Mode(), t.driver.IsOn(Heater), t.driver.IsOn(Cooler))
}

func action(mode Mode, heaterOn, coolerOn bool) HVACAction {
	if mode == ModeOff {
		return ActionOff
	}
	if !heaterOn && !coolerOn {
		return ActionIdle
	}
	switch mode {
	case ModeHeat:
		return ActionHeating
	case ModeCool:
		return ActionCooling
	case ModeHeatCool:
		if heaterOn {
			return ActionHeating
		}
		return ActionCooling
	}
	return ActionIdle
}

// Subscribe registers l for state change notifications and returns the
// function that removes it.
func (t *Thermostat) Subscribe(l Listener) (unsubscribe func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			t.obsMu.Lock()
			defer t.obsMu.Unlock()
			delete(t.observers, id)
		})
	}
}

func (t *Thermostat) notify() {
	t.obsMu.Lock()
	ls := make([]Listener, 0, len(t.observers))
	for _, l := range t.observers {
		ls = append(ls, l)
	}
	t.obsMu.Unlock()

	for _, l := range ls {
		l()
	}
}

// SetMode switches the hvac mode. Leaving a mode forces the now unused
// actuator off unless the device is reverse cycle.
func (t *Thermostat) SetMode(m Mode) error {
	if !m.Valid() {
		ui.Error("Unrecognized hvac mode: %s", m)
		return ErrInvalidMode
	}

	t.evalMu.Lock()
	t.mu.Lock()
	t.mode = m
	t.mu.Unlock()

	deviceActive := t.isDeviceActive()
	switch m {
	case ModeHeat:
		if deviceActive && !t.cfg.reverseCycle {
			t.command(Cooler, false)
		}
		t.evaluate(true)
	case ModeCool:
		if deviceActive && !t.cfg.reverseCycle {
			t.command(Heater, false)
		}
		t.evaluate(true)
	case ModeHeatCool:
		t.evaluate(true)
	case ModeOff:
		if deviceActive {
			t.command(Heater, false)
			t.command(Cooler, false)
		}
	}
	t.evalMu.Unlock()

	t.notify()
	return nil
}

// SetModeString is SetMode for textual input from the control plane.
func (t *Thermostat) SetModeString(s string) error {
	m, err := ParseMode(s)
	if err != nil {
		ui.Error("Unrecognized hvac mode: %s", s)
		return err
	}
	return t.SetMode(m)
}

// SetTargetRange replaces both setpoints and runs a forced evaluation.
func (t *Thermostat) SetTargetRange(low, high float64) error {
	if high < low {
		return ErrInvertedRange
	}

	t.mu.Lock()
	t.low = floatPtr(low)
	t.high = floatPtr(high)
	t.mu.Unlock()

	t.Evaluate(true)
	t.notify()
	return nil
}

// OnSensorUpdate takes the raw state reported by the temperature sensor.
func (t *Thermostat) OnSensorUpdate(state string) {
	state = strings.TrimSpace(state)
	if state == "" || state == StateUnavailable || state == StateUnknown {
		return
	}

	v, err := strconv.ParseFloat(state, 64)
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
		err = strconv.ErrSyntax
	}
	if err != nil {
		ui.Error("Unable to update from sensor: %q: %v", state, err)
		t.mu.Lock()
		t.stats.SensorParseErrors++
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	t.cur = floatPtr(v)
	t.mu.Unlock()

	t.Evaluate(false)
	t.notify()
}

// OnActuatorStateChange records an observed switch state. It refreshes
// observers but never re-runs the control law.
func (t *Thermostat) OnActuatorStateChange(a Actuator, state string) {
	state = strings.TrimSpace(state)
	if state == "" {
		return
	}
	t.guard.Observe(a, strings.EqualFold(state, StateOn), t.now())
	t.notify()
}

// Evaluate runs the control law. A forced evaluation ignores the minimum
// cycle duration.
func (t *Thermostat) Evaluate(force bool) {
	t.evalMu.Lock()
	defer t.evalMu.Unlock()
	t.evaluate(force)
}

// Run evaluates periodically until ctx is done.
func (t *Thermostat) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Evaluate(false)
		}
	}
}

func (t *Thermostat) isDeviceActive() bool {
	return t.driver.IsOn(Heater) || t.driver.IsOn(Cooler)
}

func floatPtr(v float64) *float64 { return &v }

func copyPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return floatPtr(*p)
}
