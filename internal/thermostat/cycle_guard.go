package thermostat

import (
	"sync"
	"time"
)

type heldState struct {
	on    bool
	since time.Time
}

// CycleGuard remembers, per actuator, the observed on/off state and when it
// last changed.
type CycleGuard struct {
	mu     sync.Mutex
	states map[Actuator]heldState
}

func NewCycleGuard() *CycleGuard {
	return &CycleGuard{states: make(map[Actuator]heldState)}
}

// Observe records the state of a. The timestamp only moves when the state
// differs from the last observation.
func (g *CycleGuard) Observe(a Actuator, on bool, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur, ok := g.states[a]
	if ok && cur.on == on {
		return
	}
	g.states[a] = heldState{on: on, since: at}
}

// HasHeldStateFor reports whether a is currently observed in state on and has
// been so continuously for at least d.
func (g *CycleGuard) HasHeldStateFor(a Actuator, on bool, d time.Duration, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur, ok := g.states[a]
	if !ok || cur.on != on {
		return false
	}
	return now.Sub(cur.since) >= d
}

// Since returns when a entered its current observed state.
func (g *CycleGuard) Since(a Actuator) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur, ok := g.states[a]
	return cur.since, ok
}
