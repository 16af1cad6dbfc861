package fusion

import (
	"context"
	"sync"
	"time"

	"roomsense/internal/domain"
	"roomsense/internal/log"
)

// Options configures the fusion engine. People and Rooms are read on
// every use so a config reload takes effect without restarting the
// engine.
type Options struct {
	// Interval between fusion cycles.
	Interval time.Duration

	// People returns the device-to-person map used by the Home/Away gate.
	People func() map[string]string

	// Rooms returns the configured room names. Configured rooms appear in
	// every cycle's results even with zero signals, so consumers see
	// "empty room" rather than "unknown room".
	Rooms func() []string

	// OnCycle is invoked after each fusion cycle with the full result set.
	OnCycle func(results []domain.FusionResult, state domain.HomeAwayState)

	// OnHomeAway is invoked when the Home/Away state changes.
	OnHomeAway func(state domain.HomeAwayState)
}

// Engine owns the fusion cycle: it accumulates signals and the device
// snapshot between cycles, then periodically prunes, cross-validates,
// fuses, and publishes per-room results. All published state is derived
// and recomputable; nothing here needs to survive a restart.
type Engine struct {
	store *Store
	opts  Options

	mu        sync.Mutex
	lastCycle time.Time
	state     domain.HomeAwayState
	results   []domain.FusionResult
	byRoom    map[string]domain.FusionResult
}

// NewEngine creates a fusion engine around a fresh decay store.
func NewEngine(opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Second
	}
	e := &Engine{
		store:  NewStore(),
		opts:   opts,
		byRoom: make(map[string]domain.FusionResult),
	}
	e.state = domain.EvaluateHomeAway(nil, e.people())
	return e
}

func (e *Engine) people() map[string]string {
	if e.opts.People == nil {
		return nil
	}
	return e.opts.People()
}

// Ingest records signals produced by one source adapter.
func (e *Engine) Ingest(source string, sigs ...domain.Signal) {
	e.store.Add(source, sigs...)
}

// UpdateSnapshot replaces the device snapshot and re-evaluates the
// Home/Away gate, which runs once per network poll rather than on its
// own timer.
func (e *Engine) UpdateSnapshot(snap *domain.DeviceSnapshot) {
	e.store.SetSnapshot(snap)

	next := domain.EvaluateHomeAway(snap, e.people())

	e.mu.Lock()
	changed := next != e.state
	e.state = next
	e.mu.Unlock()

	if changed {
		log.Info("home/away state changed", "state", string(next))
		if e.opts.OnHomeAway != nil {
			e.opts.OnHomeAway(next)
		}
	}
}

// Run executes fusion cycles until ctx is cancelled. The first cycle
// runs immediately.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	e.Evaluate(time.Now())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Evaluate(time.Now())
		}
	}
}

// Evaluate runs one fusion cycle at the given time and returns the
// results. Signals committed while a cycle is computing land in the
// store untouched and contribute to the next cycle.
func (e *Engine) Evaluate(now time.Time) []domain.FusionResult {
	e.mu.Lock()
	cycleStart := e.lastCycle
	state := e.state
	e.mu.Unlock()

	pruned := e.store.Prune(now, cycleStart)
	rooms, snap := e.store.Snapshot(now, cycleStart)

	if e.opts.Rooms != nil {
		for _, room := range e.opts.Rooms() {
			if _, ok := rooms[room]; !ok {
				rooms[room] = nil
			}
		}
	}

	validated := CrossValidate(rooms, snap)
	results := Fuse(validated, state, now)

	byRoom := make(map[string]domain.FusionResult, len(results))
	for _, r := range results {
		byRoom[r.Room] = r
	}

	e.mu.Lock()
	e.lastCycle = now
	e.results = results
	e.byRoom = byRoom
	e.mu.Unlock()

	log.Debug("fusion cycle complete",
		"rooms", len(results), "pruned", pruned, "state", string(state))

	if e.opts.OnCycle != nil {
		e.opts.OnCycle(results, state)
	}
	return results
}

// Results returns a copy of the latest cycle's results.
func (e *Engine) Results() []domain.FusionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.FusionResult, len(e.results))
	copy(out, e.results)
	return out
}

// Result returns the latest result for one room.
func (e *Engine) Result(room string) (domain.FusionResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.byRoom[room]
	return r, ok
}

// HomeAway returns the current gate state.
func (e *Engine) HomeAway() domain.HomeAwayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// DeviceSnapshot returns the most recent device snapshot, or nil before
// the first successful poll.
func (e *Engine) DeviceSnapshot() *domain.DeviceSnapshot {
	return e.store.DeviceSnapshot()
}

// LastCycle returns the timestamp of the most recent fusion cycle.
func (e *Engine) LastCycle() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastCycle
}
