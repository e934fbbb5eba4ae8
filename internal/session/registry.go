package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/guessgame/internal/dependencies/clock"
	"github.com/mcoot/guessgame/internal/model"
)

type slot struct {
	// mu serialises transitions; readers load state without it
	mu       sync.Mutex
	ready    bool
	state    atomic.Pointer[State]
	lastSeen atomic.Int64
}

func (s *slot) load() State {
	if st := s.state.Load(); st != nil {
		return *st
	}
	return Initial()
}

func (s *slot) store(st State) {
	s.state.Store(&st)
}

// Registry maps browser session IDs to their current State
type Registry struct {
	clock clock.Clock

	mu    sync.Mutex
	slots map[model.SessionID]*slot
}

// NewRegistry creates an empty Registry
func NewRegistry(clock clock.Clock) *Registry {
	return &Registry{
		clock: clock,
		slots: make(map[model.SessionID]*slot),
	}
}

func (r *Registry) slot(sid model.SessionID) *slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	sl, ok := r.slots[sid]
	if !ok {
		sl = &slot{}
		r.slots[sid] = sl
	}
	sl.lastSeen.Store(r.clock.Now().UnixNano())
	return sl
}

// Get returns the current state of sid, or the initial state if unknown
func (r *Registry) Get(sid model.SessionID) State {
	r.mu.Lock()
	sl, ok := r.slots[sid]
	r.mu.Unlock()
	if !ok {
		return Initial()
	}
	return sl.load()
}

// Ensure runs init exactly once for sid and returns the resulting state.
// Later callers get the stored state without running init.
// If init fails the slot stays uninitialised and the initial state is stored.
func (r *Registry) Ensure(sid model.SessionID, init func() (State, error)) (State, error) {
	sl := r.slot(sid)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.ready {
		return sl.load(), nil
	}

	st, err := init()
	if err != nil {
		sl.store(Initial())
		return Initial(), err
	}
	sl.store(st)
	sl.ready = true
	return st, nil
}

// Update applies fn to the current state of sid under the slot lock.
// The returned state replaces the current one unless fn returns an error.
func (r *Registry) Update(sid model.SessionID, fn func(State) (State, error)) (State, error) {
	sl := r.slot(sid)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	current := sl.load()
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	sl.store(next)
	sl.ready = true
	return next, nil
}

// Set replaces the state of sid
func (r *Registry) Set(sid model.SessionID, st State) {
	_, _ = r.Update(sid, func(State) (State, error) { return st, nil })
}

// Delete forgets sid
func (r *Registry) Delete(sid model.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, sid)
}

// Len returns the number of tracked sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Prune forgets sessions not seen for longer than idle and returns how many were removed
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := r.clock.Now().Add(-idle).UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for sid, sl := range r.slots {
		if sl.lastSeen.Load() < cutoff {
			delete(r.slots, sid)
			removed++
		}
	}
	return removed
}

// RunPruner prunes idle sessions every interval until ctx is done
func (r *Registry) RunPruner(ctx context.Context, interval, idle time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Prune(idle); n > 0 {
				logger.Info("pruned idle sessions",
					slog.Int("removed", n),
					slog.Int("remaining", r.Len()),
				)
			}
		}
	}
}
