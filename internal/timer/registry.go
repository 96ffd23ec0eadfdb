// Package timer owns the logical timer and thread registries.
//
// The registry is the only place where a timer's logical entry and its
// platform handle change, and they always change together. That keeps a
// timer from being registered twice when the same request is seen by more
// than one stage of a cycle.
package timer

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/platform"
)

type entry struct {
	timer   change.Timer
	created time.Time
	lastRun time.Time
	runs    int
}

// next returns when the timer is due. One-shot timers (zero Interval) are due
// once, Delay after creation.
func (e *entry) next() time.Time {
	if e.runs == 0 {
		if e.timer.Delay > 0 {
			return e.created.Add(e.timer.Delay)
		}
		return e.created.Add(e.timer.Interval)
	}
	return e.lastRun.Add(e.timer.Interval)
}

// Registry maps timer ids to scheduled timers.
type Registry struct {
	entries map[change.TimerID]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[change.TimerID]*entry)}
}

// Start registers t under id and starts its platform handle. An existing
// timer with the same id is stopped first; if the platform refuses that, the
// old timer stays registered and running. If the platform refuses the new
// handle, no entry is left behind.
func (r *Registry) Start(id change.TimerID, t change.Timer, now time.Time, p platform.Platform) error {
	if _, ok := r.entries[id]; ok {
		if err := p.StopTimer(id); err != nil {
			return fmt.Errorf("restart timer %d: %w", id, err)
		}
		delete(r.entries, id)
	}
	if err := p.StartTimer(id, t); err != nil {
		return fmt.Errorf("start timer %d: %w", id, err)
	}
	r.entries[id] = &entry{timer: t, created: now}
	return nil
}

// Stop stops id's platform handle and removes it. It reports whether id was
// registered; stopping an unknown timer is a no-op. A refused stop keeps the
// entry, since the platform timer is still running.
func (r *Registry) Stop(id change.TimerID, p platform.Platform) (bool, error) {
	if _, ok := r.entries[id]; !ok {
		return false, nil
	}
	if err := p.StopTimer(id); err != nil {
		return true, fmt.Errorf("stop timer %d: %w", id, err)
	}
	delete(r.entries, id)
	return true, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id change.TimerID) bool {
	_, ok := r.entries[id]
	return ok
}

// Get returns the timer registered under id.
func (r *Registry) Get(id change.TimerID) (change.Timer, bool) {
	e, ok := r.entries[id]
	if !ok {
		return change.Timer{}, false
	}
	return e.timer, true
}

// Len returns the number of registered timers.
func (r *Registry) Len() int { return len(r.entries) }

// IDs returns every registered id in ascending order.
func (r *Registry) IDs() []change.TimerID {
	ids := make([]change.TimerID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Expired returns the ids due at now, in ascending order.
func (r *Registry) Expired(now time.Time) []change.TimerID {
	var ids []change.TimerID
	for id, e := range r.entries {
		if !now.Before(e.next()) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// IsDue reports whether id is still registered and due at now. Timers
// removed or restarted earlier in the same tick are no longer due.
func (r *Registry) IsDue(id change.TimerID, now time.Time) bool {
	e, ok := r.entries[id]
	return ok && !now.Before(e.next())
}

// MarkRun records that id fired at now. It reports whether the timer is
// one-shot and should now be removed.
func (r *Registry) MarkRun(id change.TimerID, now time.Time) (oneShot bool) {
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.lastRun = now
	e.runs++
	return e.timer.Interval <= 0
}

// Runs returns how often id has fired.
func (r *Registry) Runs(id change.TimerID) int {
	if e, ok := r.entries[id]; ok {
		return e.runs
	}
	return 0
}

// StopAll stops every timer and returns how many were registered. Timers
// the platform refuses to stop stay registered.
func (r *Registry) StopAll(p platform.Platform) int {
	n := len(r.entries)
	for _, id := range r.IDs() {
		_, _ = r.Stop(id, p)
	}
	return n
}
