package engine

import "github.com/roach88/changeflow/internal/change"

// FireGuard records which timers have fired in a tick.
//
// Tick keeps draining expired timers until none are left, because a timer
// callback may add another timer that is already due (zero delay). Without
// a guard a timer that re-adds itself with zero delay would fire forever
// inside one tick. The guard lets each timer id fire at most once per
// tick, which bounds the drain loop by the number of registered timers.
//
// CRITICAL DISTINCTION from Registry.IsDue:
//   - IsDue: "is this timer still registered and due?" (skips timers removed
//     earlier in the tick)
//   - FireGuard: "has this id already fired in this tick?" (terminates the
//     drain loop)
type FireGuard struct {
	history map[int64]map[change.TimerID]bool // tick -> fired ids
}

// NewFireGuard creates an empty guard.
func NewFireGuard() *FireGuard {
	return &FireGuard{history: make(map[int64]map[change.TimerID]bool)}
}

// Fired reports whether id already fired in tick.
func (g *FireGuard) Fired(tick int64, id change.TimerID) bool {
	return g.history[tick][id]
}

// Record marks id as fired in tick. Call it before invoking the callback.
func (g *FireGuard) Record(tick int64, id change.TimerID) {
	if g.history[tick] == nil {
		g.history[tick] = make(map[change.TimerID]bool)
	}
	g.history[tick][id] = true
}

// Clear forgets tick.
func (g *FireGuard) Clear(tick int64) {
	delete(g.history, tick)
}

// HistorySize returns the number of ticks with recorded firings.
func (g *FireGuard) HistorySize() int {
	return len(g.history)
}

// TickHistorySize returns how many ids fired in tick.
func (g *FireGuard) TickHistorySize(tick int64) int {
	return len(g.history[tick])
}
