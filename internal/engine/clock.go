package engine

import "sync/atomic"

// Clock is the monotonic logical clock that stamps cycles.
//
// Every processed cycle gets a strictly increasing seq. Journals order by
// seq, never by wall-clock time, so two runs of the same input produce the
// same trace.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// In practice only the UI goroutine calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start. Used to continue numbering
// after an existing journal session.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
