package engine

import (
	"sync"

	"github.com/roach88/changeflow/internal/change"
)

// threadResult is one writeback sent by a background thread.
type threadResult struct {
	ID        change.ThreadID
	Writeback change.Writeback
}

// writebackQueue is the FIFO between thread goroutines and Tick.
//
// Threads enqueue from their own goroutines; Tick dequeues at most one
// result per tick on the UI goroutine. The queue is unbounded so a thread
// never blocks on a slow UI.
//
// The signal channel lets a host loop wait for results without polling.
type writebackQueue struct {
	mu      sync.Mutex
	results []threadResult
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newWritebackQueue() *writebackQueue {
	return &writebackQueue{
		results: make([]threadResult, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue appends r. Safe from any goroutine. Returns false once the queue
// is closed.
func (q *writebackQueue) Enqueue(r threadResult) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.results = append(q.results, r)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front result without blocking.
func (q *writebackQueue) TryDequeue() (threadResult, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.results) == 0 {
		return threadResult{}, false
	}
	r := q.results[0]

	// CRITICAL: clear the slot so the callback closure can be collected.
	q.results[0] = threadResult{}
	if len(q.results) == 1 {
		q.results = q.results[:0]
	} else {
		q.results = q.results[1:]
	}
	return r, true
}

// DropThread removes every pending result of id. Results of a removed
// thread must not be applied after its RemoveThread.
func (q *writebackQueue) DropThread(id change.ThreadID) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.results[:0]
	dropped := 0
	for _, r := range q.results {
		if r.ID == id {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	clear(q.results[len(kept):])
	q.results = kept
	return dropped
}

// Wait returns a channel that signals when results may be available.
func (q *writebackQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending results.
func (q *writebackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.results)
}

// Close stops accepting results and wakes waiters.
func (q *writebackQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
