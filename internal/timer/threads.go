package timer

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/changeflow/internal/change"
)

// Sink receives writebacks from running threads. It is called from the
// thread's goroutine and must be safe for concurrent use.
type Sink func(id change.ThreadID, w change.Writeback)

type thread struct {
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
}

// stop cancels the thread. Once it returns, the thread's sends no longer
// reach the sink.
func (th *thread) stop() {
	th.mu.Lock()
	defer th.mu.Unlock()
	th.stopped = true
	th.cancel()
}

func (th *thread) send(id change.ThreadID, w change.Writeback, sink Sink) {
	th.mu.Lock()
	defer th.mu.Unlock()
	if th.stopped {
		return
	}
	sink(id, w)
}

// Threads tracks running background threads. Add and Remove are called from
// the UI goroutine only; the threads themselves touch nothing but the sink.
type Threads struct {
	running map[change.ThreadID]*thread
	wg      sync.WaitGroup
}

// NewThreads returns an empty thread registry.
func NewThreads() *Threads {
	return &Threads{running: make(map[change.ThreadID]*thread)}
}

// Add starts th on its own goroutine under id. A thread already running
// under id is stopped and replaced. It reports whether id is the only
// running thread afterwards.
func (t *Threads) Add(id change.ThreadID, th change.Thread, sink Sink) (first bool) {
	if old, ok := t.running[id]; ok {
		old.stop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	running := &thread{cancel: cancel}
	t.running[id] = running

	if th.Run != nil {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			th.Run(ctx, func(w change.Writeback) {
				running.send(id, w, sink)
			})
		}()
	}
	return len(t.running) == 1
}

// Remove stops id; nothing it sends afterwards reaches the sink. It reports whether id was running and whether no
// threads remain.
func (t *Threads) Remove(id change.ThreadID) (removed, last bool) {
	th, ok := t.running[id]
	if !ok {
		return false, false
	}
	th.stop()
	delete(t.running, id)
	return true, len(t.running) == 0
}

// Has reports whether id is running.
func (t *Threads) Has(id change.ThreadID) bool {
	_, ok := t.running[id]
	return ok
}

// Len returns the number of running threads.
func (t *Threads) Len() int { return len(t.running) }

// IDs returns running thread ids in ascending order.
func (t *Threads) IDs() []change.ThreadID {
	ids := make([]change.ThreadID, 0, len(t.running))
	for id := range t.running {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Wait blocks until every thread goroutine has returned.
func (t *Threads) Wait() { t.wg.Wait() }

// CancelAll stops every thread and forgets them.
func (t *Threads) CancelAll() {
	for id, th := range t.running {
		th.stop()
		delete(t.running, id)
	}
}
