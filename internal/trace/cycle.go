package trace

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/roach88/changeflow/internal/severity"
)

// Source kinds name the producer of a cycle.
const (
	SourceProcess  = "process"
	SourceDispatch = "dispatch"
	SourceTimer    = "timer"
	SourceThread   = "thread"
)

// TimerSource and ThreadSource label cycles produced by one timer or thread.
func TimerSource(id uint64) string  { return fmt.Sprintf("%s/%d", SourceTimer, id) }
func ThreadSource(id uint64) string { return fmt.Sprintf("%s/%d", SourceThread, id) }

// Cycle records one pass through the pipeline.
type Cycle struct {
	Session   string            `json:"session"`
	Seq       int64             `json:"seq"`
	Source    string            `json:"source"`
	User      []string          `json:"user"`
	System    []string          `json:"system"`
	Handled   int               `json:"handled"`
	Forwarded int               `json:"forwarded"`
	Severity  severity.Severity `json:"severity"`
	Platform  []string          `json:"platform"`
}

// Object is the canonical form of c that its ID is computed over.
func (c Cycle) Object() Object {
	return Object{
		"session":   String(c.Session),
		"seq":       Int(c.Seq),
		"source":    String(c.Source),
		"user":      Strings(c.User),
		"system":    Strings(c.System),
		"handled":   Int(c.Handled),
		"forwarded": Int(c.Forwarded),
		"severity":  String(c.Severity.String()),
		"platform":  Strings(c.Platform),
	}
}

// ID is the content-addressed identity of c.
func (c Cycle) ID() (string, error) {
	return Hash(DomainCycle, c.Object())
}

// Session groups the cycles of one engine instance.
type Session struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	ConfigHash string `json:"config_hash"`
}

// Float formats f for inclusion in a canonical value.
func Float(f float64) String {
	return String(strconv.FormatFloat(f, 'g', -1, 64))
}

// Recorder keeps cycles in memory. It satisfies the engine's journal
// interface and backs golden traces.
//
// Thread-safety: Recorder is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	sessions []Session
	cycles   []Cycle
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// BeginSession records s.
func (r *Recorder) BeginSession(_ context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	return nil
}

// RecordCycle appends c.
func (r *Recorder) RecordCycle(_ context.Context, c Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, c)
	return nil
}

// Cycles returns a copy of the recorded cycles in order.
func (r *Recorder) Cycles() []Cycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Cycle, len(r.cycles))
	copy(out, r.cycles)
	return out
}

// Sessions returns a copy of the recorded sessions.
func (r *Recorder) Sessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}
