package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/changeflow/internal/callback"
	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/config"
	"github.com/roach88/changeflow/internal/geom"
	"github.com/roach88/changeflow/internal/layout"
	"github.com/roach88/changeflow/internal/platform"
	"github.com/roach88/changeflow/internal/reinvoke"
	"github.com/roach88/changeflow/internal/severity"
	"github.com/roach88/changeflow/internal/timer"
	"github.com/roach88/changeflow/internal/trace"
)

// Journal receives one record per cycle. Implemented by trace.Recorder
// (in memory) and store.Store (SQLite).
type Journal interface {
	BeginSession(ctx context.Context, s trace.Session) error
	RecordCycle(ctx context.Context, c trace.Cycle) error
}

// Engine owns the layout state and runs every change through the pipeline.
//
// Thread-safety model:
//   - Process, Dispatch, Tick and every accessor: UI goroutine only
//   - EnqueueThreadResult: safe from any goroutine
//
// INVARIANTS:
//   - Every user change is handled by the immediate stage or forwarded to
//     the deferred stage, never both and never neither
//   - The immediate stage runs before the deferred stage within a cycle
//   - A cycle's severity is the maximum of everything applied in it
type Engine struct {
	layout    *layout.State
	timers    *timer.Registry
	threads   *timer.Threads
	platform  *tracingPlatform
	immediate *ImmediateApplier
	deferred  *DeferredApplier
	queue     *writebackQueue
	clock     *Clock
	guard     *FireGuard
	ticks     int64
	seq       int64

	sessionGen SessionIDGenerator
	session    trace.Session
	journals   []Journal

	cfg    config.Config
	now    func() time.Time
	logger *slog.Logger
	errs   []error
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg config.Config) EngineOption {
	return func(e *Engine) { e.cfg = cfg }
}

// WithJournal adds a journal. May be given more than once.
func WithJournal(j Journal) EngineOption {
	return func(e *Engine) {
		if j != nil {
			e.journals = append(e.journals, j)
		}
	}
}

// WithTimeSource sets the clock timers are registered against.
// Default: time.Now. Tests pass a manual clock.
func WithTimeSource(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSessionGenerator sets how the journal session id is generated.
// Default: UUIDv7Generator.
func WithSessionGenerator(g SessionIDGenerator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.sessionGen = g
		}
	}
}

// WithSessionLabel sets a human-readable label on the journal session.
func WithSessionLabel(label string) EngineOption {
	return func(e *Engine) { e.session.Label = label }
}

// New creates an Engine driving p. The layout state starts empty; populate
// it through Layout before the first cycle.
func New(p platform.Platform, opts ...EngineOption) *Engine {
	e := &Engine{
		timers:     timer.NewRegistry(),
		threads:    timer.NewThreads(),
		platform:   &tracingPlatform{inner: p},
		queue:      newWritebackQueue(),
		clock:      NewClock(),
		guard:      NewFireGuard(),
		sessionGen: UUIDv7Generator{},
		cfg:        config.Default(),
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.layout = layout.New(e.cfg.ReinvocationMargin)
	e.immediate = NewImmediateApplier(e.layout, e.logger, e.report)
	e.deferred = &DeferredApplier{
		layout:    e.layout,
		timers:    e.timers,
		threads:   e.threads,
		queue:     e.queue,
		platform:  e.platform,
		sink:      e.EnqueueThreadResult,
		framework: e.frameworkTimers(),
		cfg:       e.cfg,
		now:       e.now,
		logger:    e.logger,
		report:    e.report,
	}

	e.session.ID = e.sessionGen.Generate()
	e.session.ConfigHash = configHash(e.cfg)
	for _, j := range e.journals {
		if err := j.BeginSession(context.Background(), e.session); err != nil {
			e.logger.Warn("journal session not recorded", "session", e.session.ID, "error", err)
		}
	}
	return e
}

func configHash(cfg config.Config) string {
	h, err := trace.Hash(trace.DomainConfig, trace.Object{
		"reinvocation_margin":      trace.Float(cfg.ReinvocationMargin),
		"cursor_blink_ms":          trace.Int(cfg.CursorBlinkMS),
		"auto_scroll_hz":           trace.Int(cfg.AutoScrollHz),
		"thread_poll_ms":           trace.Int(cfg.ThreadPollMS),
		"max_queued_window_states": trace.Int(cfg.MaxQueuedWindowStates),
	})
	if err != nil {
		return ""
	}
	return h
}

// report stamps runtime errors with the current cycle and collects them.
func (e *Engine) report(err error) {
	var re *RuntimeError
	if errors.As(err, &re) && re.Seq == 0 {
		re.Seq = e.seq
	}
	e.errs = append(e.errs, err)
}

// Process runs one cycle: immediate stage, deferred stage, window sync.
// It returns previous combined with the severity of this cycle.
func (e *Engine) Process(user []change.UserChange, system []change.SystemChange, previous severity.Severity) severity.Severity {
	return severity.Combine(previous, e.cycle(trace.SourceProcess, user, system))
}

// DispatchResult is the outcome of running an event's handlers.
type DispatchResult struct {
	Output   callback.Output
	Invoked  int
	Severity severity.Severity
}

// Dispatch invokes the handlers of targets, honouring propagation flags,
// then processes the collected changes together with system.
func (e *Engine) Dispatch(targets []callback.Target, system []change.SystemChange) DispatchResult {
	out, invoked := callback.Dispatch(targets, e.now())
	sev := e.processOutput(trace.SourceDispatch, out, system)
	return DispatchResult{Output: out, Invoked: invoked, Severity: sev}
}

// processOutput processes a callback's changes and folds in the severity
// the callback returned.
func (e *Engine) processOutput(source string, out callback.Output, system []change.SystemChange) severity.Severity {
	return severity.Combine(out.Severity, e.cycle(source, out.Deferred, system))
}

func (e *Engine) cycle(source string, user []change.UserChange, system []change.SystemChange) severity.Severity {
	e.seq = e.clock.Next()
	e.layout.SavePreviousWindow()

	imm := e.immediate.Apply(user)
	def := e.deferred.Apply(imm.Forwarded, system)
	sev := severity.Combine(imm.Severity, def)
	e.syncWindow()

	c := trace.Cycle{
		Session:   e.session.ID,
		Seq:       e.seq,
		Source:    source,
		User:      userTags(user),
		System:    systemTags(system),
		Handled:   imm.Handled,
		Forwarded: len(imm.Forwarded),
		Severity:  sev,
		Platform:  e.platform.take(),
	}
	e.record(c)

	e.logger.Info("cycle processed",
		"seq", c.Seq,
		"source", source,
		"user", len(user),
		"system", len(system),
		"forwarded", c.Forwarded,
		"severity", sev.String(),
	)
	return sev
}

// syncWindow pushes the window state to the platform when the cycle
// changed it.
func (e *Engine) syncWindow() {
	prev, ok := e.layout.PreviousWindow()
	cur := e.layout.Window()
	if ok && prev == cur {
		return
	}
	if err := e.platform.SyncWindowState(cur); err != nil {
		e.logger.Warn("platform call failed", "op", "SyncWindowState", "error", err)
		e.report(err)
	}
}

// record writes c to every journal. Journal failures are logged only.
func (e *Engine) record(c trace.Cycle) {
	for _, j := range e.journals {
		if err := j.RecordCycle(context.Background(), c); err != nil {
			e.logger.Warn("journal write failed", "seq", c.Seq, "error", err)
		}
	}
}

func userTags(cs []change.UserChange) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.UserTag().String()
	}
	return out
}

func systemTags(cs []change.SystemChange) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.SystemTag().String()
	}
	return out
}

// CheckReinvocation asks the reinvocation checker whether the virtual view
// at (dom, node) must be regenerated for bounds and offset.
func (e *Engine) CheckReinvocation(dom change.DomID, node change.NodeID, bounds geom.Rect, offset geom.Position) (reinvoke.Reason, bool) {
	return e.layout.Checker().Check(change.Ref(dom, node), bounds, offset)
}

// EnqueueThreadResult queues a writeback from thread id. It is the sink
// every thread sends through and is safe from any goroutine. Results
// arriving after Close are dropped.
func (e *Engine) EnqueueThreadResult(id change.ThreadID, w change.Writeback) {
	if !e.queue.Enqueue(threadResult{ID: id, Writeback: w}) {
		e.logger.Debug("writeback dropped after close", "thread", uint64(id))
	}
}

// Wakeup is signalled whenever a writeback is queued. Hosts select on it
// to know a Tick has work.
func (e *Engine) Wakeup() <-chan struct{} { return e.queue.Wait() }

// PendingWritebacks returns the number of queued thread results.
func (e *Engine) PendingWritebacks() int { return e.queue.Len() }

// Layout exposes the layout state the pipeline mutates.
func (e *Engine) Layout() *layout.State { return e.layout }

// Timers exposes the logical timer registry.
func (e *Engine) Timers() *timer.Registry { return e.timers }

// Threads exposes the running thread registry.
func (e *Engine) Threads() *timer.Threads { return e.threads }

// Session returns the journal session of this engine.
func (e *Engine) Session() trace.Session { return e.session }

// Config returns the configuration the engine was built with.
func (e *Engine) Config() config.Config { return e.cfg }

// Seq returns the sequence number of the last cycle.
func (e *Engine) Seq() int64 { return e.clock.Current() }

// Errors returns the runtime errors collected since the last call and
// clears them.
func (e *Engine) Errors() []error {
	out := e.errs
	e.errs = nil
	return out
}

// Close cancels every thread, stops every timer and closes the writeback
// queue. Threads that ignore cancellation are not waited for; use
// Threads().Wait for that.
func (e *Engine) Close() {
	e.threads.CancelAll()
	if n := e.timers.StopAll(e.platform); n > 0 {
		e.logger.Debug("stopped timers on close", "count", n)
	}
	e.platform.take()
	e.queue.Close()
}
