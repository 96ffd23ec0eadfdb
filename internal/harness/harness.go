package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/changeflow/internal/callback"
	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/config"
	"github.com/roach88/changeflow/internal/engine"
	"github.com/roach88/changeflow/internal/platform"
	"github.com/roach88/changeflow/internal/severity"
	"github.com/roach88/changeflow/internal/testutil"
	"github.com/roach88/changeflow/internal/trace"
)

// Harness runs one scenario against a fresh engine with a manual clock and
// a fixed session id.
type Harness struct {
	engine   *engine.Engine
	platform *platform.Recorder
	clock    *testutil.ManualClock
	recorder *trace.Recorder
	logger   *slog.Logger
}

type runOptions struct {
	cfg      *config.Config
	journals []engine.Journal
	logger   *slog.Logger
}

// RunOption configures Run.
type RunOption func(*runOptions)

// WithConfig overrides the scenario's own config file.
func WithConfig(cfg config.Config) RunOption {
	return func(o *runOptions) { o.cfg = &cfg }
}

// WithJournal records cycles to j in addition to the in-memory trace.
func WithJournal(j engine.Journal) RunOption {
	return func(o *runOptions) { o.journals = append(o.journals, j) }
}

// WithLogger sets the engine logger. Default: discard.
func WithLogger(l *slog.Logger) RunOption {
	return func(o *runOptions) { o.logger = l }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Resolve config and build the engine over a headless platform
// 2. Build the initial layout and window
// 3. Execute steps, checking per-step severity expectations
// 4. Evaluate assertions against the final state and the cycle trace
//
// A returned error means the scenario could not be run at all; failed
// expectations are reported through Result.
func Run(s *Scenario, opts ...RunOption) (*Result, error) {
	o := runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := config.Default()
	if o.cfg != nil {
		cfg = *o.cfg
	} else if path := s.ConfigPath(); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	h := &Harness{
		platform: platform.NewRecorder(),
		clock:    testutil.NewManualClock(),
		recorder: trace.NewRecorder(),
		logger:   o.logger,
	}
	for _, op := range s.FailOps {
		h.platform.FailOp(op)
	}
	for _, id := range s.FailTimers {
		h.platform.FailTimer(change.TimerID(id))
	}

	engineOpts := []engine.EngineOption{
		engine.WithLogger(o.logger),
		engine.WithConfig(cfg),
		engine.WithTimeSource(h.clock.Now),
		engine.WithSessionGenerator(testutil.NewFixedSessionGenerator(s.Session)),
		engine.WithSessionLabel(s.Name),
		engine.WithJournal(h.recorder),
	}
	for _, j := range o.journals {
		engineOpts = append(engineOpts, engine.WithJournal(j))
	}
	h.engine = engine.New(h.platform, engineOpts...)
	defer h.engine.Close()

	if err := h.engine.Layout().Build(s.Nodes); err != nil {
		return nil, fmt.Errorf("failed to build layout: %w", err)
	}
	if s.Window != nil {
		h.engine.Layout().SetWindow(*s.Window)
	}

	result := NewResult()
	for i, step := range s.Steps {
		sr, err := h.executeStep(step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		sr.Index = i
		result.Steps = append(result.Steps, sr)
		if step.Expect != nil && sr.Severity != *step.Expect {
			result.AddError(fmt.Sprintf("step %d (%s): expected severity %s, got %s",
				i, step.Kind, *step.Expect, sr.Severity))
		}
		for _, err := range h.engine.Errors() {
			result.Codes = append(result.Codes, errorCode(err))
		}
		h.logger.Info("scenario step completed",
			"scenario", s.Name,
			"step", i,
			"kind", step.Kind,
			"severity", sr.Severity.String(),
		)
	}
	result.Cycles = h.recorder.Cycles()

	actx := &AssertionContext{Engine: h.engine, Platform: h.platform}
	for _, msg := range EvaluateAssertions(result, s.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(step Step) (StepResult, error) {
	sr := StepResult{Kind: step.Kind}
	switch step.Kind {
	case StepProcess:
		user, err := change.DecodeUserAll(step.User)
		if err != nil {
			return sr, err
		}
		system, err := change.DecodeSystemAll(step.System)
		if err != nil {
			return sr, err
		}
		sr.Severity = h.engine.Process(user, system, severity.NoOp)

	case StepDispatch:
		targets, err := buildTargets(step.Targets)
		if err != nil {
			return sr, err
		}
		system, err := change.DecodeSystemAll(step.System)
		if err != nil {
			return sr, err
		}
		res := h.engine.Dispatch(targets, system)
		sr.Severity = res.Severity
		sr.Invoked = res.Invoked

	case StepTick:
		now := h.clock.Advance(time.Duration(step.AdvanceMS) * time.Millisecond)
		sr.Severity = h.engine.Tick(now)

	case StepWaitThreads:
		h.engine.Threads().Wait()

	case StepRender:
		sr.Rendered = h.engine.Layout().RefreshVirtualViews()

	default:
		return sr, fmt.Errorf("unknown step kind %q", step.Kind)
	}
	return sr, nil
}

func buildTargets(specs []TargetSpec) ([]callback.Target, error) {
	targets := make([]callback.Target, 0, len(specs))
	for i, ts := range specs {
		t := callback.Target{Node: change.Ref(ts.Dom, ts.Node)}
		for j, hs := range ts.Handlers {
			push, err := change.DecodeUserAll(hs.Push)
			if err != nil {
				return nil, fmt.Errorf("target %d handler %d: %w", i, j, err)
			}
			t.Handlers = append(t.Handlers, scriptedHandler(hs, push))
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func scriptedHandler(hs HandlerSpec, push []change.UserChange) change.Callback {
	base := change.Scripted(hs.Severity, push)
	return func(ctx change.Context) severity.Severity {
		if hs.StopPropagation {
			ctx.StopPropagation()
		}
		if hs.StopImmediatePropagation {
			ctx.StopImmediatePropagation()
		}
		if hs.PreventDefault {
			ctx.PreventDefault()
		}
		return base(ctx)
	}
}

func errorCode(err error) string {
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	if engine.IsPlatformError(err) {
		return string(engine.ErrCodePlatformRefused)
	}
	return "UNKNOWN"
}
