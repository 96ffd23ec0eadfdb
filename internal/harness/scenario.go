package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/layout"
	"github.com/roach88/changeflow/internal/reinvoke"
	"github.com/roach88/changeflow/internal/severity"
)

// Scenario is a scripted run of the pipeline against a headless platform.
// It builds a layout, feeds changes through the engine step by step and
// asserts on the resulting layout, platform and cycle trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an optional .cue or .yaml config file, relative to the
	// scenario file.
	Config string `yaml:"config,omitempty"`

	// Session fixes the session id for deterministic traces.
	// Defaults to "test-session".
	Session string `yaml:"session,omitempty"`

	// Window is the initial window state.
	Window *change.WindowState `yaml:"window,omitempty"`

	// Nodes is the initial layout, parents before children.
	Nodes []layout.NodeSpec `yaml:"nodes"`

	// FailOps names platform operations that refuse every call.
	FailOps []string `yaml:"fail_ops,omitempty"`

	// FailTimers lists timer ids the platform refuses to start.
	FailTimers []uint64 `yaml:"fail_timers,omitempty"`

	// Steps drive the engine in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`

	// dir is the directory the scenario was loaded from.
	dir string
}

// Step is one action against the engine.
type Step struct {
	// Kind selects the action: process, dispatch, tick, wait_threads or
	// render.
	Kind string `yaml:"kind"`

	// User and System are the changes for process steps. System also
	// accompanies dispatch steps.
	User   []change.Spec `yaml:"user,omitempty"`
	System []change.Spec `yaml:"system,omitempty"`

	// Targets are the dispatch path for dispatch steps, innermost first.
	Targets []TargetSpec `yaml:"targets,omitempty"`

	// AdvanceMS moves the clock forward before a tick.
	AdvanceMS int64 `yaml:"advance_ms,omitempty"`

	// Expect is the severity the step must report.
	Expect *severity.Severity `yaml:"expect,omitempty"`
}

// TargetSpec is one node on a dispatch path with its handlers.
type TargetSpec struct {
	Dom      change.DomID  `yaml:"dom"`
	Node     change.NodeID `yaml:"node"`
	Handlers []HandlerSpec `yaml:"handlers"`
}

// HandlerSpec scripts an event handler.
type HandlerSpec struct {
	Severity                 severity.Severity `yaml:"severity,omitempty"`
	Push                     []change.Spec     `yaml:"push,omitempty"`
	StopPropagation          bool              `yaml:"stop_propagation,omitempty"`
	StopImmediatePropagation bool              `yaml:"stop_immediate_propagation,omitempty"`
	PreventDefault           bool              `yaml:"prevent_default,omitempty"`
}

// Step kinds.
const (
	StepProcess     = "process"
	StepDispatch    = "dispatch"
	StepTick        = "tick"
	StepWaitThreads = "wait_threads"
	StepRender      = "render"
)

// Assertion checks the state left behind by the steps.
type Assertion struct {
	// Type specifies the assertion type:
	// - "node_text": text of dom/node equals Text
	// - "cursor": cursor (and optionally anchor) of dom/node
	// - "focus": focused node is dom/node, or nothing when None is set
	// - "scroll_offset": scroll offset of dom/node equals X/Y
	// - "timers": registered timer ids equal IDs
	// - "platform_calls": Calls appear in order among the platform calls
	// - "reinvocation": checker phase of dom/node equals Phase
	// - "trace_contains": Tag appears in some cycle
	// - "trace_order": first occurrences of Tags are in order
	// - "trace_count": Tag occurs Count times, or Count cycles came from Source
	// - "errors": runtime error codes equal Codes, in order
	Type string `yaml:"type"`

	Dom  change.DomID  `yaml:"dom,omitempty"`
	Node change.NodeID `yaml:"node,omitempty"`
	None bool          `yaml:"none,omitempty"`

	Text   string  `yaml:"text,omitempty"`
	Offset *int    `yaml:"offset,omitempty"`
	Anchor *int    `yaml:"anchor,omitempty"`
	X      float64 `yaml:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty"`

	IDs   []uint64 `yaml:"ids,omitempty"`
	Calls []string `yaml:"calls,omitempty"`
	Phase string   `yaml:"phase,omitempty"`

	Tag    string   `yaml:"tag,omitempty"`
	Tags   []string `yaml:"tags,omitempty"`
	Source string   `yaml:"source,omitempty"`
	Count  int      `yaml:"count,omitempty"`
	Codes  []string `yaml:"codes,omitempty"`
}

// Assertion type constants.
const (
	AssertNodeText      = "node_text"
	AssertCursor        = "cursor"
	AssertFocus         = "focus"
	AssertScrollOffset  = "scroll_offset"
	AssertTimers        = "timers"
	AssertPlatformCalls = "platform_calls"
	AssertReinvocation  = "reinvocation"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertErrors        = "errors"
)

func (a Assertion) ref() change.NodeRef { return change.Ref(a.Dom, a.Node) }

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos surface as errors rather than silently ignored keys.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// ConfigPath resolves the scenario's config file, or returns "" when none
// is set.
func (s *Scenario) ConfigPath() string {
	if s.Config == "" || filepath.IsAbs(s.Config) {
		return s.Config
	}
	return filepath.Join(s.dir, s.Config)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must have at least one step")
	}
	if err := layout.New(reinvoke.DefaultMargin).Build(s.Nodes); err != nil {
		return fmt.Errorf("nodes: %w", err)
	}
	for i, st := range s.Steps {
		if err := validateStep(st); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(st Step) error {
	switch st.Kind {
	case StepProcess:
		if len(st.User) == 0 && len(st.System) == 0 {
			return fmt.Errorf("process step needs user or system changes")
		}
	case StepDispatch:
		if len(st.Targets) == 0 {
			return fmt.Errorf("dispatch step needs at least one target")
		}
		for i, t := range st.Targets {
			for j, h := range t.Handlers {
				if _, err := change.DecodeUserAll(h.Push); err != nil {
					return fmt.Errorf("targets[%d].handlers[%d]: %w", i, j, err)
				}
			}
		}
	case StepTick:
		if st.AdvanceMS < 0 {
			return fmt.Errorf("advance_ms must not be negative, got %d", st.AdvanceMS)
		}
	case StepWaitThreads, StepRender:
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown step kind %q", st.Kind)
	}
	if st.Kind != StepProcess && st.Kind != StepDispatch && (len(st.User) > 0 || len(st.System) > 0) {
		return fmt.Errorf("%s step cannot carry changes", st.Kind)
	}
	if _, err := change.DecodeUserAll(st.User); err != nil {
		return err
	}
	if _, err := change.DecodeSystemAll(st.System); err != nil {
		return err
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertNodeText, AssertScrollOffset, AssertTimers, AssertErrors:
	case AssertCursor:
		if a.Offset == nil {
			return fmt.Errorf("cursor assertion requires offset")
		}
	case AssertFocus:
	case AssertPlatformCalls:
		if len(a.Calls) == 0 {
			return fmt.Errorf("platform_calls assertion requires calls")
		}
	case AssertReinvocation:
		if _, err := reinvoke.ParsePhase(a.Phase); err != nil {
			return fmt.Errorf("reinvocation assertion: %w", err)
		}
	case AssertTraceContains:
		if a.Tag == "" {
			return fmt.Errorf("trace_contains assertion requires tag")
		}
	case AssertTraceOrder:
		if len(a.Tags) < 2 {
			return fmt.Errorf("trace_order assertion requires at least 2 tags, got %d", len(a.Tags))
		}
	case AssertTraceCount:
		if a.Tag == "" && a.Source == "" {
			return fmt.Errorf("trace_count assertion requires tag or source")
		}
		if a.Count < 0 {
			return fmt.Errorf("trace_count assertion requires non-negative count, got %d", a.Count)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
