package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/changeflow/internal/engine"
	"github.com/roach88/changeflow/internal/platform"
	"github.com/roach88/changeflow/internal/trace"
)

// AssertionContext is the state assertions are evaluated against.
type AssertionContext struct {
	Engine   *engine.Engine
	Platform *platform.Recorder
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Cycles   []trace.Cycle // Cycle trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Cycles) > 0 {
		fmt.Fprintf(&buf, "\nCycles:\n")
		for _, c := range e.Cycles {
			fmt.Fprintf(&buf, "  [%d] %s %s user=%v system=%v\n",
				c.Seq, c.Source, c.Severity, c.User, c.System)
		}
	}
	return buf.String()
}

func fail(typ, expected, actual string, cycles []trace.Cycle) *AssertionError {
	return &AssertionError{Type: typ, Expected: expected, Actual: actual, Cycles: cycles}
}

func assertNodeText(a Assertion, actx *AssertionContext) error {
	n := actx.Engine.Layout().Node(a.ref())
	if n == nil {
		return fail(a.Type, fmt.Sprintf("node %s with text %q", a.ref(), a.Text), "node not found", nil)
	}
	if n.Text != a.Text {
		return fail(a.Type, fmt.Sprintf("text %q", a.Text), fmt.Sprintf("text %q", n.Text), nil)
	}
	return nil
}

func assertCursor(a Assertion, actx *AssertionContext) error {
	n := actx.Engine.Layout().Node(a.ref())
	if n == nil {
		return fail(a.Type, fmt.Sprintf("cursor in node %s", a.ref()), "node not found", nil)
	}
	if n.Cursor != *a.Offset {
		return fail(a.Type, fmt.Sprintf("cursor at %d", *a.Offset), fmt.Sprintf("cursor at %d", n.Cursor), nil)
	}
	if a.Anchor != nil && n.Anchor != *a.Anchor {
		return fail(a.Type, fmt.Sprintf("anchor at %d", *a.Anchor), fmt.Sprintf("anchor at %d", n.Anchor), nil)
	}
	return nil
}

func assertFocus(a Assertion, actx *AssertionContext) error {
	got, ok := actx.Engine.Layout().Focus()
	actual := "nothing focused"
	if ok {
		actual = "focus on " + got.String()
	}
	if a.None {
		if ok {
			return fail(a.Type, "nothing focused", actual, nil)
		}
		return nil
	}
	if !ok || got != a.ref() {
		return fail(a.Type, "focus on "+a.ref().String(), actual, nil)
	}
	return nil
}

func assertScrollOffset(a Assertion, actx *AssertionContext) error {
	off, ok := actx.Engine.Layout().ScrollOffset(a.ref())
	if !ok {
		return fail(a.Type, fmt.Sprintf("scroll offset of node %s", a.ref()), "node not found", nil)
	}
	if off.X != a.X || off.Y != a.Y {
		return fail(a.Type, fmt.Sprintf("offset (%g, %g)", a.X, a.Y), fmt.Sprintf("offset (%g, %g)", off.X, off.Y), nil)
	}
	return nil
}

func assertTimers(a Assertion, actx *AssertionContext) error {
	ids := actx.Engine.Timers().IDs()
	got := make([]uint64, len(ids))
	for i, id := range ids {
		got[i] = uint64(id)
	}
	want := a.IDs
	if want == nil {
		want = []uint64{}
	}
	if !slices.Equal(got, want) {
		return fail(a.Type, fmt.Sprintf("timers %v", want), fmt.Sprintf("timers %v", got), nil)
	}
	return nil
}

// assertPlatformCalls checks that the expected calls appear in order.
// Calls don't need to be consecutive.
func assertPlatformCalls(a Assertion, actx *AssertionContext) error {
	calls := actx.Platform.Calls()
	actual := make([]string, len(calls))
	for i, c := range calls {
		actual[i] = c.String()
	}
	next := 0
	for _, c := range actual {
		if next < len(a.Calls) && c == a.Calls[next] {
			next++
		}
	}
	if next < len(a.Calls) {
		return fail(a.Type,
			fmt.Sprintf("calls in order: %v", a.Calls),
			fmt.Sprintf("missing %s in %v", a.Calls[next], actual),
			nil)
	}
	return nil
}

func assertReinvocation(a Assertion, actx *AssertionContext) error {
	got := actx.Engine.Layout().Checker().Phase(a.ref())
	if got.String() != a.Phase {
		return fail(a.Type, fmt.Sprintf("node %s %s", a.ref(), a.Phase), fmt.Sprintf("node %s %s", a.ref(), got), nil)
	}
	return nil
}

// firstCycle returns the index of the first cycle mentioning tag.
func firstCycle(cycles []trace.Cycle, tag string) int {
	for i, c := range cycles {
		if slices.Contains(c.User, tag) || slices.Contains(c.System, tag) {
			return i
		}
	}
	return -1
}

func assertTraceContains(cycles []trace.Cycle, a Assertion) error {
	if firstCycle(cycles, a.Tag) < 0 {
		return fail(a.Type, fmt.Sprintf("change %s in trace", a.Tag), "not found in trace", cycles)
	}
	return nil
}

// assertTraceOrder checks that tags first appear in the given order.
// Other changes may appear in between, and several tags may share a cycle
// as long as their order is preserved.
func assertTraceOrder(cycles []trace.Cycle, a Assertion) error {
	var flat []string
	for _, c := range cycles {
		flat = append(flat, c.User...)
		flat = append(flat, c.System...)
	}
	prev := -1
	for _, tag := range a.Tags {
		pos := slices.Index(flat, tag)
		if pos < 0 {
			return fail(a.Type, fmt.Sprintf("all changes present: %v", a.Tags), "missing change: "+tag, cycles)
		}
		if pos <= prev {
			return fail(a.Type, fmt.Sprintf("changes in order: %v", a.Tags),
				fmt.Sprintf("%s (pos %d) appears too early", tag, pos+1), cycles)
		}
		prev = pos
	}
	return nil
}

// assertTraceCount counts occurrences of a tag across all cycles, or the
// cycles produced by a source. A source without an id ("timer") matches
// every id ("timer/7").
func assertTraceCount(cycles []trace.Cycle, a Assertion) error {
	count := 0
	what := a.Tag
	for _, c := range cycles {
		if a.Tag != "" {
			for _, t := range c.User {
				if t == a.Tag {
					count++
				}
			}
			for _, t := range c.System {
				if t == a.Tag {
					count++
				}
			}
			continue
		}
		if c.Source == a.Source || strings.HasPrefix(c.Source, a.Source+"/") {
			count++
		}
	}
	if a.Tag == "" {
		what = "cycles from " + a.Source
	}
	if count != a.Count {
		return fail(a.Type, fmt.Sprintf("%d occurrences of %s", a.Count, what), fmt.Sprintf("%d occurrences", count), cycles)
	}
	return nil
}

func assertErrors(codes []string, a Assertion) error {
	want := a.Codes
	if want == nil {
		want = []string{}
	}
	got := codes
	if got == nil {
		got = []string{}
	}
	if !slices.Equal(got, want) {
		return fail(a.Type, fmt.Sprintf("errors %v", want), fmt.Sprintf("errors %v", got), nil)
	}
	return nil
}

// EvaluateAssertions runs all assertions and returns their failure messages.
// Evaluation continues past failures so every problem is reported at once.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertNodeText:
			err = assertNodeText(a, actx)
		case AssertCursor:
			err = assertCursor(a, actx)
		case AssertFocus:
			err = assertFocus(a, actx)
		case AssertScrollOffset:
			err = assertScrollOffset(a, actx)
		case AssertTimers:
			err = assertTimers(a, actx)
		case AssertPlatformCalls:
			err = assertPlatformCalls(a, actx)
		case AssertReinvocation:
			err = assertReinvocation(a, actx)
		case AssertTraceContains:
			err = assertTraceContains(result.Cycles, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Cycles, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Cycles, a)
		case AssertErrors:
			err = assertErrors(result.Codes, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}
