// Package severity implements the redraw-cost lattice.
//
// Severities form a total order from NoOp (nothing to do) to RegenerateAll
// (rebuild every window). Results from independent change batches are merged
// with Combine, which is max under that order: associative, commutative and
// idempotent, so batches can be merged in any order without changing the
// final verdict. A cycle's severity never goes backward.
package severity

import (
	"fmt"
	"strings"
)

// Severity is a redraw-cost level.
type Severity uint8

const (
	// NoOp means nothing visible changed.
	NoOp Severity = iota
	// RepaintOnly means the compositor must re-present cached draw
	// instructions (scroll offsets, cursor blink, texture refresh).
	RepaintOnly
	// UpdateDrawInstructions means the display list must be rebuilt.
	UpdateDrawInstructions
	// ReHitTest means the hit tester must run again and input be re-processed.
	ReHitTest
	// IncrementalRelayout means layout must re-run for the affected nodes.
	IncrementalRelayout
	// RegenerateSubtree means a DOM subtree must be rebuilt.
	RegenerateSubtree
	// RegenerateAll means every DOM must be rebuilt.
	RegenerateAll
)

var names = [...]string{
	NoOp:                   "no-op",
	RepaintOnly:            "repaint-only",
	UpdateDrawInstructions: "update-draw-instructions",
	ReHitTest:              "re-hit-test",
	IncrementalRelayout:    "incremental-relayout",
	RegenerateSubtree:      "regenerate-subtree",
	RegenerateAll:          "regenerate-all",
}

// All returns every severity, weakest first.
func All() []Severity {
	return []Severity{
		NoOp,
		RepaintOnly,
		UpdateDrawInstructions,
		ReHitTest,
		IncrementalRelayout,
		RegenerateSubtree,
		RegenerateAll,
	}
}

// Combine returns the stronger of a and b.
func Combine(a, b Severity) Severity {
	if a > b {
		return a
	}
	return b
}

// CombineAll folds Combine over ss, starting from NoOp.
func CombineAll(ss ...Severity) Severity {
	out := NoOp
	for _, s := range ss {
		out = Combine(out, s)
	}
	return out
}

// NeedsRepaint reports whether anything must be presented again.
func (s Severity) NeedsRepaint() bool { return s >= RepaintOnly }

// NeedsRedraw reports whether the platform must be told to redraw.
func (s Severity) NeedsRedraw() bool { return s >= UpdateDrawInstructions }

// NeedsRelayout reports whether layout must re-run before redrawing.
func (s Severity) NeedsRelayout() bool { return s >= IncrementalRelayout }

// Valid reports whether s is one of the defined levels.
func (s Severity) Valid() bool { return int(s) < len(names) }

func (s Severity) String() string {
	if !s.Valid() {
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
	return names[s]
}

// Parse converts a kebab-case name back into a Severity.
func Parse(name string) (Severity, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range names {
		if candidate == n {
			return Severity(i), nil
		}
	}
	return NoOp, fmt.Errorf("unknown severity %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. yaml.v3 and
// encoding/json both honour it.
func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
