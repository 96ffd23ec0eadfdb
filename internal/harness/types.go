package harness

import (
	"github.com/roach88/changeflow/internal/severity"
	"github.com/roach88/changeflow/internal/trace"
)

// StepResult is what one step reported.
type StepResult struct {
	Index    int               `json:"index"`
	Kind     string            `json:"kind"`
	Severity severity.Severity `json:"severity"`

	// Invoked counts handlers run by a dispatch step.
	Invoked int `json:"invoked,omitempty"`

	// Rendered counts virtual views regenerated by a render step.
	Rendered int `json:"rendered,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Steps has one entry per executed step.
	Steps []StepResult `json:"steps"`

	// Cycles is the journal of every pipeline cycle, in order. Used for
	// trace assertions and golden comparison.
	Cycles []trace.Cycle `json:"cycles"`

	// Codes lists the codes of runtime errors the engine collected.
	Codes []string `json:"codes,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Cycles: []trace.Cycle{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Severity is the combined severity of every step.
func (r *Result) Severity() severity.Severity {
	out := severity.NoOp
	for _, s := range r.Steps {
		out = severity.Combine(out, s.Severity)
	}
	return out
}
