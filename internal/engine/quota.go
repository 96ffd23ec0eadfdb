package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer bounds how many steps one source may take in a cycle.
//
// A QueueWindowStateSequence change applies its states one at a time, each
// with its own previous-state snapshot and platform sync. The enforcer caps
// the sequence at max_queued_window_states so a callback cannot stall the
// UI goroutine with an unbounded sequence. States past the limit are
// dropped and the overflow is logged.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates an enforcer allowing maxSteps steps.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one step and fails once the limit is passed.
func (q *QuotaEnforcer) Check(source string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			Source: source,
			Steps:  q.current,
			Limit:  q.maxSteps,
		}
	}
	return nil
}

// Reset sets the step counter back to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the number of steps counted.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned by Check once the limit is passed.
type StepsExceededError struct {
	Source string
	Steps  int
	Limit  int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("%s exceeded step quota: %d steps > %d limit", e.Source, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err wraps a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
