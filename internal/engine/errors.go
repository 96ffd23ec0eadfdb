package engine

import (
	"errors"
	"fmt"
)

// RuntimeError describes a problem the pipeline resolved locally.
//
// Runtime errors are never returned from Process or Tick. They are logged
// and collected so hosts and tests can inspect them with Engine.Errors:
//   - Missing rule: a tag has no entry in a dispatch table
//   - Consumed earlier: a change the immediate stage owns reached the
//     deferred stage
//   - Quota exceeded: a window-state sequence was longer than allowed
//   - Unresolved target: a focus target named nothing focusable
//   - Reserved id: application code tried to claim a framework timer id
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Tag is the change tag involved, if any.
	Tag string

	// Seq is the cycle in which the error occurred.
	Seq int64
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	ErrCodeMissingRule      RuntimeErrorCode = "MISSING_RULE"
	ErrCodeConsumedEarlier  RuntimeErrorCode = "CONSUMED_EARLIER"
	ErrCodeQuotaExceeded    RuntimeErrorCode = "QUOTA_EXCEEDED"
	ErrCodeUnresolvedTarget RuntimeErrorCode = "UNRESOLVED_TARGET"
	ErrCodePlatformRefused  RuntimeErrorCode = "PLATFORM_REFUSED"
	ErrCodeReservedID       RuntimeErrorCode = "RESERVED_ID"
)

func (e *RuntimeError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("%s: %s (tag=%s, seq=%d)", e.Code, e.Message, e.Tag, e.Seq)
	}
	return fmt.Sprintf("%s: %s (seq=%d)", e.Code, e.Message, e.Seq)
}

// PlatformError wraps a failed platform call.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: platform %s failed: %v", ErrCodePlatformRefused, e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// IsPlatformError reports whether err wraps a PlatformError.
func IsPlatformError(err error) bool {
	var pe *PlatformError
	return errors.As(err, &pe)
}

// IsMissingRuleError reports whether err is a dispatch table miss.
func IsMissingRuleError(err error) bool {
	return hasCode(err, ErrCodeMissingRule)
}

// IsQuotaError reports whether err is a quota error, either a RuntimeError
// with ErrCodeQuotaExceeded or a StepsExceededError.
func IsQuotaError(err error) bool {
	if hasCode(err, ErrCodeQuotaExceeded) {
		return true
	}
	return IsStepsExceededError(err)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewMissingRuleError creates a RuntimeError for a dispatch table miss.
func NewMissingRuleError(stage, tag string, seq int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeMissingRule,
		Message: fmt.Sprintf("%s table has no entry", stage),
		Tag:     tag,
		Seq:     seq,
	}
}

// NewQuotaError creates a RuntimeError for an over-long sequence.
func NewQuotaError(tag string, steps, limit int, seq int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("%d steps exceed limit %d", steps, limit),
		Tag:     tag,
		Seq:     seq,
	}
}

func newConsumedEarlierError(tag string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeConsumedEarlier,
		Message: "change belongs to the immediate stage",
		Tag:     tag,
	}
}

func newUnresolvedTargetError(tag string, target fmt.Stringer) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnresolvedTarget,
		Message: fmt.Sprintf("focus target %s resolves to nothing", target),
		Tag:     tag,
	}
}

func newReservedIDError(tag string, id uint64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeReservedID,
		Message: fmt.Sprintf("timer id %#x is reserved", id),
		Tag:     tag,
	}
}
