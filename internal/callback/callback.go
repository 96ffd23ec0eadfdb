// Package callback holds what application callbacks produce during one
// cycle: the deferred user changes they pushed, the severity they asked for,
// and the propagation flags they set.
package callback

import (
	"time"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/severity"
)

// Output is the result of running one or more callbacks.
type Output struct {
	Severity                 severity.Severity
	Deferred                 []change.UserChange
	StopPropagation          bool
	StopImmediatePropagation bool
	PreventDefault           bool
}

// Merge appends other's changes after o's and combines everything else.
func (o *Output) Merge(other Output) {
	o.Severity = severity.Combine(o.Severity, other.Severity)
	o.Deferred = append(o.Deferred, other.Deferred...)
	o.StopPropagation = o.StopPropagation || other.StopPropagation
	o.StopImmediatePropagation = o.StopImmediatePropagation || other.StopImmediatePropagation
	o.PreventDefault = o.PreventDefault || other.PreventDefault
}

// Empty reports whether o requests nothing at all.
func (o Output) Empty() bool {
	return o.Severity == severity.NoOp && len(o.Deferred) == 0 &&
		!o.StopPropagation && !o.StopImmediatePropagation && !o.PreventDefault
}

// Context is the change.Context handed to a running callback.
type Context struct {
	now time.Time
	out Output
}

var _ change.Context = (*Context)(nil)

// NewContext returns a context whose Now reports now.
func NewContext(now time.Time) *Context {
	return &Context{now: now}
}

// PushUserChange queues c for the cycle's appliers. Changes are never
// applied while the callback runs.
func (c *Context) PushUserChange(ch change.UserChange) {
	c.out.Deferred = append(c.out.Deferred, ch)
}

func (c *Context) StopPropagation() {
	c.out.StopPropagation = true
	c.PushUserChange(change.StopPropagation{})
}

func (c *Context) StopImmediatePropagation() {
	c.out.StopImmediatePropagation = true
	c.PushUserChange(change.StopImmediatePropagation{})
}

func (c *Context) PreventDefault() {
	c.out.PreventDefault = true
	c.PushUserChange(change.PreventDefault{})
}

func (c *Context) Now() time.Time { return c.now }

// Output returns what has been collected so far.
func (c *Context) Output() Output { return c.out }

// Invoke runs cb on a fresh context and folds its return value into the
// output severity.
func Invoke(cb change.Callback, now time.Time) Output {
	ctx := NewContext(now)
	if cb == nil {
		return ctx.out
	}
	sev := cb(ctx)
	ctx.out.Severity = severity.Combine(ctx.out.Severity, sev)
	return ctx.out
}

// Target is one node on a dispatch path with its handlers in registration
// order.
type Target struct {
	Node     change.NodeRef
	Handlers []change.Callback
}

// Dispatch invokes handlers target by target. StopImmediatePropagation ends
// dispatch right after the handler that set it; StopPropagation lets the
// rest of the current target's handlers run first. It returns the merged
// output and how many handlers ran.
func Dispatch(targets []Target, now time.Time) (Output, int) {
	var merged Output
	invoked := 0
	for _, target := range targets {
		for _, h := range target.Handlers {
			out := Invoke(h, now)
			invoked++
			merged.Merge(out)
			if out.StopImmediatePropagation {
				return merged, invoked
			}
		}
		if merged.StopPropagation {
			break
		}
	}
	return merged, invoked
}
