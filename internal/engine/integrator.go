package engine

import (
	"time"

	"github.com/roach88/changeflow/internal/callback"
	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/severity"
	"github.com/roach88/changeflow/internal/trace"
)

// autoScrollStep is how far one auto-scroll tick moves the container.
const autoScrollStep = 20.0

// Tick runs every timer due at now, then at most one queued thread
// writeback, and returns the combined severity.
//
// Each timer fires at most once per tick, even when it is overdue by more
// than one interval or a callback restarts it. A timer whose callback
// starts another due timer lets that timer fire in the same tick. One-shot
// timers are removed before their callback's changes apply, so a callback
// may re-arm itself.
func (e *Engine) Tick(now time.Time) severity.Severity {
	e.ticks++
	tick := e.ticks
	defer e.guard.Clear(tick)

	sev := severity.NoOp
	for {
		fired := false
		for _, id := range e.timers.Expired(now) {
			if e.guard.Fired(tick, id) || !e.timers.IsDue(id, now) {
				continue
			}
			e.guard.Record(tick, id)
			t, _ := e.timers.Get(id)
			oneShot := e.timers.MarkRun(id, now)

			out := callback.Invoke(t.Callback, now)
			if oneShot {
				out.Deferred = append([]change.UserChange{change.RemoveTimer{ID: id}}, out.Deferred...)
			}
			sev = severity.Combine(sev, e.processOutput(trace.TimerSource(uint64(id)), out, nil))
			fired = true
		}
		if !fired {
			break
		}
	}

	for {
		r, ok := e.queue.TryDequeue()
		if !ok {
			break
		}
		if !e.threads.Has(r.ID) {
			e.logger.Debug("writeback from removed thread dropped", "thread", uint64(r.ID))
			continue
		}
		out := callback.Invoke(r.Writeback.Callback, now)
		if r.Writeback.Finished {
			out.Deferred = append(out.Deferred, change.RemoveThread{ID: r.ID})
		}
		sev = severity.Combine(sev, e.processOutput(trace.ThreadSource(uint64(r.ID)), out, nil))
		break
	}
	return sev
}

// frameworkTimers builds the reserved timers the deferred stage starts on
// its own. Their callbacks only push changes, like any application timer.
func (e *Engine) frameworkTimers() map[change.TimerID]change.Timer {
	return map[change.TimerID]change.Timer{
		change.CursorBlinkTimerID: {
			Interval: e.cfg.CursorBlink(),
			Callback: e.blink,
		},
		change.AutoScrollTimerID: {
			Interval: e.cfg.AutoScrollInterval(),
			Callback: e.autoScroll,
		},
		change.ThreadPollTimerID: {
			Interval: e.cfg.ThreadPoll(),
			Callback: func(change.Context) severity.Severity { return severity.NoOp },
		},
	}
}

// blink toggles cursor visibility while a cursor is active.
func (e *Engine) blink(ctx change.Context) severity.Severity {
	if !e.layout.Cursor.Active {
		return severity.NoOp
	}
	ctx.PushUserChange(change.SetCursorVisibility{Visible: !e.layout.Cursor.Visible})
	return severity.NoOp
}

// autoScroll scrolls the drag's container toward the pointer. Once the
// drag is over the timer removes itself.
func (e *Engine) autoScroll(ctx change.Context) severity.Severity {
	if !e.layout.Drag.Active {
		ctx.PushUserChange(change.RemoveTimer{ID: change.AutoScrollTimerID})
		return severity.NoOp
	}
	pointer := e.layout.Window().Mouse.Position
	if ref, off, ok := e.layout.AutoScrollTarget(pointer, autoScrollStep); ok {
		ctx.PushUserChange(change.ScrollTo{Node: ref, Offset: off})
	}
	return severity.NoOp
}
