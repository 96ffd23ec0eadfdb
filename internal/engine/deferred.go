package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/config"
	"github.com/roach88/changeflow/internal/layout"
	"github.com/roach88/changeflow/internal/platform"
	"github.com/roach88/changeflow/internal/severity"
	"github.com/roach88/changeflow/internal/timer"
)

// DeferredApplier applies forwarded user changes and all system changes.
// It is the only stage that talks to the platform.
//
// Platform failures never abort the cycle: the failing change is logged,
// reported, and the remaining changes still apply. Timer registration is
// rolled back by the registry when the platform refuses a handle.
type DeferredApplier struct {
	layout    *layout.State
	timers    *timer.Registry
	threads   *timer.Threads
	queue     *writebackQueue
	platform  platform.Platform
	sink      timer.Sink
	framework map[change.TimerID]change.Timer
	cfg       config.Config
	now       func() time.Time
	logger    *slog.Logger
	report    func(error)
}

// Apply applies forwarded user changes, then system changes, in input
// order, and returns the combined severity.
func (d *DeferredApplier) Apply(forwarded []change.UserChange, system []change.SystemChange) severity.Severity {
	sev := severity.NoOp
	for _, c := range forwarded {
		tag := c.UserTag()
		rule, ok := deferredUserTable[tag]
		if !ok {
			d.miss(tag.String())
			continue
		}
		if rule.consumedEarlier {
			err := newConsumedEarlierError(tag.String())
			d.logger.Error("user change reached deferred stage", "tag", tag.String(), "error", err)
			d.report(err)
			continue
		}
		s := rule.apply(d, c)
		d.logger.Debug("applied user change", "stage", "deferred", "tag", tag.String(), "severity", s)
		sev = severity.Combine(sev, s)
	}
	for _, c := range system {
		tag := c.SystemTag()
		rule, ok := systemTable[tag]
		if !ok {
			d.miss(tag.String())
			continue
		}
		s := rule(d, c)
		d.logger.Debug("applied system change", "tag", tag.String(), "severity", s)
		sev = severity.Combine(sev, s)
	}
	return sev
}

func (d *DeferredApplier) miss(tag string) {
	err := NewMissingRuleError("deferred", tag, 0)
	d.logger.Error("no deferred rule for change", "tag", tag, "error", err)
	d.report(err)
}

// fail logs a refused platform call and reports it. The cycle carries on.
func (d *DeferredApplier) fail(op string, err error) {
	d.logger.Warn("platform call failed", "op", op, "error", err)
	d.report(err)
}

type deferredUserRule struct {
	consumedEarlier bool
	apply           func(d *DeferredApplier, c change.UserChange) severity.Severity
}

// consumedEarlier marks a tag the immediate stage owns. Reaching it here
// means a caller bypassed the immediate stage.
var consumedEarlier = deferredUserRule{consumedEarlier: true}

func deferUser[T change.UserChange](fn func(*DeferredApplier, T) severity.Severity) deferredUserRule {
	return deferredUserRule{apply: func(d *DeferredApplier, c change.UserChange) severity.Severity {
		v, ok := asChange[T](c)
		if !ok {
			return severity.NoOp
		}
		return fn(d, v)
	}}
}

type systemRule func(d *DeferredApplier, c change.SystemChange) severity.Severity

func deferSystem[T change.SystemChange](fn func(*DeferredApplier, T) severity.Severity) systemRule {
	return func(d *DeferredApplier, c change.SystemChange) severity.Severity {
		v, ok := asChange[T](c)
		if !ok {
			return severity.NoOp
		}
		return fn(d, v)
	}
}

// deferredUserTable mirrors immediateTable: every tag the immediate stage
// forwards has a rule here and every other tag is consumedEarlier.
var deferredUserTable = map[change.UserTag]deferredUserRule{
	change.TagModifyWindowState:        deferUser((*DeferredApplier).modifyWindowState),
	change.TagQueueWindowStateSequence: deferUser((*DeferredApplier).queueWindowStateSequence),
	change.TagCreateNewWindow:          deferUser((*DeferredApplier).createNewWindow),
	change.TagCloseWindow:              deferUser((*DeferredApplier).closeWindow),
	change.TagBeginInteractiveMove:     deferUser((*DeferredApplier).beginInteractiveMove),
	change.TagSetFocusTarget:           deferUser((*DeferredApplier).setFocusTarget),
	change.TagAddTimer:                 deferUser((*DeferredApplier).addTimer),
	change.TagRemoveTimer:              deferUser((*DeferredApplier).removeTimer),
	change.TagAddThread:                deferUser((*DeferredApplier).addThread),
	change.TagRemoveThread:             deferUser((*DeferredApplier).removeThread),
	change.TagOpenMenu:                 deferUser((*DeferredApplier).openMenu),
	change.TagShowTooltip:              deferUser((*DeferredApplier).showTooltip),
	change.TagHideTooltip:              deferUser((*DeferredApplier).hideTooltip),

	change.TagStopPropagation:            consumedEarlier,
	change.TagStopImmediatePropagation:   consumedEarlier,
	change.TagPreventDefault:             consumedEarlier,
	change.TagChangeNodeText:             consumedEarlier,
	change.TagChangeNodeImage:            consumedEarlier,
	change.TagChangeNodeImageMask:        consumedEarlier,
	change.TagChangeNodeCSS:              consumedEarlier,
	change.TagUpdateImageCallback:        consumedEarlier,
	change.TagUpdateAllImageCallbacks:    consumedEarlier,
	change.TagUpdateVirtualView:          consumedEarlier,
	change.TagInsertChildNode:            consumedEarlier,
	change.TagDeleteNode:                 consumedEarlier,
	change.TagSetNodeClasses:             consumedEarlier,
	change.TagScrollTo:                   consumedEarlier,
	change.TagScrollIntoView:             consumedEarlier,
	change.TagScrollActiveCursorIntoView: consumedEarlier,
	change.TagAddImageToCache:            consumedEarlier,
	change.TagRemoveImageFromCache:       consumedEarlier,
	change.TagReloadSystemFonts:          consumedEarlier,
	change.TagInsertText:                 consumedEarlier,
	change.TagDeleteBackward:             consumedEarlier,
	change.TagDeleteForward:              consumedEarlier,
	change.TagMoveCursor:                 consumedEarlier,
	change.TagSetSelection:               consumedEarlier,
	change.TagMoveCursorLeft:             consumedEarlier,
	change.TagMoveCursorRight:            consumedEarlier,
	change.TagMoveCursorUp:               consumedEarlier,
	change.TagMoveCursorDown:             consumedEarlier,
	change.TagMoveCursorToLineStart:      consumedEarlier,
	change.TagMoveCursorToLineEnd:        consumedEarlier,
	change.TagMoveCursorToDocumentStart:  consumedEarlier,
	change.TagMoveCursorToDocumentEnd:    consumedEarlier,
	change.TagSetCopyContent:             consumedEarlier,
	change.TagSetCutContent:              consumedEarlier,
	change.TagSetDragData:                consumedEarlier,
	change.TagAcceptDrop:                 consumedEarlier,
	change.TagSetDropEffect:              consumedEarlier,
	change.TagSetCursorVisibility:        consumedEarlier,
	change.TagResetCursorBlink:           consumedEarlier,
}

var systemTable = map[change.SystemTag]systemRule{
	change.TagSetFocus:              deferSystem((*DeferredApplier).setFocus),
	change.TagRestyleForFocus:       deferSystem((*DeferredApplier).restyleForFocus),
	change.TagStartCursorBlinkTimer: deferSystem((*DeferredApplier).startCursorBlinkTimer),
	change.TagStopCursorBlinkTimer:  deferSystem((*DeferredApplier).stopCursorBlinkTimer),
	change.TagActivateNodeDrag:      deferSystem((*DeferredApplier).activateNodeDrag),
	change.TagDeactivateDrag:        deferSystem((*DeferredApplier).deactivateDrag),
	change.TagSetDragOverState:      deferSystem((*DeferredApplier).setDragOverState),
	change.TagStartAutoScrollTimer:  deferSystem((*DeferredApplier).startAutoScrollTimer),
	change.TagStopAutoScrollTimer:   deferSystem((*DeferredApplier).stopAutoScrollTimer),
	change.TagScrollbarDragStart:    deferSystem((*DeferredApplier).scrollbarDragStart),
	change.TagScrollbarDragUpdate:   deferSystem((*DeferredApplier).scrollbarDragUpdate),
	change.TagScrollbarDragEnd:      deferSystem((*DeferredApplier).scrollbarDragEnd),
	change.TagClearAllSelections:    deferSystem((*DeferredApplier).clearAllSelections),
	change.TagScrollNodeIntoView:    deferSystem((*DeferredApplier).scrollNodeIntoView),
}

// Window

// applyWindowState replaces the window state and rates the difference.
// A resize invalidates every rendered subtree.
func (d *DeferredApplier) applyWindowState(next change.WindowState) severity.Severity {
	prev := d.layout.Window()
	if prev == next {
		return severity.NoOp
	}
	d.layout.SetWindow(next)

	sev := severity.RepaintOnly
	if prev.Mouse != next.Mouse || prev.Keyboard != next.Keyboard {
		sev = severity.ReHitTest
	}
	if prev.Size != next.Size {
		dropped := d.layout.ClearRenderedSubtrees()
		d.logger.Debug("window resized", "from", prev.Size, "to", next.Size, "dropped_subtrees", dropped)
		sev = severity.RegenerateAll
	}
	return sev
}

func (d *DeferredApplier) modifyWindowState(c change.ModifyWindowState) severity.Severity {
	return d.applyWindowState(c.State)
}

// queueWindowStateSequence applies each state as if it were its own
// modification: snapshot, apply, sync. The last state is synced with the
// rest of the cycle. States beyond max_queued_window_states are dropped.
func (d *DeferredApplier) queueWindowStateSequence(c change.QueueWindowStateSequence) severity.Severity {
	quota := NewQuotaEnforcer(d.cfg.MaxQueuedWindowStates)
	sev := severity.NoOp
	for i, st := range c.States {
		if err := quota.Check(change.TagQueueWindowStateSequence.String()); err != nil {
			qerr := NewQuotaError(change.TagQueueWindowStateSequence.String(), len(c.States), quota.MaxSteps(), 0)
			d.logger.Warn("window state sequence truncated", "applied", i, "dropped", len(c.States)-i, "error", err)
			d.report(qerr)
			break
		}
		if i > 0 {
			if err := d.platform.SyncWindowState(d.layout.Window()); err != nil {
				d.fail("SyncWindowState", err)
			}
			d.layout.SavePreviousWindow()
		}
		sev = severity.Combine(sev, d.applyWindowState(st))
	}
	return sev
}

func (d *DeferredApplier) createNewWindow(c change.CreateNewWindow) severity.Severity {
	if err := d.platform.CreateWindow(c.Options); err != nil {
		d.fail("CreateWindow", err)
	}
	return severity.NoOp
}

// closeWindow only raises the flag; the host decides whether to honour it.
func (d *DeferredApplier) closeWindow(change.CloseWindow) severity.Severity {
	w := d.layout.Window()
	w.Flags.CloseRequested = true
	d.layout.SetWindow(w)
	return severity.NoOp
}

func (d *DeferredApplier) beginInteractiveMove(change.BeginInteractiveMove) severity.Severity {
	if err := d.platform.BeginInteractiveMove(); err != nil {
		d.fail("BeginInteractiveMove", err)
	}
	return severity.NoOp
}

// Focus

func (d *DeferredApplier) setFocusTarget(c change.SetFocusTarget) severity.Severity {
	next, ok := d.layout.ResolveFocusTarget(c.Target)
	if !ok {
		err := newUnresolvedTargetError(change.TagSetFocusTarget.String(), c.Target)
		d.logger.Warn("focus target not resolved", "target", c.Target.String(), "error", err)
		d.report(err)
		return severity.NoOp
	}
	return d.moveFocus(next)
}

// moveFocus transfers focus, restyles, scrolls the new node into view and
// starts or stops the cursor blink timer to match.
func (d *DeferredApplier) moveFocus(next *change.NodeRef) severity.Severity {
	prev := d.layout.SetFocus(next)
	if sameRef(prev, next) {
		return severity.NoOp
	}
	sev := severity.NoOp
	if d.layout.RestyleFocus(prev, next) {
		sev = severity.UpdateDrawInstructions
	}

	if next == nil {
		d.stopTimer(change.CursorBlinkTimerID)
		return sev
	}
	container, changed := d.layout.ScrollIntoView(*next)
	sev = severity.Combine(sev, scrollSeverity(d.layout, container, changed))

	if n := d.layout.Node(*next); n != nil && n.Editable {
		d.layout.MoveCursor(*next, layout.MoveDocumentEnd, false)
		d.startFramework(change.CursorBlinkTimerID)
		sev = severity.Combine(sev, severity.UpdateDrawInstructions)
	} else {
		d.stopTimer(change.CursorBlinkTimerID)
	}
	return sev
}

func sameRef(a, b *change.NodeRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (d *DeferredApplier) setFocus(c change.SetFocus) severity.Severity {
	prev := d.layout.SetFocus(c.New)
	if sameRef(prev, c.New) {
		return severity.NoOp
	}
	return severity.UpdateDrawInstructions
}

func (d *DeferredApplier) restyleForFocus(c change.RestyleForFocus) severity.Severity {
	return applied(d.layout.RestyleFocus(c.Old, c.New), severity.UpdateDrawInstructions)
}

// Timers and threads

func (d *DeferredApplier) addTimer(c change.AddTimer) severity.Severity {
	if c.ID.IsReserved() {
		err := newReservedIDError(change.TagAddTimer.String(), uint64(c.ID))
		d.logger.Warn("timer id is reserved", "timer", uint64(c.ID), "error", err)
		d.report(err)
		return severity.NoOp
	}
	if err := d.timers.Start(c.ID, c.Timer, d.now(), d.platform); err != nil {
		d.fail("StartTimer", err)
	}
	return severity.NoOp
}

func (d *DeferredApplier) removeTimer(c change.RemoveTimer) severity.Severity {
	d.stopTimer(c.ID)
	return severity.NoOp
}

// startFramework starts one of the reserved timers unless it is already
// running. It reports whether a new timer was started.
func (d *DeferredApplier) startFramework(id change.TimerID) bool {
	if d.timers.Has(id) {
		return false
	}
	t, ok := d.framework[id]
	if !ok {
		d.logger.Error("no framework timer registered", "timer", uint64(id))
		return false
	}
	if err := d.timers.Start(id, t, d.now(), d.platform); err != nil {
		d.fail("StartTimer", err)
		return false
	}
	return true
}

func (d *DeferredApplier) stopTimer(id change.TimerID) bool {
	stopped, err := d.timers.Stop(id, d.platform)
	if err != nil {
		d.fail("StopTimer", err)
	}
	return stopped
}

// addThread starts the thread and, for the first one, the poll timer that
// keeps the host ticking while writebacks may arrive. Re-adding a running id
// replaces the thread and discards what the old one had queued.
func (d *DeferredApplier) addThread(c change.AddThread) severity.Severity {
	replaced := d.threads.Has(c.ID)
	if replaced {
		d.threads.Remove(c.ID)
		if n := d.queue.DropThread(c.ID); n > 0 {
			d.logger.Debug("dropped writebacks of replaced thread", "thread", uint64(c.ID), "count", n)
		}
	}
	if d.threads.Add(c.ID, c.Thread, d.sink) && !replaced {
		d.startFramework(change.ThreadPollTimerID)
	}
	return severity.NoOp
}

func (d *DeferredApplier) removeThread(c change.RemoveThread) severity.Severity {
	removed, last := d.threads.Remove(c.ID)
	if !removed {
		return severity.NoOp
	}
	if n := d.queue.DropThread(c.ID); n > 0 {
		d.logger.Debug("dropped pending writebacks", "thread", uint64(c.ID), "count", n)
	}
	if last {
		d.stopTimer(change.ThreadPollTimerID)
	}
	return severity.NoOp
}

// Menus and tooltips

func (d *DeferredApplier) openMenu(c change.OpenMenu) severity.Severity {
	pos := c.Menu.Position
	if c.Position != nil {
		pos = *c.Position
	}
	if err := d.platform.ShowMenu(c.Menu, pos); err != nil {
		d.fail("ShowMenu", err)
		return severity.NoOp
	}
	return severity.RepaintOnly
}

func (d *DeferredApplier) showTooltip(c change.ShowTooltip) severity.Severity {
	if err := d.platform.ShowTooltip(c.Text, c.Position); err != nil {
		d.fail("ShowTooltip", err)
	}
	return severity.NoOp
}

func (d *DeferredApplier) hideTooltip(change.HideTooltip) severity.Severity {
	if err := d.platform.HideTooltip(); err != nil {
		d.fail("HideTooltip", err)
	}
	return severity.NoOp
}

// Cursor blink

func (d *DeferredApplier) startCursorBlinkTimer(change.StartCursorBlinkTimer) severity.Severity {
	d.startFramework(change.CursorBlinkTimerID)
	return severity.NoOp
}

func (d *DeferredApplier) stopCursorBlinkTimer(change.StopCursorBlinkTimer) severity.Severity {
	d.stopTimer(change.CursorBlinkTimerID)
	return severity.NoOp
}

// Drag and drop

func (d *DeferredApplier) activateNodeDrag(c change.ActivateNodeDrag) severity.Severity {
	return applied(d.layout.ActivateDrag(c.Node), severity.UpdateDrawInstructions)
}

func (d *DeferredApplier) deactivateDrag(change.DeactivateDrag) severity.Severity {
	return applied(d.layout.DeactivateDrag(), severity.UpdateDrawInstructions)
}

func (d *DeferredApplier) setDragOverState(c change.SetDragOverState) severity.Severity {
	return applied(d.layout.SetDragOver(c.Node, c.Active), severity.UpdateDrawInstructions)
}

// startAutoScrollTimer repaints only when the timer actually starts, so a
// repeated request within one drag is free.
func (d *DeferredApplier) startAutoScrollTimer(change.StartAutoScrollTimer) severity.Severity {
	return applied(d.startFramework(change.AutoScrollTimerID), severity.RepaintOnly)
}

func (d *DeferredApplier) stopAutoScrollTimer(change.StopAutoScrollTimer) severity.Severity {
	d.stopTimer(change.AutoScrollTimerID)
	return severity.NoOp
}

// Scrollbars and scrolling

func (d *DeferredApplier) scrollbarDragStart(c change.ScrollbarDragStart) severity.Severity {
	return applied(d.layout.StartScrollbarDrag(c.Node, c.Axis, c.Pointer), severity.RepaintOnly)
}

func (d *DeferredApplier) scrollbarDragUpdate(c change.ScrollbarDragUpdate) severity.Severity {
	ref, changed := d.layout.UpdateScrollbarDrag(c.Pointer)
	if !changed {
		return severity.NoOp
	}
	return scrollSeverity(d.layout, ref, changed)
}

func (d *DeferredApplier) scrollbarDragEnd(change.ScrollbarDragEnd) severity.Severity {
	return applied(d.layout.EndScrollbarDrag(), severity.RepaintOnly)
}

func (d *DeferredApplier) clearAllSelections(change.ClearAllSelections) severity.Severity {
	return applied(d.layout.ClearSelections() > 0, severity.UpdateDrawInstructions)
}

func (d *DeferredApplier) scrollNodeIntoView(c change.ScrollNodeIntoView) severity.Severity {
	container, changed := d.layout.ScrollIntoView(c.Node)
	if !changed {
		return severity.NoOp
	}
	return scrollSeverity(d.layout, container, changed)
}
