package engine

import (
	"log/slog"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/layout"
	"github.com/roach88/changeflow/internal/severity"
)

// ImmediateResult is what the immediate stage hands on.
type ImmediateResult struct {
	// Forwarded are the changes that need platform access, in input order.
	Forwarded []change.UserChange
	// Handled counts the changes applied (or deliberately ignored) here.
	Handled  int
	Severity severity.Severity
}

// ImmediateApplier applies the user changes that need nothing but core
// layout state. It never touches the platform.
//
// INVARIANT: Handled + len(Forwarded) == len(input). Every tag is either
// handled or forwarded by immediateTable; a tag missing from the table is
// logged, reported and counted as handled so nothing is dropped silently.
type ImmediateApplier struct {
	layout *layout.State
	logger *slog.Logger
	report func(error)
}

// NewImmediateApplier creates an applier over l. A nil report discards
// runtime errors.
func NewImmediateApplier(l *layout.State, logger *slog.Logger, report func(error)) *ImmediateApplier {
	if logger == nil {
		logger = slog.Default()
	}
	if report == nil {
		report = func(error) {}
	}
	return &ImmediateApplier{layout: l, logger: logger, report: report}
}

// Apply runs every change through immediateTable in order.
func (a *ImmediateApplier) Apply(changes []change.UserChange) ImmediateResult {
	var res ImmediateResult
	for _, c := range changes {
		tag := c.UserTag()
		rule, ok := immediateTable[tag]
		if !ok {
			err := NewMissingRuleError("immediate", tag.String(), 0)
			a.logger.Error("no immediate rule for user change", "tag", tag.String(), "error", err)
			a.report(err)
			res.Handled++
			continue
		}
		if rule.forward {
			res.Forwarded = append(res.Forwarded, c)
			continue
		}
		sev := rule.apply(a, c)
		a.logger.Debug("applied user change", "stage", "immediate", "tag", tag.String(), "severity", sev)
		res.Severity = severity.Combine(res.Severity, sev)
		res.Handled++
	}
	return res
}

// immediateRule is one row of immediateTable: forward it, or apply it.
type immediateRule struct {
	forward bool
	apply   func(a *ImmediateApplier, c change.UserChange) severity.Severity
}

var forward = immediateRule{forward: true}

// Forwards reports whether the immediate stage passes tag on to the deferred
// stage. Tags unknown to the table are handled (as no-ops).
func Forwards(tag change.UserTag) bool {
	return immediateTable[tag].forward
}

// handle adapts a typed handler to a table row.
func handle[T change.UserChange](fn func(*ImmediateApplier, T) severity.Severity) immediateRule {
	return immediateRule{apply: func(a *ImmediateApplier, c change.UserChange) severity.Severity {
		v, ok := asChange[T](c)
		if !ok {
			return severity.NoOp
		}
		return fn(a, v)
	}}
}

// asChange accepts both T and *T; changes may be pushed either way.
func asChange[T any](c any) (T, bool) {
	switch v := c.(type) {
	case T:
		return v, true
	case *T:
		if v != nil {
			return *v, true
		}
	}
	var zero T
	return zero, false
}

// immediateTable decides, for every user tag, whether the immediate stage
// handles it. Keep it exhaustive: engine tests compare its keys with
// change.AllUserTags().
var immediateTable = map[change.UserTag]immediateRule{
	// Window, focus, timers, threads, menus and tooltips need the platform.
	change.TagModifyWindowState:        forward,
	change.TagQueueWindowStateSequence: forward,
	change.TagCreateNewWindow:          forward,
	change.TagCloseWindow:              forward,
	change.TagBeginInteractiveMove:     forward,
	change.TagSetFocusTarget:           forward,
	change.TagAddTimer:                 forward,
	change.TagRemoveTimer:              forward,
	change.TagAddThread:                forward,
	change.TagRemoveThread:             forward,
	change.TagOpenMenu:                 forward,
	change.TagShowTooltip:              forward,
	change.TagHideTooltip:              forward,

	// Propagation markers were acted on by the dispatch loop already.
	change.TagStopPropagation:          handle((*ImmediateApplier).marker),
	change.TagStopImmediatePropagation: handle((*ImmediateApplier).marker),
	change.TagPreventDefault:           handle((*ImmediateApplier).marker),

	change.TagChangeNodeText:          handle((*ImmediateApplier).changeNodeText),
	change.TagChangeNodeImage:         handle((*ImmediateApplier).changeNodeImage),
	change.TagChangeNodeImageMask:     handle((*ImmediateApplier).changeNodeImageMask),
	change.TagChangeNodeCSS:           handle((*ImmediateApplier).changeNodeCSS),
	change.TagUpdateImageCallback:     handle((*ImmediateApplier).updateImageCallback),
	change.TagUpdateAllImageCallbacks: handle((*ImmediateApplier).updateAllImageCallbacks),
	change.TagUpdateVirtualView:       handle((*ImmediateApplier).updateVirtualView),

	change.TagInsertChildNode: handle((*ImmediateApplier).insertChildNode),
	change.TagDeleteNode:      handle((*ImmediateApplier).deleteNode),
	change.TagSetNodeClasses:  handle((*ImmediateApplier).setNodeClasses),

	change.TagScrollTo:                   handle((*ImmediateApplier).scrollTo),
	change.TagScrollIntoView:             handle((*ImmediateApplier).scrollIntoView),
	change.TagScrollActiveCursorIntoView: handle((*ImmediateApplier).scrollActiveCursorIntoView),

	change.TagAddImageToCache:      handle((*ImmediateApplier).addImageToCache),
	change.TagRemoveImageFromCache: handle((*ImmediateApplier).removeImageFromCache),
	change.TagReloadSystemFonts:    handle((*ImmediateApplier).reloadSystemFonts),

	change.TagInsertText:     handle((*ImmediateApplier).insertText),
	change.TagDeleteBackward: handle((*ImmediateApplier).deleteBackward),
	change.TagDeleteForward:  handle((*ImmediateApplier).deleteForward),
	change.TagMoveCursor:     handle((*ImmediateApplier).moveCursor),
	change.TagSetSelection:   handle((*ImmediateApplier).setSelection),

	change.TagMoveCursorLeft:            motion[change.MoveCursorLeft](layout.MoveLeft),
	change.TagMoveCursorRight:           motion[change.MoveCursorRight](layout.MoveRight),
	change.TagMoveCursorUp:              motion[change.MoveCursorUp](layout.MoveUp),
	change.TagMoveCursorDown:            motion[change.MoveCursorDown](layout.MoveDown),
	change.TagMoveCursorToLineStart:     motion[change.MoveCursorToLineStart](layout.MoveLineStart),
	change.TagMoveCursorToLineEnd:       motion[change.MoveCursorToLineEnd](layout.MoveLineEnd),
	change.TagMoveCursorToDocumentStart: motion[change.MoveCursorToDocumentStart](layout.MoveDocumentStart),
	change.TagMoveCursorToDocumentEnd:   motion[change.MoveCursorToDocumentEnd](layout.MoveDocumentEnd),

	change.TagSetCopyContent: handle((*ImmediateApplier).setCopyContent),
	change.TagSetCutContent:  handle((*ImmediateApplier).setCutContent),

	change.TagSetDragData:   handle((*ImmediateApplier).setDragData),
	change.TagAcceptDrop:    handle((*ImmediateApplier).acceptDrop),
	change.TagSetDropEffect: handle((*ImmediateApplier).setDropEffect),

	change.TagSetCursorVisibility: handle((*ImmediateApplier).setCursorVisibility),
	change.TagResetCursorBlink:    handle((*ImmediateApplier).resetCursorBlink),
}

// cursorMover is satisfied by every MoveCursor* change.
type cursorMover interface {
	change.UserChange
	Movement() change.CursorMove
}

// motion builds the row for one cursor movement tag.
func motion[T cursorMover](m layout.Motion) immediateRule {
	return handle(func(a *ImmediateApplier, c T) severity.Severity {
		mv := c.Movement()
		if !a.layout.MoveCursor(mv.Node, m, mv.ExtendSelection) {
			return a.stale(c, mv.Node)
		}
		return severity.UpdateDrawInstructions
	})
}

// stale logs a change whose node no longer exists (or cannot take it) and
// turns it into a no-op.
func (a *ImmediateApplier) stale(c change.UserChange, ref change.NodeRef) severity.Severity {
	a.logger.Debug("user change not applicable", "tag", c.UserTag().String(), "node", ref.String())
	return severity.NoOp
}

func applied(ok bool, sev severity.Severity) severity.Severity {
	if !ok {
		return severity.NoOp
	}
	return sev
}

func (a *ImmediateApplier) marker(change.UserChange) severity.Severity { return severity.NoOp }

func (a *ImmediateApplier) changeNodeText(c change.ChangeNodeText) severity.Severity {
	if !a.layout.SetNodeText(c.Node, c.Text) {
		return a.stale(c, c.Node)
	}
	return severity.IncrementalRelayout
}

func (a *ImmediateApplier) changeNodeImage(c change.ChangeNodeImage) severity.Severity {
	if !a.layout.SetNodeImage(c.Node, c.Image) {
		return a.stale(c, c.Node)
	}
	return severity.UpdateDrawInstructions
}

func (a *ImmediateApplier) changeNodeImageMask(c change.ChangeNodeImageMask) severity.Severity {
	if !a.layout.SetNodeImageMask(c.Node, c.Mask) {
		return a.stale(c, c.Node)
	}
	return severity.UpdateDrawInstructions
}

func (a *ImmediateApplier) changeNodeCSS(c change.ChangeNodeCSS) severity.Severity {
	if !a.layout.SetNodeCSS(c.Node, c.Properties) {
		return a.stale(c, c.Node)
	}
	return severity.IncrementalRelayout
}

func (a *ImmediateApplier) updateImageCallback(c change.UpdateImageCallback) severity.Severity {
	if !a.layout.MarkImageCallback(c.Node) {
		return a.stale(c, c.Node)
	}
	return severity.RepaintOnly
}

func (a *ImmediateApplier) updateAllImageCallbacks(change.UpdateAllImageCallbacks) severity.Severity {
	return applied(a.layout.MarkAllImageCallbacks() > 0, severity.RepaintOnly)
}

func (a *ImmediateApplier) updateVirtualView(c change.UpdateVirtualView) severity.Severity {
	if !a.layout.ForceReinvoke(c.Node) {
		return a.stale(c, c.Node)
	}
	return severity.IncrementalRelayout
}

func (a *ImmediateApplier) insertChildNode(c change.InsertChildNode) severity.Severity {
	id, ok := a.layout.InsertChild(c.Parent, c.Tag, c.Text, c.Position)
	if !ok {
		return a.stale(c, c.Parent)
	}
	a.logger.Debug("inserted node", "parent", c.Parent.String(), "node", change.Ref(c.Parent.Dom, id).String())
	return severity.RegenerateSubtree
}

func (a *ImmediateApplier) deleteNode(c change.DeleteNode) severity.Severity {
	if !a.layout.DeleteNode(c.Node) {
		return a.stale(c, c.Node)
	}
	return severity.RegenerateSubtree
}

func (a *ImmediateApplier) setNodeClasses(c change.SetNodeClasses) severity.Severity {
	if !a.layout.SetNodeClasses(c.Node, c.IDs, c.Classes) {
		return a.stale(c, c.Node)
	}
	return severity.IncrementalRelayout
}

func (a *ImmediateApplier) scrollTo(c change.ScrollTo) severity.Severity {
	before, ok := a.layout.ScrollOffset(c.Node)
	if !ok || !a.layout.ScrollTo(c.Node, c.Offset) {
		return a.stale(c, c.Node)
	}
	after, _ := a.layout.ScrollOffset(c.Node)
	return scrollSeverity(a.layout, c.Node, before != after)
}

func (a *ImmediateApplier) scrollIntoView(c change.ScrollIntoView) severity.Severity {
	if a.layout.Node(c.Node) == nil {
		return a.stale(c, c.Node)
	}
	container, changed := a.layout.ScrollIntoView(c.Node)
	return scrollSeverity(a.layout, container, changed)
}

func (a *ImmediateApplier) scrollActiveCursorIntoView(change.ScrollActiveCursorIntoView) severity.Severity {
	if !a.layout.Cursor.Active {
		return severity.NoOp
	}
	container, changed := a.layout.ScrollIntoView(a.layout.Cursor.Node)
	return scrollSeverity(a.layout, container, changed)
}

func (a *ImmediateApplier) addImageToCache(c change.AddImageToCache) severity.Severity {
	a.layout.AddImage(c.ID, c.Image)
	return severity.NoOp
}

func (a *ImmediateApplier) removeImageFromCache(c change.RemoveImageFromCache) severity.Severity {
	a.layout.RemoveImage(c.ID)
	return severity.NoOp
}

func (a *ImmediateApplier) reloadSystemFonts(change.ReloadSystemFonts) severity.Severity {
	a.layout.ReloadFonts()
	return severity.NoOp
}

func (a *ImmediateApplier) insertText(c change.InsertText) severity.Severity {
	if !a.layout.InsertText(c.Node, c.Text) {
		return a.stale(c, c.Node)
	}
	return severity.IncrementalRelayout
}

// Deleting at a text boundary is a no-op rather than a stale reference.
func (a *ImmediateApplier) deleteBackward(c change.DeleteBackward) severity.Severity {
	return applied(a.layout.DeleteBackward(c.Node), severity.IncrementalRelayout)
}

func (a *ImmediateApplier) deleteForward(c change.DeleteForward) severity.Severity {
	return applied(a.layout.DeleteForward(c.Node), severity.IncrementalRelayout)
}

func (a *ImmediateApplier) moveCursor(c change.MoveCursor) severity.Severity {
	if !a.layout.MoveCursorTo(c.Node, c.Offset) {
		return a.stale(c, c.Node)
	}
	return severity.UpdateDrawInstructions
}

func (a *ImmediateApplier) setSelection(c change.SetSelection) severity.Severity {
	if !a.layout.SetSelection(c.Node, c.Anchor, c.Focus) {
		return a.stale(c, c.Node)
	}
	return severity.UpdateDrawInstructions
}

func (a *ImmediateApplier) setCopyContent(c change.SetCopyContent) severity.Severity {
	if !a.layout.SetCopyOverride(c.Node, c.Content) {
		return a.stale(c, c.Node)
	}
	return severity.NoOp
}

func (a *ImmediateApplier) setCutContent(c change.SetCutContent) severity.Severity {
	if !a.layout.SetCutOverride(c.Node, c.Content) {
		return a.stale(c, c.Node)
	}
	return severity.NoOp
}

func (a *ImmediateApplier) setDragData(c change.SetDragData) severity.Severity {
	a.layout.StageDragData(c.MIME, c.Data)
	return severity.NoOp
}

func (a *ImmediateApplier) acceptDrop(change.AcceptDrop) severity.Severity {
	a.layout.AcceptDrop()
	return severity.NoOp
}

func (a *ImmediateApplier) setDropEffect(c change.SetDropEffect) severity.Severity {
	a.layout.SetDropEffect(c.Effect)
	return severity.NoOp
}

func (a *ImmediateApplier) setCursorVisibility(c change.SetCursorVisibility) severity.Severity {
	if a.layout.Cursor.Visible == c.Visible {
		return severity.NoOp
	}
	a.layout.SetCursorVisible(c.Visible)
	return severity.RepaintOnly
}

func (a *ImmediateApplier) resetCursorBlink(change.ResetCursorBlink) severity.Severity {
	a.layout.ResetCursorBlink()
	return severity.RepaintOnly
}

// scrollSeverity rates a scroll of ref. A virtual view whose reinvocation
// gate fires needs relayout; any other offset change only a repaint.
func scrollSeverity(l *layout.State, ref change.NodeRef, changed bool) severity.Severity {
	if n := l.Node(ref); n != nil && n.Virtual {
		if _, ok := l.CheckReinvocation(ref); ok {
			return severity.IncrementalRelayout
		}
	}
	return applied(changed, severity.RepaintOnly)
}
