package change

import (
	"fmt"

	"github.com/roach88/changeflow/internal/geom"
)

// UserTag names a user-change variant.
type UserTag uint8

const (
	TagModifyWindowState UserTag = iota
	TagQueueWindowStateSequence
	TagCreateNewWindow
	TagCloseWindow
	TagBeginInteractiveMove
	TagSetFocusTarget
	TagStopPropagation
	TagStopImmediatePropagation
	TagPreventDefault
	TagAddTimer
	TagRemoveTimer
	TagAddThread
	TagRemoveThread
	TagChangeNodeText
	TagChangeNodeImage
	TagChangeNodeImageMask
	TagChangeNodeCSS
	TagUpdateImageCallback
	TagUpdateAllImageCallbacks
	TagUpdateVirtualView
	TagInsertChildNode
	TagDeleteNode
	TagSetNodeClasses
	TagScrollTo
	TagScrollIntoView
	TagScrollActiveCursorIntoView
	TagAddImageToCache
	TagRemoveImageFromCache
	TagReloadSystemFonts
	TagOpenMenu
	TagShowTooltip
	TagHideTooltip
	TagInsertText
	TagDeleteBackward
	TagDeleteForward
	TagMoveCursor
	TagSetSelection
	TagMoveCursorLeft
	TagMoveCursorRight
	TagMoveCursorUp
	TagMoveCursorDown
	TagMoveCursorToLineStart
	TagMoveCursorToLineEnd
	TagMoveCursorToDocumentStart
	TagMoveCursorToDocumentEnd
	TagSetCopyContent
	TagSetCutContent
	TagSetDragData
	TagAcceptDrop
	TagSetDropEffect
	TagSetCursorVisibility
	TagResetCursorBlink

	userTagCount
)

var userTagNames = [userTagCount]string{
	TagModifyWindowState:          "ModifyWindowState",
	TagQueueWindowStateSequence:   "QueueWindowStateSequence",
	TagCreateNewWindow:            "CreateNewWindow",
	TagCloseWindow:                "CloseWindow",
	TagBeginInteractiveMove:       "BeginInteractiveMove",
	TagSetFocusTarget:             "SetFocusTarget",
	TagStopPropagation:            "StopPropagation",
	TagStopImmediatePropagation:   "StopImmediatePropagation",
	TagPreventDefault:             "PreventDefault",
	TagAddTimer:                   "AddTimer",
	TagRemoveTimer:                "RemoveTimer",
	TagAddThread:                  "AddThread",
	TagRemoveThread:               "RemoveThread",
	TagChangeNodeText:             "ChangeNodeText",
	TagChangeNodeImage:            "ChangeNodeImage",
	TagChangeNodeImageMask:        "ChangeNodeImageMask",
	TagChangeNodeCSS:              "ChangeNodeCSS",
	TagUpdateImageCallback:        "UpdateImageCallback",
	TagUpdateAllImageCallbacks:    "UpdateAllImageCallbacks",
	TagUpdateVirtualView:          "UpdateVirtualView",
	TagInsertChildNode:            "InsertChildNode",
	TagDeleteNode:                 "DeleteNode",
	TagSetNodeClasses:             "SetNodeClasses",
	TagScrollTo:                   "ScrollTo",
	TagScrollIntoView:             "ScrollIntoView",
	TagScrollActiveCursorIntoView: "ScrollActiveCursorIntoView",
	TagAddImageToCache:            "AddImageToCache",
	TagRemoveImageFromCache:       "RemoveImageFromCache",
	TagReloadSystemFonts:          "ReloadSystemFonts",
	TagOpenMenu:                   "OpenMenu",
	TagShowTooltip:                "ShowTooltip",
	TagHideTooltip:                "HideTooltip",
	TagInsertText:                 "InsertText",
	TagDeleteBackward:             "DeleteBackward",
	TagDeleteForward:              "DeleteForward",
	TagMoveCursor:                 "MoveCursor",
	TagSetSelection:               "SetSelection",
	TagMoveCursorLeft:             "MoveCursorLeft",
	TagMoveCursorRight:            "MoveCursorRight",
	TagMoveCursorUp:               "MoveCursorUp",
	TagMoveCursorDown:             "MoveCursorDown",
	TagMoveCursorToLineStart:      "MoveCursorToLineStart",
	TagMoveCursorToLineEnd:        "MoveCursorToLineEnd",
	TagMoveCursorToDocumentStart:  "MoveCursorToDocumentStart",
	TagMoveCursorToDocumentEnd:    "MoveCursorToDocumentEnd",
	TagSetCopyContent:             "SetCopyContent",
	TagSetCutContent:              "SetCutContent",
	TagSetDragData:                "SetDragData",
	TagAcceptDrop:                 "AcceptDrop",
	TagSetDropEffect:              "SetDropEffect",
	TagSetCursorVisibility:        "SetCursorVisibility",
	TagResetCursorBlink:           "ResetCursorBlink",
}

func (t UserTag) String() string {
	if t < userTagCount {
		return userTagNames[t]
	}
	return fmt.Sprintf("UserTag(%d)", uint8(t))
}

// AllUserTags enumerates the closed user-change family in declaration order.
func AllUserTags() []UserTag {
	out := make([]UserTag, 0, userTagCount)
	for t := UserTag(0); t < userTagCount; t++ {
		out = append(out, t)
	}
	return out
}

// ParseUserTag resolves a tag by its String name.
func ParseUserTag(name string) (UserTag, error) {
	for i, n := range userTagNames {
		if n == name {
			return UserTag(i), nil
		}
	}
	return 0, fmt.Errorf("unknown user change %q", name)
}

// UserChange is a mutation requested by application code. The family is
// closed: only types in this package implement it.
type UserChange interface {
	UserTag() UserTag
	isUserChange()
}

// Window

type ModifyWindowState struct {
	State WindowState
}

type QueueWindowStateSequence struct {
	States []WindowState
}

type CreateNewWindow struct {
	Options WindowOptions
}

type CloseWindow struct{}

type BeginInteractiveMove struct{}

// Focus

type SetFocusTarget struct {
	Target FocusTarget
}

// Propagation markers. These carry no data; the flags live on the
// callback output and the markers only make the request visible to the
// appliers and the journal.

type StopPropagation struct{}

type StopImmediatePropagation struct{}

type PreventDefault struct{}

// Timers and threads

type AddTimer struct {
	ID    TimerID
	Timer Timer
}

type RemoveTimer struct {
	ID TimerID
}

type AddThread struct {
	ID     ThreadID
	Thread Thread
}

type RemoveThread struct {
	ID ThreadID
}

// Node content

type ChangeNodeText struct {
	Node NodeRef
	Text string
}

type ChangeNodeImage struct {
	Node  NodeRef
	Image Image
}

type ChangeNodeImageMask struct {
	Node NodeRef
	Mask ImageMask
}

type ChangeNodeCSS struct {
	Node       NodeRef
	Properties []CSSProperty
}

type UpdateImageCallback struct {
	Node NodeRef
}

type UpdateAllImageCallbacks struct{}

type UpdateVirtualView struct {
	Node NodeRef
}

// DOM mutation

// InsertChildNode appends (Position < 0) or inserts a new child.
type InsertChildNode struct {
	Parent   NodeRef
	Tag      string
	Text     string
	Position int
}

type DeleteNode struct {
	Node NodeRef
}

type SetNodeClasses struct {
	Node    NodeRef
	IDs     []string
	Classes []string
}

// Scrolling

type ScrollTo struct {
	Node   NodeRef
	Offset geom.Position
}

type ScrollIntoView struct {
	Node NodeRef
}

type ScrollActiveCursorIntoView struct{}

// Caches

type AddImageToCache struct {
	ID    string
	Image Image
}

type RemoveImageFromCache struct {
	ID string
}

type ReloadSystemFonts struct{}

// Menus and tooltips

// OpenMenu shows Menu. A nil Position uses Menu.Position.
type OpenMenu struct {
	Menu     Menu
	Position *geom.Position
}

type ShowTooltip struct {
	Text     string
	Position geom.Position
}

type HideTooltip struct{}

// Text editing

type InsertText struct {
	Node NodeRef
	Text string
}

type DeleteBackward struct {
	Node NodeRef
}

type DeleteForward struct {
	Node NodeRef
}

// MoveCursor places the cursor at a grapheme offset.
type MoveCursor struct {
	Node   NodeRef
	Offset int
}

type SetSelection struct {
	Node   NodeRef
	Anchor int
	Focus  int
}

// CursorMove is the payload shared by the directional cursor changes.
type CursorMove struct {
	Node            NodeRef
	ExtendSelection bool
}

// Movement returns the shared payload; it is promoted to every MoveCursor*.
func (m CursorMove) Movement() CursorMove { return m }

type MoveCursorLeft struct {
	CursorMove
}

type MoveCursorRight struct {
	CursorMove
}

type MoveCursorUp struct {
	CursorMove
}

type MoveCursorDown struct {
	CursorMove
}

type MoveCursorToLineStart struct {
	CursorMove
}

type MoveCursorToLineEnd struct {
	CursorMove
}

type MoveCursorToDocumentStart struct {
	CursorMove
}

type MoveCursorToDocumentEnd struct {
	CursorMove
}

// Clipboard

type SetCopyContent struct {
	Node    NodeRef
	Content string
}

type SetCutContent struct {
	Node    NodeRef
	Content string
}

// Drag and drop

type SetDragData struct {
	MIME string
	Data string
}

type AcceptDrop struct{}

type SetDropEffect struct {
	Effect DropEffect
}

// Cursor blink

type SetCursorVisibility struct {
	Visible bool
}

type ResetCursorBlink struct{}

func (ModifyWindowState) UserTag() UserTag { return TagModifyWindowState }
func (QueueWindowStateSequence) UserTag() UserTag { return TagQueueWindowStateSequence }
func (CreateNewWindow) UserTag() UserTag { return TagCreateNewWindow }
func (CloseWindow) UserTag() UserTag { return TagCloseWindow }
func (BeginInteractiveMove) UserTag() UserTag { return TagBeginInteractiveMove }
func (SetFocusTarget) UserTag() UserTag { return TagSetFocusTarget }
func (StopPropagation) UserTag() UserTag { return TagStopPropagation }
func (StopImmediatePropagation) UserTag() UserTag { return TagStopImmediatePropagation }
func (PreventDefault) UserTag() UserTag { return TagPreventDefault }
func (AddTimer) UserTag() UserTag { return TagAddTimer }
func (RemoveTimer) UserTag() UserTag { return TagRemoveTimer }
func (AddThread) UserTag() UserTag { return TagAddThread }
func (RemoveThread) UserTag() UserTag { return TagRemoveThread }
func (ChangeNodeText) UserTag() UserTag { return TagChangeNodeText }
func (ChangeNodeImage) UserTag() UserTag { return TagChangeNodeImage }
func (ChangeNodeImageMask) UserTag() UserTag { return TagChangeNodeImageMask }
func (ChangeNodeCSS) UserTag() UserTag { return TagChangeNodeCSS }
func (UpdateImageCallback) UserTag() UserTag { return TagUpdateImageCallback }
func (UpdateAllImageCallbacks) UserTag() UserTag { return TagUpdateAllImageCallbacks }
func (UpdateVirtualView) UserTag() UserTag { return TagUpdateVirtualView }
func (InsertChildNode) UserTag() UserTag { return TagInsertChildNode }
func (DeleteNode) UserTag() UserTag { return TagDeleteNode }
func (SetNodeClasses) UserTag() UserTag { return TagSetNodeClasses }
func (ScrollTo) UserTag() UserTag { return TagScrollTo }
func (ScrollIntoView) UserTag() UserTag { return TagScrollIntoView }
func (ScrollActiveCursorIntoView) UserTag() UserTag { return TagScrollActiveCursorIntoView }
func (AddImageToCache) UserTag() UserTag { return TagAddImageToCache }
func (RemoveImageFromCache) UserTag() UserTag { return TagRemoveImageFromCache }
func (ReloadSystemFonts) UserTag() UserTag { return TagReloadSystemFonts }
func (OpenMenu) UserTag() UserTag { return TagOpenMenu }
func (ShowTooltip) UserTag() UserTag { return TagShowTooltip }
func (HideTooltip) UserTag() UserTag { return TagHideTooltip }
func (InsertText) UserTag() UserTag { return TagInsertText }
func (DeleteBackward) UserTag() UserTag { return TagDeleteBackward }
func (DeleteForward) UserTag() UserTag { return TagDeleteForward }
func (MoveCursor) UserTag() UserTag { return TagMoveCursor }
func (SetSelection) UserTag() UserTag { return TagSetSelection }
func (MoveCursorLeft) UserTag() UserTag { return TagMoveCursorLeft }
func (MoveCursorRight) UserTag() UserTag { return TagMoveCursorRight }
func (MoveCursorUp) UserTag() UserTag { return TagMoveCursorUp }
func (MoveCursorDown) UserTag() UserTag { return TagMoveCursorDown }
func (MoveCursorToLineStart) UserTag() UserTag { return TagMoveCursorToLineStart }
func (MoveCursorToLineEnd) UserTag() UserTag { return TagMoveCursorToLineEnd }
func (MoveCursorToDocumentStart) UserTag() UserTag { return TagMoveCursorToDocumentStart }
func (MoveCursorToDocumentEnd) UserTag() UserTag { return TagMoveCursorToDocumentEnd }
func (SetCopyContent) UserTag() UserTag { return TagSetCopyContent }
func (SetCutContent) UserTag() UserTag { return TagSetCutContent }
func (SetDragData) UserTag() UserTag { return TagSetDragData }
func (AcceptDrop) UserTag() UserTag { return TagAcceptDrop }
func (SetDropEffect) UserTag() UserTag { return TagSetDropEffect }
func (SetCursorVisibility) UserTag() UserTag { return TagSetCursorVisibility }
func (ResetCursorBlink) UserTag() UserTag { return TagResetCursorBlink }

func (ModifyWindowState) isUserChange() {}
func (QueueWindowStateSequence) isUserChange() {}
func (CreateNewWindow) isUserChange() {}
func (CloseWindow) isUserChange() {}
func (BeginInteractiveMove) isUserChange() {}
func (SetFocusTarget) isUserChange() {}
func (StopPropagation) isUserChange() {}
func (StopImmediatePropagation) isUserChange() {}
func (PreventDefault) isUserChange() {}
func (AddTimer) isUserChange() {}
func (RemoveTimer) isUserChange() {}
func (AddThread) isUserChange() {}
func (RemoveThread) isUserChange() {}
func (ChangeNodeText) isUserChange() {}
func (ChangeNodeImage) isUserChange() {}
func (ChangeNodeImageMask) isUserChange() {}
func (ChangeNodeCSS) isUserChange() {}
func (UpdateImageCallback) isUserChange() {}
func (UpdateAllImageCallbacks) isUserChange() {}
func (UpdateVirtualView) isUserChange() {}
func (InsertChildNode) isUserChange() {}
func (DeleteNode) isUserChange() {}
func (SetNodeClasses) isUserChange() {}
func (ScrollTo) isUserChange() {}
func (ScrollIntoView) isUserChange() {}
func (ScrollActiveCursorIntoView) isUserChange() {}
func (AddImageToCache) isUserChange() {}
func (RemoveImageFromCache) isUserChange() {}
func (ReloadSystemFonts) isUserChange() {}
func (OpenMenu) isUserChange() {}
func (ShowTooltip) isUserChange() {}
func (HideTooltip) isUserChange() {}
func (InsertText) isUserChange() {}
func (DeleteBackward) isUserChange() {}
func (DeleteForward) isUserChange() {}
func (MoveCursor) isUserChange() {}
func (SetSelection) isUserChange() {}
func (MoveCursorLeft) isUserChange() {}
func (MoveCursorRight) isUserChange() {}
func (MoveCursorUp) isUserChange() {}
func (MoveCursorDown) isUserChange() {}
func (MoveCursorToLineStart) isUserChange() {}
func (MoveCursorToLineEnd) isUserChange() {}
func (MoveCursorToDocumentStart) isUserChange() {}
func (MoveCursorToDocumentEnd) isUserChange() {}
func (SetCopyContent) isUserChange() {}
func (SetCutContent) isUserChange() {}
func (SetDragData) isUserChange() {}
func (AcceptDrop) isUserChange() {}
func (SetDropEffect) isUserChange() {}
func (SetCursorVisibility) isUserChange() {}
func (ResetCursorBlink) isUserChange() {}
