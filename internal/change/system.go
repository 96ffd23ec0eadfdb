package change

import (
	"fmt"

	"github.com/roach88/changeflow/internal/geom"
)

// SystemTag names a system-change variant.
type SystemTag uint8

const (
	TagSetFocus SystemTag = iota
	TagRestyleForFocus
	TagStartCursorBlinkTimer
	TagStopCursorBlinkTimer
	TagActivateNodeDrag
	TagDeactivateDrag
	TagSetDragOverState
	TagStartAutoScrollTimer
	TagStopAutoScrollTimer
	TagScrollbarDragStart
	TagScrollbarDragUpdate
	TagScrollbarDragEnd
	TagClearAllSelections
	TagScrollNodeIntoView

	systemTagCount
)

var systemTagNames = [systemTagCount]string{
	TagSetFocus:              "SetFocus",
	TagRestyleForFocus:       "RestyleForFocus",
	TagStartCursorBlinkTimer: "StartCursorBlinkTimer",
	TagStopCursorBlinkTimer:  "StopCursorBlinkTimer",
	TagActivateNodeDrag:      "ActivateNodeDrag",
	TagDeactivateDrag:        "DeactivateDrag",
	TagSetDragOverState:      "SetDragOverState",
	TagStartAutoScrollTimer:  "StartAutoScrollTimer",
	TagStopAutoScrollTimer:   "StopAutoScrollTimer",
	TagScrollbarDragStart:    "ScrollbarDragStart",
	TagScrollbarDragUpdate:   "ScrollbarDragUpdate",
	TagScrollbarDragEnd:      "ScrollbarDragEnd",
	TagClearAllSelections:    "ClearAllSelections",
	TagScrollNodeIntoView:    "ScrollNodeIntoView",
}

func (t SystemTag) String() string {
	if t < systemTagCount {
		return systemTagNames[t]
	}
	return fmt.Sprintf("SystemTag(%d)", uint8(t))
}

// AllSystemTags enumerates the closed system-change family.
func AllSystemTags() []SystemTag {
	out := make([]SystemTag, 0, systemTagCount)
	for t := SystemTag(0); t < systemTagCount; t++ {
		out = append(out, t)
	}
	return out
}

// ParseSystemTag resolves a tag by its String name.
func ParseSystemTag(name string) (SystemTag, error) {
	for i, n := range systemTagNames {
		if n == name {
			return SystemTag(i), nil
		}
	}
	return 0, fmt.Errorf("unknown system change %q", name)
}

// SystemChange is a state transition the framework decided on while
// processing input (focus moves, drag gestures, scrollbar interaction).
type SystemChange interface {
	SystemTag() SystemTag
	isSystemChange()
}

// SetFocus moves keyboard focus. A nil New clears focus.
type SetFocus struct {
	New *NodeRef
	Old *NodeRef
}

// RestyleForFocus re-evaluates :focus on the nodes that lost and gained it.
type RestyleForFocus struct {
	Old *NodeRef
	New *NodeRef
}

type StartCursorBlinkTimer struct{}

type StopCursorBlinkTimer struct{}

type ActivateNodeDrag struct {
	Node NodeRef
}

type DeactivateDrag struct{}

type SetDragOverState struct {
	Node   NodeRef
	Active bool
}

type StartAutoScrollTimer struct{}

type StopAutoScrollTimer struct{}

// ScrollbarDragStart begins dragging the thumb of Node's scrollbar on Axis.
type ScrollbarDragStart struct {
	Node    NodeRef
	Axis    Axis
	Pointer geom.Position
}

type ScrollbarDragUpdate struct {
	Pointer geom.Position
}

type ScrollbarDragEnd struct{}

type ClearAllSelections struct{}

type ScrollNodeIntoView struct {
	Node NodeRef
}

func (SetFocus) SystemTag() SystemTag { return TagSetFocus }
func (RestyleForFocus) SystemTag() SystemTag { return TagRestyleForFocus }
func (StartCursorBlinkTimer) SystemTag() SystemTag { return TagStartCursorBlinkTimer }
func (StopCursorBlinkTimer) SystemTag() SystemTag { return TagStopCursorBlinkTimer }
func (ActivateNodeDrag) SystemTag() SystemTag { return TagActivateNodeDrag }
func (DeactivateDrag) SystemTag() SystemTag { return TagDeactivateDrag }
func (SetDragOverState) SystemTag() SystemTag { return TagSetDragOverState }
func (StartAutoScrollTimer) SystemTag() SystemTag { return TagStartAutoScrollTimer }
func (StopAutoScrollTimer) SystemTag() SystemTag { return TagStopAutoScrollTimer }
func (ScrollbarDragStart) SystemTag() SystemTag { return TagScrollbarDragStart }
func (ScrollbarDragUpdate) SystemTag() SystemTag { return TagScrollbarDragUpdate }
func (ScrollbarDragEnd) SystemTag() SystemTag { return TagScrollbarDragEnd }
func (ClearAllSelections) SystemTag() SystemTag { return TagClearAllSelections }
func (ScrollNodeIntoView) SystemTag() SystemTag { return TagScrollNodeIntoView }

func (SetFocus) isSystemChange() {}
func (RestyleForFocus) isSystemChange() {}
func (StartCursorBlinkTimer) isSystemChange() {}
func (StopCursorBlinkTimer) isSystemChange() {}
func (ActivateNodeDrag) isSystemChange() {}
func (DeactivateDrag) isSystemChange() {}
func (SetDragOverState) isSystemChange() {}
func (StartAutoScrollTimer) isSystemChange() {}
func (StopAutoScrollTimer) isSystemChange() {}
func (ScrollbarDragStart) isSystemChange() {}
func (ScrollbarDragUpdate) isSystemChange() {}
func (ScrollbarDragEnd) isSystemChange() {}
func (ClearAllSelections) isSystemChange() {}
func (ScrollNodeIntoView) isSystemChange() {}
