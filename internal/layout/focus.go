package layout

import (
	"slices"

	"github.com/roach88/changeflow/internal/change"
)

// Focus returns the focused node.
func (s *State) Focus() (change.NodeRef, bool) {
	if s.focus == nil {
		return change.NodeRef{}, false
	}
	return *s.focus, true
}

// SetFocus moves focus to next (nil clears it) and returns the previously
// focused node. Pseudo-class state is left to RestyleFocus.
func (s *State) SetFocus(next *change.NodeRef) (prev *change.NodeRef) {
	prev = s.focus
	if next == nil {
		s.focus = nil
		return prev
	}
	r := *next
	s.focus = &r
	return prev
}

// FocusOrder returns focusable nodes in document order, DOM by DOM.
func (s *State) FocusOrder() []change.NodeRef {
	domIDs := make([]change.DomID, 0, len(s.doms))
	for id := range s.doms {
		domIDs = append(domIDs, id)
	}
	slices.Sort(domIDs)

	var order []change.NodeRef
	for _, did := range domIDs {
		d := s.doms[did]
		var roots []change.NodeID
		for id, n := range d.nodes {
			if !n.HasParent {
				roots = append(roots, id)
			}
		}
		slices.Sort(roots)
		var walk func(id change.NodeID)
		walk = func(id change.NodeID) {
			n := d.nodes[id]
			if n == nil {
				return
			}
			if n.Focusable {
				order = append(order, n.Ref)
			}
			for _, c := range n.Children {
				walk(c)
			}
		}
		for _, r := range roots {
			walk(r)
		}
	}
	return order
}

// ResolveFocusTarget turns a target into a concrete node. A nil result with
// ok set means "clear focus"; ok is false when the target cannot be resolved.
func (s *State) ResolveFocusTarget(t change.FocusTarget) (*change.NodeRef, bool) {
	if t.Kind == change.FocusNone {
		return nil, true
	}
	if t.Kind == change.FocusNode {
		n := s.Node(t.Node)
		if n == nil || !n.Focusable {
			return nil, false
		}
		r := n.Ref
		return &r, true
	}

	order := s.FocusOrder()
	if len(order) == 0 {
		return nil, false
	}
	pick := func(i int) (*change.NodeRef, bool) {
		r := order[i]
		return &r, true
	}
	switch t.Kind {
	case change.FocusFirst:
		return pick(0)
	case change.FocusLast:
		return pick(len(order) - 1)
	}

	cur := -1
	if s.focus != nil {
		cur = slices.Index(order, *s.focus)
	}
	if t.Kind == change.FocusNext {
		return pick((cur + 1) % len(order))
	}
	if cur <= 0 {
		return pick(len(order) - 1)
	}
	return pick(cur - 1)
}

// RestyleFocus moves the :focus pseudo-class from old to next. It reports
// whether any node's style changed.
func (s *State) RestyleFocus(old, next *change.NodeRef) bool {
	changed := false
	if old != nil {
		if n := s.Node(*old); n != nil && n.Focused {
			n.Focused = false
			changed = true
		}
	}
	if next != nil {
		if n := s.Node(*next); n != nil && !n.Focused {
			n.Focused = true
			changed = true
		}
	}
	return changed
}

// StageDragData stores data for mime on the current drag.
func (s *State) StageDragData(mime, data string) {
	if s.Drag.Data == nil {
		s.Drag.Data = make(map[string]string)
	}
	s.Drag.Data[mime] = data
}

// AcceptDrop marks the current drop target as accepting.
func (s *State) AcceptDrop() { s.Drag.DropAccepted = true }

// SetDropEffect sets the effect reported back to the drag source.
func (s *State) SetDropEffect(e change.DropEffect) { s.Drag.Effect = e }

// ActivateDrag starts dragging ref and sets its :dragging pseudo-class.
func (s *State) ActivateDrag(ref change.NodeRef) bool {
	n := s.Node(ref)
	if n == nil {
		return false
	}
	if s.Drag.Active && s.Drag.Node != ref {
		if prev := s.Node(s.Drag.Node); prev != nil {
			prev.Dragging = false
		}
	}
	s.Drag.Active = true
	s.Drag.Node = ref
	n.Dragging = true
	return true
}

// DeactivateDrag ends the drag, clearing :dragging and :drag-over. It
// reports whether a drag was active.
func (s *State) DeactivateDrag() bool {
	if !s.Drag.Active {
		return false
	}
	if n := s.Node(s.Drag.Node); n != nil {
		n.Dragging = false
	}
	if s.Drag.Over != nil {
		if n := s.Node(*s.Drag.Over); n != nil {
			n.DragOver = false
		}
	}
	s.Drag = DragState{Effect: change.DropNone}
	return true
}

// SetDragOver toggles :drag-over on ref.
func (s *State) SetDragOver(ref change.NodeRef, active bool) bool {
	n := s.Node(ref)
	if n == nil {
		return false
	}
	if active && s.Drag.Over != nil && *s.Drag.Over != ref {
		if prev := s.Node(*s.Drag.Over); prev != nil {
			prev.DragOver = false
		}
	}
	n.DragOver = active
	if active {
		r := ref
		s.Drag.Over = &r
	} else if s.Drag.Over != nil && *s.Drag.Over == ref {
		s.Drag.Over = nil
	}
	return true
}
