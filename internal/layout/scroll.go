package layout

import (
	"cmp"
	"slices"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/geom"
	"github.com/roach88/changeflow/internal/reinvoke"
)

// VirtualProvider regenerates a virtual view's content and returns the new
// content size.
type VirtualProvider func(reason reinvoke.Reason, bounds geom.Rect, offset geom.Position) geom.Size

func maxOffset(n *Node) geom.Position {
	return geom.Position{
		X: max(0, n.ContentSize.Width-n.Bounds.Size.Width),
		Y: max(0, n.ContentSize.Height-n.Bounds.Size.Height),
	}
}

func clampOffset(n *Node, p geom.Position) geom.Position {
	lim := maxOffset(n)
	return geom.Position{X: geom.Clamp(p.X, 0, lim.X), Y: geom.Clamp(p.Y, 0, lim.Y)}
}

// ScrollTo sets the scroll offset of ref, clamped to its scrollable range.
// Virtual views may not know their full size yet, so only the lower bound is
// enforced for them.
func (s *State) ScrollTo(ref change.NodeRef, offset geom.Position) bool {
	n := s.Node(ref)
	if n == nil || !n.Scrollable {
		return false
	}
	if n.Virtual {
		n.ScrollOffset = geom.Position{X: max(0, offset.X), Y: max(0, offset.Y)}
	} else {
		n.ScrollOffset = clampOffset(n, offset)
	}
	return true
}

// ScrollContainer returns the nearest scrollable ancestor of ref.
func (s *State) ScrollContainer(ref change.NodeRef) (change.NodeRef, bool) {
	n := s.Node(ref)
	for n != nil && n.HasParent {
		p := s.Node(change.Ref(ref.Dom, n.Parent))
		if p == nil {
			break
		}
		if p.Scrollable {
			return p.Ref, true
		}
		n = p
	}
	return change.NodeRef{}, false
}

// ScrollIntoView scrolls the nearest scrollable ancestor of ref so that ref
// is visible. It returns the container and whether its offset changed.
func (s *State) ScrollIntoView(ref change.NodeRef) (change.NodeRef, bool) {
	target := s.Node(ref)
	if target == nil {
		return change.NodeRef{}, false
	}
	cref, ok := s.ScrollContainer(ref)
	if !ok {
		return change.NodeRef{}, false
	}
	c := s.Node(cref)
	off := c.ScrollOffset
	view := c.Bounds
	tb := target.Bounds

	if top := tb.Origin.Y - view.Origin.Y; top < off.Y {
		off.Y = top
	} else if bottom := tb.Max().Y - view.Origin.Y - view.Size.Height; bottom > off.Y {
		off.Y = bottom
	}
	if left := tb.Origin.X - view.Origin.X; left < off.X {
		off.X = left
	} else if right := tb.Max().X - view.Origin.X - view.Size.Width; right > off.X {
		off.X = right
	}
	off = clampOffset(c, off)
	if off == c.ScrollOffset {
		return cref, false
	}
	c.ScrollOffset = off
	return cref, true
}

// StartScrollbarDrag begins dragging ref's scrollbar thumb.
func (s *State) StartScrollbarDrag(ref change.NodeRef, axis change.Axis, pointer geom.Position) bool {
	n := s.Node(ref)
	if n == nil || !n.Scrollable {
		return false
	}
	s.ScrollbarDrag = ScrollbarDrag{
		Active:      true,
		Node:        ref,
		Axis:        axis,
		Pointer:     pointer,
		StartOffset: n.ScrollOffset,
	}
	return true
}

// UpdateScrollbarDrag moves the dragged thumb to pointer. Thumb travel is
// scaled by content/viewport so the thumb tracks the pointer. It returns the
// scrolled node and whether its offset changed.
func (s *State) UpdateScrollbarDrag(pointer geom.Position) (change.NodeRef, bool) {
	d := s.ScrollbarDrag
	if !d.Active {
		return change.NodeRef{}, false
	}
	n := s.Node(d.Node)
	if n == nil {
		s.ScrollbarDrag = ScrollbarDrag{}
		return change.NodeRef{}, false
	}
	off := d.StartOffset
	if d.Axis == change.Horizontal {
		if n.Bounds.Size.Width > 0 {
			off.X += (pointer.X - d.Pointer.X) * n.ContentSize.Width / n.Bounds.Size.Width
		}
	} else if n.Bounds.Size.Height > 0 {
		off.Y += (pointer.Y - d.Pointer.Y) * n.ContentSize.Height / n.Bounds.Size.Height
	}
	before := n.ScrollOffset
	s.ScrollTo(d.Node, off)
	return d.Node, n.ScrollOffset != before
}

// EndScrollbarDrag finishes a scrollbar drag. It reports whether one was
// active.
func (s *State) EndScrollbarDrag() bool {
	was := s.ScrollbarDrag.Active
	s.ScrollbarDrag = ScrollbarDrag{}
	return was
}

// AutoScrollTarget computes where the scroll container of the active drag
// should move when pointer lies above or below it. The state is not touched;
// callers push a ScrollTo with the result.
func (s *State) AutoScrollTarget(pointer geom.Position, step float64) (change.NodeRef, geom.Position, bool) {
	if !s.Drag.Active {
		return change.NodeRef{}, geom.Position{}, false
	}
	cref := s.Drag.Node
	if n := s.Node(cref); n == nil || !n.Scrollable {
		var ok bool
		if cref, ok = s.ScrollContainer(s.Drag.Node); !ok {
			return change.NodeRef{}, geom.Position{}, false
		}
	}
	c := s.Node(cref)
	off := c.ScrollOffset
	switch {
	case pointer.Y < c.Bounds.Origin.Y:
		off.Y -= step
	case pointer.Y >= c.Bounds.Max().Y:
		off.Y += step
	default:
		return cref, c.ScrollOffset, false
	}
	if !c.Virtual {
		off = clampOffset(c, off)
	}
	off.Y = max(0, off.Y)
	return cref, off, off != c.ScrollOffset
}

// Checker exposes the reinvocation checker guarding the rendered-subtree
// cache.
func (s *State) Checker() *reinvoke.Checker { return s.checker }

// RegisterVirtualView marks ref as a virtual view served by provider. A nil
// provider keeps the declared content size and extends it whenever the
// bottom or right edge is reached.
func (s *State) RegisterVirtualView(ref change.NodeRef, provider VirtualProvider) bool {
	n := s.Node(ref)
	if n == nil {
		return false
	}
	n.Virtual = true
	n.Scrollable = true
	if provider != nil {
		s.providers[ref] = provider
	}
	return true
}

// CheckReinvocation asks the checker whether the virtual view at ref needs
// regenerating, using its current bounds and scroll offset.
func (s *State) CheckReinvocation(ref change.NodeRef) (reinvoke.Reason, bool) {
	n := s.Node(ref)
	if n == nil || !n.Virtual {
		return reinvoke.Reason{}, false
	}
	return s.checker.Check(ref, n.Bounds, n.ScrollOffset)
}

// VirtualViews returns every virtual view in (dom, node) order.
func (s *State) VirtualViews() []change.NodeRef {
	var refs []change.NodeRef
	for _, d := range s.doms {
		for _, n := range d.nodes {
			if n.Virtual {
				refs = append(refs, n.Ref)
			}
		}
	}
	slices.SortFunc(refs, func(a, b change.NodeRef) int {
		if c := cmp.Compare(a.Dom, b.Dom); c != 0 {
			return c
		}
		return cmp.Compare(a.Node, b.Node)
	})
	return refs
}

func defaultContent(n *Node, reason reinvoke.Reason) geom.Size {
	size := n.ContentSize
	if reason.Kind == reinvoke.EdgeScrolled {
		switch reason.Edge {
		case reinvoke.Bottom:
			size.Height += n.Bounds.Size.Height
		case reinvoke.Right:
			size.Width += n.Bounds.Size.Width
		}
	}
	return size
}

// RefreshVirtualViews regenerates every virtual view whose gate fires and
// registers the result. It returns how many views were regenerated.
func (s *State) RefreshVirtualViews() int {
	count := 0
	for _, ref := range s.VirtualViews() {
		reason, ok := s.CheckReinvocation(ref)
		if !ok {
			continue
		}
		n := s.Node(ref)
		var size geom.Size
		if p, ok := s.providers[ref]; ok {
			size = p(reason, n.Bounds, n.ScrollOffset)
		} else {
			size = defaultContent(n, reason)
		}
		n.ContentSize = size
		s.rendered[ref] = true
		s.checker.MarkInvoked(ref, reason, size)
		count++
	}
	return count
}

// ForceReinvoke drops ref's rendered subtree and makes its next check an
// initial render.
func (s *State) ForceReinvoke(ref change.NodeRef) bool {
	n := s.Node(ref)
	if n == nil || !n.Virtual {
		return false
	}
	delete(s.rendered, ref)
	s.checker.ForceReinvoke(ref)
	return true
}

// ClearRenderedSubtrees wipes the rendered-subtree cache and resets the
// reinvocation checker with it. It returns how many subtrees were dropped.
func (s *State) ClearRenderedSubtrees() int {
	n := len(s.rendered)
	clear(s.rendered)
	s.checker.ResetAll()
	return n
}

// Rendered reports whether ref has a cached rendered subtree.
func (s *State) Rendered(ref change.NodeRef) bool { return s.rendered[ref] }

// RenderedCount returns the number of cached rendered subtrees.
func (s *State) RenderedCount() int { return len(s.rendered) }
