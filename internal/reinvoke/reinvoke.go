// Package reinvoke decides when a virtual view's content provider has to run
// again.
//
// Each virtual view moves through three phases. It starts NeverInvoked, becomes
// Invoked once its content is generated and registered with MarkInvoked, and
// drops to Invalidated when its container grows or a scroll brings a content
// edge within the margin. Invalidated views report the pending reason on every
// Check until they are regenerated.
//
// The checker guards a cache it does not own. Whoever wipes that cache must
// call ResetAll in the same operation, otherwise the checker keeps answering
// "nothing to do" for content that no longer exists.
package reinvoke

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/geom"
)

// DefaultMargin is the edge distance, in logical pixels, used when the
// configured margin is not positive.
const DefaultMargin = 200.0

// Key identifies a virtual view by the node hosting it.
type Key = change.NodeRef

// Phase is where a virtual view is in its lifecycle.
type Phase uint8

const (
	NeverInvoked Phase = iota
	Invoked
	Invalidated
)

func (p Phase) String() string {
	switch p {
	case NeverInvoked:
		return "never-invoked"
	case Invoked:
		return "invoked"
	case Invalidated:
		return "invalidated"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for _, p := range []Phase{NeverInvoked, Invoked, Invalidated} {
		if p.String() == s {
			return p, nil
		}
	}
	return NeverInvoked, fmt.Errorf("unknown phase %q", s)
}

// Edge is a side of the content area.
type Edge uint8

const (
	Top Edge = 1 << iota
	Bottom
	Left
	Right
)

// edgePriority is the order edges are reported in when several are crossed
// at once. Bottom and right come first since they drive infinite scrolling.
var edgePriority = [...]Edge{Bottom, Right, Top, Left}

func (e Edge) String() string {
	switch e {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("edge(%d)", uint8(e))
}

// Kind is the class of a reinvocation reason.
type Kind uint8

const (
	InitialRender Kind = iota
	BoundsExpanded
	EdgeScrolled
)

// Reason explains why a view must be regenerated. Edge is set only for
// EdgeScrolled.
type Reason struct {
	Kind Kind
	Edge Edge
}

func (r Reason) String() string {
	switch r.Kind {
	case InitialRender:
		return "initial-render"
	case BoundsExpanded:
		return "bounds-expanded"
	case EdgeScrolled:
		return "edge-scrolled(" + r.Edge.String() + ")"
	}
	return fmt.Sprintf("reason(%d)", uint8(r.Kind))
}

// Entry is the state tracked per view. It is created by the first Check.
type Entry struct {
	Phase            Phase
	LastBounds       geom.Rect
	LastScrollOffset geom.Position
	ContentSize      geom.Size
	HasContent       bool
	Pending          Reason

	// lastNear is the set of edges that were within the margin at the
	// previous observation. An edge fires only when it newly becomes near.
	lastNear Edge
	// expansionHandled is set once a BoundsExpanded regeneration ran for
	// the current container size.
	expansionHandled bool
}

// Checker holds reinvocation state for every virtual view of a window.
type Checker struct {
	margin  float64
	entries map[Key]*Entry
}

// NewChecker returns an empty checker. A non-positive margin selects
// DefaultMargin.
func NewChecker(margin float64) *Checker {
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &Checker{margin: margin, entries: make(map[Key]*Entry)}
}

// Margin returns the edge distance in use.
func (c *Checker) Margin() float64 { return c.margin }

// Check reports whether the view at key must be regenerated given its current
// layout bounds and scroll offset.
func (c *Checker) Check(key Key, bounds geom.Rect, offset geom.Position) (Reason, bool) {
	e, ok := c.entries[key]
	if !ok {
		e = &Entry{Phase: NeverInvoked}
		c.entries[key] = e
	}
	e.LastScrollOffset = offset

	switch e.Phase {
	case NeverInvoked:
		e.LastBounds = bounds
		e.Pending = Reason{Kind: InitialRender}
		return e.Pending, true
	case Invalidated:
		e.LastBounds = bounds
		return e.Pending, true
	}

	grew := bounds.Size.Exceeds(e.LastBounds.Size)
	if grew {
		e.expansionHandled = false
	}
	e.LastBounds = bounds

	if grew || (e.HasContent && !e.expansionHandled && bounds.Size.Exceeds(e.ContentSize)) {
		e.lastNear = c.nearEdges(e, offset)
		return c.invalidate(e, Reason{Kind: BoundsExpanded}), true
	}
	if !e.HasContent {
		return Reason{}, false
	}

	near := c.nearEdges(e, offset)
	crossed := near &^ e.lastNear
	e.lastNear = near
	for _, edge := range edgePriority {
		if crossed&edge != 0 {
			return c.invalidate(e, Reason{Kind: EdgeScrolled, Edge: edge}), true
		}
	}
	return Reason{}, false
}

func (c *Checker) invalidate(e *Entry, r Reason) Reason {
	e.Phase = Invalidated
	e.Pending = r
	return r
}

// nearEdges computes which content edges the viewport is within the margin
// of. Only axes along which the content actually scrolls count.
func (c *Checker) nearEdges(e *Entry, offset geom.Position) Edge {
	if !e.HasContent {
		return 0
	}
	container := e.LastBounds.Size
	content := e.ContentSize
	var near Edge
	if content.Height > container.Height {
		if offset.Y <= c.margin {
			near |= Top
		}
		if content.Height-container.Height-offset.Y <= c.margin {
			near |= Bottom
		}
	}
	if content.Width > container.Width {
		if offset.X <= c.margin {
			near |= Left
		}
		if content.Width-container.Width-offset.X <= c.margin {
			near |= Right
		}
	}
	return near
}

// MarkInvoked records that the view was regenerated for reason and now
// reports contentSize. Unknown keys are registered on the fly.
func (c *Checker) MarkInvoked(key Key, reason Reason, contentSize geom.Size) {
	e, ok := c.entries[key]
	if !ok {
		e = &Entry{}
		c.entries[key] = e
	}
	if e.HasContent && contentSize.Exceeds(e.ContentSize) {
		e.expansionHandled = false
	}
	if reason.Kind == BoundsExpanded {
		e.expansionHandled = true
	}
	e.Phase = Invoked
	e.Pending = Reason{}
	e.ContentSize = contentSize
	e.HasContent = true
	e.lastNear = c.nearEdges(e, e.LastScrollOffset)
}

// ForceReinvoke sends one view back to NeverInvoked. It reports whether key
// was known.
func (c *Checker) ForceReinvoke(key Key) bool {
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	resetEntry(e)
	return true
}

// Forget drops key, for views whose node was deleted.
func (c *Checker) Forget(key Key) {
	delete(c.entries, key)
}

// ResetAll sends every view back to NeverInvoked. Bounds and content sizes
// are kept so the next regeneration can compare against them.
func (c *Checker) ResetAll() {
	for _, e := range c.entries {
		resetEntry(e)
	}
}

func resetEntry(e *Entry) {
	e.Phase = NeverInvoked
	e.Pending = Reason{}
	e.lastNear = 0
	e.expansionHandled = false
}

// Phase returns the phase of key; unknown keys are NeverInvoked.
func (c *Checker) Phase(key Key) Phase {
	if e, ok := c.entries[key]; ok {
		return e.Phase
	}
	return NeverInvoked
}

// Entry returns a copy of the state for key.
func (c *Checker) Entry(key Key) (Entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of tracked views.
func (c *Checker) Len() int { return len(c.entries) }

// Keys returns every tracked key in (dom, node) order.
func (c *Checker) Keys() []Key {
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		if d := cmp.Compare(a.Dom, b.Dom); d != 0 {
			return d
		}
		return cmp.Compare(a.Node, b.Node)
	})
	return keys
}
