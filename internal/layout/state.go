// Package layout holds the in-memory UI state that change application
// mutates: the node trees, text and cursor state, scroll positions, caches,
// drag and focus state, and the rendered-subtree cache guarded by the
// reinvocation checker.
//
// Mutators return whether they applied. A mutator given a reference to a
// node that no longer exists does nothing and returns false; callers treat
// that as a local no-op.
package layout

import (
	"fmt"
	"slices"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/geom"
	"github.com/roach88/changeflow/internal/reinvoke"
)

// Node is one element of a DOM.
type Node struct {
	Ref       change.NodeRef
	Parent    change.NodeID
	HasParent bool
	Children  []change.NodeID
	Tag       string
	Text      string
	IDs       []string
	Classes   []string
	CSS       []change.CSSProperty
	Image     *change.Image
	Mask      *change.ImageMask

	Focusable  bool
	Editable   bool
	Scrollable bool
	Virtual    bool

	// Bounds are in unscrolled document coordinates.
	Bounds       geom.Rect
	ContentSize  geom.Size
	ScrollOffset geom.Position

	// Cursor and Anchor are grapheme offsets into Text. Anchor equals
	// Cursor when nothing is selected.
	Cursor int
	Anchor int

	Focused  bool
	Dragging bool
	DragOver bool

	// ImageCallbackDirty is set when the node's image callback must run
	// before the next frame.
	ImageCallbackDirty bool
}

// HasSelection reports whether a non-empty range is selected.
func (n *Node) HasSelection() bool { return n.Cursor != n.Anchor }

type dom struct {
	nodes  map[change.NodeID]*Node
	nextID change.NodeID
}

// NodeSpec declares a node for Build. It is the shape scenario files use.
type NodeSpec struct {
	Dom         change.DomID   `yaml:"dom" json:"dom"`
	ID          change.NodeID  `yaml:"id" json:"id"`
	Parent      *change.NodeID `yaml:"parent,omitempty" json:"parent,omitempty"`
	Tag         string         `yaml:"tag,omitempty" json:"tag,omitempty"`
	Text        string         `yaml:"text,omitempty" json:"text,omitempty"`
	Classes     []string       `yaml:"classes,omitempty" json:"classes,omitempty"`
	Focusable   bool           `yaml:"focusable,omitempty" json:"focusable,omitempty"`
	Editable    bool           `yaml:"editable,omitempty" json:"editable,omitempty"`
	Scrollable  bool           `yaml:"scrollable,omitempty" json:"scrollable,omitempty"`
	Virtual     bool           `yaml:"virtual,omitempty" json:"virtual,omitempty"`
	Bounds      geom.Rect      `yaml:"bounds,omitempty" json:"bounds,omitempty"`
	ContentSize geom.Size      `yaml:"content_size,omitempty" json:"content_size,omitempty"`
}

// CursorState is the window-wide text cursor.
type CursorState struct {
	Node        change.NodeRef
	Active      bool
	Visible     bool
	BlinkResets int
}

// DragState is the current drag-and-drop gesture.
type DragState struct {
	Active       bool
	Node         change.NodeRef
	Data         map[string]string
	Effect       change.DropEffect
	DropAccepted bool
	Over         *change.NodeRef
}

// ScrollbarDrag is an in-progress scrollbar thumb drag.
type ScrollbarDrag struct {
	Active      bool
	Node        change.NodeRef
	Axis        change.Axis
	Pointer     geom.Position
	StartOffset geom.Position
}

// State is the core layout state of one window.
type State struct {
	doms map[change.DomID]*dom

	Cursor        CursorState
	Drag          DragState
	ScrollbarDrag ScrollbarDrag
	CopyOverride  *string
	CutOverride   *string

	focus *change.NodeRef

	window         change.WindowState
	previousWindow *change.WindowState

	images         map[string]change.Image
	fontGeneration int

	rendered  map[change.NodeRef]bool
	providers map[change.NodeRef]VirtualProvider
	checker   *reinvoke.Checker
}

// New returns an empty state whose reinvocation checker uses margin.
func New(margin float64) *State {
	return &State{
		doms:      make(map[change.DomID]*dom),
		images:    make(map[string]change.Image),
		rendered:  make(map[change.NodeRef]bool),
		providers: make(map[change.NodeRef]VirtualProvider),
		checker:   reinvoke.NewChecker(margin),
		Cursor:    CursorState{Visible: true},
		Drag:      DragState{Effect: change.DropNone},
	}
}

// Build adds the declared nodes. Parents must be declared before their
// children.
func (s *State) Build(specs []NodeSpec) error {
	for i, spec := range specs {
		d := s.domFor(spec.Dom)
		if _, exists := d.nodes[spec.ID]; exists {
			return fmt.Errorf("node %d: duplicate id %d/%d", i, spec.Dom, spec.ID)
		}
		n := &Node{
			Ref:         change.Ref(spec.Dom, spec.ID),
			Tag:         spec.Tag,
			Text:        normalize(spec.Text),
			Classes:     slices.Clone(spec.Classes),
			Focusable:   spec.Focusable || spec.Editable,
			Editable:    spec.Editable,
			Scrollable:  spec.Scrollable || spec.Virtual,
			Virtual:     spec.Virtual,
			Bounds:      spec.Bounds,
			ContentSize: spec.ContentSize,
		}
		if n.Tag == "" {
			n.Tag = "div"
		}
		if spec.Parent != nil {
			p, ok := d.nodes[*spec.Parent]
			if !ok {
				return fmt.Errorf("node %d: parent %d/%d not declared", i, spec.Dom, *spec.Parent)
			}
			n.Parent = *spec.Parent
			n.HasParent = true
			p.Children = append(p.Children, spec.ID)
		}
		d.nodes[spec.ID] = n
		if spec.ID >= d.nextID {
			d.nextID = spec.ID + 1
		}
	}
	return nil
}

func (s *State) domFor(id change.DomID) *dom {
	d, ok := s.doms[id]
	if !ok {
		d = &dom{nodes: make(map[change.NodeID]*Node)}
		s.doms[id] = d
	}
	return d
}

// Node returns the node at ref, or nil.
func (s *State) Node(ref change.NodeRef) *Node {
	d, ok := s.doms[ref.Dom]
	if !ok {
		return nil
	}
	return d.nodes[ref.Node]
}

// NodeCount returns the number of live nodes across all DOMs.
func (s *State) NodeCount() int {
	n := 0
	for _, d := range s.doms {
		n += len(d.nodes)
	}
	return n
}

// Bounds returns the layout bounds of ref.
func (s *State) Bounds(ref change.NodeRef) (geom.Rect, bool) {
	n := s.Node(ref)
	if n == nil {
		return geom.Rect{}, false
	}
	return n.Bounds, true
}

// ScrollOffset returns the scroll offset of ref.
func (s *State) ScrollOffset(ref change.NodeRef) (geom.Position, bool) {
	n := s.Node(ref)
	if n == nil {
		return geom.Position{}, false
	}
	return n.ScrollOffset, true
}

// SetBounds moves or resizes ref, as a layout pass would.
func (s *State) SetBounds(ref change.NodeRef, r geom.Rect) bool {
	n := s.Node(ref)
	if n == nil {
		return false
	}
	n.Bounds = r
	return true
}

// Window returns the current window state.
func (s *State) Window() change.WindowState { return s.window }

// SetWindow replaces the current window state.
func (s *State) SetWindow(w change.WindowState) { s.window = w }

// SavePreviousWindow snapshots the current window state. The snapshot is
// what later stages diff against.
func (s *State) SavePreviousWindow() {
	w := s.window
	s.previousWindow = &w
}

// PreviousWindow returns the last snapshot.
func (s *State) PreviousWindow() (change.WindowState, bool) {
	if s.previousWindow == nil {
		return change.WindowState{}, false
	}
	return *s.previousWindow, true
}

// SetNodeText replaces the text content of ref and clamps its cursor.
func (s *State) SetNodeText(ref change.NodeRef, text string) bool {
	n := s.Node(ref)
	if n == nil {
		return false
	}
	n.Text = normalize(text)
	count := graphemeCount(n.Text)
	n.Cursor = min(n.Cursor, count)
	n.Anchor = min(n.Anchor, count)
	return true
}

func (s *State) SetNodeImage(ref change.NodeRef, img change.Image) bool {
	n := s.Node(ref)
	if n == nil {
		return false
	}
	n.Image = &img
	return true
}

func (s *State) SetNodeImageMask(ref change.NodeRef, mask change.ImageMask) bool {
	n := s.Node(ref)
	if n == nil {
		return false
	}
	n.Mask = &mask
	return true
}

// SetNodeCSS merges props into the node's inline style; later declarations
// override earlier ones with the same name.
func (s *State) SetNodeCSS(ref change.NodeRef, props []change.CSSProperty) bool {
	n := s.Node(ref)
	if n == nil {
		return false
	}
	for _, p := range props {
		i := slices.IndexFunc(n.CSS, func(q change.CSSProperty) bool { return q.Name == p.Name })
		if i >= 0 {
			n.CSS[i] = p
		} else {
			n.CSS = append(n.CSS, p)
		}
	}
	return true
}

// CSSValue returns the inline value of name on ref.
func (s *State) CSSValue(ref change.NodeRef, name string) (string, bool) {
	n := s.Node(ref)
	if n == nil {
		return "", false
	}
	for _, p := range n.CSS {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func (s *State) SetNodeClasses(ref change.NodeRef, ids, classes []string) bool {
	n := s.Node(ref)
	if n == nil {
		return false
	}
	n.IDs = slices.Clone(ids)
	n.Classes = slices.Clone(classes)
	return true
}

// InsertChild creates a node under parent at position (appending when
// position is negative or past the end) and returns its id.
func (s *State) InsertChild(parent change.NodeRef, tag, text string, position int) (change.NodeID, bool) {
	p := s.Node(parent)
	if p == nil {
		return 0, false
	}
	d := s.doms[parent.Dom]
	id := d.nextID
	d.nextID++
	d.nodes[id] = &Node{
		Ref:       change.Ref(parent.Dom, id),
		Parent:    parent.Node,
		HasParent: true,
		Tag:       tag,
		Text:      normalize(text),
	}
	if position < 0 || position > len(p.Children) {
		position = len(p.Children)
	}
	p.Children = slices.Insert(p.Children, position, id)
	return id, true
}

// DeleteNode removes ref and its descendants. Focus, cursor and drag state
// pointing into the removed subtree are cleared.
func (s *State) DeleteNode(ref change.NodeRef) bool {
	n := s.Node(ref)
	if n == nil {
		return false
	}
	d := s.doms[ref.Dom]
	if n.HasParent {
		if p := d.nodes[n.Parent]; p != nil {
			p.Children = slices.DeleteFunc(p.Children, func(c change.NodeID) bool { return c == ref.Node })
		}
	}
	var remove func(id change.NodeID)
	remove = func(id change.NodeID) {
		node := d.nodes[id]
		if node == nil {
			return
		}
		for _, c := range node.Children {
			remove(c)
		}
		delete(d.nodes, id)
		r := change.Ref(ref.Dom, id)
		if s.focus != nil && *s.focus == r {
			s.focus = nil
		}
		if s.Cursor.Active && s.Cursor.Node == r {
			s.Cursor.Active = false
		}
		if s.Drag.Active && s.Drag.Node == r {
			s.Drag = DragState{Effect: change.DropNone}
		}
		delete(s.rendered, r)
		delete(s.providers, r)
		s.checker.Forget(r)
	}
	remove(ref.Node)
	return true
}

// Children returns the child ids of ref in order.
func (s *State) Children(ref change.NodeRef) []change.NodeID {
	n := s.Node(ref)
	if n == nil {
		return nil
	}
	return slices.Clone(n.Children)
}

// AddImage stores img in the image cache under id.
func (s *State) AddImage(id string, img change.Image) { s.images[id] = img }

// RemoveImage drops id from the image cache.
func (s *State) RemoveImage(id string) bool {
	if _, ok := s.images[id]; !ok {
		return false
	}
	delete(s.images, id)
	return true
}

// Image looks up id in the image cache.
func (s *State) Image(id string) (change.Image, bool) {
	img, ok := s.images[id]
	return img, ok
}

// ReloadFonts invalidates the font cache.
func (s *State) ReloadFonts() { s.fontGeneration++ }

// FontGeneration counts font cache reloads.
func (s *State) FontGeneration() int { return s.fontGeneration }

// MarkImageCallback flags ref's image callback for re-run.
func (s *State) MarkImageCallback(ref change.NodeRef) bool {
	n := s.Node(ref)
	if n == nil {
		return false
	}
	n.ImageCallbackDirty = true
	return true
}

// MarkAllImageCallbacks flags every node carrying an image and returns how
// many were flagged.
func (s *State) MarkAllImageCallbacks() int {
	count := 0
	for _, d := range s.doms {
		for _, n := range d.nodes {
			if n.Image != nil {
				n.ImageCallbackDirty = true
				count++
			}
		}
	}
	return count
}

// SetCopyOverride replaces what the next copy puts on the clipboard.
func (s *State) SetCopyOverride(ref change.NodeRef, content string) bool {
	if s.Node(ref) == nil {
		return false
	}
	s.CopyOverride = &content
	return true
}

// SetCutOverride replaces what the next cut puts on the clipboard.
func (s *State) SetCutOverride(ref change.NodeRef, content string) bool {
	if s.Node(ref) == nil {
		return false
	}
	s.CutOverride = &content
	return true
}
