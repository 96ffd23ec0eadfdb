package change

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/changeflow/internal/geom"
	"github.com/roach88/changeflow/internal/severity"
)

// DomID identifies one DOM (a window root or a virtual view's nested DOM).
type DomID uint32

// NodeID identifies a node inside a DOM.
type NodeID uint32

// NodeRef addresses a node across DOMs.
type NodeRef struct {
	Dom  DomID  `json:"dom" yaml:"dom"`
	Node NodeID `json:"node" yaml:"node"`
}

// Ref is shorthand for NodeRef{dom, node}.
func Ref(dom DomID, node NodeID) NodeRef {
	return NodeRef{Dom: dom, Node: node}
}

func (r NodeRef) String() string {
	return fmt.Sprintf("%d/%d", r.Dom, r.Node)
}

// TimerID identifies a timer in the logical registry and on the platform.
type TimerID uint64

// ThreadID identifies a background thread.
type ThreadID uint64

// Reserved ids for timers the framework starts on its own.
const (
	CursorBlinkTimerID TimerID = 0xFFFF_0001
	AutoScrollTimerID  TimerID = 0xFFFF_0002
	ThreadPollTimerID  TimerID = 0xFFFF_0003
)

// IsReserved reports whether id belongs to a framework timer.
func (id TimerID) IsReserved() bool {
	return id >= CursorBlinkTimerID && id <= ThreadPollTimerID
}

// Context is what a callback sees while it runs. Pushing is the only way
// application code requests changes; nothing takes effect until the cycle's
// appliers run.
type Context interface {
	PushUserChange(c UserChange)
	StopPropagation()
	StopImmediatePropagation()
	PreventDefault()
	Now() time.Time
}

// Callback is application code invoked by event dispatch, timer expiry or a
// thread writeback. The returned severity is the callback's own update
// request, merged with whatever its changes produce.
type Callback func(ctx Context) severity.Severity

// Timer is a callback scheduled by the integrator.
// A zero Interval makes the timer one-shot.
type Timer struct {
	Delay    time.Duration
	Interval time.Duration
	Callback Callback
}

// Writeback is a result a background thread hands to the UI thread.
type Writeback struct {
	Callback Callback
	Finished bool
}

// Thread is a background producer. Run executes on its own goroutine and may
// only communicate through send; ctx is cancelled when the thread is removed.
type Thread struct {
	Run func(ctx context.Context, send func(Writeback))
}

// MouseState is the pointer part of a window state.
type MouseState struct {
	Position    geom.Position `json:"position" yaml:"position"`
	HasPosition bool          `json:"has_position" yaml:"has_position"`
	LeftDown    bool          `json:"left_down" yaml:"left_down"`
	RightDown   bool          `json:"right_down" yaml:"right_down"`
	MiddleDown  bool          `json:"middle_down" yaml:"middle_down"`
}

// KeyboardState is the modifier/key part of a window state.
type KeyboardState struct {
	Shift   bool   `json:"shift" yaml:"shift"`
	Ctrl    bool   `json:"ctrl" yaml:"ctrl"`
	Alt     bool   `json:"alt" yaml:"alt"`
	Super   bool   `json:"super" yaml:"super"`
	Pressed string `json:"pressed" yaml:"pressed"`
}

// WindowFlags are boolean window properties.
type WindowFlags struct {
	Maximized      bool `json:"maximized" yaml:"maximized"`
	Minimized      bool `json:"minimized" yaml:"minimized"`
	Fullscreen     bool `json:"fullscreen" yaml:"fullscreen"`
	CloseRequested bool `json:"close_requested" yaml:"close_requested"`
}

// WindowState is the full platform-visible state of one window.
// It is comparable so change detection is a plain ==.
type WindowState struct {
	Title      string        `json:"title" yaml:"title"`
	Size       geom.Size     `json:"size" yaml:"size"`
	Position   geom.Position `json:"position" yaml:"position"`
	Flags      WindowFlags   `json:"flags" yaml:"flags"`
	Background string        `json:"background" yaml:"background"`
	Mouse      MouseState    `json:"mouse" yaml:"mouse"`
	Keyboard   KeyboardState `json:"keyboard" yaml:"keyboard"`
}

// WindowOptions describe a window to create.
type WindowOptions struct {
	Title string    `json:"title" yaml:"title"`
	Size  geom.Size `json:"size" yaml:"size"`
}

// MenuItem is one entry of a menu.
type MenuItem struct {
	Label    string `json:"label" yaml:"label"`
	Disabled bool   `json:"disabled" yaml:"disabled"`
}

// Menu is a context or dropdown menu.
type Menu struct {
	Position geom.Position `json:"position" yaml:"position"`
	Items    []MenuItem    `json:"items" yaml:"items"`
}

// Image references decoded image data held elsewhere.
type Image struct {
	Key  string    `json:"key" yaml:"key"`
	Size geom.Size `json:"size" yaml:"size"`
}

// ImageMask clips a node to an image.
type ImageMask struct {
	Image Image     `json:"image" yaml:"image"`
	Rect  geom.Rect `json:"rect" yaml:"rect"`
}

// CSSProperty is a single declaration. Order matters; later wins.
type CSSProperty struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// FocusKind selects how a FocusTarget resolves.
type FocusKind uint8

const (
	FocusNode FocusKind = iota
	FocusNext
	FocusPrevious
	FocusFirst
	FocusLast
	FocusNone
)

var focusKindNames = [...]string{"node", "next", "previous", "first", "last", "none"}

func (k FocusKind) String() string {
	if int(k) < len(focusKindNames) {
		return focusKindNames[k]
	}
	return fmt.Sprintf("focus(%d)", uint8(k))
}

// ParseFocusKind is the inverse of FocusKind.String.
func ParseFocusKind(s string) (FocusKind, error) {
	for i, n := range focusKindNames {
		if n == s {
			return FocusKind(i), nil
		}
	}
	return FocusNone, fmt.Errorf("unknown focus target %q", s)
}

// FocusTarget names the node that should receive keyboard focus.
type FocusTarget struct {
	Kind FocusKind
	Node NodeRef
}

func (t FocusTarget) String() string {
	if t.Kind == FocusNode {
		return fmt.Sprintf("node(%s)", t.Node)
	}
	return t.Kind.String()
}

// DropEffect is the W3C dropEffect.
type DropEffect string

const (
	DropNone DropEffect = "none"
	DropCopy DropEffect = "copy"
	DropMove DropEffect = "move"
	DropLink DropEffect = "link"
)

// Valid reports whether e is one of the four W3C values.
func (e DropEffect) Valid() bool {
	switch e {
	case DropNone, DropCopy, DropMove, DropLink:
		return true
	}
	return false
}

// Axis is a scrollbar orientation.
type Axis uint8

const (
	Vertical Axis = iota
	Horizontal
)

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}
