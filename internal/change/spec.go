package change

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/changeflow/internal/geom"
	"github.com/roach88/changeflow/internal/severity"
)

// Spec is the textual form of a change, used by scenario files and the CLI.
// Type selects the variant by its tag name; the remaining fields are flat and
// each variant reads only the ones it needs.
type Spec struct {
	// Type is the tag name (e.g. "InsertText", "SetFocus").
	Type string `yaml:"type" json:"type"`

	// Dom and Node address the target node.
	Dom  DomID  `yaml:"dom,omitempty" json:"dom,omitempty"`
	Node NodeID `yaml:"node,omitempty" json:"node,omitempty"`

	// New and Old are the focus endpoints for SetFocus/RestyleForFocus.
	New *NodeRef `yaml:"new,omitempty" json:"new,omitempty"`
	Old *NodeRef `yaml:"old,omitempty" json:"old,omitempty"`

	Text   string  `yaml:"text,omitempty" json:"text,omitempty"`
	Tag    string  `yaml:"tag,omitempty" json:"tag,omitempty"`
	Index  *int    `yaml:"index,omitempty" json:"index,omitempty"`
	X      float64 `yaml:"x,omitempty" json:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty" json:"y,omitempty"`
	Width  float64 `yaml:"width,omitempty" json:"width,omitempty"`
	Height float64 `yaml:"height,omitempty" json:"height,omitempty"`

	// Offset, Anchor and Focus are grapheme offsets.
	Offset int  `yaml:"offset,omitempty" json:"offset,omitempty"`
	Anchor int  `yaml:"anchor,omitempty" json:"anchor,omitempty"`
	Focus  int  `yaml:"focus,omitempty" json:"focus,omitempty"`
	Extend bool `yaml:"extend,omitempty" json:"extend,omitempty"`

	// ID is a timer or thread id.
	ID         uint64 `yaml:"id,omitempty" json:"id,omitempty"`
	IntervalMS int64  `yaml:"interval_ms,omitempty" json:"interval_ms,omitempty"`
	DelayMS    int64  `yaml:"delay_ms,omitempty" json:"delay_ms,omitempty"`

	// Runs bounds how often a scripted timer fires before terminating itself,
	// or how many writebacks a scripted thread sends. Zero means unbounded for
	// timers and one for threads.
	Runs int `yaml:"runs,omitempty" json:"runs,omitempty"`

	// Severity is what a scripted timer or thread callback returns.
	Severity severity.Severity `yaml:"severity,omitempty" json:"severity,omitempty"`

	// Push lists the user changes a scripted callback pushes on every run.
	Push []Spec `yaml:"push,omitempty" json:"push,omitempty"`

	Visible bool   `yaml:"visible,omitempty" json:"visible,omitempty"`
	Active  bool   `yaml:"active,omitempty" json:"active,omitempty"`
	Target  string `yaml:"target,omitempty" json:"target,omitempty"`
	Axis    string `yaml:"axis,omitempty" json:"axis,omitempty"`

	Key     string        `yaml:"key,omitempty" json:"key,omitempty"`
	MIME    string        `yaml:"mime,omitempty" json:"mime,omitempty"`
	Data    string        `yaml:"data,omitempty" json:"data,omitempty"`
	Effect  string        `yaml:"effect,omitempty" json:"effect,omitempty"`
	Items   []string      `yaml:"items,omitempty" json:"items,omitempty"`
	IDs     []string      `yaml:"ids,omitempty" json:"ids,omitempty"`
	Classes []string      `yaml:"classes,omitempty" json:"classes,omitempty"`
	CSS     []CSSProperty `yaml:"css,omitempty" json:"css,omitempty"`

	Window  *WindowState  `yaml:"window,omitempty" json:"window,omitempty"`
	Windows []WindowState `yaml:"windows,omitempty" json:"windows,omitempty"`
}

func (s Spec) ref() NodeRef { return NodeRef{Dom: s.Dom, Node: s.Node} }

func (s Spec) pos() geom.Position { return geom.Position{X: s.X, Y: s.Y} }

func (s Spec) image() Image {
	return Image{Key: s.Key, Size: geom.Size{Width: s.Width, Height: s.Height}}
}

func (s Spec) cursorMove() CursorMove {
	return CursorMove{Node: s.ref(), ExtendSelection: s.Extend}
}

type userDecoder func(Spec) (UserChange, error)

type systemDecoder func(Spec) (SystemChange, error)

func plainUser(c UserChange) userDecoder {
	return func(Spec) (UserChange, error) { return c, nil }
}

func plainSystem(c SystemChange) systemDecoder {
	return func(Spec) (SystemChange, error) { return c, nil }
}

// userDecoders is filled in init because scripted timers and threads decode
// their pushed changes recursively.
var userDecoders map[UserTag]userDecoder

func init() {
	userDecoders = map[UserTag]userDecoder{
		TagModifyWindowState: func(s Spec) (UserChange, error) {
			if s.Window == nil {
				return nil, fmt.Errorf("ModifyWindowState: window is required")
			}
			return ModifyWindowState{State: *s.Window}, nil
		},
		TagQueueWindowStateSequence: func(s Spec) (UserChange, error) {
			return QueueWindowStateSequence{States: append([]WindowState(nil), s.Windows...)}, nil
		},
		TagCreateNewWindow: func(s Spec) (UserChange, error) {
			return CreateNewWindow{Options: WindowOptions{Title: s.Text, Size: geom.Size{Width: s.Width, Height: s.Height}}}, nil
		},
		TagCloseWindow:              plainUser(CloseWindow{}),
		TagBeginInteractiveMove:     plainUser(BeginInteractiveMove{}),
		TagStopPropagation:          plainUser(StopPropagation{}),
		TagStopImmediatePropagation: plainUser(StopImmediatePropagation{}),
		TagPreventDefault:           plainUser(PreventDefault{}),
		TagSetFocusTarget: func(s Spec) (UserChange, error) {
			kind := FocusNode
			if s.Target != "" {
				k, err := ParseFocusKind(s.Target)
				if err != nil {
					return nil, err
				}
				kind = k
			}
			return SetFocusTarget{Target: FocusTarget{Kind: kind, Node: s.ref()}}, nil
		},
		TagAddTimer: func(s Spec) (UserChange, error) {
			push, err := decodePushes(s.Push)
			if err != nil {
				return nil, err
			}
			id := TimerID(s.ID)
			return AddTimer{ID: id, Timer: Timer{
				Delay:    time.Duration(s.DelayMS) * time.Millisecond,
				Interval: time.Duration(s.IntervalMS) * time.Millisecond,
				Callback: ScriptedTimer(id, s.Runs, s.Severity, push),
			}}, nil
		},
		TagRemoveTimer: func(s Spec) (UserChange, error) { return RemoveTimer{ID: TimerID(s.ID)}, nil },
		TagAddThread: func(s Spec) (UserChange, error) {
			push, err := decodePushes(s.Push)
			if err != nil {
				return nil, err
			}
			return AddThread{ID: ThreadID(s.ID), Thread: ScriptedThread(s.Runs, s.Severity, push)}, nil
		},
		TagRemoveThread: func(s Spec) (UserChange, error) { return RemoveThread{ID: ThreadID(s.ID)}, nil },
		TagChangeNodeText: func(s Spec) (UserChange, error) {
			return ChangeNodeText{Node: s.ref(), Text: s.Text}, nil
		},
		TagChangeNodeImage: func(s Spec) (UserChange, error) {
			return ChangeNodeImage{Node: s.ref(), Image: s.image()}, nil
		},
		TagChangeNodeImageMask: func(s Spec) (UserChange, error) {
			return ChangeNodeImageMask{Node: s.ref(), Mask: ImageMask{
				Image: s.image(),
				Rect:  geom.NewRect(s.X, s.Y, s.Width, s.Height),
			}}, nil
		},
		TagChangeNodeCSS: func(s Spec) (UserChange, error) {
			return ChangeNodeCSS{Node: s.ref(), Properties: append([]CSSProperty(nil), s.CSS...)}, nil
		},
		TagUpdateImageCallback:     func(s Spec) (UserChange, error) { return UpdateImageCallback{Node: s.ref()}, nil },
		TagUpdateAllImageCallbacks: plainUser(UpdateAllImageCallbacks{}),
		TagUpdateVirtualView:       func(s Spec) (UserChange, error) { return UpdateVirtualView{Node: s.ref()}, nil },
		TagInsertChildNode: func(s Spec) (UserChange, error) {
			pos := -1
			if s.Index != nil {
				pos = *s.Index
			}
			tag := s.Tag
			if tag == "" {
				tag = "div"
			}
			return InsertChildNode{Parent: s.ref(), Tag: tag, Text: s.Text, Position: pos}, nil
		},
		TagDeleteNode: func(s Spec) (UserChange, error) { return DeleteNode{Node: s.ref()}, nil },
		TagSetNodeClasses: func(s Spec) (UserChange, error) {
			return SetNodeClasses{Node: s.ref(), IDs: append([]string(nil), s.IDs...), Classes: append([]string(nil), s.Classes...)}, nil
		},
		TagScrollTo:                   func(s Spec) (UserChange, error) { return ScrollTo{Node: s.ref(), Offset: s.pos()}, nil },
		TagScrollIntoView:             func(s Spec) (UserChange, error) { return ScrollIntoView{Node: s.ref()}, nil },
		TagScrollActiveCursorIntoView: plainUser(ScrollActiveCursorIntoView{}),
		TagAddImageToCache: func(s Spec) (UserChange, error) {
			if s.Key == "" {
				return nil, fmt.Errorf("AddImageToCache: key is required")
			}
			return AddImageToCache{ID: s.Key, Image: s.image()}, nil
		},
		TagRemoveImageFromCache: func(s Spec) (UserChange, error) { return RemoveImageFromCache{ID: s.Key}, nil },
		TagReloadSystemFonts:    plainUser(ReloadSystemFonts{}),
		TagOpenMenu: func(s Spec) (UserChange, error) {
			items := make([]MenuItem, 0, len(s.Items))
			for _, label := range s.Items {
				items = append(items, MenuItem{Label: label})
			}
			p := s.pos()
			return OpenMenu{Menu: Menu{Position: p, Items: items}, Position: &p}, nil
		},
		TagShowTooltip: func(s Spec) (UserChange, error) { return ShowTooltip{Text: s.Text, Position: s.pos()}, nil },
		TagHideTooltip: plainUser(HideTooltip{}),
		TagInsertText:  func(s Spec) (UserChange, error) { return InsertText{Node: s.ref(), Text: s.Text}, nil },
		TagDeleteBackward: func(s Spec) (UserChange, error) {
			return DeleteBackward{Node: s.ref()}, nil
		},
		TagDeleteForward: func(s Spec) (UserChange, error) { return DeleteForward{Node: s.ref()}, nil },
		TagMoveCursor:    func(s Spec) (UserChange, error) { return MoveCursor{Node: s.ref(), Offset: s.Offset}, nil },
		TagSetSelection: func(s Spec) (UserChange, error) {
			return SetSelection{Node: s.ref(), Anchor: s.Anchor, Focus: s.Focus}, nil
		},
		TagMoveCursorLeft:  func(s Spec) (UserChange, error) { return MoveCursorLeft{s.cursorMove()}, nil },
		TagMoveCursorRight: func(s Spec) (UserChange, error) { return MoveCursorRight{s.cursorMove()}, nil },
		TagMoveCursorUp:    func(s Spec) (UserChange, error) { return MoveCursorUp{s.cursorMove()}, nil },
		TagMoveCursorDown:  func(s Spec) (UserChange, error) { return MoveCursorDown{s.cursorMove()}, nil },
		TagMoveCursorToLineStart: func(s Spec) (UserChange, error) {
			return MoveCursorToLineStart{s.cursorMove()}, nil
		},
		TagMoveCursorToLineEnd: func(s Spec) (UserChange, error) {
			return MoveCursorToLineEnd{s.cursorMove()}, nil
		},
		TagMoveCursorToDocumentStart: func(s Spec) (UserChange, error) {
			return MoveCursorToDocumentStart{s.cursorMove()}, nil
		},
		TagMoveCursorToDocumentEnd: func(s Spec) (UserChange, error) {
			return MoveCursorToDocumentEnd{s.cursorMove()}, nil
		},
		TagSetCopyContent: func(s Spec) (UserChange, error) { return SetCopyContent{Node: s.ref(), Content: s.Text}, nil },
		TagSetCutContent:  func(s Spec) (UserChange, error) { return SetCutContent{Node: s.ref(), Content: s.Text}, nil },
		TagSetDragData: func(s Spec) (UserChange, error) {
			if s.MIME == "" {
				return nil, fmt.Errorf("SetDragData: mime is required")
			}
			return SetDragData{MIME: s.MIME, Data: s.Data}, nil
		},
		TagAcceptDrop: plainUser(AcceptDrop{}),
		TagSetDropEffect: func(s Spec) (UserChange, error) {
			e := DropEffect(s.Effect)
			if !e.Valid() {
				return nil, fmt.Errorf("SetDropEffect: invalid effect %q", s.Effect)
			}
			return SetDropEffect{Effect: e}, nil
		},
		TagSetCursorVisibility: func(s Spec) (UserChange, error) { return SetCursorVisibility{Visible: s.Visible}, nil },
		TagResetCursorBlink:    plainUser(ResetCursorBlink{}),
	}
}

var systemDecoders = map[SystemTag]systemDecoder{
	TagSetFocus: func(s Spec) (SystemChange, error) {
		return SetFocus{New: cloneRef(s.New), Old: cloneRef(s.Old)}, nil
	},
	TagRestyleForFocus: func(s Spec) (SystemChange, error) {
		return RestyleForFocus{Old: cloneRef(s.Old), New: cloneRef(s.New)}, nil
	},
	TagStartCursorBlinkTimer: plainSystem(StartCursorBlinkTimer{}),
	TagStopCursorBlinkTimer:  plainSystem(StopCursorBlinkTimer{}),
	TagActivateNodeDrag:      func(s Spec) (SystemChange, error) { return ActivateNodeDrag{Node: s.ref()}, nil },
	TagDeactivateDrag:        plainSystem(DeactivateDrag{}),
	TagSetDragOverState: func(s Spec) (SystemChange, error) {
		return SetDragOverState{Node: s.ref(), Active: s.Active}, nil
	},
	TagStartAutoScrollTimer: plainSystem(StartAutoScrollTimer{}),
	TagStopAutoScrollTimer:  plainSystem(StopAutoScrollTimer{}),
	TagScrollbarDragStart: func(s Spec) (SystemChange, error) {
		axis := Vertical
		switch s.Axis {
		case "", "vertical":
		case "horizontal":
			axis = Horizontal
		default:
			return nil, fmt.Errorf("ScrollbarDragStart: invalid axis %q", s.Axis)
		}
		return ScrollbarDragStart{Node: s.ref(), Axis: axis, Pointer: s.pos()}, nil
	},
	TagScrollbarDragUpdate: func(s Spec) (SystemChange, error) { return ScrollbarDragUpdate{Pointer: s.pos()}, nil },
	TagScrollbarDragEnd:    plainSystem(ScrollbarDragEnd{}),
	TagClearAllSelections:  plainSystem(ClearAllSelections{}),
	TagScrollNodeIntoView:  func(s Spec) (SystemChange, error) { return ScrollNodeIntoView{Node: s.ref()}, nil },
}

func cloneRef(r *NodeRef) *NodeRef {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func decodePushes(specs []Spec) ([]UserChange, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	return DecodeUserAll(specs)
}

// DecodeUser turns a spec into a user change.
func DecodeUser(s Spec) (UserChange, error) {
	tag, err := ParseUserTag(s.Type)
	if err != nil {
		return nil, err
	}
	dec, ok := userDecoders[tag]
	if !ok {
		return nil, fmt.Errorf("no decoder for user change %s", tag)
	}
	return dec(s)
}

// DecodeUserAll decodes specs in order, stopping at the first error.
func DecodeUserAll(specs []Spec) ([]UserChange, error) {
	out := make([]UserChange, 0, len(specs))
	for i, s := range specs {
		c, err := DecodeUser(s)
		if err != nil {
			return nil, fmt.Errorf("user change %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// DecodeSystem turns a spec into a system change.
func DecodeSystem(s Spec) (SystemChange, error) {
	tag, err := ParseSystemTag(s.Type)
	if err != nil {
		return nil, err
	}
	dec, ok := systemDecoders[tag]
	if !ok {
		return nil, fmt.Errorf("no decoder for system change %s", tag)
	}
	return dec(s)
}

// DecodeSystemAll decodes specs in order, stopping at the first error.
func DecodeSystemAll(specs []Spec) ([]SystemChange, error) {
	out := make([]SystemChange, 0, len(specs))
	for i, s := range specs {
		c, err := DecodeSystem(s)
		if err != nil {
			return nil, fmt.Errorf("system change %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Scripted returns a callback that pushes push on every run and reports sev.
func Scripted(sev severity.Severity, push []UserChange) Callback {
	return func(ctx Context) severity.Severity {
		for _, c := range push {
			ctx.PushUserChange(c)
		}
		return sev
	}
}

// ScriptedTimer is Scripted for timer id, additionally terminating the timer
// after runs invocations when runs > 0.
func ScriptedTimer(id TimerID, runs int, sev severity.Severity, push []UserChange) Callback {
	base := Scripted(sev, push)
	fired := 0
	return func(ctx Context) severity.Severity {
		fired++
		out := base(ctx)
		if runs > 0 && fired >= runs {
			ctx.PushUserChange(RemoveTimer{ID: id})
		}
		return out
	}
}

// ScriptedThread sends runs writebacks (at least one) running a Scripted
// callback, marking the last one finished. It stops early when cancelled.
func ScriptedThread(runs int, sev severity.Severity, push []UserChange) Thread {
	if runs < 1 {
		runs = 1
	}
	cb := Scripted(sev, push)
	return Thread{Run: func(ctx context.Context, send func(Writeback)) {
		for i := 1; i <= runs; i++ {
			if ctx.Err() != nil {
				return
			}
			send(Writeback{Callback: cb, Finished: i == runs})
		}
	}}
}
