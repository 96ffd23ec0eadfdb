package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/changeflow/internal/callback"
	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/config"
	"github.com/roach88/changeflow/internal/geom"
	"github.com/roach88/changeflow/internal/layout"
	"github.com/roach88/changeflow/internal/platform"
	"github.com/roach88/changeflow/internal/reinvoke"
	"github.com/roach88/changeflow/internal/severity"
	"github.com/roach88/changeflow/internal/testutil"
	"github.com/roach88/changeflow/internal/trace"
)

func parent(id change.NodeID) *change.NodeID { return &id }

// testNodes builds:
//
//	0/0 root
//	├── 0/1 input (editable, "hello")
//	├── 0/2 list (scrollable, 400x300, content 400x2000)
//	│   └── 0/3 item at y=1000
//	├── 0/4 feed (virtual, 400x300 at y=300, content 400x2000)
//	└── 0/5 button (focusable)
func testNodes() []layout.NodeSpec {
	return []layout.NodeSpec{
		{Dom: 0, ID: 0, Tag: "body"},
		{Dom: 0, ID: 1, Parent: parent(0), Tag: "input", Editable: true, Text: "hello"},
		{Dom: 0, ID: 2, Parent: parent(0), Scrollable: true,
			Bounds: geom.NewRect(0, 0, 400, 300), ContentSize: geom.Size{Width: 400, Height: 2000}},
		{Dom: 0, ID: 3, Parent: parent(2), Bounds: geom.NewRect(0, 1000, 400, 50)},
		{Dom: 0, ID: 4, Parent: parent(0), Virtual: true,
			Bounds: geom.NewRect(0, 300, 400, 300), ContentSize: geom.Size{Width: 400, Height: 2000}},
		{Dom: 0, ID: 5, Parent: parent(0), Tag: "button", Focusable: true},
	}
}

var (
	root   = change.Ref(0, 0)
	input  = change.Ref(0, 1)
	list   = change.Ref(0, 2)
	item   = change.Ref(0, 3)
	feed   = change.Ref(0, 4)
	button = change.Ref(0, 5)
)

type fixture struct {
	e       *Engine
	rec     *platform.Recorder
	clock   *testutil.ManualClock
	journal *trace.Recorder
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()
	f := &fixture{
		rec:     platform.NewRecorder(),
		clock:   testutil.NewManualClock(),
		journal: trace.NewRecorder(),
	}
	base := []EngineOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithTimeSource(f.clock.Now),
		WithJournal(f.journal),
		WithSessionGenerator(testutil.NewFixedSessionGenerator("s1")),
	}
	f.e = New(f.rec, append(base, opts...)...)
	require.NoError(t, f.e.Layout().Build(testNodes()))
	t.Cleanup(f.e.Close)
	return f
}

func (f *fixture) process(user ...change.UserChange) severity.Severity {
	return f.e.Process(user, nil, severity.NoOp)
}

func (f *fixture) system(system ...change.SystemChange) severity.Severity {
	return f.e.Process(nil, system, severity.NoOp)
}

func (f *fixture) node(ref change.NodeRef) *layout.Node { return f.e.Layout().Node(ref) }

func (f *fixture) calls(op string) int {
	n := 0
	for _, c := range f.rec.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func codes(errs []error) []RuntimeErrorCode {
	var out []RuntimeErrorCode
	for _, err := range errs {
		if re, ok := err.(*RuntimeError); ok {
			out = append(out, re.Code)
		}
	}
	return out
}

func noop(change.Context) severity.Severity { return severity.NoOp }

// End-to-end scenarios

func TestProcess_InsertThenMoveCursorSeesNewText(t *testing.T) {
	f := newFixture(t)

	sev := f.process(
		change.InsertText{Node: input, Text: "ab"},
		change.MoveCursorRight{CursorMove: change.CursorMove{Node: input}},
	)

	n := f.node(input)
	assert.Equal(t, "abhello", n.Text)
	assert.Equal(t, 3, n.Cursor, "cursor moves from the post-insert position")
	assert.Equal(t, severity.IncrementalRelayout, sev)
}

func TestProcess_UserTimerAndBlinkTimerAreDistinct(t *testing.T) {
	f := newFixture(t)

	f.e.Process(
		[]change.UserChange{change.AddTimer{ID: 7, Timer: change.Timer{Interval: time.Second, Callback: noop}}},
		[]change.SystemChange{change.StartCursorBlinkTimer{}},
		severity.NoOp,
	)

	want := []change.TimerID{7, change.CursorBlinkTimerID}
	assert.Equal(t, want, f.rec.ActiveTimers())
	assert.Equal(t, want, f.e.Timers().IDs())
}

func TestDispatch_StopImmediatePropagation(t *testing.T) {
	f := newFixture(t)
	third := false

	res := f.e.Dispatch([]callback.Target{{
		Node: button,
		Handlers: []change.Callback{
			change.Scripted(severity.RepaintOnly, []change.UserChange{change.ChangeNodeText{Node: input, Text: "one"}}),
			func(ctx change.Context) severity.Severity {
				ctx.PushUserChange(change.SetNodeClasses{Node: button, Classes: []string{"two"}})
				ctx.StopImmediatePropagation()
				return severity.NoOp
			},
			func(ctx change.Context) severity.Severity {
				third = true
				ctx.PushUserChange(change.DeleteNode{Node: item})
				return severity.RegenerateAll
			},
		},
	}}, nil)

	assert.False(t, third)
	assert.Equal(t, 2, res.Invoked)
	want := []change.UserChange{
		change.ChangeNodeText{Node: input, Text: "one"},
		change.SetNodeClasses{Node: button, Classes: []string{"two"}},
		change.StopImmediatePropagation{},
	}
	if diff := cmp.Diff(want, res.Output.Deferred); diff != "" {
		t.Errorf("deferred changes mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, res.Output.StopImmediatePropagation)
	assert.Equal(t, severity.IncrementalRelayout, res.Severity)
	assert.NotNil(t, f.node(item), "third handler's change never applied")
}

func TestProcess_VirtualScrollNearEdgeInvalidates(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, 1, f.e.Layout().RefreshVirtualViews())
	require.Equal(t, reinvoke.Invoked, f.e.Layout().Checker().Phase(feed))

	// 2000 - 300 - 1600 = 100, inside the 200 margin.
	sev := f.process(change.ScrollTo{Node: feed, Offset: geom.Position{Y: 1600}})

	assert.GreaterOrEqual(t, sev, severity.IncrementalRelayout)
	assert.Equal(t, reinvoke.Invalidated, f.e.Layout().Checker().Phase(feed))
	entry, ok := f.e.Layout().Checker().Entry(feed)
	require.True(t, ok)
	assert.Equal(t, "edge-scrolled(bottom)", entry.Pending.String())
}

func TestProcess_ScrollAwayFromEdgeOnlyRepaints(t *testing.T) {
	f := newFixture(t)
	f.e.Layout().RefreshVirtualViews()

	sev := f.process(change.ScrollTo{Node: feed, Offset: geom.Position{Y: 600}})

	assert.Equal(t, severity.RepaintOnly, sev)
	assert.Equal(t, reinvoke.Invoked, f.e.Layout().Checker().Phase(feed))
}

func TestProcess_ResizeResetsReinvocation(t *testing.T) {
	f := newFixture(t)
	f.e.Layout().RefreshVirtualViews()
	require.True(t, f.e.Layout().Rendered(feed))

	sev := f.process(change.ModifyWindowState{State: change.WindowState{Size: geom.Size{Width: 1024, Height: 768}}})
	assert.Equal(t, severity.RegenerateAll, sev)
	assert.False(t, f.e.Layout().Rendered(feed))
	assert.Equal(t, reinvoke.NeverInvoked, f.e.Layout().Checker().Phase(feed))

	bounds, _ := f.e.Layout().Bounds(feed)
	offset, _ := f.e.Layout().ScrollOffset(feed)
	reason, ok := f.e.CheckReinvocation(feed.Dom, feed.Node, bounds, offset)
	assert.True(t, ok)
	assert.Equal(t, reinvoke.InitialRender, reason.Kind)
}

func TestReinvocation_ClearWithUnchangedBounds(t *testing.T) {
	f := newFixture(t)
	l := f.e.Layout()
	l.RefreshVirtualViews()
	bounds, _ := l.Bounds(feed)
	offset, _ := l.ScrollOffset(feed)

	_, ok := f.e.CheckReinvocation(feed.Dom, feed.Node, bounds, offset)
	require.False(t, ok, "invoked view with unchanged bounds needs nothing")

	l.ClearRenderedSubtrees()

	reason, ok := f.e.CheckReinvocation(feed.Dom, feed.Node, bounds, offset)
	assert.True(t, ok)
	assert.Equal(t, reinvoke.InitialRender, reason.Kind)
}

// Timers

func TestTick_TimerSingleApplication(t *testing.T) {
	f := newFixture(t)
	f.process(change.AddTimer{ID: 7, Timer: change.Timer{Interval: 10 * time.Millisecond, Callback: noop}})

	f.e.Tick(f.clock.Advance(10 * time.Millisecond))
	f.e.Tick(f.clock.Advance(10 * time.Millisecond))

	assert.Equal(t, 1, f.e.Timers().Len())
	assert.Equal(t, []change.TimerID{7}, f.rec.ActiveTimers())
	assert.Equal(t, 1, f.calls("StartTimer"))
	assert.Equal(t, 2, f.e.Timers().Runs(7))
}

func TestTick_OverdueTimerFiresOncePerTick(t *testing.T) {
	f := newFixture(t)
	f.process(change.AddTimer{ID: 7, Timer: change.Timer{Interval: 10 * time.Millisecond, Callback: noop}})

	f.e.Tick(f.clock.Advance(100 * time.Millisecond))

	assert.Equal(t, 1, f.e.Timers().Runs(7))
	assert.Zero(t, f.e.guard.HistorySize(), "guard is cleared after each tick")
}

func TestTick_NotDueYet(t *testing.T) {
	f := newFixture(t)
	f.process(change.AddTimer{ID: 7, Timer: change.Timer{Interval: 10 * time.Millisecond, Callback: noop}})

	sev := f.e.Tick(f.clock.Advance(5 * time.Millisecond))

	assert.Equal(t, severity.NoOp, sev)
	assert.Zero(t, f.e.Timers().Runs(7))
}

func TestTick_OneShotTimerRemovedAfterFiring(t *testing.T) {
	f := newFixture(t)
	f.process(change.AddTimer{ID: 7, Timer: change.Timer{
		Delay:    5 * time.Millisecond,
		Callback: change.Scripted(severity.RepaintOnly, []change.UserChange{change.ChangeNodeText{Node: input, Text: "fired"}}),
	}})

	sev := f.e.Tick(f.clock.Advance(5 * time.Millisecond))

	assert.Equal(t, severity.IncrementalRelayout, sev)
	assert.Equal(t, "fired", f.node(input).Text)
	assert.False(t, f.e.Timers().Has(7))
	assert.False(t, f.rec.HasTimer(7))
}

func TestTick_OneShotTimerCanRearm(t *testing.T) {
	f := newFixture(t)
	var tm change.Timer
	tm = change.Timer{Delay: 5 * time.Millisecond, Callback: func(ctx change.Context) severity.Severity {
		ctx.PushUserChange(change.AddTimer{ID: 7, Timer: tm})
		return severity.NoOp
	}}
	f.process(change.AddTimer{ID: 7, Timer: tm})

	f.e.Tick(f.clock.Advance(5 * time.Millisecond))

	assert.True(t, f.e.Timers().Has(7))
	assert.Zero(t, f.e.Timers().Runs(7), "re-armed timer is a fresh entry")
	assert.True(t, f.rec.HasTimer(7))
}

func TestTick_ScriptedTimerTerminates(t *testing.T) {
	f := newFixture(t)
	f.process(change.AddTimer{ID: 7, Timer: change.Timer{
		Interval: 10 * time.Millisecond,
		Callback: change.ScriptedTimer(7, 2, severity.RepaintOnly, nil),
	}})

	assert.Equal(t, severity.RepaintOnly, f.e.Tick(f.clock.Advance(10*time.Millisecond)))
	assert.True(t, f.e.Timers().Has(7))
	f.e.Tick(f.clock.Advance(10 * time.Millisecond))
	assert.False(t, f.e.Timers().Has(7))
	assert.Equal(t, severity.NoOp, f.e.Tick(f.clock.Advance(10*time.Millisecond)))
}

func TestTick_CursorBlink(t *testing.T) {
	f := newFixture(t)
	f.process(change.SetFocusTarget{Target: change.FocusTarget{Kind: change.FocusNode, Node: input}})
	require.True(t, f.e.Timers().Has(change.CursorBlinkTimerID))
	require.True(t, f.e.Layout().Cursor.Visible)

	sev := f.e.Tick(f.clock.Advance(f.e.Config().CursorBlink()))
	assert.Equal(t, severity.RepaintOnly, sev)
	assert.False(t, f.e.Layout().Cursor.Visible)

	f.e.Tick(f.clock.Advance(f.e.Config().CursorBlink()))
	assert.True(t, f.e.Layout().Cursor.Visible)
}

func TestTick_AutoScroll(t *testing.T) {
	f := newFixture(t)
	f.system(change.ActivateNodeDrag{Node: item})
	assert.Equal(t, severity.RepaintOnly, f.system(change.StartAutoScrollTimer{}))
	assert.Equal(t, severity.NoOp, f.system(change.StartAutoScrollTimer{}), "already running")

	w := f.e.Layout().Window()
	w.Mouse.Position = geom.Position{Y: 400}
	w.Mouse.HasPosition = true
	assert.Equal(t, severity.ReHitTest, f.process(change.ModifyWindowState{State: w}))

	sev := f.e.Tick(f.clock.Advance(f.e.Config().AutoScrollInterval()))
	assert.Equal(t, severity.RepaintOnly, sev)
	off, _ := f.e.Layout().ScrollOffset(list)
	assert.Equal(t, geom.Position{Y: autoScrollStep}, off)

	f.system(change.DeactivateDrag{})
	f.e.Tick(f.clock.Advance(f.e.Config().AutoScrollInterval()))
	assert.False(t, f.e.Timers().Has(change.AutoScrollTimerID), "timer removes itself once the drag ends")
	assert.False(t, f.rec.HasTimer(change.AutoScrollTimerID))
}

// Threads

func TestTick_ThreadWritebacks(t *testing.T) {
	f := newFixture(t)
	f.process(change.AddThread{ID: 1, Thread: change.ScriptedThread(2, severity.RepaintOnly,
		[]change.UserChange{change.InsertText{Node: input, Text: "!"}})})
	require.True(t, f.rec.HasTimer(change.ThreadPollTimerID), "first thread starts the poll timer")

	require.Eventually(t, func() bool { return f.e.PendingWritebacks() == 2 }, time.Second, time.Millisecond)

	sev := f.e.Tick(f.clock.Now())
	assert.Equal(t, severity.IncrementalRelayout, sev)
	assert.Equal(t, 1, f.e.PendingWritebacks(), "one writeback per tick")
	assert.True(t, f.e.Threads().Has(1))

	f.e.Tick(f.clock.Now())
	assert.Equal(t, "!!hello", f.node(input).Text)
	assert.False(t, f.e.Threads().Has(1), "finished writeback removes the thread")
	assert.False(t, f.rec.HasTimer(change.ThreadPollTimerID), "last thread stops the poll timer")
}

func TestProcess_RemoveThreadDropsPendingWritebacks(t *testing.T) {
	f := newFixture(t)
	f.process(change.AddThread{ID: 1, Thread: change.Thread{Run: func(ctx context.Context, send func(change.Writeback)) {
		send(change.Writeback{Callback: change.Scripted(severity.RepaintOnly, nil)})
	}}})
	require.Eventually(t, func() bool { return f.e.PendingWritebacks() == 1 }, time.Second, time.Millisecond)

	f.process(change.RemoveThread{ID: 1})

	assert.Zero(t, f.e.PendingWritebacks())
	assert.Equal(t, severity.NoOp, f.e.Tick(f.clock.Now()))
}

func TestProcess_ReAddThreadDropsOldWritebacks(t *testing.T) {
	f := newFixture(t)
	f.process(change.AddThread{ID: 1, Thread: change.Thread{Run: func(_ context.Context, send func(change.Writeback)) {
		send(change.Writeback{Finished: true})
	}}})
	require.Eventually(t, func() bool { return f.e.PendingWritebacks() == 1 }, time.Second, time.Millisecond)

	f.process(change.AddThread{ID: 1, Thread: change.Thread{Run: func(ctx context.Context, _ func(change.Writeback)) {
		<-ctx.Done()
	}}})
	assert.Zero(t, f.e.PendingWritebacks())

	assert.Equal(t, severity.NoOp, f.e.Tick(f.clock.Now()))
	assert.True(t, f.e.Threads().Has(1), "replacement thread keeps running")
	assert.True(t, f.rec.HasTimer(change.ThreadPollTimerID))
	assert.Equal(t, 1, f.calls("StartTimer"), "poll timer is not restarted")
}

func TestEngine_WritebackFromUnknownThreadIgnored(t *testing.T) {
	f := newFixture(t)
	f.e.EnqueueThreadResult(9, change.Writeback{Callback: change.Scripted(severity.RegenerateAll, nil)})

	assert.Equal(t, severity.NoOp, f.e.Tick(f.clock.Now()))
	assert.Zero(t, f.e.PendingWritebacks())
}

// Deferred stage behaviour

func TestProcess_PlatformRefusalIsLocal(t *testing.T) {
	f := newFixture(t)
	f.rec.FailTimer(7)
	f.rec.FailOp("ShowMenu")

	sev := f.process(
		change.AddTimer{ID: 7, Timer: change.Timer{Interval: time.Second, Callback: noop}},
		change.OpenMenu{Menu: change.Menu{Items: []change.MenuItem{{Label: "Cut"}}}},
		change.ShowTooltip{Text: "still shown"},
	)

	assert.Equal(t, severity.NoOp, sev)
	assert.False(t, f.e.Timers().Has(7), "refused timer is rolled back")
	assert.True(t, f.rec.TooltipOn, "later changes still apply")

	errs := f.e.Errors()
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.True(t, IsPlatformError(err), "%v", err)
		assert.ErrorIs(t, err, platform.ErrRefused)
	}
	assert.Empty(t, f.e.Errors(), "Errors drains")
}

func TestProcess_RefusedTimerStopKeepsRegistryInSync(t *testing.T) {
	tests := []struct {
		name   string
		change change.UserChange
	}{
		{"restart", change.AddTimer{ID: 7, Timer: change.Timer{Interval: 2 * time.Second, Callback: noop}}},
		{"remove", change.RemoveTimer{ID: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.process(change.AddTimer{ID: 7, Timer: change.Timer{Interval: time.Second, Callback: noop}})
			f.rec.FailOp("StopTimer")

			f.process(tt.change)

			assert.True(t, f.e.Timers().Has(7))
			assert.Equal(t, f.e.Timers().Has(7), f.rec.HasTimer(7))
			errs := f.e.Errors()
			require.Len(t, errs, 1)
			assert.True(t, IsPlatformError(errs[0]), "%v", errs[0])
		})
	}
}

func TestProcess_ReservedTimerIDRejected(t *testing.T) {
	f := newFixture(t)

	f.process(change.AddTimer{ID: change.CursorBlinkTimerID, Timer: change.Timer{Interval: time.Second, Callback: noop}})

	assert.False(t, f.rec.HasTimer(change.CursorBlinkTimerID))
	assert.Equal(t, []RuntimeErrorCode{ErrCodeReservedID}, codes(f.e.Errors()))
}

func TestProcess_FocusTargets(t *testing.T) {
	f := newFixture(t)

	sev := f.process(change.SetFocusTarget{Target: change.FocusTarget{Kind: change.FocusNode, Node: input}})
	assert.Equal(t, severity.UpdateDrawInstructions, sev)
	focus, ok := f.e.Layout().Focus()
	require.True(t, ok)
	assert.Equal(t, input, focus)
	assert.True(t, f.node(input).Focused)
	assert.Equal(t, 5, f.node(input).Cursor, "caret goes to the end")

	f.process(change.SetFocusTarget{Target: change.FocusTarget{Kind: change.FocusNext}})
	focus, _ = f.e.Layout().Focus()
	assert.Equal(t, button, focus)
	assert.False(t, f.node(input).Focused)
	assert.False(t, f.e.Timers().Has(change.CursorBlinkTimerID), "non-editable focus stops the blink")

	assert.Equal(t, severity.NoOp,
		f.process(change.SetFocusTarget{Target: change.FocusTarget{Kind: change.FocusNode, Node: button}}),
		"refocusing the same node")

	f.process(change.SetFocusTarget{Target: change.FocusTarget{Kind: change.FocusNone}})
	_, ok = f.e.Layout().Focus()
	assert.False(t, ok)
}

func TestProcess_UnresolvedFocusTarget(t *testing.T) {
	f := newFixture(t)

	sev := f.process(change.SetFocusTarget{Target: change.FocusTarget{Kind: change.FocusNode, Node: item}})

	assert.Equal(t, severity.NoOp, sev)
	errs := f.e.Errors()
	assert.Equal(t, []RuntimeErrorCode{ErrCodeUnresolvedTarget}, codes(errs))
	assert.Equal(t, int64(1), errs[0].(*RuntimeError).Seq)
}

func TestProcess_WindowStateSeverity(t *testing.T) {
	base := change.WindowState{Title: "app", Size: geom.Size{Width: 800, Height: 600}}
	tests := []struct {
		name   string
		modify func(w *change.WindowState)
		want   severity.Severity
	}{
		{"unchanged", func(*change.WindowState) {}, severity.NoOp},
		{"title", func(w *change.WindowState) { w.Title = "renamed" }, severity.RepaintOnly},
		{"background", func(w *change.WindowState) { w.Background = "#fff" }, severity.RepaintOnly},
		{"mouse", func(w *change.WindowState) { w.Mouse.LeftDown = true }, severity.ReHitTest},
		{"keyboard", func(w *change.WindowState) { w.Keyboard.Shift = true }, severity.ReHitTest},
		{"size", func(w *change.WindowState) { w.Size.Width = 1024 }, severity.RegenerateAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.process(change.ModifyWindowState{State: base})
			next := base
			tt.modify(&next)

			assert.Equal(t, tt.want, f.process(change.ModifyWindowState{State: next}))
			assert.Equal(t, next, f.rec.Window, "platform sees the final state")
		})
	}
}

func TestProcess_WindowStateSequence(t *testing.T) {
	f := newFixture(t)

	f.process(change.QueueWindowStateSequence{States: []change.WindowState{{Title: "a"}, {Title: "b"}, {Title: "c"}}})

	assert.Equal(t, "c", f.e.Layout().Window().Title)
	assert.Equal(t, 3, f.calls("SyncWindowState"), "every state is synced")
	prev, ok := f.e.Layout().PreviousWindow()
	require.True(t, ok)
	assert.Equal(t, "b", prev.Title)
}

func TestProcess_WindowStateSequenceQuota(t *testing.T) {
	cfg := config.Default()
	cfg.MaxQueuedWindowStates = 2
	f := newFixture(t, WithConfig(cfg))

	f.process(change.QueueWindowStateSequence{States: []change.WindowState{{Title: "a"}, {Title: "b"}, {Title: "c"}}})

	assert.Equal(t, "b", f.e.Layout().Window().Title)
	errs := f.e.Errors()
	require.Len(t, errs, 1)
	assert.True(t, IsQuotaError(errs[0]))
}

func TestProcess_CloseWindowRaisesFlag(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, severity.NoOp, f.process(change.CloseWindow{}))
	assert.True(t, f.e.Layout().Window().Flags.CloseRequested)
	assert.True(t, f.rec.Window.Flags.CloseRequested)
}

func TestProcess_CombinesPreviousSeverity(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, severity.UpdateDrawInstructions, f.e.Process(nil, nil, severity.UpdateDrawInstructions))
	assert.Equal(t, severity.IncrementalRelayout,
		f.e.Process([]change.UserChange{change.InsertText{Node: input, Text: "x"}}, nil, severity.RepaintOnly))
}

func TestDeferred_ImmediateTagIsConsumedEarlier(t *testing.T) {
	f := newFixture(t)

	sev := f.e.deferred.Apply([]change.UserChange{change.InsertText{Node: input, Text: "x"}}, nil)

	assert.Equal(t, severity.NoOp, sev)
	assert.Equal(t, "hello", f.node(input).Text)
	assert.Equal(t, []RuntimeErrorCode{ErrCodeConsumedEarlier}, codes(f.e.Errors()))
}

func TestApply_PointerChanges(t *testing.T) {
	f := newFixture(t)

	sev := f.process(&change.InsertText{Node: input, Text: "p"}, &change.ShowTooltip{Text: "ptr"})

	assert.Equal(t, severity.IncrementalRelayout, sev)
	assert.Equal(t, "phello", f.node(input).Text)
	assert.True(t, f.rec.TooltipOn)
}

// Journal

func TestProcess_JournalsCycles(t *testing.T) {
	f := newFixture(t, WithSessionLabel("unit"))

	f.e.Process(
		[]change.UserChange{change.InsertText{Node: input, Text: "x"}},
		[]change.SystemChange{change.StartCursorBlinkTimer{}},
		severity.NoOp,
	)
	f.e.Tick(f.clock.Advance(f.e.Config().CursorBlink()))

	sessions := f.journal.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, "unit", sessions[0].Label)
	assert.Equal(t, configHash(config.Default()), sessions[0].ConfigHash)

	want := []trace.Cycle{
		{
			Session:   "s1",
			Seq:       1,
			Source:    trace.SourceProcess,
			User:      []string{"InsertText"},
			System:    []string{"StartCursorBlinkTimer"},
			Handled:   1,
			Forwarded: 0,
			Severity:  severity.IncrementalRelayout,
			Platform:  []string{"StartTimer(4294901761)"},
		},
		{
			Session:   "s1",
			Seq:       2,
			Source:    "timer/4294901761",
			User:      []string{"SetCursorVisibility"},
			System:    []string{},
			Handled:   1,
			Forwarded: 0,
			Severity:  severity.RepaintOnly,
			Platform:  []string{},
		},
	}
	if diff := cmp.Diff(want, f.journal.Cycles()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(2), f.e.Seq())
}

func TestConfigHash_ChangesWithConfig(t *testing.T) {
	cfg := config.Default()
	h1 := configHash(cfg)
	cfg.CursorBlinkMS++
	h2 := configHash(cfg)

	assert.NotEmpty(t, h1)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, h1, configHash(config.Default()), "hash is deterministic")
}

func TestEngine_ReportStampsWrappedRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		wrap func(*RuntimeError) error
	}{
		{"bare", func(re *RuntimeError) error { return re }},
		{"wrapped", func(re *RuntimeError) error { return fmt.Errorf("window sync: %w", re) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.process(change.ShowTooltip{Text: "tip"})
			require.NotZero(t, f.e.Seq())

			re := &RuntimeError{Code: ErrCodeQuotaExceeded, Message: "too many"}
			f.e.report(tt.wrap(re))

			assert.Equal(t, f.e.Seq(), re.Seq)
			require.Len(t, f.e.Errors(), 1)
		})
	}
}

func TestEngine_Close(t *testing.T) {
	f := newFixture(t)
	f.process(
		change.AddTimer{ID: 7, Timer: change.Timer{Interval: time.Second, Callback: noop}},
		change.AddThread{ID: 1, Thread: change.Thread{}},
	)
	require.Len(t, f.rec.ActiveTimers(), 2)

	f.e.Close()

	assert.Empty(t, f.rec.ActiveTimers())
	assert.Zero(t, f.e.Threads().Len())
	f.e.EnqueueThreadResult(1, change.Writeback{})
	assert.Zero(t, f.e.PendingWritebacks())
}

func TestEngine_Defaults(t *testing.T) {
	e := New(platform.NewRecorder())
	t.Cleanup(e.Close)

	assert.Equal(t, config.Default(), e.Config())
	assert.Len(t, e.Session().ID, 36)
	assert.Equal(t, reinvoke.DefaultMargin, e.Layout().Checker().Margin())
	assert.Zero(t, e.Seq())
}
