package engine

import (
	"strconv"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/geom"
	"github.com/roach88/changeflow/internal/platform"
)

// tracingPlatform records every call made during a cycle for the journal
// and turns failures into *PlatformError.
type tracingPlatform struct {
	inner platform.Platform
	calls []platform.Call
}

var _ platform.Platform = (*tracingPlatform)(nil)

func (t *tracingPlatform) record(op, detail string, err error) error {
	t.calls = append(t.calls, platform.Call{Op: op, Detail: detail})
	if err != nil {
		return &PlatformError{Op: op, Err: err}
	}
	return nil
}

// take returns the calls recorded since the last take.
func (t *tracingPlatform) take() []string {
	out := make([]string, len(t.calls))
	for i, c := range t.calls {
		out[i] = c.String()
	}
	t.calls = t.calls[:0]
	return out
}

func timerLabel(id change.TimerID) string { return strconv.FormatUint(uint64(id), 10) }

func (t *tracingPlatform) StartTimer(id change.TimerID, tm change.Timer) error {
	return t.record("StartTimer", timerLabel(id), t.inner.StartTimer(id, tm))
}

func (t *tracingPlatform) StopTimer(id change.TimerID) error {
	return t.record("StopTimer", timerLabel(id), t.inner.StopTimer(id))
}

func (t *tracingPlatform) ShowMenu(menu change.Menu, pos geom.Position) error {
	return t.record("ShowMenu", pos.String(), t.inner.ShowMenu(menu, pos))
}

func (t *tracingPlatform) SyncWindowState(state change.WindowState) error {
	return t.record("SyncWindowState", state.Title, t.inner.SyncWindowState(state))
}

func (t *tracingPlatform) BeginInteractiveMove() error {
	return t.record("BeginInteractiveMove", "", t.inner.BeginInteractiveMove())
}

func (t *tracingPlatform) ShowTooltip(text string, pos geom.Position) error {
	return t.record("ShowTooltip", text, t.inner.ShowTooltip(text, pos))
}

func (t *tracingPlatform) HideTooltip() error {
	return t.record("HideTooltip", "", t.inner.HideTooltip())
}

func (t *tracingPlatform) CreateWindow(opts change.WindowOptions) error {
	return t.record("CreateWindow", opts.Title, t.inner.CreateWindow(opts))
}
