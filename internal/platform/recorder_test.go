package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/geom"
)

func TestRecorder_Timers(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.StartTimer(7, change.Timer{}))
	require.NoError(t, r.StartTimer(change.CursorBlinkTimerID, change.Timer{}))
	assert.Equal(t, []change.TimerID{7, change.CursorBlinkTimerID}, r.ActiveTimers())

	require.NoError(t, r.StopTimer(7))
	assert.False(t, r.HasTimer(7))
	assert.True(t, r.HasTimer(change.CursorBlinkTimerID))
}

func TestRecorder_FailTimer(t *testing.T) {
	r := NewRecorder()
	r.FailTimer(3)
	err := r.StartTimer(3, change.Timer{})
	require.ErrorIs(t, err, ErrRefused)
	assert.False(t, r.HasTimer(3))
	assert.Equal(t, []Call{{Op: "StartTimer", Detail: "3"}}, r.Calls())
}

func TestRecorder_FailOp(t *testing.T) {
	r := NewRecorder()
	r.FailOp("ShowMenu")
	err := r.ShowMenu(change.Menu{}, geom.Position{X: 1, Y: 2})
	assert.ErrorIs(t, err, ErrRefused)
	assert.Empty(t, r.Menus)
}

func TestRecorder_Drain(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.ShowTooltip("hi", geom.Position{}))
	assert.Equal(t, []Call{{Op: "ShowTooltip", Detail: "hi"}}, r.Drain())
	assert.Empty(t, r.Drain())

	require.NoError(t, r.HideTooltip())
	require.NoError(t, r.SyncWindowState(change.WindowState{Title: "main"}))
	drained := r.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "SyncWindowState(main)", drained[1].String())
	assert.False(t, r.TooltipOn)
	assert.True(t, r.Synced)
	assert.Len(t, r.Calls(), 3)
}
