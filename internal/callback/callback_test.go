package callback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/severity"
)

var epoch = time.Unix(1700000000, 0)

func pushing(sev severity.Severity, cs ...change.UserChange) change.Callback {
	return func(ctx change.Context) severity.Severity {
		for _, c := range cs {
			ctx.PushUserChange(c)
		}
		return sev
	}
}

func TestOutput_Merge(t *testing.T) {
	a := Output{Severity: severity.RepaintOnly, Deferred: []change.UserChange{change.CloseWindow{}}}
	b := Output{Severity: severity.ReHitTest, Deferred: []change.UserChange{change.HideTooltip{}}, PreventDefault: true}

	a.Merge(b)
	assert.Equal(t, severity.ReHitTest, a.Severity)
	assert.Equal(t, []change.UserChange{change.CloseWindow{}, change.HideTooltip{}}, a.Deferred)
	assert.True(t, a.PreventDefault)
	assert.False(t, a.StopPropagation)
}

func TestOutput_Empty(t *testing.T) {
	assert.True(t, Output{}.Empty())
	assert.False(t, Output{PreventDefault: true}.Empty())
	assert.False(t, Output{Severity: severity.RepaintOnly}.Empty())
}

func TestContext_FlagsPushMarkers(t *testing.T) {
	ctx := NewContext(epoch)
	ctx.StopPropagation()
	ctx.PreventDefault()

	out := ctx.Output()
	assert.True(t, out.StopPropagation)
	assert.True(t, out.PreventDefault)
	assert.Equal(t, []change.UserChange{change.StopPropagation{}, change.PreventDefault{}}, out.Deferred)
	assert.Equal(t, epoch, ctx.Now())
}

func TestInvoke_CombinesReturnedSeverity(t *testing.T) {
	out := Invoke(pushing(severity.UpdateDrawInstructions, change.ResetCursorBlink{}), epoch)
	assert.Equal(t, severity.UpdateDrawInstructions, out.Severity)
	assert.Len(t, out.Deferred, 1)

	assert.True(t, Invoke(nil, epoch).Empty())
}

func TestDispatch_StopImmediateOnSecondOfThree(t *testing.T) {
	third := false
	targets := []Target{{
		Node: change.Ref(0, 1),
		Handlers: []change.Callback{
			pushing(severity.RepaintOnly, change.ResetCursorBlink{}),
			func(ctx change.Context) severity.Severity {
				ctx.StopImmediatePropagation()
				return severity.NoOp
			},
			func(change.Context) severity.Severity {
				third = true
				return severity.RegenerateAll
			},
		},
	}}

	out, invoked := Dispatch(targets, epoch)
	assert.Equal(t, 2, invoked)
	assert.False(t, third)
	assert.Equal(t, severity.RepaintOnly, out.Severity)
	assert.Equal(t, []change.UserChange{change.ResetCursorBlink{}, change.StopImmediatePropagation{}}, out.Deferred)
}

func TestDispatch_StopPropagationFinishesCurrentTarget(t *testing.T) {
	targets := []Target{
		{Node: change.Ref(0, 2), Handlers: []change.Callback{
			func(ctx change.Context) severity.Severity {
				ctx.StopPropagation()
				return severity.NoOp
			},
			pushing(severity.RepaintOnly),
		}},
		{Node: change.Ref(0, 1), Handlers: []change.Callback{
			pushing(severity.RegenerateAll),
		}},
	}

	out, invoked := Dispatch(targets, epoch)
	require.Equal(t, 2, invoked)
	assert.Equal(t, severity.RepaintOnly, out.Severity)
	assert.True(t, out.StopPropagation)
}

func TestDispatch_RunsEverythingWithoutStops(t *testing.T) {
	targets := []Target{
		{Handlers: []change.Callback{pushing(severity.NoOp), pushing(severity.RepaintOnly)}},
		{Handlers: []change.Callback{pushing(severity.ReHitTest)}},
	}
	out, invoked := Dispatch(targets, epoch)
	assert.Equal(t, 3, invoked)
	assert.Equal(t, severity.ReHitTest, out.Severity)
}
