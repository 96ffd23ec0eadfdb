package reinvoke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/geom"
)

var (
	view      = change.Ref(0, 4)
	container = geom.NewRect(0, 0, 400, 300)
	content   = geom.Size{Width: 400, Height: 2000}
)

// invoked returns a checker with view registered at offset 0.
func invoked(t *testing.T) *Checker {
	t.Helper()
	c := NewChecker(200)
	r, ok := c.Check(view, container, geom.Position{})
	require.True(t, ok)
	require.Equal(t, InitialRender, r.Kind)
	c.MarkInvoked(view, r, content)
	require.Equal(t, Invoked, c.Phase(view))
	return c
}

func TestCheck_FirstCallIsInitialRender(t *testing.T) {
	c := NewChecker(0)
	assert.Equal(t, DefaultMargin, c.Margin())
	assert.Equal(t, NeverInvoked, c.Phase(view))

	r, ok := c.Check(view, container, geom.Position{})
	assert.True(t, ok)
	assert.Equal(t, Reason{Kind: InitialRender}, r)
	assert.Equal(t, 1, c.Len())

	// Still never invoked until content is registered.
	r, ok = c.Check(view, container, geom.Position{})
	assert.True(t, ok)
	assert.Equal(t, InitialRender, r.Kind)
}

func TestCheck_StableViewNeedsNothing(t *testing.T) {
	c := invoked(t)
	_, ok := c.Check(view, container, geom.Position{Y: 50})
	assert.False(t, ok)
	assert.Equal(t, Invoked, c.Phase(view))
}

func TestCheck_BoundsExpanded(t *testing.T) {
	c := invoked(t)
	r, ok := c.Check(view, geom.NewRect(0, 0, 400, 600), geom.Position{})
	require.True(t, ok)
	assert.Equal(t, BoundsExpanded, r.Kind)
	assert.Equal(t, Invalidated, c.Phase(view))

	// Pending reason is repeated until regenerated.
	r2, ok := c.Check(view, geom.NewRect(0, 0, 400, 600), geom.Position{})
	assert.True(t, ok)
	assert.Equal(t, r, r2)

	c.MarkInvoked(view, r, content)
	_, ok = c.Check(view, geom.NewRect(0, 0, 400, 600), geom.Position{})
	assert.False(t, ok)
}

func TestCheck_ContainerLargerThanContent(t *testing.T) {
	c := NewChecker(200)
	r, _ := c.Check(view, container, geom.Position{})
	c.MarkInvoked(view, r, geom.Size{Width: 400, Height: 100})

	r, ok := c.Check(view, container, geom.Position{})
	require.True(t, ok)
	assert.Equal(t, BoundsExpanded, r.Kind)

	c.MarkInvoked(view, r, geom.Size{Width: 400, Height: 100})
	_, ok = c.Check(view, container, geom.Position{})
	assert.False(t, ok, "expansion handled for this size")
}

func TestCheck_EdgeScrolledBottomOnCrossing(t *testing.T) {
	c := invoked(t)

	// 2000 - 300 - 1550 = 150 <= 200.
	r, ok := c.Check(view, container, geom.Position{Y: 1550})
	require.True(t, ok)
	assert.Equal(t, Reason{Kind: EdgeScrolled, Edge: Bottom}, r)
	assert.Equal(t, "edge-scrolled(bottom)", r.String())
	assert.Equal(t, Invalidated, c.Phase(view))

	c.MarkInvoked(view, r, content)
	_, ok = c.Check(view, container, geom.Position{Y: 1600})
	assert.False(t, ok, "bottom stays near, no new crossing")
}

func TestCheck_EdgeRetriggersAfterLeaving(t *testing.T) {
	c := invoked(t)
	r, ok := c.Check(view, container, geom.Position{Y: 1600})
	require.True(t, ok)
	c.MarkInvoked(view, r, content)

	_, ok = c.Check(view, container, geom.Position{Y: 800})
	assert.False(t, ok)

	r, ok = c.Check(view, container, geom.Position{Y: 1600})
	require.True(t, ok)
	assert.Equal(t, Bottom, r.Edge)
}

func TestCheck_TopEdgeAfterScrollingBack(t *testing.T) {
	c := invoked(t)
	_, ok := c.Check(view, container, geom.Position{Y: 800})
	require.False(t, ok)

	r, ok := c.Check(view, container, geom.Position{Y: 100})
	require.True(t, ok)
	assert.Equal(t, Reason{Kind: EdgeScrolled, Edge: Top}, r)
}

func TestCheck_BottomBeatsRightWhenBothCross(t *testing.T) {
	c := NewChecker(200)
	r, _ := c.Check(view, container, geom.Position{X: 500, Y: 500})
	c.MarkInvoked(view, r, geom.Size{Width: 2000, Height: 2000})

	r, ok := c.Check(view, container, geom.Position{X: 1500, Y: 1600})
	require.True(t, ok)
	assert.Equal(t, Bottom, r.Edge)
}

func TestResetAll_AfterCacheClear(t *testing.T) {
	c := invoked(t)
	other := change.Ref(2, 1)
	r, _ := c.Check(other, container, geom.Position{})
	c.MarkInvoked(other, r, content)

	c.ResetAll()

	assert.Equal(t, NeverInvoked, c.Phase(view))
	assert.Equal(t, NeverInvoked, c.Phase(other))
	r, ok := c.Check(view, container, geom.Position{})
	assert.True(t, ok)
	assert.Equal(t, InitialRender, r.Kind)

	e, ok := c.Entry(view)
	require.True(t, ok)
	assert.Equal(t, content, e.ContentSize, "content size survives reset")
}

func TestForceReinvoke(t *testing.T) {
	c := invoked(t)
	assert.True(t, c.ForceReinvoke(view))
	assert.Equal(t, NeverInvoked, c.Phase(view))
	assert.False(t, c.ForceReinvoke(change.Ref(9, 9)))
}

func TestForget(t *testing.T) {
	c := invoked(t)
	other := change.Ref(0, 7)
	c.Check(other, container, geom.Position{})

	c.Forget(view)
	c.Forget(change.Ref(9, 9))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, []Key{other}, c.Keys())
	_, ok := c.Entry(view)
	assert.False(t, ok)

	r, ok := c.Check(view, container, geom.Position{})
	require.True(t, ok)
	assert.Equal(t, InitialRender, r.Kind, "a forgotten view starts over")
}

func TestKeys_Sorted(t *testing.T) {
	c := NewChecker(200)
	c.Check(change.Ref(1, 5), container, geom.Position{})
	c.Check(change.Ref(0, 9), container, geom.Position{})
	c.Check(change.Ref(1, 2), container, geom.Position{})

	assert.Equal(t, []Key{change.Ref(0, 9), change.Ref(1, 2), change.Ref(1, 5)}, c.Keys())
}

func TestPhase_Parse(t *testing.T) {
	for _, p := range []Phase{NeverInvoked, Invoked, Invalidated} {
		got, err := ParsePhase(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePhase("asleep")
	assert.Error(t, err)
}
