package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridMarkUnmark(t *testing.T) {
	g := NewGrid(MapWidth, MapHeight)
	wall := LayerOf(KindWall)
	button := LayerOf(KindButton)

	require.NoError(t, g.Mark(Box{X: 1, Y: 1, W: 2, H: 2}, wall))
	require.NoError(t, g.Mark(Box{X: 2, Y: 2, W: 2, H: 2}, button))

	assert.True(t, g.Query(Point{X: 1, Y: 1}).Has(wall))
	assert.True(t, g.Query(Point{X: 2, Y: 2}).Has(wall))
	assert.True(t, g.Query(Point{X: 2, Y: 2}).Has(button))
	assert.False(t, g.Query(Point{X: 3, Y: 1}).Has(wall))
	assert.False(t, g.Query(Point{X: 3, Y: 3}).Has(wall))

	g.Unmark(Box{X: 1, Y: 1, W: 2, H: 2}, wall)
	assert.Equal(t, Layer(0), g.Query(Point{X: 1, Y: 1}))
	assert.Equal(t, button, g.Query(Point{X: 2, Y: 2}), "other layers untouched")
}

func TestGridMarkOutOfBoundsIsAllOrNothing(t *testing.T) {
	g := NewGrid(MapWidth, MapHeight)
	wall := LayerOf(KindWall)

	err := g.Mark(Box{X: 398, Y: 0, W: 5, H: 1}, wall)
	require.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, Layer(0), g.Query(Point{X: 398, Y: 0}))
	assert.Equal(t, Layer(0), g.Query(Point{X: 399, Y: 0}))

	require.ErrorIs(t, g.Mark(Box{X: -1, Y: 0, W: 2, H: 2}, wall), ErrOutOfBounds)
	require.ErrorIs(t, g.Mark(Box{X: 10, Y: MapHeight}, wall), ErrOutOfBounds)
	require.NoError(t, g.Mark(Box{X: 399, Y: 299, W: 1, H: 1}, wall))
}

func TestGridQueryOutOfBounds(t *testing.T) {
	g := NewGrid(10, 10)
	assert.Equal(t, Layer(0), g.Query(Point{X: -1, Y: 0}))
	assert.Equal(t, Layer(0), g.Query(Point{X: 10, Y: 0}))
	assert.True(t, g.Blocked(Point{X: 10, Y: 0}))
	assert.False(t, g.Blocked(Point{X: 9, Y: 9}))
}

func TestRemoveOverlappingWallKeepsSiblingCoverage(t *testing.T) {
	l := newTestLevel(t, newFakeClock())
	a := NewWall(Box{X: 0, Y: 0, W: 10, H: 10}, ColorPink)
	b := NewWall(Box{X: 5, Y: 5, W: 10, H: 10}, ColorYellow)
	require.NoError(t, l.AddGameObject(a))
	require.NoError(t, l.AddGameObject(b))

	l.RemoveGameObject(a)

	wall := LayerOf(KindWall)
	assert.True(t, l.grid.Query(Point{X: 5, Y: 5}).Has(wall), "A∩B still covered by B")
	assert.True(t, l.grid.Query(Point{X: 9, Y: 9}).Has(wall), "A∩B still covered by B")
	assert.False(t, l.grid.Query(Point{X: 0, Y: 0}).Has(wall), "A∖B cleared")
	assert.False(t, l.grid.Query(Point{X: 9, Y: 4}).Has(wall), "A∖B cleared")
	assert.True(t, l.grid.Query(Point{X: 14, Y: 14}).Has(wall))
}

func TestDeactivateOverlappingWallReconciles(t *testing.T) {
	l := newTestLevel(t, newFakeClock())
	a := NewWall(Box{X: 0, Y: 0, W: 10, H: 1}, ColorPink)
	b := NewWall(Box{X: 4, Y: 0, W: 2, H: 1}, ColorYellow)
	require.NoError(t, l.AddGameObject(a))
	require.NoError(t, l.AddGameObject(b))

	l.ActivateGroup(ColorPink, false)

	wall := LayerOf(KindWall)
	assert.False(t, a.Active())
	assert.True(t, l.grid.Query(Point{X: 4, Y: 0}).Has(wall))
	assert.True(t, l.grid.Query(Point{X: 5, Y: 0}).Has(wall))
	assert.False(t, l.grid.Query(Point{X: 3, Y: 0}).Has(wall))
	assert.False(t, l.grid.Query(Point{X: 6, Y: 0}).Has(wall))
}
