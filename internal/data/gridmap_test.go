package data

import (
	"testing"

	"github.com/gridwalk/gridwalk/internal/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaps = `
maps:
  - name: hall
    width: 4
    height: 3
    tile_size: 16
    rows:
      - "..#."
      - "#..."
  - name: open
    width: 2
    height: 2
`

func TestIsWalkableBounds(t *testing.T) {
	m := NewGridMap("t", 10, 10, 32)
	for _, p := range []component.GridPosition{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: -5, Y: 99}} {
		assert.False(t, m.IsWalkable(p), "%v", p)
	}
	assert.True(t, m.IsWalkable(component.GridPosition{X: 0, Y: 0}))
	assert.True(t, m.IsWalkable(component.GridPosition{X: 9, Y: 9}))
}

func TestBlockedTiles(t *testing.T) {
	m := NewGridMap("t", 3, 3, 32, component.GridPosition{X: 1, Y: 1}, component.GridPosition{X: 7, Y: 7})
	assert.False(t, m.IsWalkable(component.GridPosition{X: 1, Y: 1}))
	assert.True(t, m.IsWalkable(component.GridPosition{X: 1, Y: 0}))
}

func TestParseGridMap(t *testing.T) {
	m, err := ParseGridMap([]byte(testMaps), "hall")
	require.NoError(t, err)
	assert.Equal(t, int32(4), m.Width())
	assert.Equal(t, int32(3), m.Height())
	assert.Equal(t, int32(16), m.TileSize())
	assert.False(t, m.IsWalkable(component.GridPosition{X: 2, Y: 0}))
	assert.False(t, m.IsWalkable(component.GridPosition{X: 0, Y: 1}))
	assert.True(t, m.IsWalkable(component.GridPosition{X: 3, Y: 2}), "missing row is walkable")

	first, err := ParseGridMap([]byte(testMaps), "")
	require.NoError(t, err)
	assert.Equal(t, "hall", first.Name())

	open, err := ParseGridMap([]byte(testMaps), "open")
	require.NoError(t, err)
	assert.Equal(t, DefaultTileSize, open.TileSize())

	_, err = ParseGridMap([]byte(testMaps), "nowhere")
	assert.Error(t, err)
}

func TestPixelOf(t *testing.T) {
	m := NewGridMap("t", 10, 10, 32)
	assert.Equal(t, component.Vec2{X: 160, Y: 64}, m.PixelOf(component.GridPosition{X: 5, Y: 2}))
}

func TestFindWalkable(t *testing.T) {
	m := NewGridMap("t", 3, 1, 32, component.GridPosition{X: 0, Y: 0}, component.GridPosition{X: 1, Y: 0})
	p, ok := m.FindWalkable(component.GridPosition{X: 0, Y: 0})
	require.True(t, ok)
	assert.Equal(t, component.GridPosition{X: 2, Y: 0}, p)

	blocked := NewGridMap("b", 1, 1, 32, component.GridPosition{})
	_, ok = blocked.FindWalkable(component.GridPosition{})
	assert.False(t, ok)
}
