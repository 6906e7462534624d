package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pos struct{ X, Y int }
type vel struct{ DX int }
type frozen struct{}

func TestEntityPoolRecyclesWithNewGeneration(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	require.True(t, p.Alive(a))
	assert.NotZero(t, a)

	require.True(t, p.Destroy(a))
	assert.False(t, p.Alive(a))
	assert.False(t, p.Destroy(a), "second destroy of a stale handle")

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index())
	assert.NotEqual(t, a.Generation(), b.Generation())
	assert.False(t, p.Alive(a))
	assert.True(t, p.Alive(b))
	assert.Equal(t, 1, p.Len())
}

func TestZeroIDIsNeverAlive(t *testing.T) {
	p := NewEntityPool()
	p.Create()
	assert.False(t, p.Alive(EntityID(0)))
}

func TestWorldDestroyClearsStores(t *testing.T) {
	w := NewWorld()
	positions := Attach[pos](w.Registry())
	velocities := Attach[vel](w.Registry())

	e := w.CreateEntity()
	positions.Set(e, &pos{1, 2})
	velocities.Set(e, &vel{3})

	require.True(t, w.Destroy(e))
	assert.False(t, positions.Has(e))
	assert.False(t, velocities.Has(e))
	assert.False(t, w.Destroy(e))
	assert.Equal(t, 0, w.Len())
}

func TestEach2WithoutSkipsExcluded(t *testing.T) {
	w := NewWorld()
	positions := Attach[pos](w.Registry())
	velocities := Attach[vel](w.Registry())
	frozens := Attach[frozen](w.Registry())

	var ids []EntityID
	for i := 0; i < 4; i++ {
		e := w.CreateEntity()
		positions.Set(e, &pos{X: i})
		velocities.Set(e, &vel{DX: 1})
		ids = append(ids, e)
	}
	frozens.Set(ids[1], &frozen{})
	velocities.Remove(ids[3])

	var seen []EntityID
	Each2Without(positions, velocities, frozens, func(id EntityID, p *pos, v *vel) {
		p.X += v.DX
		seen = append(seen, id)
	})

	assert.Equal(t, []EntityID{ids[0], ids[2]}, seen)
	p0, _ := positions.Get(ids[0])
	assert.Equal(t, 1, p0.X)
	p1, _ := positions.Get(ids[1])
	assert.Equal(t, 1, p1.X)
}

func TestStoreEachToleratesRemoval(t *testing.T) {
	s := NewStore[pos]()
	for i := 1; i <= 3; i++ {
		s.Set(EntityID(i), &pos{X: i})
	}
	count := 0
	s.Each(func(id EntityID, _ *pos) {
		s.Remove(id)
		count++
	})
	assert.Equal(t, 3, count)
	assert.Zero(t, s.Len())
}
