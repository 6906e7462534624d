package movement

import (
	"math"
	"testing"

	"github.com/gridwalk/gridwalk/internal/component"
	"github.com/gridwalk/gridwalk/internal/core/ecs"
	"github.com/gridwalk/gridwalk/internal/data"
	"github.com/gridwalk/gridwalk/internal/net/packet"
	"github.com/gridwalk/gridwalk/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnAt(w *world.World, x, y int32, speed float32) ecs.EntityID {
	return w.SpawnOwned(1, packet.PlayerJoinData{
		NetID:    1,
		Speed:    speed,
		Facing:   component.DirSouth,
		Position: component.GridPosition{X: x, Y: y},
	})
}

func east() component.GridDelta { return component.GridDelta{X: 1} }

func TestAttachIntentIsExclusive(t *testing.T) {
	w := world.New(32)
	e := spawnAt(w, 5, 5, 64)

	require.True(t, AttachIntent(w, e, east()))
	assert.Equal(t, IntentPending, StateOf(w, e))
	assert.False(t, AttachIntent(w, e, east()), "second intent while pending")

	_, ok := Decide(w, data.NewGridMap("m", 10, 10, 32), e)
	require.True(t, ok)
	assert.Equal(t, InProgress, StateOf(w, e))
	assert.False(t, AttachIntent(w, e, east()), "intent while in progress")
	assert.False(t, w.Intents.Has(e))

	assert.False(t, AttachIntent(w, e, component.GridDelta{}))
}

func TestDecideAcceptedStep(t *testing.T) {
	w := world.New(32)
	m := data.NewGridMap("open", 10, 10, 32)
	e := spawnAt(w, 5, 5, 64)
	require.True(t, AttachIntent(w, e, east()))

	out, ok := Decide(w, m, e)
	require.True(t, ok)
	assert.True(t, out.Accepted)
	assert.Equal(t, component.GridPosition{X: 5, Y: 5}, out.From)
	assert.Equal(t, component.GridPosition{X: 6, Y: 5}, out.Target)

	p, ok := w.Progress.Get(e)
	require.True(t, ok)
	assert.Equal(t, component.Vec2{X: 160, Y: 160}, p.Start)
	assert.Equal(t, component.Vec2{X: 192, Y: 160}, p.Target)
	assert.InDelta(t, 0.5, p.Duration, 1e-9)

	f, _ := w.Facings.Get(e)
	assert.Equal(t, component.DirEast, f.Dir)

	g, _ := w.Grid.Get(e)
	assert.Equal(t, component.GridPosition{X: 5, Y: 5}, *g, "grid commits on completion only")

	for i := 0; i < 20 && w.Progress.Has(e); i++ {
		Advance(w, e, 0.05)
	}
	g, _ = w.Grid.Get(e)
	assert.Equal(t, component.GridPosition{X: 6, Y: 5}, *g)
}

func TestDecideBlockedStep(t *testing.T) {
	w := world.New(32)
	m := data.NewGridMap("open", 10, 10, 32)
	e := spawnAt(w, 0, 0, 64)
	require.True(t, AttachIntent(w, e, component.GridDelta{X: -1}))

	out, ok := Decide(w, m, e)
	require.True(t, ok)
	assert.False(t, out.Accepted)
	assert.Equal(t, Idle, StateOf(w, e))
	g, _ := w.Grid.Get(e)
	assert.Equal(t, component.GridPosition{}, *g)

	_, ok = Decide(w, m, e)
	assert.False(t, ok, "nothing left to decide")
}

func TestAdvanceLandsExactlyOnTarget(t *testing.T) {
	w := world.New(32)
	m := data.NewGridMap("open", 10, 10, 32)
	e := spawnAt(w, 2, 2, 100)
	require.True(t, AttachIntent(w, e, component.GridDelta{X: 1, Y: 1}))
	_, ok := Decide(w, m, e)
	require.True(t, ok)

	p, _ := w.Progress.Get(e)
	assert.InDelta(t, math.Hypot(32, 32)/100, p.Duration, 1e-9)
	target := p.Target

	assert.False(t, Advance(w, e, 0.1))
	mid, _ := w.Pixels.Get(e)
	assert.Greater(t, mid.X, 64.0)
	assert.Less(t, mid.X, 96.0)

	// overshoot by a lot: no extrapolation past the target
	assert.True(t, Advance(w, e, 10))
	px, _ := w.Pixels.Get(e)
	assert.Equal(t, target, px.Vec2)
	assert.False(t, w.Progress.Has(e))
	g, _ := w.Grid.Get(e)
	assert.Equal(t, component.GridPosition{X: 3, Y: 3}, *g)
}

func TestZeroSpeedCompletesOnFirstStep(t *testing.T) {
	w := world.New(32)
	m := data.NewGridMap("open", 10, 10, 32)
	e := spawnAt(w, 1, 1, 0)
	require.True(t, AttachIntent(w, e, east()))
	_, ok := Decide(w, m, e)
	require.True(t, ok)

	p, _ := w.Progress.Get(e)
	assert.Zero(t, p.Duration)
	assert.Equal(t, 1, Integrate(w, 0))
	assert.False(t, w.Progress.Has(e))
	px, _ := w.Pixels.Get(e)
	assert.Equal(t, component.Vec2{X: 64, Y: 32}, px.Vec2)
}

func TestApplyRemoteSnapsInFlightStep(t *testing.T) {
	w := world.New(32)
	e := w.SpawnReplicated(packet.PlayerJoinData{NetID: 3, Speed: 32, Position: component.GridPosition{X: 1, Y: 1}})

	require.True(t, ApplyRemote(w, e, component.GridPosition{X: 1, Y: 1}, east()))
	Advance(w, e, 0.25)
	require.True(t, w.Progress.Has(e))

	require.True(t, ApplyRemote(w, e, component.GridPosition{X: 2, Y: 1}, component.GridDelta{Y: 1}))
	p, ok := w.Progress.Get(e)
	require.True(t, ok)
	assert.Equal(t, component.Vec2{X: 64, Y: 32}, p.Start, "starts from the snapped tile")
	assert.Equal(t, component.GridPosition{X: 2, Y: 2}, p.TargetGrid)
	f, _ := w.Facings.Get(e)
	assert.Equal(t, component.DirSouth, f.Dir)
}

func TestApplyRemoteOverwritesGrid(t *testing.T) {
	w := world.New(32)
	e := w.SpawnReplicated(packet.PlayerJoinData{NetID: 3, Speed: 32, Position: component.GridPosition{X: 0, Y: 0}})

	// the replica was out of date; the server's position wins
	require.True(t, ApplyRemote(w, e, component.GridPosition{X: 7, Y: 7}, component.GridDelta{X: -1}))
	g, _ := w.Grid.Get(e)
	assert.Equal(t, component.GridPosition{X: 7, Y: 7}, *g)
	p, _ := w.Progress.Get(e)
	assert.Equal(t, component.GridPosition{X: 6, Y: 7}, p.TargetGrid)
}

func TestCaptureLocalIntentNeedsLocalPlayer(t *testing.T) {
	w := world.New(32)
	assert.False(t, CaptureLocalIntent(w, east()))

	w.SetLocalNetID(8)
	e := w.SpawnReplicated(packet.PlayerJoinData{NetID: 8, Speed: 32})
	assert.True(t, CaptureLocalIntent(w, east()))
	assert.True(t, w.Intents.Has(e))
}
