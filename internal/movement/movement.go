// Package movement implements the per-entity movement state machine.
//
// The state of an entity is encoded entirely by which components it holds:
//
//	Idle           GridPosition, no MoveIntent, no MovementProgress
//	IntentPending  MoveIntent present, no MovementProgress
//	InProgress     MovementProgress present, no MoveIntent
//
// Transitions:
//
//	Idle -> IntentPending      AttachIntent (local input or a received request)
//	IntentPending -> InProgress Decide, when the target tile is walkable
//	IntentPending -> Idle      Decide, when it is not (the intent is dropped)
//	Idle -> InProgress         ApplyRemote (client replicas, never validated)
//	InProgress -> Idle         Advance, once elapsed >= duration
//
// AttachIntent is the only way into IntentPending, and it refuses while the
// entity is InProgress or already holds an intent, so an entity takes at most
// one step at a time.
//
// GridPosition changes only when a step completes (or when a replica is
// corrected by the server), so it always names a tile the entity fully
// occupies. PixelPosition is written only here.
package movement

import (
	"github.com/gridwalk/gridwalk/internal/component"
	"github.com/gridwalk/gridwalk/internal/core/ecs"
	"github.com/gridwalk/gridwalk/internal/world"
)

// Walkability answers whether a tile can be entered.
type Walkability interface {
	IsWalkable(p component.GridPosition) bool
}

// State names the three movement states.
type State int

const (
	Idle State = iota
	IntentPending
	InProgress
)

func (s State) String() string {
	switch s {
	case IntentPending:
		return "intent-pending"
	case InProgress:
		return "in-progress"
	}
	return "idle"
}

// StateOf reads e's state from its components.
func StateOf(w *world.World, e ecs.EntityID) State {
	switch {
	case w.Progress.Has(e):
		return InProgress
	case w.Intents.Has(e):
		return IntentPending
	}
	return Idle
}

// AttachIntent requests one step in dir. It returns false, leaving e
// untouched, when e is dead, has no grid position, is already moving or
// already has a pending intent, or when dir is (0,0).
func AttachIntent(w *world.World, e ecs.EntityID, dir component.GridDelta) bool {
	if dir.IsZero() || !w.Alive(e) || !w.Grid.Has(e) {
		return false
	}
	if w.Progress.Has(e) || w.Intents.Has(e) {
		return false
	}
	w.Intents.Set(e, &component.MoveIntent{Direction: dir})
	return true
}

// CaptureLocalIntent attaches an intent to the locally controlled entity.
func CaptureLocalIntent(w *world.World, dir component.GridDelta) bool {
	e, ok := w.LocalPlayer()
	if !ok {
		return false
	}
	return AttachIntent(w, e, dir)
}

// Outcome describes one decided intent.
type Outcome struct {
	Accepted  bool
	From      component.GridPosition // position before the step
	Target    component.GridPosition
	Direction component.GridDelta
}

// Decide consumes e's pending intent. If the target tile is walkable the
// entity enters InProgress; otherwise the intent is simply dropped. ok is
// false when e had no intent to decide.
func Decide(w *world.World, walk Walkability, e ecs.EntityID) (out Outcome, ok bool) {
	intent, ok := w.Intents.Get(e)
	if !ok {
		return Outcome{}, false
	}
	dir := intent.Direction
	w.Intents.Remove(e)

	grid, hasGrid := w.Grid.Get(e)
	if !hasGrid || w.Progress.Has(e) {
		return Outcome{Direction: dir}, true
	}
	out = Outcome{From: *grid, Target: grid.Add(dir), Direction: dir}
	if !walk.IsWalkable(out.Target) {
		return out, true
	}
	begin(w, e, out.From, dir)
	out.Accepted = true
	return out, true
}

// ApplyRemote starts a server-confirmed step on a replica without
// validation. The replica's grid position is first overwritten with from.
// A step still in flight is completed immediately so steps are never lost
// or reordered.
func ApplyRemote(w *world.World, e ecs.EntityID, from component.GridPosition, dir component.GridDelta) bool {
	if !w.Alive(e) {
		return false
	}
	if w.Progress.Has(e) {
		Snap(w, e)
	}
	w.Intents.Remove(e)
	pos := from
	w.Grid.Set(e, &pos)
	w.Pixels.Set(e, &component.PixelPosition{Vec2: w.PixelOf(pos)})
	if dir.IsZero() {
		return true
	}
	begin(w, e, pos, dir)
	return true
}

// begin attaches MovementProgress for a step from `from` in dir and turns e
// to face it.
func begin(w *world.World, e ecs.EntityID, from component.GridPosition, dir component.GridDelta) {
	target := from.Add(dir)
	start := w.PixelOf(from)
	if px, ok := w.Pixels.Get(e); ok {
		start = px.Vec2
	}
	end := w.PixelOf(target)
	var speed float32
	if s, ok := w.Speeds.Get(e); ok {
		speed = s.PixelsPerSecond
	}
	w.Progress.Set(e, &component.MovementProgress{
		Start:      start,
		Target:     end,
		TargetGrid: target,
		Duration:   StepDuration(start, end, speed),
	})
	if f, ok := w.Facings.Get(e); ok {
		f.Dir = component.DirectionOf(dir)
	} else {
		w.Facings.Set(e, &component.Facing{Dir: component.DirectionOf(dir)})
	}
}

// StepDuration is the time in seconds to cover start→end at speed pixels per
// second. Non-positive speeds complete instantly.
func StepDuration(start, end component.Vec2, speed float32) float64 {
	if speed <= 0 {
		return 0
	}
	return component.Distance(start, end) / float64(speed)
}

// Advance integrates e's progress by dt seconds. When the step completes the
// pixel position lands exactly on the target, the grid position is committed
// and the progress is removed. Returns true on completion.
func Advance(w *world.World, e ecs.EntityID, dt float64) bool {
	p, ok := w.Progress.Get(e)
	if !ok {
		return false
	}
	p.Elapsed += dt
	if p.Elapsed >= p.Duration {
		complete(w, e, p)
		return true
	}
	w.Pixels.Set(e, &component.PixelPosition{Vec2: component.Lerp(p.Start, p.Target, p.Elapsed/p.Duration)})
	return false
}

// Integrate advances every in-flight step by dt seconds, in entity order.
// Returns the number of steps that completed.
func Integrate(w *world.World, dt float64) int {
	done := 0
	for _, e := range w.Progress.IDs() {
		if Advance(w, e, dt) {
			done++
		}
	}
	return done
}

// Snap completes e's in-flight step immediately.
func Snap(w *world.World, e ecs.EntityID) {
	if p, ok := w.Progress.Get(e); ok {
		complete(w, e, p)
	}
}

func complete(w *world.World, e ecs.EntityID, p *component.MovementProgress) {
	target := p.TargetGrid
	w.Pixels.Set(e, &component.PixelPosition{Vec2: p.Target})
	w.Grid.Set(e, &target)
	w.Progress.Remove(e)
}
