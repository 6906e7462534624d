package component

import "math"

// Vec2 is a point in pixel space.
type Vec2 struct {
	X float64
	Y float64
}

// Lerp moves from a towards b by t in [0,1].
func Lerp(a, b Vec2, t float64) Vec2 {
	return Vec2{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b Vec2) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Speed is the movement speed in pixels per second.
type Speed struct {
	PixelsPerSecond float32
}

// PixelPosition is the visual position. Only the movement pipeline writes it;
// presentation reads it.
type PixelPosition struct {
	Vec2
}

// MoveIntent asks for one step in Direction. Transient: the movement
// pipeline removes it in the tick it is consumed.
type MoveIntent struct {
	Direction GridDelta
}

// MovementProgress is an in-flight single-tile transition. Elapsed and
// Duration are seconds. At most one exists per entity.
type MovementProgress struct {
	Start      Vec2
	Target     Vec2
	TargetGrid GridPosition
	Elapsed    float64
	Duration   float64
}

// InputSequence stamps outgoing intent packets on the client. Wraps on
// overflow.
type InputSequence struct {
	NextID uint32
}

// Next returns the current id and advances the counter.
func (s *InputSequence) Next() uint32 {
	id := s.NextID
	s.NextID++
	return id
}
