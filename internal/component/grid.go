package component

import "fmt"

// GridPosition is the authoritative logical tile coordinate.
type GridPosition struct {
	X int32
	Y int32
}

// Add returns the tile reached by stepping d from p.
func (p GridPosition) Add(d GridDelta) GridPosition {
	return GridPosition{X: p.X + d.X, Y: p.Y + d.Y}
}

func (p GridPosition) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// GridDelta is a step between tiles. Movement deltas are unit steps, but
// nothing here enforces it.
type GridDelta struct {
	X int32
	Y int32
}

func (d GridDelta) IsZero() bool { return d.X == 0 && d.Y == 0 }

// Direction is one of the eight compass headings or None. Values match the
// wire byte in PlayerJoinData: 0=N, 1=NE, 2=E, 3=SE, 4=S, 5=SW, 6=W, 7=NW.
// North is -Y.
type Direction uint8

const (
	DirNorth Direction = iota
	DirNorthEast
	DirEast
	DirSouthEast
	DirSouth
	DirSouthWest
	DirWest
	DirNorthWest
	DirNone
)

// Direction deltas indexed by heading (0-7).
var headingDX = [8]int32{0, 1, 1, 1, 0, -1, -1, -1}
var headingDY = [8]int32{-1, -1, 0, 1, 1, 1, 0, -1}

var directionNames = [9]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW", "None"}

// DirectionOf derives a heading from the signs of d: both components non-zero
// gives a diagonal, one gives a cardinal, (0,0) gives None.
func DirectionOf(d GridDelta) Direction {
	sx, sy := sign(d.X), sign(d.Y)
	for h := 0; h < 8; h++ {
		if headingDX[h] == sx && headingDY[h] == sy {
			return Direction(h)
		}
	}
	return DirNone
}

// Delta returns the unit step for the heading; None and out-of-range values
// yield (0,0).
func (d Direction) Delta() GridDelta {
	if d >= DirNone {
		return GridDelta{}
	}
	return GridDelta{X: headingDX[d], Y: headingDY[d]}
}

func (d Direction) Valid() bool { return d <= DirNone }

func (d Direction) String() string {
	if d > DirNone {
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
	return directionNames[d]
}

// ParseDirection is the inverse of String.
func ParseDirection(s string) (Direction, bool) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), true
		}
	}
	return DirNone, false
}

// Facing is the last heading an entity moved in.
type Facing struct {
	Dir Direction
}

func sign(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
