package data

import (
	"fmt"
	"os"

	"github.com/gridwalk/gridwalk/internal/component"
	"gopkg.in/yaml.v3"
)

// Tile is one cell of a GridMap.
type Tile struct {
	Walkable bool
}

// GridMap is a fixed-size walkability grid. It is immutable once built, so a
// single instance is shared by every validation within a tick without locking.
type GridMap struct {
	name     string
	width    int32
	height   int32
	tileSize int32
	tiles    []Tile // flat array [x * height + y], row-major by X
}

// MapInfo is one entry of maps.yaml.
type MapInfo struct {
	Name     string   `yaml:"name"`
	Width    int32    `yaml:"width"`
	Height   int32    `yaml:"height"`
	TileSize int32    `yaml:"tile_size"`
	Rows     []string `yaml:"rows"` // '#' = blocked, anything else walkable
}

type mapListFile struct {
	Maps []MapInfo `yaml:"maps"`
}

// DefaultTileSize is used when a map does not declare its own.
const DefaultTileSize int32 = 32

// NewGridMap builds a width×height map where every tile is walkable except
// the blocked ones. Blocked positions outside the bounds are ignored.
func NewGridMap(name string, width, height, tileSize int32, blocked ...component.GridPosition) *GridMap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	m := &GridMap{
		name:     name,
		width:    width,
		height:   height,
		tileSize: tileSize,
		tiles:    make([]Tile, int(width)*int(height)),
	}
	for i := range m.tiles {
		m.tiles[i].Walkable = true
	}
	for _, p := range blocked {
		if m.InBounds(p) {
			m.tiles[m.index(p)].Walkable = false
		}
	}
	return m
}

// FromInfo converts a parsed map entry into a GridMap. Rows are read top to
// bottom (y), characters left to right (x); missing cells are walkable.
func FromInfo(info MapInfo) (*GridMap, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("map %q: invalid size %dx%d", info.Name, info.Width, info.Height)
	}
	var blocked []component.GridPosition
	for y, row := range info.Rows {
		if int32(y) >= info.Height {
			break
		}
		for x := 0; x < len(row) && int32(x) < info.Width; x++ {
			if row[x] == '#' {
				blocked = append(blocked, component.GridPosition{X: int32(x), Y: int32(y)})
			}
		}
	}
	return NewGridMap(info.Name, info.Width, info.Height, info.TileSize, blocked...), nil
}

// LoadGridMap reads the map list at path and returns the map called name. An
// empty name selects the first map in the file.
func LoadGridMap(path, name string) (*GridMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", path, err)
	}
	return ParseGridMap(raw, name)
}

// ParseGridMap is LoadGridMap over an in-memory document.
func ParseGridMap(raw []byte, name string) (*GridMap, error) {
	var file mapListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}
	for _, info := range file.Maps {
		if name == "" || info.Name == name {
			return FromInfo(info)
		}
	}
	return nil, fmt.Errorf("map %q not found", name)
}

func (m *GridMap) Name() string    { return m.name }
func (m *GridMap) Width() int32    { return m.width }
func (m *GridMap) Height() int32   { return m.height }
func (m *GridMap) TileSize() int32 { return m.tileSize }

// InBounds reports whether p lies inside the map.
func (m *GridMap) InBounds(p component.GridPosition) bool {
	return p.X >= 0 && p.X < m.width && p.Y >= 0 && p.Y < m.height
}

// IsWalkable is false outside the map and on blocked tiles. The bounds check
// runs before the array is touched.
func (m *GridMap) IsWalkable(p component.GridPosition) bool {
	if !m.InBounds(p) {
		return false
	}
	return m.tiles[m.index(p)].Walkable
}

// PixelOf converts a tile coordinate to its pixel-space origin.
func (m *GridMap) PixelOf(p component.GridPosition) component.Vec2 {
	return component.Vec2{
		X: float64(p.X) * float64(m.tileSize),
		Y: float64(p.Y) * float64(m.tileSize),
	}
}

// FindWalkable returns the walkable tile closest to from, searching square
// rings outward. ok is false when the whole map is blocked.
func (m *GridMap) FindWalkable(from component.GridPosition) (component.GridPosition, bool) {
	if m.IsWalkable(from) {
		return from, true
	}
	maxR := m.width
	if m.height > maxR {
		maxR = m.height
	}
	for r := int32(1); r <= maxR+1; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx != -r && dx != r && dy != -r && dy != r {
					continue
				}
				p := component.GridPosition{X: from.X + dx, Y: from.Y + dy}
				if m.IsWalkable(p) {
					return p, true
				}
			}
		}
	}
	return component.GridPosition{}, false
}

func (m *GridMap) index(p component.GridPosition) int {
	return int(p.X)*int(m.height) + int(p.Y)
}
