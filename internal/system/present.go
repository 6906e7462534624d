package system

import (
	"time"

	"github.com/gridwalk/gridwalk/internal/component"
	"github.com/gridwalk/gridwalk/internal/core/ecs"
	coresys "github.com/gridwalk/gridwalk/internal/core/system"
	"github.com/gridwalk/gridwalk/internal/data"
	"github.com/gridwalk/gridwalk/internal/handler"
)

// EntityView is the presentable state of one replicated entity.
type EntityView struct {
	NetID  int32
	Name   string
	Grid   component.GridPosition
	Pixel  component.Vec2
	Facing component.Direction
	Moving bool
	Local  bool
}

// Frame is a read-only snapshot handed to the presenter once per tick.
type Frame struct {
	Tick     uint64
	TileSize int32
	Map      *data.GridMap
	Entities []EntityView // ascending NetID
	Chat     []handler.ChatLine
}

// Presenter consumes frames. The map is shared and must be treated as
// read-only.
type Presenter interface {
	Present(f Frame)
}

// PresentSystem builds a Frame from the world and passes it to the
// presenter. Phase 2 (Process).
type PresentSystem struct {
	deps      *handler.Deps
	presenter Presenter
	tick      uint64
}

func NewPresentSystem(deps *handler.Deps, p Presenter) *PresentSystem {
	return &PresentSystem{deps: deps, presenter: p}
}

func (s *PresentSystem) Phase() coresys.Phase { return coresys.PhaseProcess }

func (s *PresentSystem) Update(_ time.Duration) {
	s.tick++
	s.presenter.Present(BuildFrame(s.deps, s.tick))
}

// BuildFrame snapshots the world and drains pending chat lines.
func BuildFrame(deps *handler.Deps, tick uint64) Frame {
	w := deps.World
	f := Frame{Tick: tick, TileSize: w.TileSize(), Map: deps.Map}
	w.EachReplicated(func(netID int32, e ecs.EntityID) {
		v := EntityView{
			NetID:  netID,
			Facing: component.DirNone,
			Moving: w.Progress.Has(e),
			Local:  w.Local.Has(e),
		}
		if p, ok := w.Profiles.Get(e); ok {
			v.Name = p.Name
		}
		if g, ok := w.Grid.Get(e); ok {
			v.Grid = *g
		}
		if px, ok := w.Pixels.Get(e); ok {
			v.Pixel = px.Vec2
		}
		if fc, ok := w.Facings.Get(e); ok {
			v.Facing = fc.Dir
		}
		f.Entities = append(f.Entities, v)
	})
	deps.ChatLines.Drain(func(l handler.ChatLine) {
		f.Chat = append(f.Chat, l)
	})
	return f
}
