package world

import (
	"sort"

	"github.com/gridwalk/gridwalk/internal/component"
	"github.com/gridwalk/gridwalk/internal/core/ecs"
	"github.com/gridwalk/gridwalk/internal/net/packet"
)

// World owns the entity registry, every component store, and the side
// indexes from network identity (and, on the server, connection) to entity.
// Accessed only from the game loop goroutine; no locks.
type World struct {
	ecs *ecs.World

	NetIDs    *ecs.Store[component.NetworkIdentity]
	Grid      *ecs.Store[component.GridPosition]
	Pixels    *ecs.Store[component.PixelPosition]
	Facings   *ecs.Store[component.Facing]
	Speeds    *ecs.Store[component.Speed]
	Intents   *ecs.Store[component.MoveIntent]
	Progress  *ecs.Store[component.MovementProgress]
	Sequences *ecs.Store[component.InputSequence]
	Local     *ecs.Store[component.PlayerControlled]
	Remote    *ecs.Store[component.RemoteProxy]
	Peers     *ecs.Store[component.PeerRef]
	Profiles  *ecs.Store[component.Profile]

	byNetID map[int32]ecs.EntityID
	byPeer  map[uint32]ecs.EntityID

	tileSize   int32
	localNetID int32 // client: id assigned by Welcome, 0 until then
	nextNetID  int32 // server: last assigned id
}

func New(tileSize int32) *World {
	w := &World{
		ecs:      ecs.NewWorld(),
		byNetID:  make(map[int32]ecs.EntityID),
		byPeer:   make(map[uint32]ecs.EntityID),
		tileSize: tileSize,
	}
	r := w.ecs.Registry()
	w.NetIDs = ecs.Attach[component.NetworkIdentity](r)
	w.Grid = ecs.Attach[component.GridPosition](r)
	w.Pixels = ecs.Attach[component.PixelPosition](r)
	w.Facings = ecs.Attach[component.Facing](r)
	w.Speeds = ecs.Attach[component.Speed](r)
	w.Intents = ecs.Attach[component.MoveIntent](r)
	w.Progress = ecs.Attach[component.MovementProgress](r)
	w.Sequences = ecs.Attach[component.InputSequence](r)
	w.Local = ecs.Attach[component.PlayerControlled](r)
	w.Remote = ecs.Attach[component.RemoteProxy](r)
	w.Peers = ecs.Attach[component.PeerRef](r)
	w.Profiles = ecs.Attach[component.Profile](r)
	return w
}

func (w *World) TileSize() int32 { return w.tileSize }

// SetTileSize is used by the client once Welcome tells it the server's map.
func (w *World) SetTileSize(ts int32) {
	if ts > 0 {
		w.tileSize = ts
	}
}

// PixelOf converts a tile coordinate to pixel space.
func (w *World) PixelOf(p component.GridPosition) component.Vec2 {
	return component.Vec2{
		X: float64(p.X) * float64(w.tileSize),
		Y: float64(p.Y) * float64(w.tileSize),
	}
}

// SetLocalNetID records the id of the locally controlled entity. Entities
// spawned with this id get PlayerControlled, all others RemoteProxy.
func (w *World) SetLocalNetID(id int32) { w.localNetID = id }

func (w *World) LocalNetID() int32 { return w.localNetID }

// AllocNetID hands out the next server-side network id. Ids start at 1 and
// are not reused within a process.
func (w *World) AllocNetID() int32 {
	w.nextNetID++
	return w.nextNetID
}

// Alive reports whether e is a live handle.
func (w *World) Alive(e ecs.EntityID) bool { return w.ecs.Alive(e) }

// Len returns the number of live entities.
func (w *World) Len() int { return w.ecs.Len() }

// TryGetEntity maps a network id to its entity. It returns false when no
// mapping exists or the mapped handle is no longer alive.
func (w *World) TryGetEntity(netID int32) (ecs.EntityID, bool) {
	e, ok := w.byNetID[netID]
	if !ok {
		return 0, false
	}
	if !w.ecs.Alive(e) {
		delete(w.byNetID, netID)
		return 0, false
	}
	return e, true
}

// EntityOfPeer returns the entity owned by a server-side connection.
func (w *World) EntityOfPeer(peer uint32) (ecs.EntityID, bool) {
	e, ok := w.byPeer[peer]
	if !ok || !w.ecs.Alive(e) {
		return 0, false
	}
	return e, true
}

// NetIDOf returns e's network id.
func (w *World) NetIDOf(e ecs.EntityID) (int32, bool) {
	id, ok := w.NetIDs.Get(e)
	if !ok {
		return 0, false
	}
	return id.ID, true
}

// SpawnReplicated creates an entity from replicated join data. The entity is
// PlayerControlled when d.NetID is the local id, RemoteProxy otherwise. A
// live entity already holding d.NetID is replaced.
func (w *World) SpawnReplicated(d packet.PlayerJoinData) ecs.EntityID {
	e := w.spawn(d)
	if d.NetID != 0 && d.NetID == w.localNetID {
		w.Local.Set(e, &component.PlayerControlled{})
		w.Sequences.Set(e, &component.InputSequence{})
	} else {
		w.Remote.Set(e, &component.RemoteProxy{})
	}
	return e
}

// SpawnOwned creates the server-side entity for a connection. It carries no
// role tag; it is authoritative.
func (w *World) SpawnOwned(peer uint32, d packet.PlayerJoinData) ecs.EntityID {
	if old, ok := w.byPeer[peer]; ok {
		if id, ok := w.NetIDOf(old); ok {
			w.Despawn(id)
		}
	}
	e := w.spawn(d)
	w.Peers.Set(e, &component.PeerRef{PeerID: peer})
	w.byPeer[peer] = e
	return e
}

func (w *World) spawn(d packet.PlayerJoinData) ecs.EntityID {
	if _, ok := w.TryGetEntity(d.NetID); ok {
		w.Despawn(d.NetID)
	}
	e := w.ecs.CreateEntity()
	pos := d.Position
	facing := d.Facing
	if !facing.Valid() {
		facing = component.DirNone
	}
	w.NetIDs.Set(e, &component.NetworkIdentity{ID: d.NetID})
	w.Grid.Set(e, &pos)
	w.Pixels.Set(e, &component.PixelPosition{Vec2: w.PixelOf(pos)})
	w.Facings.Set(e, &component.Facing{Dir: facing})
	w.Speeds.Set(e, &component.Speed{PixelsPerSecond: d.Speed})
	w.Profiles.Set(e, &component.Profile{
		Name:        d.Name,
		Description: d.Description,
		Vocation:    d.Vocation,
		Gender:      d.Gender,
	})
	w.byNetID[d.NetID] = e
	return e
}

// Despawn destroys the entity holding netID and drops its index entries.
// Unknown or stale ids are a no-op.
func (w *World) Despawn(netID int32) bool {
	e, ok := w.TryGetEntity(netID)
	if !ok {
		return false
	}
	if ref, ok := w.Peers.Get(e); ok {
		if w.byPeer[ref.PeerID] == e {
			delete(w.byPeer, ref.PeerID)
		}
	}
	delete(w.byNetID, netID)
	return w.ecs.Destroy(e)
}

// Clear despawns every entity.
func (w *World) Clear() {
	for _, id := range w.NetIDList() {
		w.Despawn(id)
	}
}

// NetIDList returns every mapped network id in ascending order.
func (w *World) NetIDList() []int32 {
	ids := make([]int32, 0, len(w.byNetID))
	for id := range w.byNetID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EachReplicated visits live replicated entities in ascending network id
// order.
func (w *World) EachReplicated(fn func(netID int32, e ecs.EntityID)) {
	for _, id := range w.NetIDList() {
		if e, ok := w.TryGetEntity(id); ok {
			fn(id, e)
		}
	}
}

// LocalPlayer returns the PlayerControlled entity, if spawned.
func (w *World) LocalPlayer() (ecs.EntityID, bool) {
	if w.localNetID == 0 {
		return 0, false
	}
	e, ok := w.TryGetEntity(w.localNetID)
	if !ok || !w.Local.Has(e) {
		return 0, false
	}
	return e, true
}

// JoinData rebuilds the replicated description of e from its components.
func (w *World) JoinData(e ecs.EntityID) (packet.PlayerJoinData, bool) {
	id, ok := w.NetIDs.Get(e)
	if !ok {
		return packet.PlayerJoinData{}, false
	}
	d := packet.PlayerJoinData{NetID: id.ID, Facing: component.DirNone}
	if g, ok := w.Grid.Get(e); ok {
		d.Position = *g
	}
	if p, ok := w.Progress.Get(e); ok {
		// late joiners see the tile the entity is walking to
		d.Position = p.TargetGrid
	}
	if f, ok := w.Facings.Get(e); ok {
		d.Facing = f.Dir
	}
	if s, ok := w.Speeds.Get(e); ok {
		d.Speed = s.PixelsPerSecond
	}
	if p, ok := w.Profiles.Get(e); ok {
		d.Name = p.Name
		d.Description = p.Description
		d.Vocation = p.Vocation
		d.Gender = p.Gender
	}
	return d, true
}
