package net

import (
	"sort"

	"github.com/gridwalk/gridwalk/internal/core/event"
)

// PeerConnected is pushed when a connection joins the registry.
type PeerConnected struct {
	Peer PeerID
	Addr string
}

// PeerDisconnected is pushed once per peer after its connection is gone.
type PeerDisconnected struct {
	Peer PeerID
}

// PeerRegistry tracks live connections. It is owned by the game loop; the
// I/O goroutines never touch it.
type PeerRegistry struct {
	peers map[PeerID]*Peer

	// Connected and Disconnected are drained by the lifecycle systems in the
	// Receive group. Events are pushed in ascending peer id order within a
	// poll.
	Connected    *event.Queue[PeerConnected]
	Disconnected *event.Queue[PeerDisconnected]
}

func NewPeerRegistry() *PeerRegistry {
	return &PeerRegistry{
		peers:        make(map[PeerID]*Peer),
		Connected:    event.NewQueue[PeerConnected](),
		Disconnected: event.NewQueue[PeerDisconnected](),
	}
}

func (r *PeerRegistry) add(p *Peer) {
	r.peers[p.ID] = p
	r.Connected.Push(PeerConnected{Peer: p.ID, Addr: p.Addr})
}

func (r *PeerRegistry) remove(id PeerID) {
	if _, ok := r.peers[id]; !ok {
		return
	}
	delete(r.peers, id)
	r.Disconnected.Push(PeerDisconnected{Peer: id})
}

// Get returns the peer for id, if it is still registered.
func (r *PeerRegistry) Get(id PeerID) (*Peer, bool) {
	p, ok := r.peers[id]
	return p, ok
}

// IsConnected reports whether id is registered and its socket still open.
func (r *PeerRegistry) IsConnected(id PeerID) bool {
	p, ok := r.peers[id]
	return ok && !p.IsClosed()
}

func (r *PeerRegistry) Len() int { return len(r.peers) }

// IDs returns registered peer ids in ascending order.
func (r *PeerRegistry) IDs() []PeerID {
	ids := make([]PeerID, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each visits registered peers in ascending id order.
func (r *PeerRegistry) Each(fn func(*Peer)) {
	for _, id := range r.IDs() {
		if p, ok := r.peers[id]; ok {
			fn(p)
		}
	}
}
