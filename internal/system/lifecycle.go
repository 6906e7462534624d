package system

import (
	"time"

	coresys "github.com/gridwalk/gridwalk/internal/core/system"
	"github.com/gridwalk/gridwalk/internal/handler"
	"github.com/gridwalk/gridwalk/internal/net"
	"go.uber.org/zap"
)

// ServerLifecycleSystem drains the peer registry's connect and disconnect
// queues. A disconnect despawns the peer's entity in the same tick it is
// reported. Phase 0 (Receive), after ReceiveSystem.
type ServerLifecycleSystem struct {
	peers *net.PeerRegistry
	deps  *handler.Deps
}

func NewServerLifecycleSystem(peers *net.PeerRegistry, deps *handler.Deps) *ServerLifecycleSystem {
	return &ServerLifecycleSystem{peers: peers, deps: deps}
}

func (s *ServerLifecycleSystem) Phase() coresys.Phase { return coresys.PhaseReceive }

func (s *ServerLifecycleSystem) Update(_ time.Duration) {
	s.peers.Connected.Drain(func(ev net.PeerConnected) {
		s.deps.Log.Debug("等待加入請求", zap.Uint32("peer", uint32(ev.Peer)), zap.String("ip", ev.Addr))
	})
	s.peers.Disconnected.Drain(func(ev net.PeerDisconnected) {
		handler.HandleLeave(ev.Peer, s.deps)
	})
}

// ClientLifecycleSystem sends JoinRequest once connected and tears the world
// down when the server connection is lost. Phase 0 (Receive).
type ClientLifecycleSystem struct {
	peers  *net.PeerRegistry
	deps   *handler.Deps
	join   func() // sends JoinRequest
	onLost func()
	lost   bool
}

func NewClientLifecycleSystem(peers *net.PeerRegistry, deps *handler.Deps, join func(), onLost func()) *ClientLifecycleSystem {
	return &ClientLifecycleSystem{peers: peers, deps: deps, join: join, onLost: onLost}
}

func (s *ClientLifecycleSystem) Phase() coresys.Phase { return coresys.PhaseReceive }

// Lost reports whether the server connection is gone.
func (s *ClientLifecycleSystem) Lost() bool { return s.lost }

func (s *ClientLifecycleSystem) Update(_ time.Duration) {
	s.peers.Connected.Drain(func(ev net.PeerConnected) {
		if ev.Peer == s.deps.ServerPeer && s.join != nil {
			s.join()
		}
	})
	s.peers.Disconnected.Drain(func(ev net.PeerDisconnected) {
		if ev.Peer != s.deps.ServerPeer || s.lost {
			return
		}
		s.lost = true
		s.deps.World.Clear()
		s.deps.Log.Warn("與伺服器的連線中斷")
		if s.onLost != nil {
			s.onLost()
		}
	})
}
