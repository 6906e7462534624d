package system

import (
	"time"

	"github.com/gridwalk/gridwalk/internal/component"
	"github.com/gridwalk/gridwalk/internal/core/ecs"
	coresys "github.com/gridwalk/gridwalk/internal/core/system"
	"github.com/gridwalk/gridwalk/internal/handler"
	"github.com/gridwalk/gridwalk/internal/movement"
	"github.com/gridwalk/gridwalk/internal/net"
	"github.com/gridwalk/gridwalk/internal/net/packet"
	"go.uber.org/zap"
)

// ServerMoveSystem is the authoritative movement step. Every pending intent
// is validated against the map, and accepted steps are broadcast to every
// peer except the owner. Invalid steps are dropped with a warning; no
// rejection is sent. Phase 1 (Physics).
type ServerMoveSystem struct {
	deps *handler.Deps
}

func NewServerMoveSystem(deps *handler.Deps) *ServerMoveSystem {
	return &ServerMoveSystem{deps: deps}
}

func (s *ServerMoveSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *ServerMoveSystem) Update(_ time.Duration) {
	w := s.deps.World

	ecs.Each2Without(w.Intents, w.Grid, w.Progress, func(e ecs.EntityID, _ *component.MoveIntent, _ *component.GridPosition) {
		out, ok := movement.Decide(w, s.deps.Map, e)
		if !ok {
			return
		}
		netID, _ := w.NetIDOf(e)
		if !out.Accepted {
			s.deps.Log.Warn("移動目標不可行走，丟棄",
				zap.Int32("netId", netID),
				zap.Stringer("from", out.From),
				zap.Stringer("to", out.Target),
			)
			s.incr("movement", "rejected")
			return
		}
		s.incr("movement", "accepted")

		var owner net.PeerID
		if ref, ok := w.Peers.Get(e); ok {
			owner = net.PeerID(ref.PeerID)
		}
		s.deps.Net.BroadcastExcept(net.Reliable, owner, packet.MovementStartBroadcast{
			OriginNetID: netID,
			Direction:   out.Direction,
			Position:    out.From,
		})
		s.incr("movement", "broadcasts")
	})
}

func (s *ServerMoveSystem) incr(key ...string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.IncrCounter(key, 1)
	}
}

// ClientPredictSystem applies the local player's intent immediately against
// the client's copy of the map and, when the step is accepted, sends the
// request to the server stamped with the next input sequence. A step the
// local map rejects is dropped without contacting the server.
// Phase 1 (Physics).
type ClientPredictSystem struct {
	deps *handler.Deps
}

func NewClientPredictSystem(deps *handler.Deps) *ClientPredictSystem {
	return &ClientPredictSystem{deps: deps}
}

func (s *ClientPredictSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *ClientPredictSystem) Update(_ time.Duration) {
	w := s.deps.World
	// only the local player predicts; stray intents are discarded
	for _, e := range w.Intents.IDs() {
		if !w.Local.Has(e) {
			w.Intents.Remove(e)
		}
	}
	ecs.Each2Without(w.Intents, w.Local, w.Progress, func(e ecs.EntityID, _ *component.MoveIntent, _ *component.PlayerControlled) {
		out, ok := movement.Decide(w, s.deps.Map, e)
		if !ok {
			return
		}
		if !out.Accepted {
			s.deps.Log.Debug("本地預測：目標不可行走", zap.Stringer("to", out.Target))
			return
		}
		seq, ok := w.Sequences.Get(e)
		if !ok {
			return
		}
		s.deps.Net.Send(net.Reliable, s.deps.ServerPeer, packet.MoveIntentRequest{
			SequenceID: seq.Next(),
			Direction:  out.Direction,
		})
	})
}

// RemoteMoveSystem applies server-confirmed steps to remote proxies without
// validation. Phase 1 (Physics).
type RemoteMoveSystem struct {
	deps *handler.Deps
}

func NewRemoteMoveSystem(deps *handler.Deps) *RemoteMoveSystem {
	return &RemoteMoveSystem{deps: deps}
}

func (s *RemoteMoveSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *RemoteMoveSystem) Update(_ time.Duration) {
	w := s.deps.World
	s.deps.RemoteMoves.Drain(func(m packet.MovementStartBroadcast) {
		e, ok := w.TryGetEntity(m.OriginNetID)
		if !ok || !w.Remote.Has(e) {
			return
		}
		movement.ApplyRemote(w, e, m.Position, m.Direction)
	})
}

// ProgressSystem integrates every in-flight step. Registered after the
// intent systems so a step started this tick also advances this tick.
// Phase 1 (Physics).
type ProgressSystem struct {
	deps *handler.Deps
}

func NewProgressSystem(deps *handler.Deps) *ProgressSystem {
	return &ProgressSystem{deps: deps}
}

func (s *ProgressSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *ProgressSystem) Update(dt time.Duration) {
	movement.Integrate(s.deps.World, dt.Seconds())
}
