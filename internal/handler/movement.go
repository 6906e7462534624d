package handler

import (
	"github.com/gridwalk/gridwalk/internal/movement"
	"github.com/gridwalk/gridwalk/internal/net"
	"github.com/gridwalk/gridwalk/internal/net/packet"
	"go.uber.org/zap"
)

// HandleMoveIntent processes MoveIntentRequest on the server. The step
// becomes the entity's intent; ServerMoveSystem validates it against the map
// in the same tick. A request arriving while the entity is still moving or
// already has an intent is dropped, never queued.
func HandleMoveIntent(m packet.MoveIntentRequest, from net.PeerID, deps *Deps) {
	e, ok := deps.World.EntityOfPeer(uint32(from))
	if !ok {
		return
	}
	if !unitStep(m.Direction.X) || !unitStep(m.Direction.Y) || m.Direction.IsZero() {
		deps.Log.Warn("移動方向不合法",
			zap.Uint32("peer", uint32(from)),
			zap.Int32("dx", m.Direction.X),
			zap.Int32("dy", m.Direction.Y),
		)
		deps.incr("movement", "rejected")
		return
	}
	if !movement.AttachIntent(deps.World, e, m.Direction) {
		deps.Log.Warn("移動中收到新請求，丟棄",
			zap.Uint32("peer", uint32(from)),
			zap.Uint32("seq", m.SequenceID),
			zap.Stringer("state", movement.StateOf(deps.World, e)),
		)
		deps.incr("movement", "rejected")
		return
	}
	deps.Log.Debug("收到移動請求",
		zap.Uint32("peer", uint32(from)),
		zap.Uint32("seq", m.SequenceID),
		zap.Int32("dx", m.Direction.X),
		zap.Int32("dy", m.Direction.Y),
	)
}

func unitStep(v int32) bool { return v >= -1 && v <= 1 }

// OnMovementStart processes MovementStartBroadcast on the client. The step is
// queued for RemoteMoveSystem; unknown ids and the local player are ignored.
func OnMovementStart(m packet.MovementStartBroadcast, deps *Deps) {
	e, ok := deps.World.TryGetEntity(m.OriginNetID)
	if !ok {
		deps.Log.Debug("移動廣播對象不存在", zap.Int32("netId", m.OriginNetID))
		return
	}
	if deps.World.Local.Has(e) {
		return
	}
	deps.RemoteMoves.Push(m)
}
