package handler

import (
	"github.com/gridwalk/gridwalk/internal/data"
	"github.com/gridwalk/gridwalk/internal/net/packet"
	"go.uber.org/zap"
)

// HandleWelcome records the id the server assigned to this client. If the
// local map does not match the server's dimensions the client falls back to
// an open map of the server's size, so prediction never rejects a step the
// server would accept because of a missing file.
func HandleWelcome(m packet.Welcome, deps *Deps) {
	deps.World.SetLocalNetID(m.NetID)
	deps.World.SetTileSize(m.TileSize)
	if deps.Map == nil || deps.Map.Width() != m.MapWidth || deps.Map.Height() != m.MapHeight {
		deps.Log.Warn("本地地圖與伺服器不符，改用空白地圖",
			zap.Int32("width", m.MapWidth),
			zap.Int32("height", m.MapHeight),
		)
		deps.Map = data.NewGridMap("server", m.MapWidth, m.MapHeight, m.TileSize)
	}
	deps.Welcomed = true
	deps.Log.Info("已加入世界", zap.Int32("netId", m.NetID))
}

// HandlePlayerJoin spawns a replica, or the local player when the id is ours.
func HandlePlayerJoin(m packet.PlayerJoinData, deps *Deps) {
	e := deps.World.SpawnReplicated(m)
	deps.Log.Debug("生成實體",
		zap.Int32("netId", m.NetID),
		zap.String("name", m.Name),
		zap.Stringer("pos", m.Position),
		zap.Bool("local", deps.World.Local.Has(e)),
	)
}

// HandlePlayerLeft despawns a replica. Unknown ids are a no-op.
func HandlePlayerLeft(m packet.PlayerLeft, deps *Deps) {
	if deps.World.Despawn(m.NetID) {
		deps.Log.Debug("移除實體", zap.Int32("netId", m.NetID))
	}
}
