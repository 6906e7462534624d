package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gridwalk/gridwalk/internal/component"
	"github.com/gridwalk/gridwalk/internal/core/ecs"
	"github.com/gridwalk/gridwalk/internal/net"
	"github.com/gridwalk/gridwalk/internal/net/packet"
	"github.com/gridwalk/gridwalk/internal/persist"
	"github.com/gridwalk/gridwalk/internal/world"
	"go.uber.org/zap"
)

const storeTimeout = 5 * time.Second

// HandleJoin processes JoinRequest. The character is loaded (or created) by
// name, placed on a walkable tile, and replicated: the joiner receives
// Welcome followed by every entity including itself; everyone else receives
// the new entity only.
func HandleJoin(m packet.JoinRequest, from net.PeerID, deps *Deps) {
	if _, ok := deps.World.EntityOfPeer(uint32(from)); ok {
		deps.Log.Debug("重複加入請求，忽略", zap.Uint32("peer", uint32(from)))
		return
	}

	name, err := world.ValidateName(m.Name)
	if err != nil {
		deps.Log.Warn("角色名稱不合法", zap.Uint32("peer", uint32(from)), zap.String("name", m.Name), zap.Error(err))
		deps.Net.Disconnect(from)
		return
	}
	for _, id := range deps.World.NetIDList() {
		e, _ := deps.World.TryGetEntity(id)
		if p, ok := deps.World.Profiles.Get(e); ok && p.Name == name {
			deps.Log.Warn("角色已在線上", zap.String("name", name))
			deps.Net.Disconnect(from)
			return
		}
	}

	row, err := loadOrCreate(name, m, deps)
	if err != nil {
		deps.Log.Error("載入角色失敗", zap.String("name", name), zap.Error(err))
		deps.Net.Disconnect(from)
		return
	}

	pos := component.GridPosition{X: row.X, Y: row.Y}
	if !deps.Map.IsWalkable(pos) {
		spawn := component.GridPosition{X: deps.Config.Movement.SpawnX, Y: deps.Config.Movement.SpawnY}
		if p, ok := deps.Map.FindWalkable(spawn); ok {
			spawn = p
		}
		deps.Log.Info("儲存位置不可行走，重設至出生點",
			zap.String("name", name), zap.Stringer("from", pos), zap.Stringer("to", spawn))
		pos = spawn
	}
	speed := row.Speed
	if speed <= 0 {
		speed = deps.Config.Movement.DefaultSpeed
	}
	facing := component.Direction(row.Heading)
	if !facing.Valid() {
		facing = component.DirNone
	}

	join := packet.PlayerJoinData{
		NetID:       deps.World.AllocNetID(),
		Name:        name,
		Description: row.Description,
		Vocation:    uint8(row.Vocation),
		Gender:      uint8(row.Gender),
		Facing:      facing,
		Speed:       speed,
		Position:    pos,
	}
	deps.World.SpawnOwned(uint32(from), join)

	deps.Net.Send(net.Reliable, from, packet.Welcome{
		NetID:     join.NetID,
		MapWidth:  deps.Map.Width(),
		MapHeight: deps.Map.Height(),
		TileSize:  deps.Map.TileSize(),
	})
	deps.World.EachReplicated(func(_ int32, e ecs.EntityID) {
		if d, ok := deps.World.JoinData(e); ok {
			deps.Net.Send(net.Reliable, from, d)
		}
	})
	deps.Net.BroadcastExcept(net.Reliable, from, join)

	deps.incr("world", "joined")
	deps.Log.Info(fmt.Sprintf("角色進入世界  peer=%d  角色=%s  netId=%d", from, name, join.NetID),
		zap.Stringer("pos", pos))
}

func loadOrCreate(name string, m packet.JoinRequest, deps *Deps) (*persist.CharacterRow, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	row, err := deps.Store.LoadByName(ctx, name)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, persist.ErrNotFound) {
		return nil, err
	}
	row = &persist.CharacterRow{
		Name:        name,
		Description: world.CleanText(m.Description, world.MaxDescriptionRunes),
		Vocation:    int16(m.Vocation),
		Gender:      int16(m.Gender),
		X:           deps.Config.Movement.SpawnX,
		Y:           deps.Config.Movement.SpawnY,
		Heading:     int16(component.DirSouth),
		Speed:       deps.Config.Movement.DefaultSpeed,
	}
	if err := deps.Store.Create(ctx, row); err != nil {
		return nil, err
	}
	deps.Log.Info("建立新角色", zap.String("name", name), zap.Int32("id", row.ID))
	return row, nil
}

// HandleLeave cleans up after a disconnected peer: the position is saved,
// the entity despawned and PlayerLeft broadcast. Peers that never joined are
// a no-op.
func HandleLeave(peer net.PeerID, deps *Deps) {
	e, ok := deps.World.EntityOfPeer(uint32(peer))
	if !ok {
		return
	}
	netID, _ := deps.World.NetIDOf(e)

	// A step in flight is committed so the saved tile is the one the
	// entity was walking to.
	if p, ok := deps.World.Progress.Get(e); ok {
		target := p.TargetGrid
		deps.World.Grid.Set(e, &target)
	}
	if prof, ok := deps.World.Profiles.Get(e); ok && deps.Store != nil {
		pos, _ := deps.World.Grid.Get(e)
		heading := int16(component.DirNone)
		if f, ok := deps.World.Facings.Get(e); ok {
			heading = int16(f.Dir)
		}
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := deps.Store.SavePosition(ctx, prof.Name, pos.X, pos.Y, heading); err != nil {
			deps.Log.Error("儲存角色位置失敗", zap.String("name", prof.Name), zap.Error(err))
		}
		cancel()
	}

	deps.World.Despawn(netID)
	deps.Net.BroadcastExcept(net.Reliable, peer, packet.PlayerLeft{NetID: netID})
	deps.incr("world", "left")
	deps.Log.Info(fmt.Sprintf("角色離開世界  peer=%d  netId=%d", peer, netID))
}
