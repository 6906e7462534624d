package handler

import (
	"github.com/armon/go-metrics"
	"github.com/gridwalk/gridwalk/internal/config"
	"github.com/gridwalk/gridwalk/internal/core/event"
	"github.com/gridwalk/gridwalk/internal/data"
	"github.com/gridwalk/gridwalk/internal/net"
	"github.com/gridwalk/gridwalk/internal/net/packet"
	"github.com/gridwalk/gridwalk/internal/persist"
	"github.com/gridwalk/gridwalk/internal/scripting"
	"github.com/gridwalk/gridwalk/internal/world"
	"go.uber.org/zap"
)

// Sender is the part of the transport handlers and systems send through.
// *net.Transport implements it.
type Sender interface {
	Send(d net.Delivery, to net.PeerID, msg packet.Message)
	Broadcast(d net.Delivery, msg packet.Message)
	BroadcastExcept(d net.Delivery, except net.PeerID, msg packet.Message)
	Disconnect(id net.PeerID)
}

// ChatEvent is a chat line received by the server, waiting for ChatSystem.
type ChatEvent struct {
	Peer net.PeerID
	Text string
}

// ChatLine is a chat line received by a client, waiting for the presenter.
type ChatLine struct {
	NetID int32
	Name  string
	Text  string
}

// Deps holds shared dependencies injected into all packet handlers and
// systems. Fields that only one role uses are nil in the other.
type Deps struct {
	Config    *config.Config
	Log       *zap.Logger
	Metrics   *metrics.Metrics // nil disables counters
	World     *world.World
	Map       *data.GridMap
	Net       Sender
	Store     persist.CharacterStore // server
	Scripting *scripting.Engine      // server, nil = no chat hook

	// Server queues.
	Chat *event.Queue[ChatEvent]

	// Client queues.
	RemoteMoves *event.Queue[packet.MovementStartBroadcast]
	ChatLines   *event.Queue[ChatLine]

	// ServerPeer is the client's connection to the server.
	ServerPeer net.PeerID
	// Welcomed is set on the client once the server assigned an id.
	Welcomed bool
}

// NewDeps fills in the queues.
func NewDeps(cfg *config.Config, log *zap.Logger, w *world.World, m *data.GridMap, sender Sender) *Deps {
	return &Deps{
		Config:      cfg,
		Log:         log,
		World:       w,
		Map:         m,
		Net:         sender,
		Chat:        event.NewQueue[ChatEvent](),
		RemoteMoves: event.NewQueue[packet.MovementStartBroadcast](),
		ChatLines:   event.NewQueue[ChatLine](),
	}
}

func (d *Deps) incr(key ...string) {
	if d.Metrics != nil {
		d.Metrics.IncrCounter(key, 1)
	}
}

// RegisterServer subscribes the server-side handlers.
func RegisterServer(reg *packet.Registry, deps *Deps) []*packet.Subscription {
	return []*packet.Subscription{
		packet.On(reg, func(m packet.JoinRequest, from net.PeerID) {
			HandleJoin(m, from, deps)
		}),
		packet.On(reg, func(m packet.MoveIntentRequest, from net.PeerID) {
			HandleMoveIntent(m, from, deps)
		}),
		packet.On(reg, func(m packet.ChatRequest, from net.PeerID) {
			HandleChatRequest(m, from, deps)
		}),
	}
}

// RegisterClient subscribes the client-side handlers.
func RegisterClient(reg *packet.Registry, deps *Deps) []*packet.Subscription {
	return []*packet.Subscription{
		packet.On(reg, func(m packet.Welcome, _ net.PeerID) {
			HandleWelcome(m, deps)
		}),
		packet.On(reg, func(m packet.PlayerJoinData, _ net.PeerID) {
			HandlePlayerJoin(m, deps)
		}),
		packet.On(reg, func(m packet.PlayerLeft, _ net.PeerID) {
			HandlePlayerLeft(m, deps)
		}),
		packet.On(reg, func(m packet.MovementStartBroadcast, _ net.PeerID) {
			OnMovementStart(m, deps)
		}),
		packet.On(reg, func(m packet.ChatBroadcast, _ net.PeerID) {
			HandleChatBroadcast(m, deps)
		}),
	}
}
