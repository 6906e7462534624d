package handler

import (
	"github.com/gridwalk/gridwalk/internal/net"
	"github.com/gridwalk/gridwalk/internal/net/packet"
)

// HandleChatRequest queues a chat line from a joined peer for ChatSystem.
func HandleChatRequest(m packet.ChatRequest, from net.PeerID, deps *Deps) {
	if m.Text == "" {
		return
	}
	if _, ok := deps.World.EntityOfPeer(uint32(from)); !ok {
		return
	}
	deps.Chat.Push(ChatEvent{Peer: from, Text: m.Text})
}

// HandleChatBroadcast queues a received chat line for the presenter.
func HandleChatBroadcast(m packet.ChatBroadcast, deps *Deps) {
	deps.ChatLines.Push(ChatLine{NetID: m.NetID, Name: m.Name, Text: m.Text})
}
