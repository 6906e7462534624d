package system

import (
	"time"

	coresys "github.com/gridwalk/gridwalk/internal/core/system"
	"github.com/gridwalk/gridwalk/internal/handler"
	"github.com/gridwalk/gridwalk/internal/net"
	"github.com/gridwalk/gridwalk/internal/net/packet"
	"github.com/gridwalk/gridwalk/internal/world"
	"go.uber.org/zap"
)

// MaxChatRunes caps a chat line after normalization.
const MaxChatRunes = 200

// ChatSystem cleans queued chat lines, runs them through the script hook and
// broadcasts the survivors to every peer. Phase 2 (Process).
type ChatSystem struct {
	deps *handler.Deps
}

func NewChatSystem(deps *handler.Deps) *ChatSystem {
	return &ChatSystem{deps: deps}
}

func (s *ChatSystem) Phase() coresys.Phase { return coresys.PhaseProcess }

func (s *ChatSystem) Update(_ time.Duration) {
	w := s.deps.World
	s.deps.Chat.Drain(func(ev handler.ChatEvent) {
		e, ok := w.EntityOfPeer(uint32(ev.Peer))
		if !ok {
			return
		}
		netID, _ := w.NetIDOf(e)
		name := ""
		if p, ok := w.Profiles.Get(e); ok {
			name = p.Name
		}

		text := world.CleanText(ev.Text, MaxChatRunes)
		if text == "" {
			return
		}
		if s.deps.Scripting != nil {
			out, keep := s.deps.Scripting.OnChat(name, text)
			if !keep {
				s.deps.Log.Debug("聊天訊息被腳本攔截", zap.String("name", name))
				return
			}
			text = world.CleanText(out, MaxChatRunes)
			if text == "" {
				return
			}
		}

		s.deps.Log.Debug("聊天", zap.String("name", name), zap.String("text", text))
		s.deps.Net.Broadcast(net.Reliable, packet.ChatBroadcast{NetID: netID, Name: name, Text: text})
		if s.deps.Metrics != nil {
			s.deps.Metrics.IncrCounter([]string{"chat", "broadcasts"}, 1)
		}
	})
}
