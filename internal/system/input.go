package system

import (
	"time"

	"github.com/gridwalk/gridwalk/internal/component"
	coresys "github.com/gridwalk/gridwalk/internal/core/system"
	"github.com/gridwalk/gridwalk/internal/handler"
	"github.com/gridwalk/gridwalk/internal/movement"
	"github.com/gridwalk/gridwalk/internal/net"
	"github.com/gridwalk/gridwalk/internal/net/packet"
	"go.uber.org/zap"
)

// Poller is the transport's per-tick receive step.
type Poller interface {
	Poll()
}

// ReceiveSystem polls the transport: new peers are registered, queued
// packets dispatched to handlers, dead peers reported. Phase 0 (Receive),
// always the first system of a tick.
type ReceiveSystem struct {
	poller Poller
}

func NewReceiveSystem(p Poller) *ReceiveSystem {
	return &ReceiveSystem{poller: p}
}

func (s *ReceiveSystem) Phase() coresys.Phase { return coresys.PhaseReceive }

func (s *ReceiveSystem) Update(_ time.Duration) {
	s.poller.Poll()
}

// InputSystem turns directions captured by the presentation layer into
// intents on the local player. Directions arrive on a channel because the
// terminal reads keys on its own goroutine. Phase 0 (Receive).
type InputSystem struct {
	input <-chan component.GridDelta
	deps  *handler.Deps
}

func NewInputSystem(input <-chan component.GridDelta, deps *handler.Deps) *InputSystem {
	return &InputSystem{input: input, deps: deps}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseReceive }

func (s *InputSystem) Update(_ time.Duration) {
	for {
		select {
		case dir := <-s.input:
			if !movement.CaptureLocalIntent(s.deps.World, dir) {
				s.deps.Log.Debug("輸入被忽略", zap.Int32("dx", dir.X), zap.Int32("dy", dir.Y))
			}
		default:
			return
		}
	}
}

// ChatInputSystem sends lines typed by the user to the server as
// ChatRequest. Lines typed before Welcome are discarded. Phase 0 (Receive).
type ChatInputSystem struct {
	lines <-chan string
	deps  *handler.Deps
}

func NewChatInputSystem(lines <-chan string, deps *handler.Deps) *ChatInputSystem {
	return &ChatInputSystem{lines: lines, deps: deps}
}

func (s *ChatInputSystem) Phase() coresys.Phase { return coresys.PhaseReceive }

func (s *ChatInputSystem) Update(_ time.Duration) {
	for {
		select {
		case line := <-s.lines:
			if !s.deps.Welcomed || line == "" {
				continue
			}
			s.deps.Net.Send(net.Reliable, s.deps.ServerPeer, packet.ChatRequest{Text: line})
		default:
			return
		}
	}
}
