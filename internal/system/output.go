package system

import (
	"time"

	coresys "github.com/gridwalk/gridwalk/internal/core/system"
)

// Flusher is the transport's per-tick send step.
type Flusher interface {
	Flush()
}

// SendSystem flushes buffered output packets for all peers.
// Phase 3 (Send), after all game logic.
//
// During the earlier phases, handlers and systems call Send/Broadcast which
// append packets to per-peer buffers. SendSystem drains these buffers into
// the writer goroutines' queues in one place per tick.
type SendSystem struct {
	flusher Flusher
}

func NewSendSystem(f Flusher) *SendSystem {
	return &SendSystem{flusher: f}
}

func (s *SendSystem) Phase() coresys.Phase { return coresys.PhaseSend }

func (s *SendSystem) Update(_ time.Duration) {
	s.flusher.Flush()
}
