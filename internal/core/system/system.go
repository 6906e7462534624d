package system

import (
	"fmt"
	"time"
)

// Phase is a system group. Groups run strictly in ascending order every tick.
type Phase int

const (
	PhaseReceive Phase = iota // 0: poll transport, dispatch packets, peer lifecycle
	PhasePhysics              // 1: movement intents, then progress integration
	PhaseProcess              // 2: non-movement game logic, presentation
	PhaseSend                 // 3: flush buffered sends
)

func (p Phase) String() string {
	switch p {
	case PhaseReceive:
		return "receive"
	case PhasePhysics:
		return "physics"
	case PhaseProcess:
		return "process"
	case PhaseSend:
		return "send"
	default:
		return fmt.Sprintf("phase%d", int(p))
	}
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Initializer is implemented by systems that acquire resources before the
// first tick.
type Initializer interface {
	Initialize() error
}

// Disposer is implemented by systems that release resources on shutdown.
type Disposer interface {
	Dispose()
}
