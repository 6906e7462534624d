package system

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type probe struct {
	name     string
	phase    Phase
	log      *[]string
	initErr  error
	disposed int
}

func (p *probe) Phase() Phase { return p.phase }

func (p *probe) Update(time.Duration) { *p.log = append(*p.log, "update:"+p.name) }

func (p *probe) Initialize() error {
	*p.log = append(*p.log, "init:"+p.name)
	return p.initErr
}

func (p *probe) Dispose() {
	p.disposed++
	*p.log = append(*p.log, "dispose:"+p.name)
}

func TestTickRunsPhasesInOrderAndKeepsRegistrationOrder(t *testing.T) {
	var log []string
	r := NewRunner(zap.NewNop())
	r.Register(&probe{name: "send", phase: PhaseSend, log: &log})
	r.Register(&probe{name: "intent", phase: PhasePhysics, log: &log})
	r.Register(&probe{name: "chat", phase: PhaseProcess, log: &log})
	r.Register(&probe{name: "progress", phase: PhasePhysics, log: &log})
	r.Register(&probe{name: "poll", phase: PhaseReceive, log: &log})

	r.Tick(50 * time.Millisecond)

	assert.Equal(t, []string{
		"update:poll",
		"update:intent",
		"update:progress",
		"update:chat",
		"update:send",
	}, log)
}

func TestInitializeAndDisposeFollowPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner(zap.NewNop())
	send := &probe{name: "send", phase: PhaseSend, log: &log}
	poll := &probe{name: "poll", phase: PhaseReceive, log: &log}
	r.Register(send)
	r.Register(poll)

	require.NoError(t, r.Initialize())
	r.Dispose()
	r.Dispose()

	assert.Equal(t, []string{"init:poll", "init:send", "dispose:poll", "dispose:send"}, log)
	assert.Equal(t, 1, send.disposed)
	assert.Equal(t, 1, poll.disposed)
}

func TestInitializeFailureDisposesOnlyInitializedSystems(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	r := NewRunner(zap.NewNop())
	poll := &probe{name: "poll", phase: PhaseReceive, log: &log}
	bad := &probe{name: "bad", phase: PhasePhysics, log: &log, initErr: boom}
	send := &probe{name: "send", phase: PhaseSend, log: &log}
	r.Register(poll)
	r.Register(bad)
	r.Register(send)

	err := r.Initialize()
	require.ErrorIs(t, err, boom)

	r.Dispose()
	assert.Equal(t, []string{"init:poll", "init:bad", "dispose:poll"}, log)
	assert.Equal(t, 1, poll.disposed)
	assert.Zero(t, bad.disposed)
	assert.Zero(t, send.disposed)
}
