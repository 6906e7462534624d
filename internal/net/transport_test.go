package net

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gridwalk/gridwalk/internal/component"
	"github.com/gridwalk/gridwalk/internal/net/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func startPair(t *testing.T, backend string) (*Transport, *Transport) {
	t.Helper()
	srv := NewTransport(Options{Role: RoleServer, Backend: backend, Address: "127.0.0.1:0"}, zap.NewNop())
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)

	cli := NewTransport(Options{Role: RoleClient, Backend: backend, Address: srv.Addr()}, zap.NewNop())
	require.NoError(t, cli.Start())
	t.Cleanup(cli.Close)

	require.Eventually(t, func() bool {
		srv.Poll()
		return srv.Peers().Len() == 1
	}, 2*time.Second, 5*time.Millisecond)
	return srv, cli
}

func TestStartIsIdempotent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := NewTransport(Options{Role: RoleServer, Address: "127.0.0.1:0"}, zap.New(core))
	require.NoError(t, srv.Start())
	defer srv.Close()
	addr := srv.Addr()

	require.NoError(t, srv.Start())
	assert.True(t, srv.IsRunning())
	assert.Equal(t, addr, srv.Addr())
	assert.Equal(t, 1, logs.FilterMessage("傳輸層已在運行，忽略重複啟動").Len())
}

func TestLoopbackDelivery(t *testing.T) {
	for _, backend := range []string{BackendTCP, BackendWebSocket} {
		t.Run(backend, func(t *testing.T) {
			srv, cli := startPair(t, backend)

			var got []packet.MoveIntentRequest
			var from []PeerID
			packet.On(srv.Handlers(), func(m packet.MoveIntentRequest, p PeerID) {
				got = append(got, m)
				from = append(from, p)
			})
			var welcome packet.Welcome
			packet.On(cli.Handlers(), func(m packet.Welcome, _ PeerID) { welcome = m })

			for i := uint32(0); i < 3; i++ {
				cli.Send(Reliable, cli.ServerPeer(), packet.MoveIntentRequest{SequenceID: i, Direction: component.GridDelta{X: 1}})
			}
			cli.Flush()
			require.Eventually(t, func() bool {
				srv.Poll()
				return len(got) == 3
			}, 2*time.Second, 5*time.Millisecond)
			for i, m := range got {
				assert.Equal(t, uint32(i), m.SequenceID, "ordered delivery")
			}
			peer := from[0]

			srv.Send(Reliable, peer, packet.Welcome{NetID: 7, MapWidth: 10, MapHeight: 10, TileSize: 32})
			srv.Flush()
			require.Eventually(t, func() bool {
				cli.Poll()
				return welcome.NetID == 7
			}, 2*time.Second, 5*time.Millisecond)
		})
	}
}

func TestDisconnectIsReported(t *testing.T) {
	srv, cli := startPair(t, BackendTCP)
	var connected []PeerConnected
	srv.Peers().Connected.Drain(func(ev PeerConnected) { connected = append(connected, ev) })
	require.Len(t, connected, 1)
	id := connected[0].Peer
	assert.True(t, srv.Peers().IsConnected(id))

	cli.Close()
	var gone []PeerDisconnected
	require.Eventually(t, func() bool {
		srv.Poll()
		srv.Peers().Disconnected.Drain(func(ev PeerDisconnected) { gone = append(gone, ev) })
		return len(gone) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, id, gone[0].Peer)
	assert.False(t, srv.Peers().IsConnected(id))
	assert.Zero(t, srv.Peers().Len())
}

func TestBroadcastExceptSkipsOrigin(t *testing.T) {
	reg := NewPeerRegistry()
	tr := NewTransport(Options{Role: RoleServer}, zap.NewNop())
	tr.peers = reg
	a := newPeer(&fakeConn{}, 1, peerOptions{inSize: 1, outSize: 8}, zap.NewNop())
	b := newPeer(&fakeConn{}, 2, peerOptions{inSize: 1, outSize: 8}, zap.NewNop())
	reg.add(a)
	reg.add(b)

	tr.BroadcastExcept(Reliable, 1, packet.PlayerLeft{NetID: 3})
	assert.Zero(t, a.Pending())
	assert.Equal(t, 1, b.Pending())

	tr.Broadcast(Reliable, packet.PlayerLeft{NetID: 4})
	assert.Equal(t, 1, a.Pending())
	assert.Equal(t, 2, b.Pending())

	tr.Flush()
	assert.Zero(t, b.Pending())
	assert.Len(t, b.OutQueue, 2)
}

func TestFlushDeliveryClasses(t *testing.T) {
	p := newPeer(&fakeConn{}, 1, peerOptions{inSize: 1, outSize: 1}, zap.NewNop())
	for i := 0; i < 3; i++ {
		p.Send(Unreliable, []byte{byte(packet.KindPlayerLeft)})
	}
	dropped, disconnected := p.FlushOutput()
	assert.Equal(t, 2, dropped)
	assert.False(t, disconnected)
	assert.False(t, p.IsClosed())

	p.Send(Reliable, []byte{byte(packet.KindPlayerLeft)})
	_, disconnected = p.FlushOutput()
	assert.True(t, disconnected, "reliable overflow disconnects instead of dropping")
	assert.True(t, p.IsClosed())

	p.Send(Reliable, []byte{1})
	assert.Zero(t, p.Pending(), "closed peers buffer nothing")
}

func TestFrameRejectsBadLength(t *testing.T) {
	var buf fakeBuffer
	require.Error(t, WriteFrame(&buf, nil))
	require.NoError(t, WriteFrame(&buf, []byte{5, 6}))
	assert.Equal(t, []byte{4, 0, 5, 6}, buf.data)

	payload, err := ReadFrame(&fakeBuffer{data: buf.data})
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6}, payload)

	_, err = ReadFrame(&fakeBuffer{data: []byte{2, 0}})
	assert.Error(t, err)
}

type fakeConn struct {
	closed atomic.Bool
}

func (f *fakeConn) ReadPayload() ([]byte, error) { return nil, errors.New("not readable") }
func (f *fakeConn) WritePayload([]byte, time.Time) error {
	return nil
}
func (f *fakeConn) RemoteAddr() string { return "fake" }
func (f *fakeConn) Close() error {
	f.closed.Store(true)
	return nil
}

type fakeBuffer struct {
	data []byte
}

func (b *fakeBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *fakeBuffer) Read(p []byte) (int, error) {
	if len(b.data) == 0 {
		return 0, errors.New("eof")
	}
	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}

func TestMalformedPayloadKeepsPeer(t *testing.T) {
	srv := NewTransport(Options{Role: RoleServer, Address: "127.0.0.1:0"}, zap.NewNop())
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)

	var chats []string
	var from PeerID
	packet.On(srv.Handlers(), func(m packet.ChatRequest, p PeerID) {
		chats = append(chats, m.Text)
		from = p
	})

	conn, err := DialTCP(srv.Addr(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	require.NoError(t, conn.WritePayload([]byte{0xFF}, deadline))
	require.NoError(t, conn.WritePayload(packet.Encode(packet.ChatRequest{Text: "hi"}), deadline))

	require.Eventually(t, func() bool {
		srv.Poll()
		return len(chats) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "hi", chats[0])
	assert.True(t, srv.Peers().IsConnected(from))
}

func TestShutdownDrainsQueuedFrames(t *testing.T) {
	srv, cli := startPair(t, BackendTCP)
	peer := srv.Peers().IDs()[0]

	var left []int32
	packet.On(cli.Handlers(), func(m packet.PlayerLeft, _ PeerID) { left = append(left, m.NetID) })

	for i := int32(1); i <= 20; i++ {
		srv.Send(Reliable, peer, packet.PlayerLeft{NetID: i})
	}
	srv.Shutdown(time.Second)
	assert.False(t, srv.IsRunning())

	require.Eventually(t, func() bool {
		cli.Poll()
		return len(left) == 20
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(20), left[19])
}
