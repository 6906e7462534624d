package net

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/armon/go-metrics"
	"github.com/gridwalk/gridwalk/internal/net/packet"
	"go.uber.org/zap"
)

// Role selects whether Start listens or dials.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// Backend names accepted in Options.Backend.
const (
	BackendTCP       = "tcp"
	BackendWebSocket = "websocket"
)

// Options configures a Transport. Address is the bind address for a server
// and the dial target for a client.
type Options struct {
	Role              Role
	Backend           string
	Address           string
	WSPath            string
	InQueueSize       int
	OutQueueSize      int
	MaxPacketsPerTick int
	PacketsPerSecond  int
	WriteTimeout      time.Duration
	DialTimeout       time.Duration
}

// Transport moves packets between the game loop and remote peers. It must only
// be used from the game loop goroutine.
type Transport struct {
	opts     Options
	handlers *packet.Registry
	peers    *PeerRegistry

	running atomic.Bool
	server  *Server
	nextID  atomic.Uint32
	remote  PeerID // client role: the server connection

	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewTransport(opts Options, log *zap.Logger) *Transport {
	if opts.Backend == "" {
		opts.Backend = BackendTCP
	}
	if opts.WSPath == "" {
		opts.WSPath = "/ws"
	}
	if opts.InQueueSize <= 0 {
		opts.InQueueSize = 128
	}
	if opts.OutQueueSize <= 0 {
		opts.OutQueueSize = 256
	}
	if opts.MaxPacketsPerTick <= 0 {
		opts.MaxPacketsPerTick = 32
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &Transport{
		opts:     opts,
		handlers: packet.NewRegistry(log.Named("packet")),
		peers:    NewPeerRegistry(),
		log:      log,
	}
}

// SetMetrics enables transport counters.
func (t *Transport) SetMetrics(m *metrics.Metrics) {
	t.metrics = m
}

// Handlers returns the packet registry Poll dispatches into.
func (t *Transport) Handlers() *packet.Registry { return t.handlers }

// Peers returns the registry of connected peers.
func (t *Transport) Peers() *PeerRegistry { return t.peers }

// IsRunning reports whether Start succeeded and Close has not been called.
func (t *Transport) IsRunning() bool { return t.running.Load() }

// Start listens (server) or dials (client). Calling it again while running
// only logs; it never fails or opens a second socket.
func (t *Transport) Start() error {
	if !t.running.CompareAndSwap(false, true) {
		t.log.Info("傳輸層已在運行，忽略重複啟動", zap.String("addr", t.opts.Address))
		return nil
	}
	var err error
	if t.opts.Role == RoleServer {
		err = t.startServer()
	} else {
		err = t.startClient()
	}
	if err != nil {
		t.running.Store(false)
		return err
	}
	return nil
}

func (t *Transport) peerOptions() peerOptions {
	return peerOptions{
		inSize:       t.opts.InQueueSize,
		outSize:      t.opts.OutQueueSize,
		pktPerSec:    t.opts.PacketsPerSecond,
		writeTimeout: t.opts.WriteTimeout,
	}
}

func (t *Transport) startServer() error {
	var (
		ln  Listener
		err error
	)
	switch t.opts.Backend {
	case BackendTCP:
		ln, err = ListenTCP(t.opts.Address)
	case BackendWebSocket:
		ln, err = ListenWebSocket(t.opts.Address, t.opts.WSPath)
	default:
		return fmt.Errorf("unknown transport backend %q", t.opts.Backend)
	}
	if err != nil {
		return err
	}
	t.server = newServer(ln, &t.nextID, t.peerOptions(), t.log)
	go t.server.AcceptLoop()
	t.log.Info("伺服器監聽中",
		zap.String("backend", t.opts.Backend),
		zap.String("addr", ln.Addr()),
	)
	return nil
}

func (t *Transport) startClient() error {
	var (
		conn Conn
		err  error
	)
	switch t.opts.Backend {
	case BackendTCP:
		conn, err = DialTCP(t.opts.Address, t.opts.DialTimeout)
	case BackendWebSocket:
		conn, err = DialWebSocket(t.opts.Address, t.opts.WSPath, t.opts.DialTimeout)
	default:
		return fmt.Errorf("unknown transport backend %q", t.opts.Backend)
	}
	if err != nil {
		return err
	}
	// Client peers skip the rate limiter; the server is trusted.
	opts := t.peerOptions()
	opts.pktPerSec = 0
	p := newPeer(conn, PeerID(t.nextID.Add(1)), opts, t.log)
	p.start()
	t.remote = p.ID
	t.peers.add(p)
	t.log.Info("已連線至伺服器",
		zap.String("backend", t.opts.Backend),
		zap.String("addr", t.opts.Address),
	)
	return nil
}

// Addr returns the listening address (server) or the dial target (client).
func (t *Transport) Addr() string {
	if t.server != nil {
		return t.server.Addr()
	}
	return t.opts.Address
}

// ServerPeer returns the id of the connection to the server. Zero on a
// server transport or before Start.
func (t *Transport) ServerPeer() PeerID { return t.remote }

// Poll registers newly accepted peers, drains up to MaxPacketsPerTick
// payloads from every peer into the handler registry, and unregisters peers
// whose connection has closed. It never blocks.
func (t *Transport) Poll() {
	if t.server != nil {
	accept:
		for {
			select {
			case p := <-t.server.NewPeers():
				t.peers.add(p)
			default:
				break accept
			}
		}
	}

	var dead []PeerID
	t.peers.Each(func(p *Peer) {
		for i := 0; i < t.opts.MaxPacketsPerTick; i++ {
			select {
			case data := <-p.InQueue:
				// errors are logged by the registry; the peer stays up
				_ = t.handlers.Dispatch(p.ID, data)
				continue
			default:
			}
			break
		}
		if p.IsClosed() && len(p.InQueue) == 0 {
			dead = append(dead, p.ID)
		}
	})
	for _, id := range dead {
		t.peers.remove(id)
		t.log.Info("玩家斷線", zap.Uint32("peer", uint32(id)))
	}
}

// Send buffers msg for one peer. Unknown or closed peers are ignored.
func (t *Transport) Send(d Delivery, to PeerID, msg packet.Message) {
	p, ok := t.peers.Get(to)
	if !ok {
		return
	}
	p.Send(d, packet.Encode(msg))
}

// Broadcast buffers msg for every connected peer.
func (t *Transport) Broadcast(d Delivery, msg packet.Message) {
	t.BroadcastExcept(d, 0, msg)
}

// BroadcastExcept buffers msg for every connected peer other than except.
func (t *Transport) BroadcastExcept(d Delivery, except PeerID, msg packet.Message) {
	if t.peers.Len() == 0 {
		return
	}
	data := packet.Encode(msg)
	t.peers.Each(func(p *Peer) {
		if p.ID != except {
			p.Send(d, data)
		}
	})
}

// Flush hands every peer's buffered packets to its writer goroutine. Called
// once per tick, after all systems that send.
func (t *Transport) Flush() {
	t.peers.Each(func(p *Peer) {
		dropped, disconnected := p.FlushOutput()
		if t.metrics == nil {
			return
		}
		if dropped > 0 {
			t.metrics.IncrCounter([]string{"net", "dropped_unreliable"}, float32(dropped))
		}
		if disconnected {
			t.metrics.IncrCounter([]string{"net", "backpressure_disconnect"}, 1)
		}
	})
}

// Disconnect closes one peer. It is unregistered by the next Poll.
func (t *Transport) Disconnect(id PeerID) {
	if p, ok := t.peers.Get(id); ok {
		p.Close()
	}
}

// Shutdown flushes buffered sends, waits up to timeout for every writer to
// put its queued frames on the wire, then closes the transport.
func (t *Transport) Shutdown(timeout time.Duration) {
	if !t.running.Load() {
		return
	}
	t.Flush()

	var writers []<-chan struct{}
	t.peers.Each(func(p *Peer) { writers = append(writers, p.Drain()) })

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
wait:
	for _, done := range writers {
		select {
		case <-done:
		case <-deadline.C:
			t.log.Warn("等待輸出佇列逾時，強制關閉", zap.Duration("timeout", timeout))
			break wait
		}
	}
	t.Close()
}

// Close stops accepting and closes every connection. Peers are unregistered
// by the next Poll, so disconnect events still reach the lifecycle systems.
func (t *Transport) Close() {
	if !t.running.CompareAndSwap(true, false) {
		return
	}
	if t.server != nil {
		t.server.Shutdown()
	}
	t.peers.Each(func(p *Peer) { p.Close() })
	t.log.Info("傳輸層已關閉")
}
