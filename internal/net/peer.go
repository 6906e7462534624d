package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridwalk/gridwalk/internal/net/packet"
	"go.uber.org/zap"
)

// PeerID identifies one connection for its lifetime. Ids are never reused
// within a process.
type PeerID = packet.PeerID

// Delivery is the guarantee a send asks for.
type Delivery int

const (
	// Reliable sends are ordered and never silently dropped. A peer that
	// cannot keep up is disconnected instead.
	Reliable Delivery = iota
	// Unreliable sends are dropped when the peer's outbound queue is full.
	Unreliable
)

func (d Delivery) String() string {
	if d == Unreliable {
		return "unreliable"
	}
	return "reliable"
}

type outbound struct {
	data     []byte
	delivery Delivery
}

// Peer represents a single remote connection. Network I/O runs in dedicated
// goroutines; everything else is called from the game loop only.
type Peer struct {
	ID   PeerID
	Addr string
	conn Conn

	InQueue  chan []byte // game loop reads packets from here
	OutQueue chan []byte // writer goroutine reads from here

	outBuf []outbound // buffered packets, flushed by Transport.Flush (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	drainCh    chan struct{} // writer sends what is queued, then closes
	drainOnce  sync.Once
	writerDone chan struct{}

	// Per-second packet rate limiter (readLoop goroutine only, no lock needed)
	pktPerSec  int   // max packets/sec (0 = unlimited)
	pktCount   int   // packets received this second
	pktResetAt int64 // unix second of last counter reset

	writeTimeout time.Duration
	log          *zap.Logger
}

type peerOptions struct {
	inSize       int
	outSize      int
	pktPerSec    int
	writeTimeout time.Duration
}

func newPeer(conn Conn, id PeerID, opts peerOptions, log *zap.Logger) *Peer {
	if opts.writeTimeout <= 0 {
		opts.writeTimeout = 10 * time.Second
	}
	return &Peer{
		ID:           id,
		Addr:         conn.RemoteAddr(),
		conn:         conn,
		InQueue:      make(chan []byte, opts.inSize),
		OutQueue:     make(chan []byte, opts.outSize),
		closeCh:      make(chan struct{}),
		drainCh:      make(chan struct{}),
		writerDone:   make(chan struct{}),
		pktPerSec:    opts.pktPerSec,
		writeTimeout: opts.writeTimeout,
		log:          log.With(zap.Uint32("peer", uint32(id))),
	}
}

// start launches the reader and writer goroutines.
func (p *Peer) start() {
	go p.readLoop()
	go p.writeLoop()
}

// Send buffers a packet. Nothing reaches the socket until FlushOutput.
func (p *Peer) Send(d Delivery, data []byte) {
	if p.closed.Load() {
		return
	}
	p.outBuf = append(p.outBuf, outbound{data: data, delivery: d})
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop
// goroutine. Non-blocking: a full OutQueue drops unreliable packets and
// disconnects the peer on a reliable one (backpressure). Returns the number
// of dropped unreliable packets and whether the peer was disconnected.
func (p *Peer) FlushOutput() (dropped int, disconnected bool) {
	for _, ob := range p.outBuf {
		select {
		case p.OutQueue <- ob.data:
			continue
		default:
		}
		if ob.delivery == Unreliable {
			dropped++
			continue
		}
		p.log.Warn("輸出佇列已滿，斷開慢速連線")
		p.Close()
		p.resetOut()
		return dropped, true
	}
	p.resetOut()
	return dropped, false
}

func (p *Peer) resetOut() {
	for i := range p.outBuf {
		p.outBuf[i] = outbound{}
	}
	p.outBuf = p.outBuf[:0]
}

// Pending returns the number of buffered, unflushed packets.
func (p *Peer) Pending() int { return len(p.outBuf) }

// Drain asks the writer goroutine to write everything already in OutQueue
// and then close the connection. The returned channel is closed once the
// writer has exited.
func (p *Peer) Drain() <-chan struct{} {
	p.drainOnce.Do(func() { close(p.drainCh) })
	return p.writerDone
}

// Close shuts down the connection. Safe from any goroutine.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.closeCh)
		p.conn.Close()
	})
}

func (p *Peer) IsClosed() bool {
	return p.closed.Load()
}

// readLoop runs in its own goroutine. It reads payloads and pushes them onto
// InQueue for the game loop to consume.
func (p *Peer) readLoop() {
	defer p.Close()

	for {
		select {
		case <-p.closeCh:
			return
		default:
		}

		payload, err := p.conn.ReadPayload()
		if err != nil {
			if !p.closed.Load() {
				p.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}

		if p.pktPerSec > 0 {
			now := time.Now().Unix()
			if now != p.pktResetAt {
				p.pktCount = 0
				p.pktResetAt = now
			}
			p.pktCount++
			if p.pktCount > p.pktPerSec {
				p.log.Warn("封包速率超限，斷開連線", zap.Int("pps", p.pktCount))
				return
			}
		}

		// Block until InQueue has space or the peer closes. Dropping inbound
		// packets would lose reliable intents and desync the client.
		select {
		case p.InQueue <- payload:
		case <-p.closeCh:
			return
		}
	}
}

// writeLoop runs in its own goroutine and writes queued payloads in order.
func (p *Peer) writeLoop() {
	defer close(p.writerDone)
	defer p.Close()

	for {
		select {
		case data := <-p.OutQueue:
			if !p.writeOne(data) {
				return
			}
		case <-p.drainCh:
			for {
				select {
				case data := <-p.OutQueue:
					if !p.writeOne(data) {
						return
					}
				default:
					return
				}
			}
		case <-p.closeCh:
			return
		}
	}
}

func (p *Peer) writeOne(data []byte) bool {
	if len(data) > 0 {
		p.log.Debug("TX",
			zap.Stringer("kind", packet.Kind(data[0])),
			zap.Int("len", len(data)),
		)
	}
	if err := p.conn.WritePayload(data, time.Now().Add(p.writeTimeout)); err != nil {
		if !p.closed.Load() {
			p.log.Debug("寫入錯誤", zap.Error(err))
		}
		return false
	}
	return true
}
