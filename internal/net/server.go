package net

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server accepts connections and creates Peers. New peers are handed to the
// game loop through a channel; Transport.Poll registers them.
type Server struct {
	listener Listener
	nextID   *atomic.Uint32
	newConns chan *Peer
	opts     peerOptions
	log      *zap.Logger
	closeCh  chan struct{}
	closed   atomic.Bool
}

func newServer(ln Listener, nextID *atomic.Uint32, opts peerOptions, log *zap.Logger) *Server {
	return &Server{
		listener: ln,
		nextID:   nextID,
		newConns: make(chan *Peer, 64),
		opts:     opts,
		log:      log,
		closeCh:  make(chan struct{}),
	}
}

// AcceptLoop runs in its own goroutine. It accepts connections, starts their
// I/O goroutines and pushes them onto the newConns channel.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return // server shutting down
			default:
			}
			if errors.Is(err, errListenerClosed) {
				return
			}
			s.log.Error("連線接受失敗", zap.Error(err))
			continue
		}

		id := PeerID(s.nextID.Add(1))
		p := newPeer(conn, id, s.opts, s.log)
		p.start()

		s.log.Info("玩家連線", zap.Uint32("peer", uint32(id)), zap.String("ip", p.Addr))

		select {
		case s.newConns <- p:
		default:
			s.log.Warn("連線佇列已滿，拒絕新連線")
			p.Close()
		}
	}
}

// NewPeers returns the channel of newly connected peers.
func (s *Server) NewPeers() <-chan *Peer {
	return s.newConns
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() string {
	return s.listener.Addr()
}
