package net

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a message-oriented connection: every ReadPayload returns exactly
// one payload written by the remote WritePayload. TCP gets there by length
// framing, WebSocket by binary messages.
type Conn interface {
	ReadPayload() ([]byte, error)
	WritePayload(data []byte, deadline time.Time) error
	RemoteAddr() string
	Close() error
}

type tcpConn struct {
	c net.Conn
}

func (t *tcpConn) ReadPayload() ([]byte, error) { return ReadFrame(t.c) }

func (t *tcpConn) WritePayload(data []byte, deadline time.Time) error {
	t.c.SetWriteDeadline(deadline)
	return WriteFrame(t.c, data)
}

func (t *tcpConn) RemoteAddr() string { return t.c.RemoteAddr().String() }
func (t *tcpConn) Close() error       { return t.c.Close() }

type wsConn struct {
	ws *websocket.Conn
}

func (w *wsConn) ReadPayload() ([]byte, error) {
	for {
		mt, payload, err := w.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		if len(payload) == 0 || len(payload) > MaxPayload {
			return nil, fmt.Errorf("invalid message length: %d", len(payload))
		}
		return payload, nil
	}
}

func (w *wsConn) WritePayload(data []byte, deadline time.Time) error {
	w.ws.SetWriteDeadline(deadline)
	return w.ws.WriteMessage(websocket.BinaryMessage, data)
}

func (w *wsConn) RemoteAddr() string { return w.ws.RemoteAddr().String() }
func (w *wsConn) Close() error       { return w.ws.Close() }

// Listener hands out accepted connections.
type Listener interface {
	Accept() (Conn, error)
	Addr() string
	Close() error
}

var errListenerClosed = errors.New("listener closed")

type tcpListener struct {
	ln net.Listener
}

// ListenTCP listens for framed TCP connections on addr.
func ListenTCP(addr string) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", addr, err)
	}
	return &tcpListener{ln: ln}, nil
}

func (l *tcpListener) Accept() (Conn, error) {
	c, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return &tcpConn{c: c}, nil
}

func (l *tcpListener) Addr() string { return l.ln.Addr().String() }
func (l *tcpListener) Close() error { return l.ln.Close() }

// wsListener serves HTTP on its own socket and upgrades requests on path.
type wsListener struct {
	ln       net.Listener
	srv      *http.Server
	upgrader websocket.Upgrader
	conns    chan Conn
	closeCh  chan struct{}
	once     sync.Once
}

// ListenWebSocket accepts WebSocket connections at ws://addr/path.
func ListenWebSocket(addr, path string) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen websocket %s: %w", addr, err)
	}
	l := &wsListener{
		ln: ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns:   make(chan Conn, 16),
		closeCh: make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, l.handle)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go l.srv.Serve(ln)
	return l, nil
}

func (l *wsListener) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	select {
	case l.conns <- &wsConn{ws: ws}:
	case <-l.closeCh:
		ws.Close()
	}
}

func (l *wsListener) Accept() (Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closeCh:
		return nil, errListenerClosed
	}
}

func (l *wsListener) Addr() string { return l.ln.Addr().String() }

func (l *wsListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.closeCh)
		err = l.srv.Close()
	})
	return err
}

// DialTCP connects to a framed TCP server.
func DialTCP(addr string, timeout time.Duration) (Conn, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", addr, err)
	}
	return &tcpConn{c: c}, nil
}

// DialWebSocket connects to ws://addr/path.
func DialWebSocket(addr, path string, timeout time.Duration) (Conn, error) {
	d := websocket.Dialer{HandshakeTimeout: timeout}
	url := "ws://" + addr + path
	ws, _, err := d.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket %s: %w", url, err)
	}
	return &wsConn{ws: ws}, nil
}
