package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// PeerID identifies the connection a packet arrived on. The transport assigns
// ids starting at 1; 0 means no peer.
type PeerID uint32

type handlerEntry struct {
	id uint64
	fn func(Message, PeerID)
}

// Registry maps message kinds to typed handlers. A packet with no handler is
// ignored. Decode errors and handler panics are logged and returned from
// Dispatch, never propagated as panics.
type Registry struct {
	handlers [kindCount][]handlerEntry
	nextID   uint64
	disposed bool
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log}
}

// Subscription is returned by On. Dispose removes exactly that handler.
type Subscription struct {
	reg  *Registry
	kind Kind
	id   uint64
}

// Dispose unregisters the handler. Safe to call repeatedly and after the
// registry itself was disposed.
func (s *Subscription) Dispose() {
	if s == nil || s.reg == nil {
		return
	}
	s.reg.remove(s.kind, s.id)
	s.reg = nil
}

// On registers fn for messages of type T. Registering on a disposed registry
// returns an inert subscription.
func On[T Message](reg *Registry, fn func(msg T, from PeerID)) *Subscription {
	var zero T
	kind := zero.Kind()
	if reg.disposed {
		return &Subscription{}
	}
	reg.nextID++
	id := reg.nextID
	reg.handlers[kind] = append(reg.handlers[kind], handlerEntry{
		id: id,
		fn: func(m Message, from PeerID) { fn(m.(T), from) },
	})
	return &Subscription{reg: reg, kind: kind, id: id}
}

func (reg *Registry) remove(kind Kind, id uint64) {
	list := reg.handlers[kind]
	for i, h := range list {
		if h.id == id {
			// copy so an in-flight Dispatch keeps its own snapshot
			next := make([]handlerEntry, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			reg.handlers[kind] = next
			return
		}
	}
}

// Handlers returns the number of handlers registered for k.
func (reg *Registry) Handlers(k Kind) int {
	if k >= kindCount {
		return 0
	}
	return len(reg.handlers[k])
}

// Dispose drops every handler. Outstanding subscriptions become no-ops.
func (reg *Registry) Dispose() {
	reg.disposed = true
	for k := range reg.handlers {
		reg.handlers[k] = nil
	}
}

// Dispatch decodes data and invokes every handler registered for its kind, in
// registration order. A panicking handler does not stop the others.
func (reg *Registry) Dispatch(from PeerID, data []byte) error {
	msg, err := Decode(data)
	if err != nil {
		reg.log.Warn("封包解碼失敗",
			zap.Uint32("peer", uint32(from)),
			zap.Int("size", len(data)),
			zap.Error(err),
		)
		return err
	}
	kind := msg.Kind()
	reg.log.Debug("收到封包",
		zap.Uint32("peer", uint32(from)),
		zap.Stringer("kind", kind),
		zap.Int("size", len(data)),
	)

	handlers := reg.handlers[kind]
	if len(handlers) == 0 {
		reg.log.Debug("無處理器", zap.Stringer("kind", kind))
		return nil
	}
	var first error
	for _, h := range handlers {
		if err := reg.safeCall(h.fn, msg, from); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// safeCall executes a handler with panic recovery to prevent a single
// bad packet from crashing the entire game loop.
func (reg *Registry) safeCall(fn func(Message, PeerID), msg Message, from PeerID) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("處理器 panic 已恢復",
				zap.Stringer("kind", msg.Kind()),
				zap.Uint32("peer", uint32(from)),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for %s: %v", msg.Kind(), rec)
		}
	}()
	fn(msg, from)
	return nil
}
