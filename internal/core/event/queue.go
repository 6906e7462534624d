package event

// Queue is a typed FIFO of events produced during a tick and drained, in
// insertion order, by exactly one consumer later in the same tick. It replaces
// a publish/subscribe bus: there are no handlers to register and the drain
// point is fixed by the system that owns it, so ordering is reproducible.
//
// Queues are not safe for concurrent use; producers and the consumer all run
// on the game loop.
type Queue[T any] struct {
	items []T
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{items: make([]T, 0, 16)}
}

// Push appends ev.
func (q *Queue[T]) Push(ev T) {
	q.items = append(q.items, ev)
}

// Drain hands every queued event to fn and empties the queue. Events pushed
// by fn itself are delivered in the same call after the ones already queued.
func (q *Queue[T]) Drain(fn func(T)) {
	for i := 0; i < len(q.items); i++ {
		fn(q.items[i])
	}
	var zero T
	for i := range q.items {
		q.items[i] = zero
	}
	q.items = q.items[:0]
}

// Len returns the number of pending events.
func (q *Queue[T]) Len() int { return len(q.items) }
