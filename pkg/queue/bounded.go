// Package queue provides the bounded drop-oldest mailbox that connects the
// stages of the linguaflow pipeline.
//
// Every stage communicates exclusively through a [Bounded] queue. The overflow
// policy is drop-oldest: a producer never blocks, and when the queue is full
// the oldest retained item is evicted to admit the new one. Live captioning
// only cares about recent speech, so buffering stale audio or text without
// bound is worse than losing it — overflow is a normal, logged condition, not
// an error.
//
// All methods are safe for concurrent use.
package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// Bounded is a fixed-capacity FIFO queue with drop-oldest overflow semantics.
//
// Send never blocks and never fails. Receive blocks the calling goroutine
// until an item arrives or the timeout elapses, which keeps consumer loops
// cooperatively cancellable without busy polling.
type Bounded[T any] struct {
	// mu serialises producers so that evict-oldest and insert-new happen as
	// one atomic step; a racing consumer can only shrink occupancy, never
	// grow it past capacity.
	mu      sync.Mutex
	items   chan T
	dropped atomic.Int64
}

// NewBounded creates a queue that retains at most capacity items.
// A capacity below 1 is raised to 1.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[T]{items: make(chan T, capacity)}
}

// Send enqueues item, evicting the oldest retained item first when the queue
// is full. It reports whether an eviction happened so callers can log or
// count the overflow.
func (q *Bounded[T]) Send(item T) (evicted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		select {
		case q.items <- item:
			return evicted
		default:
		}
		select {
		case <-q.items:
			evicted = true
			q.dropped.Add(1)
		default:
			// A consumer raced us to the oldest item; retry the send.
		}
	}
}

// Receive waits up to timeout for the next item. The second return value is
// false when the timeout elapsed with nothing available — an empty receive,
// not an error. A non-positive timeout makes Receive a non-blocking poll.
func (q *Bounded[T]) Receive(timeout time.Duration) (T, bool) {
	if timeout <= 0 {
		select {
		case v := <-q.items:
			return v, true
		default:
			var zero T
			return zero, false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-q.items:
		return v, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Len returns the current occupancy. Always in [0, Cap].
func (q *Bounded[T]) Len() int { return len(q.items) }

// Cap returns the fixed capacity.
func (q *Bounded[T]) Cap() int { return cap(q.items) }

// Dropped returns the total number of items evicted by overflow since the
// queue was created.
func (q *Bounded[T]) Dropped() int64 { return q.dropped.Load() }

// Drain discards all currently queued items and returns how many were removed.
// Items arriving concurrently with Drain may survive.
func (q *Bounded[T]) Drain() int {
	n := 0
	for {
		select {
		case <-q.items:
			n++
		default:
			return n
		}
	}
}
