package queue

import (
	"sync/atomic"
)

// OverflowPolicy controls what happens when a bounded queue is full.
type OverflowPolicy int

const (
	// DropNewest rejects the incoming item and keeps the queue as-is.
	DropNewest OverflowPolicy = iota
	// DropOldest evicts the least-recent item to admit the incoming one.
	DropOldest
)

// Bounded is a fixed-capacity FIFO queue backed by a channel. Pushes never
// block: overflow is resolved by the configured policy. Delivery order to the
// consumer is FIFO relative to admitted pushes.
type Bounded[T any] struct {
	ch     chan T
	policy OverflowPolicy
	drops  atomic.Int64
}

// Option configures a Bounded queue.
type Option[T any] func(*Bounded[T])

// WithPolicy sets the overflow policy.
func WithPolicy[T any](p OverflowPolicy) Option[T] {
	return func(q *Bounded[T]) { q.policy = p }
}

// NewBounded creates a bounded queue with the given capacity.
func NewBounded[T any](capacity int, opts ...Option[T]) *Bounded[T] {
	if capacity <= 0 {
		capacity = 1
	}
	q := &Bounded[T]{ch: make(chan T, capacity)}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push offers an item and reports whether anything was dropped to admit it.
// Under DropNewest the incoming item itself is the casualty; under DropOldest
// the head of the queue is evicted first.
func (q *Bounded[T]) Push(v T) (dropped bool) {
	select {
	case q.ch <- v:
		return false
	default:
	}

	q.drops.Add(1)
	if q.policy == DropNewest {
		return true
	}

	// Evict the head and retry until the item lands. With a second producer
	// on the same queue the freed slot can be taken before the retry, so a
	// single attempt could drop the incoming item instead of the oldest.
	for {
		select {
		case <-q.ch:
		default:
		}
		select {
		case q.ch <- v:
			return true
		default:
		}
	}
}

// C exposes the receive side for the consumer.
func (q *Bounded[T]) C() <-chan T { return q.ch }

// Len returns the number of queued items.
func (q *Bounded[T]) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Bounded[T]) Cap() int { return cap(q.ch) }

// Drops returns the total number of items dropped so far.
func (q *Bounded[T]) Drops() int64 { return q.drops.Load() }
