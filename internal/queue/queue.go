// Package queue provides the bounded FIFO that buffers outgoing class events.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO with an optional capacity and a
// wake-up channel for a single consumer.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	limit int // 0 means unbounded

	ready chan struct{}
}

// New creates a new empty queue. A limit of zero or less means unbounded.
func New[T any](limit int) *Queue[T] {
	if limit < 0 {
		limit = 0
	}
	return &Queue[T]{
		items: make([]T, 0),
		limit: limit,
		ready: make(chan struct{}, 1),
	}
}

// Push appends items that fit under the limit and returns how many were
// dropped because the queue was full.
func (q *Queue[T]) Push(items ...T) (dropped int) {
	q.mu.Lock()
	for _, item := range items {
		if q.limit > 0 && len(q.items) >= q.limit {
			dropped++
			continue
		}
		q.items = append(q.items, item)
	}
	q.mu.Unlock()

	if dropped < len(items) {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return dropped
}

// Ready receives a value after a Push has added items. Several pushes may
// collapse into one wake-up, so consumers drain with GetAndEmpty.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// GetAndEmpty returns all items and clears the queue.
func (q *Queue[T]) GetAndEmpty() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}
