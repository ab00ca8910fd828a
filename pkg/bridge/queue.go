package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/jarvis/pkg/domain"
)

// ErrQueueClosed is returned by Pop once the queue is closed and empty.
var ErrQueueClosed = errors.New("queue closed")

// Queue is an unbounded FIFO of events for one producer and one consumer.
type Queue struct {
	mu     sync.Mutex
	items  []domain.Event
	closed bool
	notify chan struct{}
	done   chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends ev and never blocks. It reports false once the queue is closed.
func (q *Queue) Push(ev domain.Event) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest event, waiting for one when the queue is empty.
func (q *Queue) Pop(ctx context.Context) (domain.Event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = domain.Event{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return domain.Event{}, ErrQueueClosed
		}

		select {
		case <-q.notify:
		case <-q.done:
		case <-ctx.Done():
			return domain.Event{}, ctx.Err()
		}
	}
}

// Close rejects further pushes. Events already queued can still be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
