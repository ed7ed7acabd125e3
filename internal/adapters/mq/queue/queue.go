// Package queue carries equip requests from the API surface to the
// single equip runner. The queue is bounded and enqueue is non-blocking:
// a full queue rejects the request instead of stacking up runs.
package queue

import (
	"context"
	"sync"

	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/pkg/metrics"
)

const defaultCapacity = 16

// Result is what a finished equip run reports back to the caller.
type Result struct {
	Counts model.EquipResult
	Err    error
}

// Request is one pending equip run. Result must be a buffered channel;
// the runner sends exactly one Result on it.
type Request struct {
	Team   model.Team
	Result chan Result
}

// NewRequest builds a Request with its reply channel.
func NewRequest(team model.Team) Request {
	return Request{Team: team, Result: make(chan Result, 1)}
}

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds a request. Returns false when the queue is full or
	// closed and the request was not accepted.
	Enqueue(ctx context.Context, req Request) bool

	// Dequeue returns a channel receiving requests as they become
	// available. The channel closes when the queue closes.
	Dequeue(ctx context.Context) <-chan Request

	// Len returns the number of pending requests.
	Len(ctx context.Context) int

	// Close shuts the queue down; pending requests still drain.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// InMemoryQueue implements Queue over a buffered channel.
type InMemoryQueue struct {
	requests chan Request
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the number of pending requests.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// NewInMemoryQueue creates a bounded in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan Request, q.capacity)

	metrics.UpdateEquipQueueDepth(0)
	return q
}

// Enqueue adds a request without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, req Request) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordEquipQueueRejection()
		return false
	}

	select {
	case q.requests <- req:
		metrics.UpdateEquipQueueDepth(len(q.requests))
		return true
	case <-ctx.Done():
		metrics.RecordEquipQueueRejection()
		return false
	default:
		metrics.RecordEquipQueueRejection()
		return false
	}
}

// Dequeue returns the request channel.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Request {
	out := make(chan Request)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case req, ok := <-q.requests:
				if !ok {
					return
				}
				metrics.UpdateEquipQueueDepth(len(q.requests))
				select {
				case out <- req:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of pending requests.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return len(q.requests)
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.requests)
	return nil
}

// IsClosed reports whether the queue is closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
