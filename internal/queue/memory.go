package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryQueue is the channel-backed queue used when Redis is not
// configured. A full buffer blocks Enqueue until the worker drains
// it or the context ends.
type MemoryQueue struct {
	mu     sync.RWMutex
	buf    chan interface{}
	closed bool
}

// NewMemoryQueue creates an in-memory queue sized for ten batches
func NewMemoryQueue(config *Config) *MemoryQueue {
	if config == nil {
		config = DefaultConfig("memory")
	}
	return &MemoryQueue{
		buf: make(chan interface{}, config.BatchSize*10),
	}
}

// Enqueue adds an item to the queue
func (q *MemoryQueue) Enqueue(ctx context.Context, item interface{}) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.buf <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DequeueWithTimeout waits up to timeout for a first item, then
// collects whatever else is immediately available up to maxItems
func (q *MemoryQueue) DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]interface{}, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	var items []interface{}

	select {
	case first := <-q.buf:
		items = append(items, first)
	case <-time.After(timeout):
		return items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for len(items) < maxItems {
		select {
		case next := <-q.buf:
			items = append(items, next)
		default:
			return items, nil
		}
	}
	return items, nil
}

// Length returns the number of buffered items
func (q *MemoryQueue) Length(ctx context.Context) (int, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return 0, ErrQueueClosed
	}
	return len(q.buf), nil
}

// Close shuts down the queue. Closing twice is a no-op.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.buf)
	}
	return nil
}

// MemoryDeadLetterQueue keeps failed items in a slice, oldest first
type MemoryDeadLetterQueue struct {
	mu     sync.Mutex
	parked []DeadLetterItem
	nextID int
	closed bool
}

// NewMemoryDeadLetterQueue creates an in-memory dead letter queue
func NewMemoryDeadLetterQueue() *MemoryDeadLetterQueue {
	return &MemoryDeadLetterQueue{}
}

// Add parks a failed item together with the error that caused it
func (q *MemoryDeadLetterQueue) Add(ctx context.Context, item interface{}, err error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.nextID++
	q.parked = append(q.parked, DeadLetterItem{
		ID:        fmt.Sprintf("dl-%d", q.nextID),
		Item:      item,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
	return nil
}

// List returns up to maxItems parked items; zero means all
func (q *MemoryDeadLetterQueue) List(ctx context.Context, maxItems int) ([]DeadLetterItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	n := len(q.parked)
	if maxItems > 0 && maxItems < n {
		n = maxItems
	}
	out := make([]DeadLetterItem, n)
	copy(out, q.parked[:n])
	return out, nil
}

// Remove deletes a parked item by id
func (q *MemoryDeadLetterQueue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	for i := range q.parked {
		if q.parked[i].ID == id {
			q.parked = append(q.parked[:i], q.parked[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// Close shuts down the dead letter queue and discards parked items
func (q *MemoryDeadLetterQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.parked = nil
	return nil
}
