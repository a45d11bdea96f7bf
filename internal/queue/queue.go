// Package queue is the async buffer between the request path and usage
// persistence. Two backends are provided: a channel-based memory queue
// for standalone deployments, and a Redis list for setups that need
// pending items to survive restarts or to be drained by distributed
// workers. The request path enqueues and returns immediately; a worker
// drains batches into the database, retries with backoff, and parks
// unprocessable items in a dead letter queue.
package queue

import (
	"context"
	"time"
)

// Queue buffers items between producers and a batching consumer
type Queue interface {
	// Enqueue adds an item to the queue
	Enqueue(ctx context.Context, item interface{}) error

	// DequeueWithTimeout retrieves up to maxItems items, waiting at most
	// timeout for the first one. Returns an empty slice on timeout.
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]interface{}, error)

	// Length returns the current queue length
	Length(ctx context.Context) (int, error)

	// Close shuts down the queue gracefully
	Close() error
}

// DeadLetterQueue holds items that exhausted their retries
type DeadLetterQueue interface {
	// Add parks a failed item with error info
	Add(ctx context.Context, item interface{}, err error) error

	// List retrieves up to maxItems items (0 = all)
	List(ctx context.Context, maxItems int) ([]DeadLetterItem, error)

	// Remove deletes an item by id
	Remove(ctx context.Context, id string) error

	// Close shuts down the dead letter queue
	Close() error
}

// DeadLetterItem is a parked item with the error that sent it there
type DeadLetterItem struct {
	ID        string
	Item      interface{}
	Error     string
	Timestamp time.Time
}

// Config holds queue and batching settings
type Config struct {
	// QueueName is the name/key for the queue
	QueueName string

	// BatchSize is the maximum number of items to process in a batch
	BatchSize int

	// BatchTimeout is how long to wait before processing a partial batch
	BatchTimeout time.Duration

	// MaxRetries is the maximum number of retry attempts
	MaxRetries int

	// RetryBackoff is the initial backoff duration for retries
	RetryBackoff time.Duration

	// UseRedis selects the Redis backend over the in-memory queue
	UseRedis bool

	// Redis connection settings (when UseRedis is true)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DefaultConfig returns queue settings suitable for a single gateway
func DefaultConfig(queueName string) *Config {
	return &Config{
		QueueName:    queueName,
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
		UseRedis:     false,
	}
}
