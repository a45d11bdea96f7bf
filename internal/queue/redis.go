package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisConnectTimeout = 5 * time.Second

// newRedisClient dials Redis from config and verifies the connection
// with a ping before handing the client back
func newRedisClient(config *Config) (*redis.Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisQueue stores items as JSON in a Redis list, so pending usage
// survives a gateway restart. Dequeued items come back to the caller
// as json.RawMessage.
type RedisQueue struct {
	client  *redis.Client
	listKey string
}

// NewRedisQueue creates a Redis-backed queue
func NewRedisQueue(config *Config) (*RedisQueue, error) {
	client, err := newRedisClient(config)
	if err != nil {
		return nil, err
	}

	return &RedisQueue{
		client:  client,
		listKey: fmt.Sprintf("queue:%s", config.QueueName),
	}, nil
}

// Enqueue adds an item to the queue
func (q *RedisQueue) Enqueue(ctx context.Context, item interface{}) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	if err := q.client.RPush(ctx, q.listKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push to Redis: %w", err)
	}
	return nil
}

// DequeueWithTimeout blocks up to timeout for a first item, then pops
// whatever else is immediately available up to maxItems
func (q *RedisQueue) DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]interface{}, error) {
	// BLPop returns the key in [0] and the value in [1]
	popped, err := q.client.BLPop(ctx, timeout, q.listKey).Result()
	if err == redis.Nil {
		return []interface{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop from Redis: %w", err)
	}

	items := []interface{}{json.RawMessage(popped[1])}

	for len(items) < maxItems {
		raw, err := q.client.LPop(ctx, q.listKey).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return items, nil
		}
		items = append(items, json.RawMessage(raw))
	}
	return items, nil
}

// Length returns the number of items waiting in the list
func (q *RedisQueue) Length(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.listKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return int(n), nil
}

// Close releases the Redis connection
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// redisDeadLetterEntry is the hash value stored per dead-lettered item
type redisDeadLetterEntry struct {
	Item      json.RawMessage `json:"item"`
	Error     string          `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
}

// RedisDeadLetterQueue parks failed items in a Redis hash keyed by a
// generated id, so they can be inspected and removed individually
type RedisDeadLetterQueue struct {
	client  *redis.Client
	hashKey string
}

// NewRedisDeadLetterQueue creates a Redis-backed dead letter queue
func NewRedisDeadLetterQueue(config *Config) (*RedisDeadLetterQueue, error) {
	client, err := newRedisClient(config)
	if err != nil {
		return nil, err
	}

	return &RedisDeadLetterQueue{
		client:  client,
		hashKey: fmt.Sprintf("dlq:%s", config.QueueName),
	}, nil
}

// Add parks a failed item together with the error that caused it
func (q *RedisDeadLetterQueue) Add(ctx context.Context, item interface{}, addErr error) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	entry, err := json.Marshal(redisDeadLetterEntry{
		Item:      data,
		Error:     addErr.Error(),
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter entry: %w", err)
	}

	if err := q.client.HSet(ctx, q.hashKey, uuid.NewString(), entry).Err(); err != nil {
		return fmt.Errorf("failed to store dead letter item: %w", err)
	}
	return nil
}

// List returns up to maxItems parked items; zero means all. Hash
// iteration order is unspecified, so callers get no particular order.
func (q *RedisDeadLetterQueue) List(ctx context.Context, maxItems int) ([]DeadLetterItem, error) {
	all, err := q.client.HGetAll(ctx, q.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letter items: %w", err)
	}

	items := make([]DeadLetterItem, 0, len(all))
	for id, raw := range all {
		var entry redisDeadLetterEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		items = append(items, DeadLetterItem{
			ID:        id,
			Item:      entry.Item,
			Error:     entry.Error,
			Timestamp: entry.Timestamp,
		})
		if maxItems > 0 && len(items) >= maxItems {
			break
		}
	}
	return items, nil
}

// Remove deletes a parked item by id
func (q *RedisDeadLetterQueue) Remove(ctx context.Context, id string) error {
	removed, err := q.client.HDel(ctx, q.hashKey, id).Result()
	if err != nil {
		return fmt.Errorf("failed to remove dead letter item: %w", err)
	}
	if removed == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Close releases the Redis connection
func (q *RedisDeadLetterQueue) Close() error {
	return q.client.Close()
}
