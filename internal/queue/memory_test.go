package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryQueueEnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, i); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	length, err := q.Length(ctx)
	if err != nil {
		t.Fatalf("Length failed: %v", err)
	}
	if length != 5 {
		t.Errorf("expected length 5, got %d", length)
	}

	items, err := q.DequeueWithTimeout(ctx, 10, time.Second)
	if err != nil {
		t.Fatalf("DequeueWithTimeout failed: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	for i, item := range items {
		if item.(int) != i {
			t.Errorf("expected item %d at position %d, got %v", i, i, item)
		}
	}
}

func TestMemoryQueueRespectsMaxItems(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := q.Enqueue(ctx, i); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	items, err := q.DequeueWithTimeout(ctx, 3, time.Second)
	if err != nil {
		t.Fatalf("DequeueWithTimeout failed: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected 3 items, got %d", len(items))
	}

	length, _ := q.Length(ctx)
	if length != 7 {
		t.Errorf("expected 7 remaining, got %d", length)
	}
}

func TestMemoryQueueDequeueTimeout(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	start := time.Now()
	items, err := q.DequeueWithTimeout(context.Background(), 10, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("DequeueWithTimeout failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("returned before timeout elapsed: %v", elapsed)
	}
}

func TestMemoryQueueClosed(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ctx := context.Background()

	if err := q.Enqueue(ctx, "item"); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed from Enqueue, got %v", err)
	}
	if _, err := q.DequeueWithTimeout(ctx, 1, time.Millisecond); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed from DequeueWithTimeout, got %v", err)
	}
	if _, err := q.Length(ctx); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed from Length, got %v", err)
	}

	// Close is idempotent
	if err := q.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestMemoryDeadLetterQueue(t *testing.T) {
	dlq := NewMemoryDeadLetterQueue()
	defer dlq.Close()

	ctx := context.Background()

	if err := dlq.Add(ctx, "payload-1", errors.New("insert failed")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := dlq.Add(ctx, "payload-2", errors.New("insert failed again")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	items, err := dlq.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Item.(string) != "payload-1" {
		t.Errorf("expected payload-1, got %v", items[0].Item)
	}
	if items[0].Error != "insert failed" {
		t.Errorf("unexpected error text: %s", items[0].Error)
	}
	if items[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}

	limited, err := dlq.List(ctx, 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 item with limit, got %d", len(limited))
	}

	if err := dlq.Remove(ctx, items[0].ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	remaining, _ := dlq.List(ctx, 0)
	if len(remaining) != 1 {
		t.Errorf("expected 1 item after remove, got %d", len(remaining))
	}

	if err := dlq.Remove(ctx, "dl-missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}
