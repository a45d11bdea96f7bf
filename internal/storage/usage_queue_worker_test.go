package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"modelgw/internal/models"
	"modelgw/internal/queue"
)

func TestUnmarshalUsageItem(t *testing.T) {
	want := models.UsageRecord{
		ID:           uuid.New(),
		AccountID:    1,
		RequestID:    uuid.New(),
		PromptTokens: 7,
		Succeeded:    true,
	}
	raw, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("failed to marshal record: %v", err)
	}

	tests := []struct {
		name string
		item interface{}
	}{
		{"pointer", &want},
		{"value", want},
		{"bytes", raw},
		{"raw message", json.RawMessage(raw)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got models.UsageRecord
			if err := unmarshalUsageItem(tt.item, &got); err != nil {
				t.Fatalf("unmarshalUsageItem failed: %v", err)
			}
			if got.ID != want.ID || got.AccountID != want.AccountID || got.PromptTokens != want.PromptTokens {
				t.Errorf("got %+v, want %+v", got, want)
			}
		})
	}

	var got models.UsageRecord
	if err := unmarshalUsageItem(42, &got); err == nil {
		t.Error("expected error for unsupported item type")
	}
}

func TestUsageQueueWorkerQueueLength(t *testing.T) {
	cfg := queue.DefaultConfig("usage-test")
	q := queue.NewMemoryQueue(cfg)
	worker := NewUsageQueueWorker(q, queue.NewMemoryDeadLetterQueue(), nil, cfg)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		rec := &models.UsageRecord{ID: uuid.New(), AccountID: 1, RequestID: uuid.New()}
		if err := worker.Enqueue(ctx, rec); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	depth, err := worker.QueueLength(ctx)
	if err != nil {
		t.Fatalf("QueueLength failed: %v", err)
	}
	if depth != 2 {
		t.Errorf("expected depth 2, got %d", depth)
	}
}

func TestUsageQueueWorkerDrainsToDatabase(t *testing.T) {
	db := setupTestDB(t)
	accountID := createTestAccount(t, db)
	ctx := context.Background()

	cfg := queue.DefaultConfig("usage-test")
	cfg.BatchTimeout = 50 * time.Millisecond
	q := queue.NewMemoryQueue(cfg)
	dlq := queue.NewMemoryDeadLetterQueue()

	worker := NewUsageQueueWorker(q, dlq, db, cfg)
	worker.Start(ctx)
	t.Cleanup(func() {
		worker.Stop()
		q.Close()
		dlq.Close()
	})

	requestID := uuid.New()
	err := worker.Enqueue(ctx, &models.UsageRecord{
		AccountID:        accountID,
		RequestID:        requestID,
		PromptTokens:     11,
		CompletionTokens: 22,
		Succeeded:        true,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	repo := db.NewUsageRepository()
	deadline := time.Now().Add(3 * time.Second)
	for {
		records, err := repo.List(ctx, accountID)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) == 1 {
			if records[0].RequestID != requestID {
				t.Errorf("expected request id %s, got %s", requestID, records[0].RequestID)
			}
			if records[0].PromptTokens != 11 || records[0].CompletionTokens != 22 {
				t.Errorf("unexpected token counts: %+v", records[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("worker did not persist the record, have %d", len(records))
		}
		time.Sleep(20 * time.Millisecond)
	}
}
