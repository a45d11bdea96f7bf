package logging

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]*LogRecord
}

func (w *fakeWriter) WriteBatch(ctx context.Context, records []*LogRecord) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, records)
	return "batch-key", nil
}

func (w *fakeWriter) total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func TestNoopSink(t *testing.T) {
	sink := NewNoopSink()
	if err := sink.Enqueue(&LogRecord{RequestID: "r1"}); err != nil {
		t.Errorf("noop sink should accept records: %v", err)
	}
}

func TestBufferedSinkFlushesOnBatchSize(t *testing.T) {
	writer := &fakeWriter{}
	sink := NewBufferedSink(writer, 3, time.Hour)
	defer sink.Close()

	for i := 0; i < 3; i++ {
		if err := sink.Enqueue(&LogRecord{RequestID: "r"}); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for writer.total() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if writer.total() != 3 {
		t.Errorf("expected 3 records flushed, got %d", writer.total())
	}
}

func TestBufferedSinkFlushesOnClose(t *testing.T) {
	writer := &fakeWriter{}
	sink := NewBufferedSink(writer, 100, time.Hour)

	sink.Enqueue(&LogRecord{RequestID: "r1"})
	sink.Enqueue(&LogRecord{RequestID: "r2"})

	if err := sink.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if writer.total() != 2 {
		t.Errorf("expected close to flush 2 records, got %d", writer.total())
	}
}

func TestBufferedSinkRejectsAfterClose(t *testing.T) {
	sink := NewBufferedSink(&fakeWriter{}, 10, time.Hour)
	sink.Close()

	if err := sink.Enqueue(&LogRecord{}); err != ErrSinkClosed {
		t.Errorf("expected ErrSinkClosed, got %v", err)
	}
}

func TestBufferedSinkSetsTimestamp(t *testing.T) {
	writer := &fakeWriter{}
	sink := NewBufferedSink(writer, 1, time.Hour)
	defer sink.Close()

	rec := &LogRecord{RequestID: "r1"}
	sink.Enqueue(rec)

	if rec.Timestamp.IsZero() {
		t.Error("expected enqueue to stamp the record")
	}
}
