package usage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"modelgw/internal/models"
	"modelgw/internal/utils"
)

type fakeSink struct {
	records []*models.UsageRecord
	err     error
}

func (s *fakeSink) Enqueue(ctx context.Context, record *models.UsageRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

type fakeStore struct {
	records []*models.UsageRecord
	err     error
}

func (s *fakeStore) List(ctx context.Context, accountID int64) ([]*models.UsageRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.UsageRecord
	for _, r := range s.records {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestRecordQueuesUsage(t *testing.T) {
	sink := &fakeSink{}
	recorder := NewRecorder(sink, &fakeStore{}, utils.NewLogger("test", utils.Critical))

	requestID := uuid.New()
	aliasID := int64(3)
	recorder.Record(context.Background(), 10, &aliasID, requestID, 120, 45, true)

	if len(sink.records) != 1 {
		t.Fatalf("expected one queued record, got %d", len(sink.records))
	}
	rec := sink.records[0]
	if rec.AccountID != 10 || rec.RequestID != requestID {
		t.Errorf("unexpected record identity: %+v", rec)
	}
	if rec.AliasID == nil || *rec.AliasID != 3 {
		t.Errorf("expected alias id 3, got %v", rec.AliasID)
	}
	if rec.PromptTokens != 120 || rec.CompletionTokens != 45 || !rec.Succeeded {
		t.Errorf("unexpected record payload: %+v", rec)
	}
	if rec.ID == uuid.Nil {
		t.Error("record should get its own id")
	}
}

func TestRecordFailureWithoutAlias(t *testing.T) {
	sink := &fakeSink{}
	recorder := NewRecorder(sink, &fakeStore{}, utils.NewLogger("test", utils.Critical))

	recorder.Record(context.Background(), 10, nil, uuid.New(), 80, 0, false)

	if len(sink.records) != 1 {
		t.Fatalf("expected one queued record, got %d", len(sink.records))
	}
	rec := sink.records[0]
	if rec.AliasID != nil {
		t.Errorf("expected nil alias id, got %v", rec.AliasID)
	}
	if rec.Succeeded {
		t.Error("expected a failed record")
	}
}

func TestRecordSwallowsEnqueueErrors(t *testing.T) {
	sink := &fakeSink{err: errors.New("queue closed")}
	recorder := NewRecorder(sink, &fakeStore{}, utils.NewLogger("test", utils.Critical))

	// must not panic or propagate; metering never fails the request
	recorder.Record(context.Background(), 10, nil, uuid.New(), 10, 0, true)
}

func TestListScopedToAccount(t *testing.T) {
	store := &fakeStore{
		records: []*models.UsageRecord{
			{ID: uuid.New(), AccountID: 10},
			{ID: uuid.New(), AccountID: 10},
			{ID: uuid.New(), AccountID: 99},
		},
	}
	recorder := NewRecorder(&fakeSink{}, store, utils.NewLogger("test", utils.Critical))

	records, err := recorder.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}

	empty, err := recorder.List(context.Background(), 7)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no records for unused account, got %d", len(empty))
	}
}
