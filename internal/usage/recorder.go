package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"modelgw/internal/models"
	"modelgw/internal/utils"
)

// Sink accepts usage records for asynchronous persistence. Satisfied
// by storage.UsageQueueWorker.
type Sink interface {
	Enqueue(ctx context.Context, record *models.UsageRecord) error
}

// Store reads persisted usage records. Satisfied by
// storage.UsageRepository.
type Store interface {
	List(ctx context.Context, accountID int64) ([]*models.UsageRecord, error)
}

// Recorder meters request usage. Recording never blocks or fails the
// request path: records are queued for a background writer and
// enqueue errors are logged and dropped.
type Recorder struct {
	sink   Sink
	store  Store
	logger *utils.Logger
}

func NewRecorder(sink Sink, store Store, logger *utils.Logger) *Recorder {
	if logger == nil {
		logger = utils.NewLogger("usage")
	}
	return &Recorder{
		sink:   sink,
		store:  store,
		logger: logger,
	}
}

// Record queues one usage record. aliasID is nil when the request
// never matched an alias. Losing a record is preferred over failing
// the request, so errors are swallowed after logging.
func (r *Recorder) Record(ctx context.Context, accountID int64, aliasID *int64, requestID uuid.UUID, promptTokens, completionTokens int, succeeded bool) {
	record := &models.UsageRecord{
		ID:               uuid.New(),
		AccountID:        accountID,
		AliasID:          aliasID,
		RequestID:        requestID,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Succeeded:        succeeded,
	}
	if err := r.sink.Enqueue(ctx, record); err != nil {
		r.logger.Error("failed to enqueue usage record",
			"account_id", accountID,
			"request_id", requestID.String(),
			"error", err.Error())
	}
}

// List returns the account's usage records, oldest first
func (r *Recorder) List(ctx context.Context, accountID int64) ([]*models.UsageRecord, error) {
	records, err := r.store.List(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}
	return records, nil
}
