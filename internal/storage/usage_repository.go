package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"modelgw/internal/models"
)

// UsageRepository handles usage record database operations. Records are
// append-only and never mutated after creation.
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Create appends a usage record
func (r *UsageRepository) Create(ctx context.Context, record *models.UsageRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	query := `
		INSERT INTO usage_records (
			id, account_id, alias_id, request_id,
			prompt_tokens, completion_tokens, succeeded
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.db.conn.QueryRowxContext(
		ctx, query,
		record.ID, record.AccountID, record.AliasID, record.RequestID,
		record.PromptTokens, record.CompletionTokens, record.Succeeded,
	).Scan(&record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create usage record: %w", err)
	}

	return nil
}

// List returns all usage records for an account in insertion order.
// A fresh account yields an empty result, never an error.
func (r *UsageRepository) List(ctx context.Context, accountID int64) ([]*models.UsageRecord, error) {
	query := `
		SELECT id, account_id, alias_id, request_id,
		       prompt_tokens, completion_tokens, succeeded, created_at
		FROM usage_records
		WHERE account_id = $1
		ORDER BY created_at, id
	`

	var records []*models.UsageRecord
	if err := r.db.conn.SelectContext(ctx, &records, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}

	return records, nil
}
