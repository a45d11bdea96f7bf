package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord represents a single metered request. Records are
// append-only; AliasID is NULL when resolution failed before an alias
// was chosen.
type UsageRecord struct {
	ID               uuid.UUID `db:"id" json:"id"`
	AccountID        int64     `db:"account_id" json:"account_id"`
	AliasID          *int64    `db:"alias_id" json:"alias_id"`
	RequestID        uuid.UUID `db:"request_id" json:"request_id"`
	PromptTokens     int       `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int       `db:"completion_tokens" json:"completion_tokens"`
	Succeeded        bool      `db:"succeeded" json:"succeeded"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
