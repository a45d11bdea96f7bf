package models

import (
	"time"
)

// ProviderKey is an upstream provider credential owned by exactly one
// account. The secret is AES-GCM encrypted at rest and never leaves the
// storage layer through any read path.
type ProviderKey struct {
	ID           int64     `db:"id"`
	AccountID    int64     `db:"account_id"`
	Provider     string    `db:"provider"` // e.g. "openai", "anthropic", "gemini"
	EncryptedKey string    `db:"encrypted_key"`
	Label        string    `db:"label"`
	CreatedAt    time.Time `db:"created_at"`
}
