package models

import (
	"time"
)

// APIKey tracks a long-lived API key issued to an account. The raw token
// is a JWT returned once at creation; only its SHA-256 hash is stored.
type APIKey struct {
	ID        int64     `db:"id"`
	AccountID int64     `db:"account_id"`
	Name      string    `db:"name"`
	KeyHash   string    `db:"key_hash"` // SHA-256 hash
	Prefix    string    `db:"prefix"`
	CreatedAt time.Time `db:"created_at"`
}
