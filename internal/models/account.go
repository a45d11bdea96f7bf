package models

import (
	"time"
)

// Account represents a gateway tenant. Authentication is email/password
// based with bcrypt password hashing.
type Account struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"` // bcrypt hash, never serialized
	CreatedAt    time.Time `db:"created_at"`
}
