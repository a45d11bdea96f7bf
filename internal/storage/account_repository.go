package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"modelgw/internal/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// AccountRepository handles account and API key database operations
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. Email uniqueness is case-insensitive;
// a duplicate returns ErrDuplicateEmail.
func (r *AccountRepository) Create(ctx context.Context, email, passwordHash string) (*models.Account, error) {
	var account models.Account
	query := `
		INSERT INTO accounts (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at
	`

	err := r.db.conn.GetContext(ctx, &account, query, email, passwordHash)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &account, nil
}

// GetByEmail retrieves an account by email (case-insensitive)
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	query := `
		SELECT id, email, password_hash, created_at
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`

	err := r.db.conn.GetContext(ctx, &account, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	query := `
		SELECT id, email, password_hash, created_at
		FROM accounts
		WHERE id = $1
	`

	err := r.db.conn.GetContext(ctx, &account, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// CreateAPIKey records an issued API key hash for an account
func (r *AccountRepository) CreateAPIKey(ctx context.Context, accountID int64, name, keyHash, prefix string) error {
	query := `
		INSERT INTO api_keys (account_id, name, key_hash, prefix)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.conn.ExecContext(ctx, query, accountID, name, keyHash, prefix); err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// ListAPIKeys returns all API keys issued to an account, oldest first
func (r *AccountRepository) ListAPIKeys(ctx context.Context, accountID int64) ([]*models.APIKey, error) {
	query := `
		SELECT id, account_id, name, key_hash, prefix, created_at
		FROM api_keys
		WHERE account_id = $1
		ORDER BY id
	`

	var keys []*models.APIKey
	if err := r.db.conn.SelectContext(ctx, &keys, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}

	return keys, nil
}
