package storage

import (
	"context"
	"database/sql"
	"fmt"

	"modelgw/internal/models"
)

// ProviderKeyRepository handles provider credential database operations
type ProviderKeyRepository struct {
	db *DB
}

// NewProviderKeyRepository creates a new provider key repository
func NewProviderKeyRepository(db *DB) *ProviderKeyRepository {
	return &ProviderKeyRepository{db: db}
}

// Create stores an encrypted provider credential for an account
func (r *ProviderKeyRepository) Create(ctx context.Context, accountID int64, provider, encryptedKey, label string) (*models.ProviderKey, error) {
	var key models.ProviderKey
	query := `
		INSERT INTO provider_keys (account_id, provider, encrypted_key, label)
		VALUES ($1, $2, $3, $4)
		RETURNING id, account_id, provider, encrypted_key, label, created_at
	`

	err := r.db.conn.GetContext(ctx, &key, query, accountID, provider, encryptedKey, label)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider key: %w", err)
	}

	return &key, nil
}

// Get retrieves a provider key scoped to its owning account. A key that
// exists but belongs to another account is reported as not found.
func (r *ProviderKeyRepository) Get(ctx context.Context, accountID, keyID int64) (*models.ProviderKey, error) {
	cacheKey := fmt.Sprintf("pk:%d:%d", accountID, keyID)
	if cached, found := r.db.providerKeyCache.Get(cacheKey); found {
		return cached.(*models.ProviderKey), nil
	}

	var key models.ProviderKey
	query := `
		SELECT id, account_id, provider, encrypted_key, label, created_at
		FROM provider_keys
		WHERE id = $1 AND account_id = $2
	`

	err := r.db.conn.GetContext(ctx, &key, query, keyID, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProviderKeyNotFound
		}
		return nil, fmt.Errorf("failed to get provider key: %w", err)
	}

	r.db.providerKeyCache.Set(cacheKey, &key)
	return &key, nil
}

// Exists reports whether a provider key row exists at all, regardless of
// which account owns it. The registry uses this to distinguish a
// cross-account reference from a dangling one.
func (r *ProviderKeyRepository) Exists(ctx context.Context, keyID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM provider_keys WHERE id = $1)`

	if err := r.db.conn.GetContext(ctx, &exists, query, keyID); err != nil {
		return false, fmt.Errorf("failed to check provider key: %w", err)
	}

	return exists, nil
}

// List returns all provider keys for an account in creation order
func (r *ProviderKeyRepository) List(ctx context.Context, accountID int64) ([]*models.ProviderKey, error) {
	query := `
		SELECT id, account_id, provider, encrypted_key, label, created_at
		FROM provider_keys
		WHERE account_id = $1
		ORDER BY id
	`

	var keys []*models.ProviderKey
	if err := r.db.conn.SelectContext(ctx, &keys, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list provider keys: %w", err)
	}

	return keys, nil
}

// ListOnePerProvider returns one stored key per distinct provider across
// all accounts. The model polling worker uses these to refresh the
// cached model catalog.
func (r *ProviderKeyRepository) ListOnePerProvider(ctx context.Context) ([]*models.ProviderKey, error) {
	query := `
		SELECT DISTINCT ON (provider)
		       id, account_id, provider, encrypted_key, label, created_at
		FROM provider_keys
		ORDER BY provider, id
	`

	var keys []*models.ProviderKey
	if err := r.db.conn.SelectContext(ctx, &keys, query); err != nil {
		return nil, fmt.Errorf("failed to list provider keys per provider: %w", err)
	}

	return keys, nil
}
