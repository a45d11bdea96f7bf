package storage

import (
	"context"
	"fmt"
)

// ProviderModelRepository caches the model catalog advertised by each
// provider. Rows are refreshed by the background polling worker.
type ProviderModelRepository struct {
	db *DB
}

// NewProviderModelRepository creates a new provider model repository
func NewProviderModelRepository(db *DB) *ProviderModelRepository {
	return &ProviderModelRepository{db: db}
}

// Insert adds a model to the catalog, ignoring duplicates
func (r *ProviderModelRepository) Insert(ctx context.Context, provider, modelID string) error {
	query := `
		INSERT INTO provider_models (provider, model_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.conn.ExecContext(ctx, query, provider, modelID); err != nil {
		return fmt.Errorf("failed to insert provider model: %w", err)
	}

	return nil
}

// ListByProvider returns all cached model ids for one provider
func (r *ProviderModelRepository) ListByProvider(ctx context.Context, provider string) ([]string, error) {
	query := `
		SELECT model_id
		FROM provider_models
		WHERE provider = $1
		ORDER BY model_id
	`

	var ids []string
	if err := r.db.conn.SelectContext(ctx, &ids, query, provider); err != nil {
		return nil, fmt.Errorf("failed to list provider models: %w", err)
	}

	return ids, nil
}

// ListAll returns the whole catalog grouped by provider
func (r *ProviderModelRepository) ListAll(ctx context.Context) (map[string][]string, error) {
	query := `
		SELECT provider, model_id
		FROM provider_models
		ORDER BY provider, model_id
	`

	rows, err := r.db.conn.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list all provider models: %w", err)
	}
	defer rows.Close()

	catalog := make(map[string][]string)
	for rows.Next() {
		var provider, modelID string
		if err := rows.Scan(&provider, &modelID); err != nil {
			return nil, fmt.Errorf("failed to scan provider model: %w", err)
		}
		catalog[provider] = append(catalog[provider], modelID)
	}

	return catalog, rows.Err()
}
