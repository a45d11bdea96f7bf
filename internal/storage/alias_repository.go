package storage

import (
	"context"
	"database/sql"
	"fmt"

	"modelgw/internal/models"
)

// AliasRepository handles model alias database operations
type AliasRepository struct {
	db *DB
}

// NewAliasRepository creates a new alias repository
func NewAliasRepository(db *DB) *AliasRepository {
	return &AliasRepository{db: db}
}

const aliasColumns = `id, account_id, alias, target_model, provider_key_id,
	       fallback_alias_id, use_light_model, light_model_threshold,
	       light_model, created_at`

func aliasCacheKey(accountID int64, name string) string {
	return fmt.Sprintf("alias:%d:%s", accountID, name)
}

// GetByName retrieves an alias by its per-account name
func (r *AliasRepository) GetByName(ctx context.Context, accountID int64, name string) (*models.Alias, error) {
	cacheKey := aliasCacheKey(accountID, name)
	if cached, found := r.db.aliasCache.Get(cacheKey); found {
		return cached.(*models.Alias), nil
	}

	var alias models.Alias
	query := fmt.Sprintf(`
		SELECT %s
		FROM model_aliases
		WHERE account_id = $1 AND alias = $2
	`, aliasColumns)

	err := r.db.conn.GetContext(ctx, &alias, query, accountID, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAliasNotFound
		}
		return nil, fmt.Errorf("failed to get alias: %w", err)
	}

	r.db.aliasCache.Set(cacheKey, &alias)
	return &alias, nil
}

// GetByID retrieves an alias by id, scoped to its owning account
func (r *AliasRepository) GetByID(ctx context.Context, accountID, id int64) (*models.Alias, error) {
	var alias models.Alias
	query := fmt.Sprintf(`
		SELECT %s
		FROM model_aliases
		WHERE id = $1 AND account_id = $2
	`, aliasColumns)

	err := r.db.conn.GetContext(ctx, &alias, query, id, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAliasNotFound
		}
		return nil, fmt.Errorf("failed to get alias: %w", err)
	}

	return &alias, nil
}

// Exists reports whether an alias row exists at all, regardless of
// which account owns it
func (r *AliasRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM model_aliases WHERE id = $1)`

	if err := r.db.conn.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("failed to check alias: %w", err)
	}

	return exists, nil
}

// List returns all aliases for an account in creation order
func (r *AliasRepository) List(ctx context.Context, accountID int64) ([]*models.Alias, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM model_aliases
		WHERE account_id = $1
		ORDER BY id
	`, aliasColumns)

	var aliases []*models.Alias
	if err := r.db.conn.SelectContext(ctx, &aliases, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}

	return aliases, nil
}

// Upsert creates or replaces an alias keyed on (account_id, alias). An
// existing row keeps its id and gets all attribute values replaced; the
// unique constraint makes concurrent upserts of the same name serialize
// to a single winning row.
func (r *AliasRepository) Upsert(ctx context.Context, alias *models.Alias) (*models.Alias, error) {
	var stored models.Alias
	query := fmt.Sprintf(`
		INSERT INTO model_aliases (
			account_id, alias, target_model, provider_key_id,
			fallback_alias_id, use_light_model, light_model_threshold, light_model
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id, alias)
		DO UPDATE SET target_model = EXCLUDED.target_model,
		              provider_key_id = EXCLUDED.provider_key_id,
		              fallback_alias_id = EXCLUDED.fallback_alias_id,
		              use_light_model = EXCLUDED.use_light_model,
		              light_model_threshold = EXCLUDED.light_model_threshold,
		              light_model = EXCLUDED.light_model
		RETURNING %s
	`, aliasColumns)

	err := r.db.conn.GetContext(
		ctx, &stored, query,
		alias.AccountID, alias.Alias, alias.TargetModel, alias.ProviderKeyID,
		alias.FallbackAliasID, alias.UseLightModel, alias.LightModelThreshold,
		alias.LightModel,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert alias: %w", err)
	}

	r.db.aliasCache.Delete(aliasCacheKey(stored.AccountID, stored.Alias))
	return &stored, nil
}

// allowedPatchColumns is the whitelist of columns that can be updated via Patch
var allowedPatchColumns = map[string]bool{
	"target_model":          true,
	"provider_key_id":       true,
	"fallback_alias_id":     true,
	"use_light_model":       true,
	"light_model_threshold": true,
	"light_model":           true,
}

// Patch updates only the given columns of an alias row in a single
// UPDATE statement. Returns ErrAliasNotFound if no row matches.
func (r *AliasRepository) Patch(ctx context.Context, accountID int64, name string, updates map[string]interface{}) (*models.Alias, error) {
	setClause := ""
	args := []interface{}{accountID, name}
	argIdx := 3
	for col, val := range updates {
		if !allowedPatchColumns[col] {
			continue
		}
		if setClause != "" {
			setClause += ", "
		}
		setClause += fmt.Sprintf("%s = $%d", col, argIdx)
		args = append(args, val)
		argIdx++
	}
	if setClause == "" {
		return nil, fmt.Errorf("no valid fields to update")
	}

	var stored models.Alias
	query := fmt.Sprintf(`
		UPDATE model_aliases
		SET %s
		WHERE account_id = $1 AND alias = $2
		RETURNING %s
	`, setClause, aliasColumns)

	err := r.db.conn.GetContext(ctx, &stored, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAliasNotFound
		}
		return nil, fmt.Errorf("failed to patch alias: %w", err)
	}

	r.db.aliasCache.Delete(aliasCacheKey(accountID, name))
	return &stored, nil
}
