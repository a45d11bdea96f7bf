package registry

import (
	"context"
	"errors"
	"fmt"

	"modelgw/internal/models"
	"modelgw/internal/storage"
	"modelgw/internal/utils"
)

// AliasStore is the persistence surface the registry needs for aliases
type AliasStore interface {
	GetByName(ctx context.Context, accountID int64, name string) (*models.Alias, error)
	GetByID(ctx context.Context, accountID, id int64) (*models.Alias, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, accountID int64) ([]*models.Alias, error)
	Upsert(ctx context.Context, alias *models.Alias) (*models.Alias, error)
	Patch(ctx context.Context, accountID int64, name string, updates map[string]interface{}) (*models.Alias, error)
}

// ProviderKeyStore is the persistence surface the registry needs for
// provider credentials
type ProviderKeyStore interface {
	Get(ctx context.Context, accountID, keyID int64) (*models.ProviderKey, error)
	Exists(ctx context.Context, keyID int64) (bool, error)
}

// Registry validates and persists model aliases. All reference checks
// are account scoped: an alias can only point at a provider key or
// fallback alias owned by the same account.
type Registry struct {
	aliases      AliasStore
	providerKeys ProviderKeyStore
	logger       *utils.Logger
}

// UpsertParams carries a full alias definition. A zero or negative
// FallbackAliasID and an empty LightModel are normalized to null
// before validation.
type UpsertParams struct {
	Alias               string  `json:"alias"`
	TargetModel         string  `json:"target_model"`
	ProviderKeyID       int64   `json:"provider_key_id"`
	FallbackAliasID     *int64  `json:"fallback_alias_id"`
	UseLightModel       bool    `json:"use_light_model"`
	LightModelThreshold *int    `json:"light_model_threshold"`
	LightModel          *string `json:"light_model"`
}

// PatchParams carries a partial alias update. Nil fields are left
// untouched; the same normalization as UpsertParams applies to the
// fields that are present.
type PatchParams struct {
	TargetModel         *string `json:"target_model"`
	ProviderKeyID       *int64  `json:"provider_key_id"`
	FallbackAliasID     *int64  `json:"fallback_alias_id"`
	UseLightModel       *bool   `json:"use_light_model"`
	LightModelThreshold *int    `json:"light_model_threshold"`
	LightModel          *string `json:"light_model"`
}

func NewRegistry(aliases AliasStore, providerKeys ProviderKeyStore, logger *utils.Logger) *Registry {
	if logger == nil {
		logger = utils.NewLogger("registry")
	}
	return &Registry{
		aliases:      aliases,
		providerKeys: providerKeys,
		logger:       logger,
	}
}

// Upsert creates the alias or fully replaces it when an alias with
// the same name already exists for the account
func (r *Registry) Upsert(ctx context.Context, accountID int64, params UpsertParams) (*models.Alias, error) {
	if params.Alias == "" {
		return nil, &ValidationError{Field: "alias", Message: "must not be empty"}
	}
	if params.TargetModel == "" {
		return nil, &ValidationError{Field: "target_model", Message: "must not be empty"}
	}
	if params.ProviderKeyID <= 0 {
		return nil, &ValidationError{Field: "provider_key_id", Message: "must be a positive id"}
	}

	fallbackID := normalizeFallbackID(params.FallbackAliasID)
	lightModel := normalizeLightModel(params.LightModel)

	if err := r.checkProviderKey(ctx, accountID, params.ProviderKeyID); err != nil {
		return nil, err
	}
	if fallbackID != nil {
		if err := r.checkFallbackAlias(ctx, accountID, *fallbackID); err != nil {
			return nil, err
		}
	}

	alias := &models.Alias{
		AccountID:           accountID,
		Alias:               params.Alias,
		TargetModel:         params.TargetModel,
		ProviderKeyID:       params.ProviderKeyID,
		FallbackAliasID:     fallbackID,
		UseLightModel:       params.UseLightModel,
		LightModelThreshold: params.LightModelThreshold,
		LightModel:          lightModel,
	}

	saved, err := r.aliases.Upsert(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert alias: %w", err)
	}
	r.logger.Debug("alias upserted", "account_id", accountID, "alias", saved.Alias)
	return saved, nil
}

// Patch applies a partial update to an existing alias. Untouched
// fields keep their stored values.
func (r *Registry) Patch(ctx context.Context, accountID int64, name string, params PatchParams) (*models.Alias, error) {
	updates := make(map[string]interface{})

	if params.TargetModel != nil {
		if *params.TargetModel == "" {
			return nil, &ValidationError{Field: "target_model", Message: "must not be empty"}
		}
		updates["target_model"] = *params.TargetModel
	}
	if params.ProviderKeyID != nil {
		if *params.ProviderKeyID <= 0 {
			return nil, &ValidationError{Field: "provider_key_id", Message: "must be a positive id"}
		}
		if err := r.checkProviderKey(ctx, accountID, *params.ProviderKeyID); err != nil {
			return nil, err
		}
		updates["provider_key_id"] = *params.ProviderKeyID
	}
	if params.FallbackAliasID != nil {
		fallbackID := normalizeFallbackID(params.FallbackAliasID)
		if fallbackID == nil {
			updates["fallback_alias_id"] = nil
		} else {
			if err := r.checkFallbackAlias(ctx, accountID, *fallbackID); err != nil {
				return nil, err
			}
			updates["fallback_alias_id"] = *fallbackID
		}
	}
	if params.UseLightModel != nil {
		updates["use_light_model"] = *params.UseLightModel
	}
	if params.LightModelThreshold != nil {
		updates["light_model_threshold"] = *params.LightModelThreshold
	}
	if params.LightModel != nil {
		if lm := normalizeLightModel(params.LightModel); lm == nil {
			updates["light_model"] = nil
		} else {
			updates["light_model"] = *lm
		}
	}

	if len(updates) == 0 {
		return nil, &ValidationError{Field: "body", Message: "no updatable fields provided"}
	}

	updated, err := r.aliases.Patch(ctx, accountID, name, updates)
	if err != nil {
		if errors.Is(err, storage.ErrAliasNotFound) {
			return nil, ErrAliasNotFound
		}
		return nil, fmt.Errorf("failed to patch alias: %w", err)
	}
	r.logger.Debug("alias patched", "account_id", accountID, "alias", name, "fields", len(updates))
	return updated, nil
}

// Get returns the named alias for the account
func (r *Registry) Get(ctx context.Context, accountID int64, name string) (*models.Alias, error) {
	alias, err := r.aliases.GetByName(ctx, accountID, name)
	if err != nil {
		if errors.Is(err, storage.ErrAliasNotFound) {
			return nil, ErrAliasNotFound
		}
		return nil, fmt.Errorf("failed to get alias: %w", err)
	}
	return alias, nil
}

// List returns all aliases the account owns, ordered by creation
func (r *Registry) List(ctx context.Context, accountID int64) ([]*models.Alias, error) {
	aliases, err := r.aliases.List(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}
	return aliases, nil
}

// checkProviderKey distinguishes a dangling reference from a
// reference to another account's key
func (r *Registry) checkProviderKey(ctx context.Context, accountID, keyID int64) error {
	_, err := r.providerKeys.Get(ctx, accountID, keyID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrProviderKeyNotFound) {
		return fmt.Errorf("failed to check provider key: %w", err)
	}
	exists, err := r.providerKeys.Exists(ctx, keyID)
	if err != nil {
		return fmt.Errorf("failed to check provider key: %w", err)
	}
	if exists {
		return &AuthorizationError{Resource: "provider key", ID: keyID}
	}
	return &ValidationError{Field: "provider_key_id", Message: fmt.Sprintf("provider key %d does not exist", keyID)}
}

func (r *Registry) checkFallbackAlias(ctx context.Context, accountID, aliasID int64) error {
	_, err := r.aliases.GetByID(ctx, accountID, aliasID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrAliasNotFound) {
		return fmt.Errorf("failed to check fallback alias: %w", err)
	}
	exists, err := r.aliases.Exists(ctx, aliasID)
	if err != nil {
		return fmt.Errorf("failed to check fallback alias: %w", err)
	}
	if exists {
		return &AuthorizationError{Resource: "alias", ID: aliasID}
	}
	return &ValidationError{Field: "fallback_alias_id", Message: fmt.Sprintf("alias %d does not exist", aliasID)}
}

func normalizeFallbackID(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}

func normalizeLightModel(model *string) *string {
	if model == nil || *model == "" {
		return nil
	}
	return model
}
