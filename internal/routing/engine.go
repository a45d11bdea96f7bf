package routing

import (
	"context"
	"errors"
	"fmt"

	"modelgw/internal/models"
	"modelgw/internal/storage"
	"modelgw/internal/utils"
)

var (
	// ErrAliasNotFound is returned when the requested model name does
	// not match any alias owned by the account
	ErrAliasNotFound = errors.New("no alias matches the requested model")
	// ErrCredentialMissing is returned when an alias points at a
	// provider key that no longer resolves for the account
	ErrCredentialMissing = errors.New("alias credential is missing")
	// ErrFallbackCycle is returned by the fallback walk when an alias
	// chain revisits an alias it already tried
	ErrFallbackCycle = errors.New("fallback chain contains a cycle")
	// ErrFallbackExhausted is returned when every alias in the chain
	// has been tried without success
	ErrFallbackExhausted = errors.New("fallback chain exhausted")
)

// AliasResolver looks up aliases for routing. Satisfied by
// storage.AliasRepository.
type AliasResolver interface {
	GetByName(ctx context.Context, accountID int64, name string) (*models.Alias, error)
	GetByID(ctx context.Context, accountID, id int64) (*models.Alias, error)
}

// CredentialResolver looks up provider credentials for routing.
// Satisfied by storage.ProviderKeyRepository.
type CredentialResolver interface {
	Get(ctx context.Context, accountID, keyID int64) (*models.ProviderKey, error)
}

// Decision is the outcome of resolving one alias: which provider to
// call, with which credential, and which concrete model name to send
type Decision struct {
	AliasID         int64
	AliasName       string
	Provider        string
	ProviderKeyID   int64
	EncryptedKey    string
	ResolvedModel   string
	UsedLightModel  bool
	FallbackAliasID *int64
}

// Engine resolves a logical model name to a concrete provider call.
// Resolution is single hop; walking the fallback chain is the
// caller's job via Walker.
type Engine struct {
	aliases     AliasResolver
	credentials CredentialResolver
	logger      *utils.Logger
}

func NewEngine(aliases AliasResolver, credentials CredentialResolver, logger *utils.Logger) *Engine {
	if logger == nil {
		logger = utils.NewLogger("routing")
	}
	return &Engine{
		aliases:     aliases,
		credentials: credentials,
		logger:      logger,
	}
}

// Resolve maps a requested model name to a Decision for the account.
// The light model replaces the target model only when the alias opts
// in, both the light model and the threshold are set, and the
// estimate does not exceed the threshold.
func (e *Engine) Resolve(ctx context.Context, accountID int64, modelName string, estimatedTokens int) (*Decision, error) {
	alias, err := e.aliases.GetByName(ctx, accountID, modelName)
	if err != nil {
		if errors.Is(err, storage.ErrAliasNotFound) {
			return nil, ErrAliasNotFound
		}
		return nil, fmt.Errorf("failed to resolve alias: %w", err)
	}
	return e.decide(ctx, accountID, alias, estimatedTokens)
}

// ResolveByID resolves an alias by its id. Used when following a
// fallback reference.
func (e *Engine) ResolveByID(ctx context.Context, accountID, aliasID int64, estimatedTokens int) (*Decision, error) {
	alias, err := e.aliases.GetByID(ctx, accountID, aliasID)
	if err != nil {
		if errors.Is(err, storage.ErrAliasNotFound) {
			return nil, ErrAliasNotFound
		}
		return nil, fmt.Errorf("failed to resolve alias: %w", err)
	}
	return e.decide(ctx, accountID, alias, estimatedTokens)
}

func (e *Engine) decide(ctx context.Context, accountID int64, alias *models.Alias, estimatedTokens int) (*Decision, error) {
	key, err := e.credentials.Get(ctx, accountID, alias.ProviderKeyID)
	if err != nil {
		if errors.Is(err, storage.ErrProviderKeyNotFound) {
			return nil, ErrCredentialMissing
		}
		return nil, fmt.Errorf("failed to resolve credential: %w", err)
	}

	decision := &Decision{
		AliasID:         alias.ID,
		AliasName:       alias.Alias,
		Provider:        key.Provider,
		ProviderKeyID:   key.ID,
		EncryptedKey:    key.EncryptedKey,
		ResolvedModel:   alias.TargetModel,
		FallbackAliasID: alias.FallbackAliasID,
	}
	if alias.WantsLightModel(estimatedTokens) {
		decision.ResolvedModel = *alias.LightModel
		decision.UsedLightModel = true
	}

	e.logger.Debug("resolved alias",
		"account_id", accountID,
		"alias", alias.Alias,
		"provider", key.Provider,
		"model", decision.ResolvedModel,
		"light", decision.UsedLightModel)
	return decision, nil
}
