package httpapi

import (
	"context"

	"modelgw/internal/models"
)

// AccountStore is the persistence surface the auth handlers need.
// Satisfied by storage.AccountRepository.
type AccountStore interface {
	Create(ctx context.Context, email, passwordHash string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	CreateAPIKey(ctx context.Context, accountID int64, name, keyHash, prefix string) error
	ListAPIKeys(ctx context.Context, accountID int64) ([]*models.APIKey, error)
}

// ProviderKeyStore is the persistence surface the provider credential
// handlers need. Satisfied by storage.ProviderKeyRepository.
type ProviderKeyStore interface {
	Create(ctx context.Context, accountID int64, provider, encryptedKey, label string) (*models.ProviderKey, error)
	Get(ctx context.Context, accountID, keyID int64) (*models.ProviderKey, error)
	List(ctx context.Context, accountID int64) ([]*models.ProviderKey, error)
}

// ModelCatalogStore reads the cached provider model catalog.
// Satisfied by storage.ProviderModelRepository.
type ModelCatalogStore interface {
	ListAll(ctx context.Context) (map[string][]string, error)
}
