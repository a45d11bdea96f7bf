package providers

import (
	"context"
	"net/http"
	"time"

	"modelgw/internal/models"
	"modelgw/internal/utils"
)

const defaultPollInterval = 12 * time.Hour

// KeySource yields one credential per provider so each provider's
// model catalog is fetched exactly once per cycle. Satisfied by
// storage.ProviderKeyRepository.
type KeySource interface {
	ListOnePerProvider(ctx context.Context) ([]*models.ProviderKey, error)
}

// ModelCatalog persists discovered model identifiers. Satisfied by
// storage.ProviderModelRepository.
type ModelCatalog interface {
	Insert(ctx context.Context, provider, modelID string) error
}

// Decrypter recovers the plaintext API key from a stored credential.
// Satisfied by storage.Encryption.
type Decrypter interface {
	DecryptString(ciphertext string) (string, error)
}

// Poller refreshes the provider model catalog on an interval. Known
// models are seeded first so the catalog is useful before any
// credential exists.
type Poller struct {
	keys     KeySource
	catalog  ModelCatalog
	decrypt  Decrypter
	client   *http.Client
	interval time.Duration
	logger   *utils.Logger
	cancel   context.CancelFunc
}

func NewPoller(keys KeySource, catalog ModelCatalog, decrypt Decrypter, interval time.Duration, logger *utils.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = utils.NewLogger("model-poller")
	}
	return &Poller{
		keys:     keys,
		catalog:  catalog,
		decrypt:  decrypt,
		client:   &http.Client{Timeout: defaultTimeout},
		interval: interval,
		logger:   logger,
	}
}

// Start polls once immediately, then on every tick until Stop or
// context cancellation
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Poll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the polling loop
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

// Poll runs one refresh cycle
func (p *Poller) Poll(ctx context.Context) {
	p.logger.Info("polling providers for models")

	for _, name := range SupportedProviders() {
		p.seedCommonModels(ctx, name)
	}

	keys, err := p.keys.ListOnePerProvider(ctx)
	if err != nil {
		p.logger.Error("failed to query provider keys for polling", "error", err.Error())
		return
	}

	for _, key := range keys {
		if err := p.pollProvider(ctx, key); err != nil {
			p.logger.Warn("failed to list models",
				"provider", key.Provider,
				"key_id", key.ID,
				"error", err.Error())
		}
	}
	p.logger.Info("model polling complete")
}

func (p *Poller) pollProvider(ctx context.Context, key *models.ProviderKey) error {
	client, err := New(key.Provider, "", p.client)
	if err != nil {
		return err
	}
	apiKey, err := p.decrypt.DecryptString(key.EncryptedKey)
	if err != nil {
		return err
	}

	modelIDs, err := client.ListModels(ctx, apiKey)
	if err != nil {
		return err
	}
	for _, id := range modelIDs {
		if err := p.catalog.Insert(ctx, key.Provider, id); err != nil {
			p.logger.Warn("failed to store model", "provider", key.Provider, "model", id, "error", err.Error())
		}
	}
	return nil
}

// seedCommonModels keeps a baseline catalog per provider so alias
// management can offer suggestions even before the first poll with a
// real key succeeds
func (p *Poller) seedCommonModels(ctx context.Context, provider string) {
	var common []string
	switch provider {
	case ProviderOpenAI:
		common = []string{"gpt-5", "gpt-5.2-thinking", "gpt-5.2-pro", "gpt-4o", "gpt-4o-mini", "o3-pro", "o4-mini"}
	case ProviderAnthropic:
		common = []string{"claude-4.5-opus", "claude-4.5-sonnet", "claude-4.5-haiku", "claude-4-sonnet", "claude-4-opus"}
	case ProviderGemini:
		common = []string{"gemini-3-pro", "gemini-3-flash", "gemini-2.5-pro", "gemini-2.5-flash"}
	}
	for _, m := range common {
		if err := p.catalog.Insert(ctx, provider, m); err != nil {
			p.logger.Warn("failed to seed model", "provider", provider, "model", m, "error", err.Error())
		}
	}
}
