package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"modelgw/internal/models"
	"modelgw/internal/utils"
)

type fakeKeySource struct {
	keys []*models.ProviderKey
	err  error
}

func (s *fakeKeySource) ListOnePerProvider(ctx context.Context) ([]*models.ProviderKey, error) {
	return s.keys, s.err
}

type fakeCatalog struct {
	inserted map[string][]string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{inserted: make(map[string][]string)}
}

func (c *fakeCatalog) Insert(ctx context.Context, provider, modelID string) error {
	c.inserted[provider] = append(c.inserted[provider], modelID)
	return nil
}

type fakeDecrypter struct{}

func (fakeDecrypter) DecryptString(ciphertext string) (string, error) {
	return ciphertext, nil
}

func TestPollSeedsCommonModels(t *testing.T) {
	catalog := newFakeCatalog()
	poller := NewPoller(&fakeKeySource{}, catalog, fakeDecrypter{}, time.Hour, utils.NewLogger("test", utils.Critical))

	poller.Poll(context.Background())

	for _, provider := range SupportedProviders() {
		if len(catalog.inserted[provider]) == 0 {
			t.Errorf("expected seeded models for %s", provider)
		}
	}
}

func TestPollSurvivesKeyQueryFailure(t *testing.T) {
	catalog := newFakeCatalog()
	keys := &fakeKeySource{err: errors.New("db down")}
	poller := NewPoller(keys, catalog, fakeDecrypter{}, time.Hour, utils.NewLogger("test", utils.Critical))

	// must not panic; the seeded baseline still lands
	poller.Poll(context.Background())

	if len(catalog.inserted[ProviderOpenAI]) == 0 {
		t.Error("expected seeding to happen before the key query")
	}
}
