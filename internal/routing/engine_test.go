package routing

import (
	"context"
	"errors"
	"testing"

	"modelgw/internal/models"
	"modelgw/internal/storage"
	"modelgw/internal/utils"
)

type fakeAliasResolver struct {
	byName map[string]*models.Alias
	byID   map[int64]*models.Alias
}

func newFakeAliasResolver() *fakeAliasResolver {
	return &fakeAliasResolver{
		byName: make(map[string]*models.Alias),
		byID:   make(map[int64]*models.Alias),
	}
}

func (r *fakeAliasResolver) add(a *models.Alias) {
	r.byName[a.Alias] = a
	r.byID[a.ID] = a
}

func (r *fakeAliasResolver) GetByName(ctx context.Context, accountID int64, name string) (*models.Alias, error) {
	a, ok := r.byName[name]
	if !ok || a.AccountID != accountID {
		return nil, storage.ErrAliasNotFound
	}
	return a, nil
}

func (r *fakeAliasResolver) GetByID(ctx context.Context, accountID, id int64) (*models.Alias, error) {
	a, ok := r.byID[id]
	if !ok || a.AccountID != accountID {
		return nil, storage.ErrAliasNotFound
	}
	return a, nil
}

type fakeCredentialResolver struct {
	keys map[int64]*models.ProviderKey
}

func newFakeCredentialResolver() *fakeCredentialResolver {
	return &fakeCredentialResolver{keys: make(map[int64]*models.ProviderKey)}
}

func (r *fakeCredentialResolver) add(id, accountID int64, provider string) {
	r.keys[id] = &models.ProviderKey{ID: id, AccountID: accountID, Provider: provider, EncryptedKey: "enc"}
}

func (r *fakeCredentialResolver) Get(ctx context.Context, accountID, keyID int64) (*models.ProviderKey, error) {
	k, ok := r.keys[keyID]
	if !ok || k.AccountID != accountID {
		return nil, storage.ErrProviderKeyNotFound
	}
	return k, nil
}

func newTestEngine() (*Engine, *fakeAliasResolver, *fakeCredentialResolver) {
	aliases := newFakeAliasResolver()
	creds := newFakeCredentialResolver()
	return NewEngine(aliases, creds, utils.NewLogger("test", utils.Critical)), aliases, creds
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func TestResolveBasic(t *testing.T) {
	engine, aliases, creds := newTestEngine()
	creds.add(1, 10, "openai")
	aliases.add(&models.Alias{
		ID: 1, AccountID: 10, Alias: "my-model", TargetModel: "gpt-4-turbo", ProviderKeyID: 1,
	})

	decision, err := engine.Resolve(context.Background(), 10, "my-model", 500)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if decision.Provider != "openai" {
		t.Errorf("expected provider openai, got %q", decision.Provider)
	}
	if decision.ResolvedModel != "gpt-4-turbo" {
		t.Errorf("expected model gpt-4-turbo, got %q", decision.ResolvedModel)
	}
	if decision.UsedLightModel {
		t.Error("light model should not apply without opt-in")
	}
}

func TestResolveUnknownAlias(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.Resolve(context.Background(), 10, "nope", 100)
	if !errors.Is(err, ErrAliasNotFound) {
		t.Errorf("expected ErrAliasNotFound, got %v", err)
	}
}

func TestResolveAccountScoped(t *testing.T) {
	engine, aliases, creds := newTestEngine()
	creds.add(1, 99, "openai")
	aliases.add(&models.Alias{
		ID: 1, AccountID: 99, Alias: "my-model", TargetModel: "gpt-4o", ProviderKeyID: 1,
	})

	_, err := engine.Resolve(context.Background(), 10, "my-model", 100)
	if !errors.Is(err, ErrAliasNotFound) {
		t.Errorf("another account's alias must not resolve, got %v", err)
	}
}

func TestResolveCredentialMissing(t *testing.T) {
	engine, aliases, _ := newTestEngine()
	aliases.add(&models.Alias{
		ID: 1, AccountID: 10, Alias: "my-model", TargetModel: "gpt-4o", ProviderKeyID: 7,
	})

	_, err := engine.Resolve(context.Background(), 10, "my-model", 100)
	if !errors.Is(err, ErrCredentialMissing) {
		t.Errorf("expected ErrCredentialMissing, got %v", err)
	}
}

func TestResolveLightModel(t *testing.T) {
	engine, aliases, creds := newTestEngine()
	creds.add(1, 10, "openai")

	tests := []struct {
		name      string
		alias     models.Alias
		estimated int
		wantModel string
		wantLight bool
	}{
		{
			name: "at threshold selects light model",
			alias: models.Alias{
				ID: 1, AccountID: 10, Alias: "a1", TargetModel: "gpt-4o", ProviderKeyID: 1,
				UseLightModel: true, LightModelThreshold: intPtr(50), LightModel: strPtr("gpt-4o-mini"),
			},
			estimated: 50,
			wantModel: "gpt-4o-mini",
			wantLight: true,
		},
		{
			name: "above threshold keeps target",
			alias: models.Alias{
				ID: 2, AccountID: 10, Alias: "a2", TargetModel: "gpt-4o", ProviderKeyID: 1,
				UseLightModel: true, LightModelThreshold: intPtr(50), LightModel: strPtr("gpt-4o-mini"),
			},
			estimated: 51,
			wantModel: "gpt-4o",
			wantLight: false,
		},
		{
			name: "opt-out ignores light model",
			alias: models.Alias{
				ID: 3, AccountID: 10, Alias: "a3", TargetModel: "gpt-4o", ProviderKeyID: 1,
				UseLightModel: false, LightModelThreshold: intPtr(50), LightModel: strPtr("gpt-4o-mini"),
			},
			estimated: 10,
			wantModel: "gpt-4o",
			wantLight: false,
		},
		{
			name: "nil threshold never selects light model",
			alias: models.Alias{
				ID: 4, AccountID: 10, Alias: "a4", TargetModel: "gpt-4o", ProviderKeyID: 1,
				UseLightModel: true, LightModel: strPtr("gpt-4o-mini"),
			},
			estimated: 1,
			wantModel: "gpt-4o",
			wantLight: false,
		},
		{
			name: "nil light model never downgrades",
			alias: models.Alias{
				ID: 5, AccountID: 10, Alias: "a5", TargetModel: "gpt-4o", ProviderKeyID: 1,
				UseLightModel: true, LightModelThreshold: intPtr(50),
			},
			estimated: 1,
			wantModel: "gpt-4o",
			wantLight: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alias := tt.alias
			aliases.add(&alias)

			decision, err := engine.Resolve(context.Background(), 10, alias.Alias, tt.estimated)
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}
			if decision.ResolvedModel != tt.wantModel {
				t.Errorf("expected model %q, got %q", tt.wantModel, decision.ResolvedModel)
			}
			if decision.UsedLightModel != tt.wantLight {
				t.Errorf("expected UsedLightModel=%v, got %v", tt.wantLight, decision.UsedLightModel)
			}
		})
	}
}
