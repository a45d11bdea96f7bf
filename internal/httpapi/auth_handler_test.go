package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"modelgw/internal/auth"
	"modelgw/internal/models"
	"modelgw/internal/storage"
)

type fakeAccountStore struct {
	accounts map[int64]*models.Account
	apiKeys  []*models.APIKey
	nextID   int64
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[int64]*models.Account)}
}

func (s *fakeAccountStore) Create(ctx context.Context, email, passwordHash string) (*models.Account, error) {
	for _, a := range s.accounts {
		if a.Email == email {
			return nil, storage.ErrDuplicateEmail
		}
	}
	s.nextID++
	account := &models.Account{
		ID:           s.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.accounts[account.ID] = account
	return account, nil
}

func (s *fakeAccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, storage.ErrAccountNotFound
}

func (s *fakeAccountStore) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	return nil, storage.ErrAccountNotFound
}

func (s *fakeAccountStore) CreateAPIKey(ctx context.Context, accountID int64, name, keyHash, prefix string) error {
	s.nextID++
	s.apiKeys = append(s.apiKeys, &models.APIKey{
		ID:        s.nextID,
		AccountID: accountID,
		Name:      name,
		KeyHash:   keyHash,
		Prefix:    prefix,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *fakeAccountStore) ListAPIKeys(ctx context.Context, accountID int64) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	for _, k := range s.apiKeys {
		if k.AccountID == accountID {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

var testJWTSecret = []byte("test-secret")

func TestSignup(t *testing.T) {
	handler := NewAuthHandler(newFakeAccountStore(), testJWTSecret)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/signup",
		strings.NewReader(`{"email":"alice@example.com","password":"hunter22well"}`))
	handler.Signup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	decodeBody(t, rec, &resp)
	if resp.ID == 0 {
		t.Error("expected a non-zero account id")
	}
	if resp.Email != "alice@example.com" {
		t.Errorf("expected email echoed back, got %s", resp.Email)
	}
}

func TestSignupValidation(t *testing.T) {
	handler := NewAuthHandler(newFakeAccountStore(), testJWTSecret)

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"hunter22well"}`},
		{"email without at sign", `{"email":"alice","password":"hunter22well"}`},
		{"short password", `{"email":"alice@example.com","password":"short"}`},
		{"invalid json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(tt.body))
			handler.Signup(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	handler := NewAuthHandler(newFakeAccountStore(), testJWTSecret)

	body := `{"email":"alice@example.com","password":"hunter22well"}`
	rec := httptest.NewRecorder()
	handler.Signup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first signup failed: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Signup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body)))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	store := newFakeAccountStore()
	handler := NewAuthHandler(store, testJWTSecret)

	hash, err := auth.HashPassword("hunter22well")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	account, _ := store.Create(context.Background(), "alice@example.com", hash)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"alice@example.com","password":"hunter22well"}`))
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)

	claims, err := auth.ValidateToken(testJWTSecret, resp.Token)
	if err != nil {
		t.Fatalf("login token failed validation: %v", err)
	}
	if claims.AccountID != account.ID {
		t.Errorf("expected account id %d in claims, got %d", account.ID, claims.AccountID)
	}
	if claims.Scope != auth.ScopeSession {
		t.Errorf("expected session scope, got %s", claims.Scope)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := newFakeAccountStore()
	handler := NewAuthHandler(store, testJWTSecret)

	hash, _ := auth.HashPassword("hunter22well")
	store.Create(context.Background(), "alice@example.com", hash)

	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"email":"alice@example.com","password":"wrong-password"}`},
		{"unknown email", `{"email":"bob@example.com","password":"hunter22well"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body)))
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestMe(t *testing.T) {
	store := newFakeAccountStore()
	handler := NewAuthHandler(store, testJWTSecret)

	account, _ := store.Create(context.Background(), "alice@example.com", "hash")

	rec := httptest.NewRecorder()
	handler.Me(rec, authedRequest(t, http.MethodGet, "/auth/me", account.ID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	decodeBody(t, rec, &resp)
	if resp.ID != account.ID || resp.Email != "alice@example.com" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestMeUnauthenticated(t *testing.T) {
	handler := NewAuthHandler(newFakeAccountStore(), testJWTSecret)

	rec := httptest.NewRecorder()
	handler.Me(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAPIKeyMintAndList(t *testing.T) {
	store := newFakeAccountStore()
	handler := NewAuthHandler(store, testJWTSecret)

	account, _ := store.Create(context.Background(), "alice@example.com", "hash")

	rec := httptest.NewRecorder()
	handler.Keys(rec, authedRequest(t, http.MethodPost, "/auth/key", account.ID,
		map[string]string{"name": "ci"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var minted struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &minted)

	claims, err := auth.ValidateToken(testJWTSecret, minted.Token)
	if err != nil {
		t.Fatalf("minted token failed validation: %v", err)
	}
	if claims.Scope != auth.ScopeAPIKey {
		t.Errorf("expected api key scope, got %s", claims.Scope)
	}

	rec = httptest.NewRecorder()
	handler.Keys(rec, authedRequest(t, http.MethodGet, "/auth/key", account.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var listed struct {
		Keys []struct {
			Name   string `json:"name"`
			Prefix string `json:"prefix"`
		} `json:"keys"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(listed.Keys))
	}
	if listed.Keys[0].Name != "ci" {
		t.Errorf("expected key name ci, got %s", listed.Keys[0].Name)
	}
	// Only a short prefix of the token is ever listed
	if !strings.HasPrefix(minted.Token, listed.Keys[0].Prefix) {
		t.Errorf("prefix %q is not a prefix of the minted token", listed.Keys[0].Prefix)
	}
	if len(listed.Keys[0].Prefix) >= len(minted.Token) {
		t.Error("listing leaked the full token")
	}
}

// Minting a key with no request body at all works and names the key
// "default"
func TestAPIKeyMintWithEmptyBody(t *testing.T) {
	store := newFakeAccountStore()
	handler := NewAuthHandler(store, testJWTSecret)

	account, _ := store.Create(context.Background(), "alice@example.com", "hash")

	rec := httptest.NewRecorder()
	handler.Keys(rec, authedRequest(t, http.MethodPost, "/auth/key", account.ID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var minted struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &minted)
	if minted.Token == "" {
		t.Fatal("expected a token in the response")
	}

	keys, _ := store.ListAPIKeys(context.Background(), account.ID)
	if len(keys) != 1 || keys[0].Name != "default" {
		t.Fatalf("expected one key named default, got %+v", keys)
	}
}
