package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"modelgw/internal/auth"
	"modelgw/internal/middleware"
	"modelgw/internal/storage"
	"modelgw/internal/utils"
)

// AuthHandler handles account signup, login and API key minting
type AuthHandler struct {
	accounts  AccountStore
	jwtSecret []byte
	logger    *utils.Logger
}

func NewAuthHandler(accounts AccountStore, jwtSecret []byte) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		jwtSecret: jwtSecret,
		logger:    utils.NewLogger("auth-handler"),
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		utils.RespondWithError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		utils.RespondWithError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	account, err := h.accounts.Create(r.Context(), req.Email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			utils.RespondWithError(w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("failed to create account", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, signupResponse{
		ID:    account.ID,
		Email: account.Email,
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.accounts.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			utils.RespondWithError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("failed to look up account", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if !auth.CheckPassword(account.PasswordHash, req.Password) {
		utils.RespondWithError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateSessionToken(h.jwtSecret, account.ID)
	if err != nil {
		h.logger.Error("failed to generate session token", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "login failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.logger.Error("failed to look up account", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"id":    account.ID,
		"email": account.Email,
	})
}

type createKeyRequest struct {
	Name string `json:"name"`
}

// apiKeyPrefixLen is how many leading token characters are stored in
// clear for identification in listings
const apiKeyPrefixLen = 8

// Keys handles POST and GET /auth/key. POST mints a long lived API
// key token; only its hash and a short prefix are stored, so the
// token is shown exactly once.
func (h *AuthHandler) Keys(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.createKey(w, r, accountID)
	case http.MethodGet:
		h.listKeys(w, r, accountID)
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AuthHandler) createKey(w http.ResponseWriter, r *http.Request, accountID int64) {
	// An empty body is fine, the name just defaults
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		req.Name = "default"
	}

	token, err := auth.GenerateAPIKeyToken(h.jwtSecret, accountID)
	if err != nil {
		h.logger.Error("failed to generate api key token", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create key")
		return
	}

	prefix := token
	if len(prefix) > apiKeyPrefixLen {
		prefix = prefix[:apiKeyPrefixLen]
	}
	if err := h.accounts.CreateAPIKey(r.Context(), accountID, req.Name, utils.HashString(token), prefix); err != nil {
		h.logger.Error("failed to store api key", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create key")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *AuthHandler) listKeys(w http.ResponseWriter, r *http.Request, accountID int64) {
	keys, err := h.accounts.ListAPIKeys(r.Context(), accountID)
	if err != nil {
		h.logger.Error("failed to list api keys", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to list keys")
		return
	}

	type keyResponse struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Prefix    string `json:"prefix"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]keyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyResponse{
			ID:        k.ID,
			Name:      k.Name,
			Prefix:    k.Prefix,
			CreatedAt: k.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"keys": out})
}
