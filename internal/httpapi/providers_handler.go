package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"modelgw/internal/middleware"
	"modelgw/internal/models"
	"modelgw/internal/providers"
	"modelgw/internal/storage"
	"modelgw/internal/utils"
)

// ProvidersHandler manages stored provider credentials and the model
// catalog. API keys are encrypted at rest and never returned.
type ProvidersHandler struct {
	keys       ProviderKeyStore
	catalog    ModelCatalogStore
	encryption *storage.Encryption
	httpClient *http.Client
	logger     *utils.Logger
}

func NewProvidersHandler(keys ProviderKeyStore, catalog ModelCatalogStore, encryption *storage.Encryption) *ProvidersHandler {
	return &ProvidersHandler{
		keys:       keys,
		catalog:    catalog,
		encryption: encryption,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     utils.NewLogger("providers-handler"),
	}
}

type createProviderKeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Label    string `json:"label"`
}

type providerKeyResponse struct {
	ID        int64  `json:"id"`
	Provider  string `json:"provider"`
	Label     string `json:"label"`
	CreatedAt string `json:"created_at"`
}

func toProviderKeyResponse(key *models.ProviderKey) providerKeyResponse {
	return providerKeyResponse{
		ID:        key.ID,
		Provider:  key.Provider,
		Label:     key.Label,
		CreatedAt: key.CreatedAt.Format(time.RFC3339),
	}
}

// Keys handles POST and GET /manage/providers
func (h *ProvidersHandler) Keys(w http.ResponseWriter, r *http.Request) {
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

func (h *ProvidersHandler) createKey(w http.ResponseWriter, r *http.Request, accountID int64) {
	var req createProviderKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !providers.IsSupported(req.Provider) {
		utils.RespondWithError(w, http.StatusBadRequest, "unsupported provider: "+req.Provider)
		return
	}
	if req.APIKey == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	encrypted, err := h.encryption.EncryptString(req.APIKey)
	if err != nil {
		h.logger.Error("failed to encrypt provider key", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to store key")
		return
	}

	key, err := h.keys.Create(r.Context(), accountID, req.Provider, encrypted, req.Label)
	if err != nil {
		h.logger.Error("failed to store provider key", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to store key")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, toProviderKeyResponse(key))
}

func (h *ProvidersHandler) listKeys(w http.ResponseWriter, r *http.Request, accountID int64) {
	keys, err := h.keys.List(r.Context(), accountID)
	if err != nil {
		h.logger.Error("failed to list provider keys", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to list keys")
		return
	}

	out := make([]providerKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toProviderKeyResponse(k))
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// KeyModels handles GET /manage/providers/{keyID}/models by asking
// the upstream provider for its live model list using the stored key
func (h *ProvidersHandler) KeyModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// path shape: /manage/providers/{keyID}/models
	rest := strings.TrimPrefix(r.URL.Path, "/manage/providers/")
	idStr, tail, found := strings.Cut(rest, "/")
	if !found || tail != "models" {
		utils.RespondWithError(w, http.StatusNotFound, "not found")
		return
	}
	keyID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid key id")
		return
	}

	key, err := h.keys.Get(r.Context(), accountID, keyID)
	if err != nil {
		if errors.Is(err, storage.ErrProviderKeyNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "provider key not found")
			return
		}
		h.logger.Error("failed to get provider key", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	client, err := providers.New(key.Provider, "", h.httpClient)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	apiKey, err := h.encryption.DecryptString(key.EncryptedKey)
	if err != nil {
		h.logger.Error("failed to decrypt provider key", "key_id", keyID, "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	modelIDs, err := client.ListModels(r.Context(), apiKey)
	if err != nil {
		h.logger.Warn("failed to list upstream models", "provider", key.Provider, "error", err.Error())
		utils.RespondWithError(w, http.StatusBadGateway, "failed to list models from provider")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"provider": key.Provider,
		"models":   modelIDs,
	})
}

// Catalog handles GET /manage/models, the cached model catalog kept
// fresh by the background poller
func (h *ProvidersHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	all, err := h.catalog.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list model catalog", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to list models")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"models": all})
}
