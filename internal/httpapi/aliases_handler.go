package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"modelgw/internal/middleware"
	"modelgw/internal/models"
	"modelgw/internal/registry"
	"modelgw/internal/utils"
)

// AliasesHandler exposes alias management on top of the registry
type AliasesHandler struct {
	registry *registry.Registry
	logger   *utils.Logger
}

func NewAliasesHandler(reg *registry.Registry) *AliasesHandler {
	return &AliasesHandler{
		registry: reg,
		logger:   utils.NewLogger("aliases-handler"),
	}
}

type aliasResponse struct {
	ID                  int64   `json:"id"`
	Alias               string  `json:"alias"`
	TargetModel         string  `json:"target_model"`
	ProviderKeyID       int64   `json:"provider_key_id"`
	FallbackAliasID     *int64  `json:"fallback_alias_id"`
	UseLightModel       bool    `json:"use_light_model"`
	LightModelThreshold *int    `json:"light_model_threshold"`
	LightModel          *string `json:"light_model"`
	CreatedAt           string  `json:"created_at"`
}

func toAliasResponse(alias *models.Alias) aliasResponse {
	return aliasResponse{
		ID:                  alias.ID,
		Alias:               alias.Alias,
		TargetModel:         alias.TargetModel,
		ProviderKeyID:       alias.ProviderKeyID,
		FallbackAliasID:     alias.FallbackAliasID,
		UseLightModel:       alias.UseLightModel,
		LightModelThreshold: alias.LightModelThreshold,
		LightModel:          alias.LightModel,
		CreatedAt:           alias.CreatedAt.Format(time.RFC3339),
	}
}

// Collection handles POST and GET /manage/aliases
func (h *AliasesHandler) Collection(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.upsert(w, r, accountID)
	case http.MethodGet:
		h.list(w, r, accountID)
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AliasesHandler) upsert(w http.ResponseWriter, r *http.Request, accountID int64) {
	var params registry.UpsertParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	alias, err := h.registry.Upsert(r.Context(), accountID, params)
	if err != nil {
		h.respondRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toAliasResponse(alias))
}

func (h *AliasesHandler) list(w http.ResponseWriter, r *http.Request, accountID int64) {
	aliases, err := h.registry.List(r.Context(), accountID)
	if err != nil {
		h.logger.Error("failed to list aliases", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to list aliases")
		return
	}

	out := make([]aliasResponse, 0, len(aliases))
	for _, a := range aliases {
		out = append(out, toAliasResponse(a))
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// Item handles GET and PATCH /manage/aliases/{name}
func (h *AliasesHandler) Item(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/manage/aliases/")
	if name == "" || strings.Contains(name, "/") {
		utils.RespondWithError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, accountID, name)
	case http.MethodPatch:
		h.patch(w, r, accountID, name)
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AliasesHandler) get(w http.ResponseWriter, r *http.Request, accountID int64, name string) {
	alias, err := h.registry.Get(r.Context(), accountID, name)
	if err != nil {
		h.respondRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toAliasResponse(alias))
}

func (h *AliasesHandler) patch(w http.ResponseWriter, r *http.Request, accountID int64, name string) {
	var params registry.PatchParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	alias, err := h.registry.Patch(r.Context(), accountID, name, params)
	if err != nil {
		h.respondRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toAliasResponse(alias))
}

func (h *AliasesHandler) respondRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrAliasNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "alias not found")
	case registry.IsValidationError(err):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case registry.IsAuthorizationError(err):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	default:
		h.logger.Error("alias operation failed", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "alias operation failed")
	}
}
