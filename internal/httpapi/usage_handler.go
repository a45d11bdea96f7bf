package httpapi

import (
	"net/http"
	"time"

	"modelgw/internal/middleware"
	"modelgw/internal/models"
	"modelgw/internal/usage"
	"modelgw/internal/utils"
)

// UsageHandler exposes an account's usage records
type UsageHandler struct {
	recorder *usage.Recorder
	logger   *utils.Logger
}

func NewUsageHandler(recorder *usage.Recorder) *UsageHandler {
	return &UsageHandler{
		recorder: recorder,
		logger:   utils.NewLogger("usage-handler"),
	}
}

type usageRecordResponse struct {
	ID               string `json:"id"`
	AliasID          *int64 `json:"alias_id"`
	RequestID        string `json:"request_id"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	Succeeded        bool   `json:"succeeded"`
	CreatedAt        string `json:"created_at"`
}

func toUsageRecordResponse(rec *models.UsageRecord) usageRecordResponse {
	return usageRecordResponse{
		ID:               rec.ID.String(),
		AliasID:          rec.AliasID,
		RequestID:        rec.RequestID.String(),
		PromptTokens:     rec.PromptTokens,
		CompletionTokens: rec.CompletionTokens,
		Succeeded:        rec.Succeeded,
		CreatedAt:        rec.CreatedAt.Format(time.RFC3339),
	}
}

// List handles GET /manage/usage. Records are returned oldest first;
// an account with no usage gets an empty list.
func (h *UsageHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	records, err := h.recorder.List(r.Context(), accountID)
	if err != nil {
		h.logger.Error("failed to list usage records", "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to list usage")
		return
	}

	out := make([]usageRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toUsageRecordResponse(rec))
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}
