package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"modelgw/internal/logging"
	"modelgw/internal/middleware"
	"modelgw/internal/models"
	"modelgw/internal/providers"
	"modelgw/internal/routing"
	"modelgw/internal/storage"
	"modelgw/internal/usage"
	"modelgw/internal/utils"
)

// maxFallbackDepth caps how many aliases one request may try. The
// cycle check catches loops; this catches very long honest chains.
const maxFallbackDepth = 5

// ProxyHandler forwards chat completion requests to the provider the
// alias chain resolves to. Every attempt is metered; the fallback
// chain is walked only on recoverable provider failures.
type ProxyHandler struct {
	engine     *routing.Engine
	encryption *storage.Encryption
	recorder   *usage.Recorder
	sink       logging.Sink
	httpClient *http.Client
	logger     *utils.Logger
}

func NewProxyHandler(engine *routing.Engine, encryption *storage.Encryption, recorder *usage.Recorder, sink logging.Sink) *ProxyHandler {
	if sink == nil {
		sink = logging.NewNoopSink()
	}
	return &ProxyHandler{
		engine:     engine,
		encryption: encryption,
		recorder:   recorder,
		sink:       sink,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     utils.NewLogger("proxy"),
	}
}

// ChatCompletions handles POST /v1/chat/completions
func (h *ProxyHandler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var chatReq models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&chatReq); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if chatReq.Model == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "model is required")
		return
	}

	requestID := uuid.New()
	start := time.Now()
	estimated := chatReq.EstimateTokens()

	walker := h.engine.NewWalker(accountID, chatReq.Model, estimated)
	var lastErr error

	for depth := 0; depth < maxFallbackDepth; depth++ {
		decision, err := walker.Next(r.Context())
		if err != nil {
			h.respondWalkError(w, accountID, chatReq.Model, err, lastErr)
			return
		}

		resp, sendErr := h.attempt(r, decision, &chatReq)
		aliasID := decision.AliasID

		if sendErr != nil {
			h.recorder.Record(r.Context(), accountID, &aliasID, requestID, estimated, 0, false)
			h.enqueueLog(accountID, requestID, decision, depth, estimated, 0, start, sendErr)

			if utils.IsRecoverableError(sendErr) {
				h.logger.Warn("provider attempt failed, trying fallback",
					"alias", decision.AliasName,
					"provider", decision.Provider,
					"error", sendErr.Error())
				lastErr = sendErr
				continue
			}

			h.logger.Error("provider attempt failed",
				"alias", decision.AliasName,
				"provider", decision.Provider,
				"error", sendErr.Error())
			utils.RespondWithError(w, http.StatusBadGateway, "provider request failed")
			return
		}

		h.recorder.Record(r.Context(), accountID, &aliasID, requestID,
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens, true)
		h.enqueueLog(accountID, requestID, decision, depth,
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens, start, nil)

		utils.RespondWithJSON(w, http.StatusOK, resp)
		return
	}

	h.logger.Error("fallback depth exceeded", "account_id", accountID, "model", chatReq.Model)
	h.recorder.Record(r.Context(), accountID, nil, requestID, estimated, 0, false)
	utils.RespondWithError(w, http.StatusBadGateway, "all fallbacks failed")
}

// attempt sends the request to the provider the decision names, with
// the resolved model substituted in
func (h *ProxyHandler) attempt(r *http.Request, decision *routing.Decision, chatReq *models.ChatRequest) (*models.ChatResponse, error) {
	client, err := providers.New(decision.Provider, "", h.httpClient)
	if err != nil {
		return nil, err
	}
	apiKey, err := h.encryption.DecryptString(decision.EncryptedKey)
	if err != nil {
		return nil, err
	}

	reqCopy := *chatReq
	reqCopy.Model = decision.ResolvedModel
	return client.Send(r.Context(), apiKey, &reqCopy)
}

func (h *ProxyHandler) respondWalkError(w http.ResponseWriter, accountID int64, model string, err, lastErr error) {
	switch {
	case errors.Is(err, routing.ErrAliasNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "unknown model alias: "+model)
	case errors.Is(err, routing.ErrCredentialMissing):
		h.logger.Error("alias credential missing", "account_id", accountID, "model", model)
		utils.RespondWithError(w, http.StatusInternalServerError, "provider configuration not found")
	case errors.Is(err, routing.ErrFallbackCycle):
		h.logger.Error("fallback cycle detected", "account_id", accountID, "model", model)
		utils.RespondWithError(w, http.StatusLoopDetected, "fallback chain contains a cycle")
	case errors.Is(err, routing.ErrFallbackExhausted):
		if lastErr != nil {
			h.logger.Error("all fallbacks failed", "account_id", accountID, "model", model, "error", lastErr.Error())
		}
		utils.RespondWithError(w, http.StatusBadGateway, "all fallbacks failed")
	default:
		h.logger.Error("alias resolution failed", "account_id", accountID, "model", model, "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "alias resolution failed")
	}
}

func (h *ProxyHandler) enqueueLog(accountID int64, requestID uuid.UUID, decision *routing.Decision, depth, promptTokens, completionTokens int, start time.Time, sendErr error) {
	rec := &logging.LogRecord{
		Timestamp:        time.Now().UTC(),
		RequestID:        requestID.String(),
		AccountID:        accountID,
		Alias:            decision.AliasName,
		Provider:         decision.Provider,
		Model:            decision.ResolvedModel,
		UsedLightModel:   decision.UsedLightModel,
		FallbackDepth:    depth,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		GatewayMs:        time.Since(start).Milliseconds(),
		Succeeded:        sendErr == nil,
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	if err := h.sink.Enqueue(rec); err != nil {
		h.logger.Warn("failed to enqueue log record", "error", err.Error())
	}
}
