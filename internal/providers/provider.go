package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"modelgw/internal/models"
)

const (
	// ProviderOpenAI and friends are the canonical provider names
	// stored alongside credentials
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	defaultTimeout = 60 * time.Second
)

// Provider is a stateless client for one upstream LLM API. Credentials
// are passed per call; the alias layer decides which key to use.
type Provider interface {
	// Send forwards a chat completion request to the provider using
	// the given API key. The model on the request is already the
	// resolved provider model name.
	Send(ctx context.Context, apiKey string, req *models.ChatRequest) (*models.ChatResponse, error)

	// ListModels returns the model identifiers the provider exposes
	// for the given API key
	ListModels(ctx context.Context, apiKey string) ([]string, error)
}

// SupportedProviders lists the provider names New accepts
func SupportedProviders() []string {
	return []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini}
}

// IsSupported reports whether name is a known provider
func IsSupported(name string) bool {
	for _, p := range SupportedProviders() {
		if p == name {
			return true
		}
	}
	return false
}

// New returns the client for the named provider. baseURL overrides
// the provider's default endpoint when non-empty; every client shares
// httpClient when one is given.
func New(name, baseURL string, httpClient *http.Client) (Provider, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	switch name {
	case ProviderOpenAI:
		return NewOpenAIProvider(baseURL, httpClient), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(baseURL, httpClient), nil
	case ProviderGemini:
		return NewGeminiProvider(baseURL, httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}
