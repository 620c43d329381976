package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/syllogos/internal/model"
	"github.com/ppiankov/syllogos/internal/stream"
)

// ErrNoAPIKey is returned when a hosted provider is configured without a key
var ErrNoAPIKey = errors.New("API key is required")

// Provider defines the interface for model backends that stream an analysis
type Provider interface {
	// Name returns the provider name
	Name() string

	// StreamAnalysis starts a streaming completion. The returned source
	// yields raw model text; the caller must Close it.
	StreamAnalysis(ctx context.Context, req AnalysisRequest) (stream.Source, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// AnalysisRequest contains the input for one analysis stream
type AnalysisRequest struct {
	// System is the system prompt
	System string

	// Prompt is the user prompt
	Prompt string

	// PDF is the raw document, sent as a document block by providers that
	// accept one. Others rely on the text already embedded in Prompt.
	PDF []byte

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// APIError is a non-200 reply from a provider endpoint
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error (%d): %s - %s", e.Provider, e.StatusCode, e.Type, e.Message)
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "anthropic", "openai", "ollama", "gemini"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for a whole streamed response
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "anthropic",
		Timeout:   300,
		MaxTokens: 8000,
	}
}

// ConfigFromModel converts the runtime configuration
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.Timeout,
		MaxTokens:  cfg.LLM.MaxTokens,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	}
}

func (c Config) model(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

func (c Config) maxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 8000
}
