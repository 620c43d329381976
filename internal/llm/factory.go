package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// NewProvider creates a streaming provider based on configuration
func NewProvider(ctx context.Context, config Config, logger *zap.Logger) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "anthropic", "claude":
		return NewAnthropicProvider(config, logger)

	case "openai":
		return NewOpenAIProvider(config, logger)

	case "ollama":
		return NewOllamaProvider(config, logger)

	case "gemini", "google":
		return NewGeminiProvider(ctx, config, logger)

	case "":
		return nil, fmt.Errorf("no LLM provider configured (set llm.provider or SYLLOGOS_LLM_PROVIDER)")

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: anthropic, openai, ollama, gemini)", config.Provider)
	}
}
