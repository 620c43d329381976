package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ppiankov/syllogos/internal/logging"
	"github.com/ppiankov/syllogos/internal/stream"
	"github.com/ppiankov/syllogos/internal/util"
)

// OpenAIProvider streams analyses from the OpenAI Chat Completions API
type OpenAIProvider struct {
	client *openai.Client
	config Config
	logger *zap.Logger
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config, logger *zap.Logger) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrNoAPIKey)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logging.OrNop(logger),
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable lists models, a lightweight authenticated call
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.ListModels(ctx); err != nil {
		p.logger.Warn("openai API check failed", zap.Error(err))
		return false
	}
	return true
}

// StreamAnalysis opens a chat completion stream. The PDF, if any, is not
// sent; the prompt already carries the extracted text.
func (p *OpenAIProvider) StreamAnalysis(ctx context.Context, req AnalysisRequest) (stream.Source, error) {
	model := p.config.model(req.Model, openai.GPT4oMini)

	var cancel context.CancelFunc = func() {}
	if p.config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.config.Timeout)*time.Second)
	}

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   p.config.maxTokens(req.MaxTokens),
		Temperature: 0.3,
		Stream:      true,
	}

	s, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s stream: %w", p.Name(), err)
	}
	p.logger.Debug("openai stream opened", zap.String("model", model))

	return stream.NewChunkIterable(func(context.Context) (string, error) {
		chunk, err := s.Recv()
		if err != nil {
			return "", err
		}
		if len(chunk.Choices) == 0 {
			return "", nil
		}
		return chunk.Choices[0].Delta.Content, nil
	}, func() error {
		defer cancel()
		return s.Close()
	}), nil
}
