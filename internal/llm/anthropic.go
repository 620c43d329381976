package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/syllogos/internal/logging"
	"github.com/ppiankov/syllogos/internal/stream"
	"github.com/ppiankov/syllogos/internal/util"
)

const (
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-sonnet-4-20250514"
	anthropicProbeModel   = "claude-3-5-haiku-20241022"
)

// AnthropicProvider streams analyses from the Anthropic Messages API.
// The response body is handed to stream.NewEventFramed unparsed.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
	logger     *zap.Logger
}

// Anthropic API structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config, logger *zap.Logger) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrNoAPIKey)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	return &AnthropicProvider{
		apiKey:  config.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
		config: config,
		logger: logging.OrNop(logger),
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable makes a minimal non-streaming call
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	req := anthropicRequest{
		Model:     anthropicProbeModel,
		MaxTokens: 10,
		Messages:  []anthropicMessage{userMessage("Hi", nil)},
	}

	resp, err := p.do(ctx, req)
	if err != nil {
		p.logger.Warn("anthropic API check failed", zap.Error(err))
		return false
	}
	_ = resp.Body.Close()
	return true
}

// StreamAnalysis starts a streaming Messages request
func (p *AnthropicProvider) StreamAnalysis(ctx context.Context, req AnalysisRequest) (stream.Source, error) {
	apiReq := anthropicRequest{
		Model:       p.config.model(req.Model, anthropicDefaultModel),
		MaxTokens:   p.config.maxTokens(req.MaxTokens),
		System:      req.System,
		Messages:    []anthropicMessage{userMessage(req.Prompt, req.PDF)},
		Temperature: 0.3,
		Stream:      true,
	}

	resp, err := p.do(ctx, apiReq)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("anthropic stream opened", zap.String("model", apiReq.Model))
	return stream.NewEventFramed(resp.Body), nil
}

func userMessage(prompt string, pdf []byte) anthropicMessage {
	msg := anthropicMessage{Role: "user"}
	if len(pdf) > 0 {
		msg.Content = append(msg.Content, anthropicBlock{
			Type: "document",
			Source: &anthropicSource{
				Type:      "base64",
				MediaType: "application/pdf",
				Data:      base64.StdEncoding.EncodeToString(pdf),
			},
		})
	}
	msg.Content = append(msg.Content, anthropicBlock{Type: "text", Text: prompt})
	return msg
}

// do sends apiReq and returns the open response. Non-200 replies are
// decoded into an *APIError and the body is closed.
func (p *AnthropicProvider) do(ctx context.Context, apiReq anthropicRequest) (*http.Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/messages", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	if apiReq.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if httpResp.StatusCode == http.StatusOK {
		return httpResp, nil
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read error response: %w", err)
	}
	apiErr := &APIError{Provider: p.Name(), StatusCode: httpResp.StatusCode, Message: string(respBody)}
	var decoded anthropicError
	if err := json.Unmarshal(respBody, &decoded); err == nil && decoded.Error.Message != "" {
		apiErr.Type = decoded.Error.Type
		apiErr.Message = decoded.Error.Message
	}
	return nil, apiErr
}
