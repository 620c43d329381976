package llm

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ppiankov/syllogos/internal/logging"
	"github.com/ppiankov/syllogos/internal/stream"
	"github.com/ppiankov/syllogos/internal/util"
)

const geminiDefaultModel = "gemini-2.5-flash"

// GeminiProvider streams analyses from the Gemini API
type GeminiProvider struct {
	client *genai.Client
	config Config
	logger *zap.Logger
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, config Config, logger *zap.Logger) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNoAPIKey)
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
	}
	if config.BaseURL != "" {
		cc.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: config,
		logger: logging.OrNop(logger),
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable lists models
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.Models.List(ctx, nil); err != nil {
		p.logger.Warn("gemini API check failed", zap.Error(err))
		return false
	}
	return true
}

// StreamAnalysis starts GenerateContentStream and adapts its iterator
func (p *GeminiProvider) StreamAnalysis(ctx context.Context, req AnalysisRequest) (stream.Source, error) {
	model := p.config.model(req.Model, geminiDefaultModel)

	var parts []*genai.Part
	if len(req.PDF) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.PDF, "application/pdf"))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	gc := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(p.config.maxTokens(req.MaxTokens)),
		Temperature:     genai.Ptr[float32](0.3),
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	var cancel context.CancelFunc = func() {}
	if p.config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.config.Timeout)*time.Second)
	}

	p.logger.Debug("gemini stream opened", zap.String("model", model))
	src := stream.FromSeq(geminiText(p.client.Models.GenerateContentStream(ctx, model, contents, gc)))
	return stream.NewChunkIterable(src.Next, func() error {
		defer cancel()
		return src.Close()
	}), nil
}

// geminiText maps each response to its concatenated text parts
func geminiText(seq iter.Seq2[*genai.GenerateContentResponse, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range seq {
			if err != nil {
				yield("", err)
				return
			}
			if resp == nil {
				continue
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}
