package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/syllogos/internal/assemble"
	"github.com/ppiankov/syllogos/internal/extract"
	"github.com/ppiankov/syllogos/internal/framework"
	"github.com/ppiankov/syllogos/internal/llm"
	"github.com/ppiankov/syllogos/internal/logging"
	"github.com/ppiankov/syllogos/internal/metrics"
	"github.com/ppiankov/syllogos/internal/model"
	"github.com/ppiankov/syllogos/internal/score"
	"github.com/ppiankov/syllogos/internal/stream"
)

// ReplayProvider labels analyses served from the result store
const ReplayProvider = "cache"

const defaultReplayChunk = 256

// ErrNoContent is returned when neither a document nor paper metadata is
// available to analyze
var ErrNoContent = errors.New("nothing to analyze")

// ErrPDFUnsupported is returned when only a PDF is available and the
// provider cannot read PDFs
var ErrPDFUnsupported = errors.New("provider cannot read PDF documents")

// Sink receives final analysis results
type Sink interface {
	Save(ctx context.Context, paperID string, result *model.AnalysisResult) error
}

// Store is a Sink that can also serve earlier results
type Store interface {
	Sink
	Load(ctx context.Context, paperID string) (*model.AnalysisResult, bool)
}

// Request describes one paper to analyze
type Request struct {
	Paper    model.Paper
	Location string // URL or local path of the document; optional
	Text     string // pre-extracted document text; skips loading when set
}

// Options configures an Analyzer
type Options struct {
	Provider      llm.Provider // required unless every request is replayed
	Fetcher       *Fetcher     // nil disables document loading
	Classifier    *framework.Classifier
	Frameworks    *framework.Provider
	Scorer        *score.Scorer
	Store         Store       // nil disables caching
	Limiter       RateLimiter // paces provider calls; nil for none
	GenericValues []string
	Model         string
	MaxTokens     int
	ReplayChunk   int // bytes per replayed chunk
	Clock         func() time.Time
	Logger        *zap.Logger
}

// Analyzer orchestrates one analysis: load, classify, prompt, stream and
// assemble
type Analyzer struct {
	opts   Options
	recon  *assemble.Reconciler
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(opts Options) (*Analyzer, error) {
	logger := logging.OrNop(opts.Logger)
	if opts.Classifier == nil {
		c, err := framework.NewClassifier(nil)
		if err != nil {
			return nil, fmt.Errorf("build classifier: %w", err)
		}
		opts.Classifier = c
	}
	if opts.Frameworks == nil {
		opts.Frameworks = framework.NewProvider(nil, logger)
	}
	if opts.Scorer == nil {
		opts.Scorer = score.NewScorer(logger)
	}
	if opts.ReplayChunk <= 0 {
		opts.ReplayChunk = defaultReplayChunk
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	opts.Logger = logger

	return &Analyzer{
		opts:   opts,
		recon:  assemble.NewReconciler(opts.GenericValues),
		logger: logger,
	}, nil
}

// Analyze runs one request through the assembler, calling emit with the
// metadata and every snapshot. A final result is saved to the store unless
// it was itself served from the store.
func (a *Analyzer) Analyze(ctx context.Context, req Request, emit assemble.Emitter) (*assemble.Outcome, error) {
	start := time.Now()
	paper := req.Paper

	text := req.Text
	var pdf []byte
	if text == "" && req.Location != "" {
		if a.opts.Fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured for %s", req.Location)
		}
		doc, err := a.opts.Fetcher.Load(ctx, req.Location)
		if err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
		text, pdf = doc.Text, doc.PDF
		if doc.Citation != nil {
			doc.Citation.Apply(&paper)
		}
		if paper.URL == "" && IsRemote(req.Location) {
			paper.URL = req.Location
		}
	}
	if paper.Abstract == "" && text != "" {
		paper.Abstract = extract.Excerpt(text, 3)
	}
	if text == "" && len(pdf) == 0 && paper.Title == "" && paper.Abstract == "" {
		return nil, ErrNoContent
	}
	paper.ID = a.paperID(paper, req.Location)

	meta := a.metadata(paper, text)
	line, err := assemble.EncodeMetadata(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	logger := a.logger.With(zap.String("paper_id", paper.ID))
	logger.Info("analysis started",
		zap.String("document_type", meta.DocumentType),
		zap.String("field", meta.Field),
		zap.String("source", string(meta.Source)),
		zap.Float64("max_score", meta.Framework.Weights.Total()))

	src, providerName, replayed, err := a.open(ctx, paper, text, pdf, meta)
	if err != nil {
		metrics.AnalysisDuration.WithLabelValues(providerName, "error").Observe(time.Since(start).Seconds())
		return nil, err
	}

	asm := assemble.New(assemble.Options{
		Paper:         paper,
		Scorer:        a.opts.Scorer,
		GenericValues: a.opts.GenericValues,
		Clock:         a.opts.Clock,
		Logger:        a.logger,
		Provider:      providerName,
	})
	out, runErr := asm.Run(ctx, stream.Prepend(line, src), emit)

	metrics.AnalysisDuration.WithLabelValues(providerName, outcomeLabel(out, runErr)).Observe(time.Since(start).Seconds())

	if runErr == nil && out.Final && !replayed && a.opts.Store != nil {
		if err := a.opts.Store.Save(ctx, paper.ID, out.Result); err != nil {
			logger.Warn("failed to store analysis", zap.Error(err))
		}
	}

	logger.Info("analysis finished",
		zap.String("provider", providerName),
		zap.Bool("final", out != nil && out.Final),
		zap.Bool("degraded", out != nil && out.Degraded),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(runErr))

	return out, runErr
}

// open returns the body stream: a replay of a stored result, or a fresh
// provider stream
func (a *Analyzer) open(ctx context.Context, paper model.Paper, text string, pdf []byte, meta *model.Metadata) (stream.Source, string, bool, error) {
	if a.opts.Store != nil {
		if cached, ok := a.opts.Store.Load(ctx, paper.ID); ok {
			src, err := a.replay(cached)
			if err != nil {
				return nil, ReplayProvider, false, err
			}
			return src, ReplayProvider, true, nil
		}
	}

	p := a.opts.Provider
	if p == nil {
		return nil, "none", false, fmt.Errorf("no LLM provider configured")
	}
	if text == "" && len(pdf) > 0 && !acceptsPDF(p) {
		return nil, p.Name(), false, fmt.Errorf("%s: %w", p.Name(), ErrPDFUnsupported)
	}

	if a.opts.Limiter != nil {
		if err := a.opts.Limiter.WaitWithDelay(ctx, p.Name(), 0); err != nil {
			return nil, p.Name(), false, fmt.Errorf("rate limit: %w", err)
		}
	}

	src, err := p.StreamAnalysis(ctx, llm.AnalysisRequest{
		System:    llm.SystemPrompt,
		Prompt:    llm.BuildPrompt(paper, text, meta.Framework),
		PDF:       pdf,
		Model:     a.opts.Model,
		MaxTokens: a.opts.MaxTokens,
	})
	if err != nil {
		return nil, p.Name(), false, fmt.Errorf("start %s stream: %w", p.Name(), err)
	}
	return src, p.Name(), false, nil
}

// replay serializes a stored result and feeds it back in fixed-size chunks,
// so it is re-normalized against the current framework
func (a *Analyzer) replay(cached *model.AnalysisResult) (stream.Source, error) {
	data, err := json.Marshal(cached)
	if err != nil {
		return nil, fmt.Errorf("marshal cached analysis: %w", err)
	}
	body := string(data)
	size := a.opts.ReplayChunk
	chunks := make([]string, 0, len(body)/size+1)
	for len(body) > size {
		chunks = append(chunks, body[:size])
		body = body[size:]
	}
	chunks = append(chunks, body)
	return stream.FromSlice(chunks...), nil
}

// metadata classifies the paper and builds its envelope. Non-generic
// classifications carried by the paper itself are authoritative.
func (a *Analyzer) metadata(paper model.Paper, text string) *model.Metadata {
	classifyText := text
	if classifyText == "" {
		classifyText = paper.Abstract
	}
	docType, field := a.opts.Classifier.Classify(classifyText, paper.Title)

	source := model.SourceInferred
	if !a.recon.IsGeneric(paper.DocumentType) {
		docType = strings.ToLower(paper.DocumentType)
		source = model.SourceExternal
	}
	if !a.recon.IsGeneric(paper.Field) {
		field = strings.ToLower(paper.Field)
		source = model.SourceExternal
	}

	return &model.Metadata{
		DocumentType: docType,
		Field:        field,
		Source:       source,
		Framework:    a.opts.Frameworks.GuidelinesFor(docType, field),
	}
}

// paperID keeps an explicit id, then falls back to the DOI, the URL and
// finally a random upload id
func (a *Analyzer) paperID(paper model.Paper, location string) string {
	switch {
	case paper.ID != "":
		return paper.ID
	case paper.DOI != "":
		return extract.NormalizeDOI(paper.DOI)
	case IsRemote(location):
		return location
	default:
		return model.UploadPrefix + uuid.NewString()
	}
}

func acceptsPDF(p llm.Provider) bool {
	switch p.Name() {
	case "anthropic", "gemini":
		return true
	}
	return false
}

func outcomeLabel(out *assemble.Outcome, err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case err != nil:
		return "error"
	case out != nil && out.Final:
		return "final"
	default:
		return "partial"
	}
}
