package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ppiankov/syllogos/internal/assemble"
	"github.com/ppiankov/syllogos/internal/cache"
	"github.com/ppiankov/syllogos/internal/llm"
	"github.com/ppiankov/syllogos/internal/model"
	"github.com/ppiankov/syllogos/internal/pipeline"
	"github.com/ppiankov/syllogos/internal/util"
	"github.com/ppiankov/syllogos/internal/worker"
)

// app is the wired analyzer for one command invocation
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	analyzer *pipeline.Analyzer
	closers  []io.Closer
}

// newApp builds the provider, fetcher, rate limiter and result store
// described by cfg
func newApp(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*app, error) {
	rt := &app{cfg: cfg, logger: logger}

	provider, err := llm.NewProvider(ctx, llm.ConfigFromModel(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	var limiter *worker.Limiter
	if cfg.RateLimiting.Enabled {
		limiter = worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.Burst)
	}

	fetcher := pipeline.NewFetcher(
		cfg.HTTP.Timeout,
		cfg.HTTP.UserAgent,
		cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.InsecureTLS,
		cfg.HTTP.HTTPProxy,
		cfg.HTTP.HTTPSProxy,
		cfg.HTTP.NoProxy,
	).WithLogger(logger)
	if cfg.HTTP.RespectRobots {
		robots := util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout).
			WithProxy(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy).
			WithLogger(logger)
		fetcher.WithRobots(robots)
	}

	opts := pipeline.Options{
		Provider:  provider,
		Fetcher:   fetcher,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Logger:    logger,
	}
	if limiter != nil {
		fetcher.WithLimiter(limiter)
		opts.Limiter = limiter
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		if closer, ok := c.(io.Closer); ok {
			rt.closers = append(rt.closers, closer)
		}
		opts.Store = cache.NewStore(c, 0, logger)
	}

	rt.analyzer, err = pipeline.NewAnalyzer(opts)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close releases backend connections
func (rt *app) Close() error {
	var errs []error
	for _, c := range rt.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// ndjsonEmitter writes every emission as one JSON document
func ndjsonEmitter(w io.Writer, out model.OutputConfig) assemble.Emitter {
	enc := json.NewEncoder(w)
	if out.Pretty {
		enc.SetIndent("", "  ")
	}
	return func(e assemble.Emission) error {
		if out.SnapshotsOnly && e.Type == assemble.EmissionMetadata {
			return nil
		}
		return enc.Encode(e)
	}
}

// openOutput returns stdout for "" or "-", otherwise a created file
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

// summarize prints a one-line verdict for an outcome on stderr
func summarize(label string, out *assemble.Outcome) {
	if out == nil || out.Result == nil {
		fmt.Fprintf(os.Stderr, "✗ %s: no analysis\n", label)
		return
	}
	cred := out.Result.Credibility
	status := "partial"
	if out.Final {
		status = "final"
	}
	if out.Degraded {
		status += ", degraded"
	}
	fmt.Fprintf(os.Stderr, "✓ %s: %.1f/%.1f (%s) [%s/%s, %s, %d snapshots]\n",
		label,
		cred.TotalScore,
		cred.MaxTotalScore,
		cred.Rating,
		out.Result.Classification.DocumentType,
		out.Result.Classification.Field,
		status,
		out.Snapshots)
}
