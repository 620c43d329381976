package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/syllogos/internal/assemble"
	"github.com/ppiankov/syllogos/internal/model"
	"github.com/ppiankov/syllogos/internal/pipeline"
	"github.com/ppiankov/syllogos/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	metricsAddr  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many papers from a file in parallel",
	Long: `Batch analyzes papers concurrently:
- Read URLs, DOIs or local paths from the input file (one per line)
- Analyze papers in parallel with a bounded worker pool
- Write each paper's emissions to its own NDJSON file
- Optionally expose Prometheus metrics while the batch runs

Example:
  syllogos batch papers.txt
  syllogos batch papers.txt --concurrency 8 --output-dir ./analyses
  syllogos batch papers.txt --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./syllogos-analyses", "output directory for NDJSON files")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	// Shared with analyze
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache (force fresh analyses)")
	batchCmd.Flags().BoolVar(&snapshotsOnly, "snapshots-only", false, "omit the metadata emission")
	batchCmd.Flags().BoolVar(&pretty, "pretty", false, "indent emitted JSON")
	batchCmd.Flags().StringVar(&llmProvider, "provider", "", "LLM provider (anthropic, openai, ollama, gemini)")
	batchCmd.Flags().StringVar(&llmModel, "model", "", "LLM model name")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = runtime.NumCPU()
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Syllogos Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, logger)
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
		fmt.Fprintf(os.Stderr, "  Metrics:      http://%s/metrics\n\n", metricsAddr)
	}

	rt, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	processor := worker.NewBatchProcessor(rt.analyzer, cfg.Concurrency.Workers, fileEmitters(outputDir, cfg.Output))

	fmt.Fprintf(os.Stderr, "⚙️  Reading papers from file...\n")
	reqs, err := worker.ReadRequestsFromFile(file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d papers\n\n", len(reqs))
	fmt.Fprintf(os.Stderr, "⚙️  Analyzing with %d workers...\n\n", cfg.Concurrency.Workers)

	results := processor.Process(ctx, reqs)

	successCount, partialCount, failureCount := 0, 0, 0
	for _, result := range results {
		label := describe(result.Request)
		switch {
		case result.Error != nil:
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", label, result.Error)
		case result.Final():
			successCount++
			summarize(label, result.Outcome)
		default:
			partialCount++
			summarize(label, result.Outcome)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d papers\n", len(results))
	fmt.Fprintf(os.Stderr, "  Final:     %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Partial:   %d\n", partialCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// fileEmitters writes each request's emissions to <dir>/<index>-<slug>.ndjson
func fileEmitters(dir string, out model.OutputConfig) worker.EmitterFactory {
	return func(index int, req pipeline.Request) (assemble.Emitter, func() error, error) {
		name := fmt.Sprintf("%03d-%s.ndjson", index+1, sanitizeFilename(describe(req)))
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, err
		}
		return ndjsonEmitter(f, out), f.Close, nil
	}
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return srv
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "paper"
	}
	return s
}
