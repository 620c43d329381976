package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/syllogos/internal/model"
	"github.com/ppiankov/syllogos/internal/pipeline"
	"github.com/ppiankov/syllogos/internal/worker"
)

var (
	outPath       string
	timeout       time.Duration
	noCache       bool
	snapshotsOnly bool
	pretty        bool
	llmProvider   string
	llmModel      string
	paperID       string
	paperTitle    string
	docType       string
	field         string
	textFile      string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [url|doi|path]",
	Short: "Analyze a single paper and stream progressive snapshots",
	Long: `Analyze loads a paper, classifies it, asks the configured model for a
credibility assessment and prints the assembled result as it streams:
one metadata line, then full snapshots as NDJSON.

A DOI is resolved through doi.org. Landing pages are reduced to text and
their citation metadata; a linked PDF is followed when available.

Example:
  syllogos analyze 10.1038/s41586-020-2649-2
  syllogos analyze https://arxiv.org/abs/2106.09685 -o analysis.ndjson
  syllogos analyze ./paper.pdf --provider gemini --snapshots-only
  syllogos analyze --text-file abstract.txt --title "Trial of X"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVarP(&outPath, "output", "o", "-", "NDJSON output path (- for stdout)")
	analyzeCmd.Flags().BoolVar(&snapshotsOnly, "snapshots-only", false, "omit the metadata emission")
	analyzeCmd.Flags().BoolVar(&pretty, "pretty", false, "indent emitted JSON")

	// Input flags
	analyzeCmd.Flags().StringVar(&paperID, "id", "", "paper id (used as cache key)")
	analyzeCmd.Flags().StringVar(&paperTitle, "title", "", "paper title")
	analyzeCmd.Flags().StringVar(&docType, "document-type", "", "authoritative document type from registry metadata")
	analyzeCmd.Flags().StringVar(&field, "field", "", "authoritative academic field from registry metadata")
	analyzeCmd.Flags().StringVar(&textFile, "text-file", "", "read pre-extracted document text from a file")

	// Runtime flags
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache (force a fresh analysis)")
	analyzeCmd.Flags().StringVar(&llmProvider, "provider", "", "LLM provider (anthropic, openai, ollama, gemini)")
	analyzeCmd.Flags().StringVar(&llmModel, "model", "", "LLM model name")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)

	req, err := analyzeRequest(args)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	rt, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	w, closeOut, err := openOutput(outPath)
	if err != nil {
		return err
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", describe(req))
		fmt.Fprintf(os.Stderr, "Provider:  %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Cache:     %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	out, runErr := rt.analyzer.Analyze(ctx, req, ndjsonEmitter(w, cfg.Output))
	if err := closeOut(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close output: %w", err)
	}
	if runErr != nil {
		if out != nil && out.Result != nil {
			summarize(describe(req), out)
		}
		return fmt.Errorf("analysis failed: %w", runErr)
	}

	summarize(describe(req), out)
	return nil
}

// applyRunFlags lays explicitly set command flags over the loaded config
func applyRunFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.APIKey = ""
		cfg.LLM.BaseURL = ""
		applyProviderEnv(cfg)
	}
	if flags.Changed("model") {
		cfg.LLM.Model = llmModel
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if flags.Changed("snapshots-only") {
		cfg.Output.SnapshotsOnly = snapshotsOnly
	}
	if flags.Changed("pretty") {
		cfg.Output.Pretty = pretty
	}
}

func analyzeRequest(args []string) (pipeline.Request, error) {
	var req pipeline.Request
	if len(args) == 1 {
		req = worker.ParseRequest(args[0])
	}
	if textFile != "" {
		data, err := os.ReadFile(textFile)
		if err != nil {
			return req, fmt.Errorf("read text file: %w", err)
		}
		req.Text = string(data)
	}
	if paperID != "" {
		req.Paper.ID = paperID
	}
	req.Paper.Title = paperTitle
	req.Paper.DocumentType = docType
	req.Paper.Field = field

	if req.Location == "" && req.Text == "" && req.Paper.Title == "" {
		return req, fmt.Errorf("nothing to analyze: pass a URL, DOI or path, or --text-file")
	}
	return req, nil
}

func describe(req pipeline.Request) string {
	switch {
	case req.Paper.ID != "":
		return req.Paper.ID
	case req.Location != "":
		return req.Location
	case req.Paper.Title != "":
		return req.Paper.Title
	default:
		return "text"
	}
}
