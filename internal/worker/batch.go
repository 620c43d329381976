package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/syllogos/internal/assemble"
	"github.com/ppiankov/syllogos/internal/extract"
	"github.com/ppiankov/syllogos/internal/model"
	"github.com/ppiankov/syllogos/internal/pipeline"
)

// Analyzer runs one analysis request
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request, emit assemble.Emitter) (*assemble.Outcome, error)
}

// EmitterFactory opens the emission sink for the index-th request. The
// returned close function runs after the analysis finishes.
type EmitterFactory func(index int, req pipeline.Request) (assemble.Emitter, func() error, error)

// AnalysisJob is one paper in a batch
type AnalysisJob struct {
	Index    int
	Request  pipeline.Request
	Analyzer Analyzer
	Emitters EmitterFactory
}

// Execute runs the analysis and closes its emitter
func (j *AnalysisJob) Execute(ctx context.Context) *AnalysisResult {
	res := &AnalysisResult{Request: j.Request}

	emit := assemble.Emitter(func(assemble.Emission) error { return nil })
	closeFn := func() error { return nil }
	if j.Emitters != nil {
		e, c, err := j.Emitters(j.Index, j.Request)
		if err != nil {
			res.Error = fmt.Errorf("open output: %w", err)
			return res
		}
		emit, closeFn = e, c
	}

	res.Outcome, res.Error = j.Analyzer.Analyze(ctx, j.Request, emit)
	if err := closeFn(); err != nil && res.Error == nil {
		res.Error = fmt.Errorf("close output: %w", err)
	}
	return res
}

// AnalysisResult is the outcome of one batch entry
type AnalysisResult struct {
	Request pipeline.Request
	Outcome *assemble.Outcome
	Error   error
}

// Final reports whether the entry produced a complete analysis
func (r *AnalysisResult) Final() bool {
	return r != nil && r.Error == nil && r.Outcome != nil && r.Outcome.Final
}

// BatchProcessor analyzes many papers concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	emitters    EmitterFactory
}

// NewBatchProcessor creates a new batch processor. emitters may be nil to
// discard emissions.
func NewBatchProcessor(analyzer Analyzer, concurrency int, emitters EmitterFactory) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		emitters:    emitters,
	}
}

// Process analyzes every request and returns results in input order
func (b *BatchProcessor) Process(ctx context.Context, reqs []pipeline.Request) []*AnalysisResult {
	if len(reqs) == 0 {
		return []*AnalysisResult{}
	}

	pool := NewPool[*AnalysisResult](ctx, b.concurrency)
	pool.Start()

	for i, req := range reqs {
		pool.Submit(&AnalysisJob{
			Index:    i,
			Request:  req,
			Analyzer: b.analyzer,
			Emitters: b.emitters,
		})
	}

	results := pool.Wait()

	// Jobs dropped by cancellation come back as nil
	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("not processed")
			}
			results[i] = &AnalysisResult{Request: reqs[i], Error: err}
		}
	}
	return results
}

// ProcessFile reads requests from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalysisResult, error) {
	reqs, err := ReadRequestsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}

	return b.Process(ctx, reqs), nil
}

// ParseRequest turns one batch line into a request. URLs and local paths are
// loaded as documents; bare DOIs are resolved through doi.org.
func ParseRequest(line string) pipeline.Request {
	doi := extract.NormalizeDOI(line)
	switch {
	case strings.HasPrefix(doi, "10.") && strings.Contains(doi, "/"):
		return pipeline.Request{
			Paper:    model.Paper{ID: doi, DOI: doi},
			Location: "https://doi.org/" + doi,
		}
	default:
		return pipeline.Request{Location: line}
	}
}

// ReadRequestsFromFile reads one URL, DOI or path per line. Blank lines and
// # comments are skipped and duplicates dropped.
func ReadRequestsFromFile(filePath string) ([]pipeline.Request, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var reqs []pipeline.Request
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			reqs = append(reqs, ParseRequest(line))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return reqs, nil
}
