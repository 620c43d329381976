// Package assemble turns a raw model text stream into a sequence of
// progressively richer AnalysisResult snapshots.
package assemble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/syllogos/internal/logging"
	"github.com/ppiankov/syllogos/internal/metrics"
	"github.com/ppiankov/syllogos/internal/model"
	"github.com/ppiankov/syllogos/internal/score"
	"github.com/ppiankov/syllogos/internal/stream"
)

// ErrStream wraps transport and upstream failures that end a stream early
var ErrStream = errors.New("analysis stream failed")

// Section keys the extractor recognizes at the top level of the document
const (
	KeyClassification = "classification"
	KeyCredibility    = "credibility"
	KeyBias           = "bias"
	KeyKeyFindings    = "keyFindings"
	KeyPerspective    = "perspective"
	KeyRedFlags       = "redFlags"
	KeyAILimitations  = "aiLimitations"
	KeyHumanReview    = "humanReview"
	KeyLimitations    = "limitations"
)

// SectionKeys lists the known keys in the order the final merge applies them
var SectionKeys = []string{
	KeyClassification,
	KeyCredibility,
	KeyBias,
	KeyKeyFindings,
	KeyPerspective,
	KeyRedFlags,
	KeyAILimitations,
	KeyHumanReview,
	KeyLimitations,
}

// Options configures an Assembler
type Options struct {
	Paper         model.Paper
	Scorer        *score.Scorer
	GenericValues []string // nil uses DefaultGenericValues
	Clock         func() time.Time
	Logger        *zap.Logger
	Provider      string // for log fields only
}

// Outcome is the terminal state of one stream
type Outcome struct {
	Result    *model.AnalysisResult // nil if the stream failed before any line arrived
	Metadata  *model.Metadata       // nil in degraded mode
	Degraded  bool
	Final     bool
	Snapshots int
}

// Assembler runs a single stream. It is not safe for concurrent use and
// must not be reused across streams.
type Assembler struct {
	opts   Options
	scorer *score.Scorer
	logger *zap.Logger
	clock  func() time.Time

	lines    stream.LineReassembler
	gated    bool
	degraded bool
	meta     *model.Metadata
	started  time.Time

	body   strings.Builder
	tok    *Tokenizer
	recon  *Reconciler
	result *model.AnalysisResult

	emit      Emitter
	snapshots int
}

// New creates an assembler for one stream
func New(opts Options) *Assembler {
	logger := logging.OrNop(opts.Logger)
	if opts.Paper.ID != "" {
		logger = logger.With(zap.String("paper_id", opts.Paper.ID))
	}
	if opts.Provider != "" {
		logger = logger.With(zap.String("provider", opts.Provider))
	}
	a := &Assembler{
		opts:   opts,
		scorer: opts.Scorer,
		logger: logger,
		clock:  opts.Clock,
		tok:    NewTokenizer(),
		recon:  NewReconciler(opts.GenericValues),
	}
	if a.scorer == nil {
		a.scorer = score.NewScorer(logger)
	}
	if a.clock == nil {
		a.clock = func() time.Time { return time.Now().UTC() }
	}
	return a
}

// Run pulls src to completion, calling emit with the metadata first and
// then every changed snapshot. src is always closed.
//
// A transport failure returns ErrStream together with an Outcome holding the
// last good snapshot. A cancelled ctx returns ctx.Err(). An emit error stops
// the stream and is returned wrapped.
func (a *Assembler) Run(ctx context.Context, src stream.Source, emit Emitter) (*Outcome, error) {
	defer src.Close()
	a.emit = emit

	for {
		frag, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return a.outcome(), ctxErr
			}
			metrics.StreamFailures.WithLabelValues(src.Kind().String()).Inc()
			a.logger.Warn("analysis stream ended early",
				zap.Stringer("kind", src.Kind()),
				zap.Int("snapshots", a.snapshots),
				zap.Error(err))
			return a.outcome(), fmt.Errorf("%w: %w", ErrStream, err)
		}
		if err := a.ingest(frag); err != nil {
			return a.outcome(), err
		}
	}

	if err := a.finish(); err != nil {
		return a.outcome(), err
	}
	return a.outcome(), nil
}

func (a *Assembler) outcome() *Outcome {
	return &Outcome{
		Result:    a.result.Clone(),
		Metadata:  a.meta,
		Degraded:  a.degraded,
		Final:     a.result != nil && a.result.Final,
		Snapshots: a.snapshots,
	}
}

func (a *Assembler) ingest(frag string) error {
	if !a.gated {
		lines := a.lines.Push(frag)
		// Leading blank lines are keep-alives, not the envelope
		for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
			lines = lines[1:]
		}
		if len(lines) == 0 {
			return nil
		}

		rest := strings.Join(lines[1:], "\n")
		if len(lines) > 1 {
			rest += "\n"
		}
		rest += a.lines.Flush()

		if err := a.gate(lines[0]); err != nil {
			return err
		}
		frag = rest
	}
	return a.extend(frag)
}

// gate consumes the first line. It always emits the metadata and an
// initial placeholder snapshot, degraded or not.
func (a *Assembler) gate(line string) error {
	a.gated = true
	a.started = a.clock()

	meta, err := ParseMetadata(line)
	switch {
	case err == nil:
		a.meta = meta
	case errors.Is(err, ErrNotMetadata):
		a.enterDegraded(err)
		a.body.WriteString(line)
		a.body.WriteString("\n")
	default:
		a.enterDegraded(err)
	}

	a.result = a.placeholder()
	seed := a.result.Classification
	a.result.Classification = a.recon.Seed(seed)
	a.syncPaper()

	payload := &MetadataPayload{Degraded: a.degraded}
	if a.meta != nil {
		payload.Metadata = *a.meta
	} else {
		payload.Metadata = degradedMetadata()
	}
	if err := a.emit(Emission{Type: EmissionMetadata, Metadata: payload}); err != nil {
		return fmt.Errorf("emit metadata: %w", err)
	}
	return a.snapshot()
}

func degradedMetadata() model.Metadata {
	return model.Metadata{
		DocumentType: model.GenericUnknown,
		Field:        model.GenericUnknown,
		Source:       model.SourceInferred,
		Framework: model.FrameworkGuidelines{
			DocumentType:    model.GenericUnknown,
			Field:           model.GenericUnknown,
			Weights:         model.DefaultComponentMax,
			BiasPriorities:  []string{},
			AssessmentFocus: []string{},
			Limitations:     []string{},
			Assumptions:     []string{},
		},
	}
}

func (a *Assembler) enterDegraded(err error) {
	a.degraded = true
	metrics.DegradedStreams.Inc()
	a.logger.Warn("metadata envelope unusable, scores pass through unvalidated", zap.Error(err))
}

func (a *Assembler) placeholder() *model.AnalysisResult {
	return model.NewPlaceholderResult(a.opts.Paper, a.meta, a.started)
}

// extend appends text to the body and applies every section it completes
func (a *Assembler) extend(text string) error {
	if text != "" {
		a.body.WriteString(text)
	}

	changed := false
	for _, span := range a.tok.Feed(a.body.String()) {
		if a.apply(span.Key, span.Raw) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return a.snapshot()
}

func (a *Assembler) snapshot() error {
	a.snapshots++
	metrics.SnapshotsEmitted.Inc()
	if err := a.emit(Emission{Type: EmissionSnapshot, Snapshot: a.result.Clone()}); err != nil {
		return fmt.Errorf("emit snapshot: %w", err)
	}
	return nil
}

// syncPaper copies the reconciled classification onto the paper, except
// where the caller supplied a non-generic value of its own
func (a *Assembler) syncPaper() {
	c := a.result.Classification
	if a.opts.Paper.DocumentType == "" || a.recon.IsGeneric(a.opts.Paper.DocumentType) {
		a.result.Paper.DocumentType = c.DocumentType
	}
	if a.opts.Paper.Field == "" || a.recon.IsGeneric(a.opts.Paper.Field) {
		a.result.Paper.Field = c.Field
	}
}

// apply parses raw as the value of key and merges it into the result.
// A failed parse leaves the current value untouched.
func (a *Assembler) apply(key, raw string) bool {
	if strings.TrimSpace(raw) == "null" {
		return false
	}
	data := []byte(raw)
	if key == KeyCredibility {
		return a.applyCredibility(data)
	}
	fresh := a.placeholder()

	var err error
	switch key {
	case KeyClassification:
		var u ClassificationUpdate
		if err = json.Unmarshal(data, &u); err == nil {
			a.result.Classification, _ = a.recon.Apply(u)
			a.syncPaper()
			return true
		}
	case KeyBias:
		if err = json.Unmarshal(data, &fresh.Bias); err == nil {
			a.result.Bias = fresh.Bias
			return true
		}
	case KeyKeyFindings:
		if err = json.Unmarshal(data, &fresh.KeyFindings); err == nil {
			a.result.KeyFindings = fresh.KeyFindings
			return true
		}
	case KeyPerspective:
		if err = json.Unmarshal(data, &fresh.Perspective); err == nil {
			a.result.Perspective = fresh.Perspective
			return true
		}
	case KeyRedFlags:
		var flags []model.RedFlag
		if err = json.Unmarshal(data, &flags); err == nil {
			if flags == nil {
				flags = []model.RedFlag{}
			}
			a.result.RedFlags = flags
			return true
		}
	case KeyAILimitations:
		if err = json.Unmarshal(data, &fresh.AILimitations); err == nil {
			a.result.AILimitations = fresh.AILimitations
			return true
		}
	case KeyHumanReview:
		if err = json.Unmarshal(data, &fresh.HumanReview); err == nil {
			a.result.HumanReview = fresh.HumanReview
			return true
		}
	case KeyLimitations:
		if err = json.Unmarshal(data, &fresh.Limitations); err == nil {
			a.result.Limitations = fresh.Limitations
			return true
		}
	default:
		return false
	}

	metrics.SectionParseFailures.WithLabelValues(key).Inc()
	a.logger.Debug("section parse failed", zap.String("section", key), zap.Error(err))
	return false
}

func (a *Assembler) applyCredibility(data []byte) bool {
	var raw score.RawCredibility
	if err := json.Unmarshal(data, &raw); err != nil {
		metrics.SectionParseFailures.WithLabelValues(KeyCredibility).Inc()
		a.logger.Debug("section parse failed", zap.String("section", KeyCredibility), zap.Error(err))
		return false
	}

	var (
		sec model.CredibilitySection
		err error
	)
	if a.degraded {
		sec, err = a.scorer.Passthrough(raw)
	} else {
		sec, _, err = a.scorer.Normalize(raw, a.meta.Framework.Weights)
	}
	if err != nil {
		a.logger.Debug("credibility update discarded", zap.Error(err))
		return false
	}
	a.result.Credibility = sec
	return true
}

// finish runs once the upstream has closed cleanly
func (a *Assembler) finish() error {
	if !a.gated {
		if err := a.gate(a.lines.Flush()); err != nil {
			return err
		}
		if err := a.extend(""); err != nil {
			return err
		}
	}

	body := a.body.String()
	doc, ok := a.tok.Root(body)
	if !ok {
		doc = strings.TrimSpace(body)
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &members); err != nil {
		metrics.FinalParseFailures.Inc()
		a.logger.Warn("final document did not parse, keeping last snapshot",
			zap.Int("body_bytes", len(body)),
			zap.Error(err))
		return nil
	}

	for _, key := range SectionKeys {
		if raw, ok := members[key]; ok {
			a.apply(key, string(raw))
		}
	}

	completed := a.clock()
	a.result.Final = true
	a.result.CompletedAt = &completed
	return a.snapshot()
}
