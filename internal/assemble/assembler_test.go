package assemble

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/ppiankov/syllogos/internal/model"
	"github.com/ppiankov/syllogos/internal/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	startTime = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	testPaper = model.Paper{
		ID:      "10.1000/xyz123",
		Title:   "Vaccine efficacy in older adults",
		Authors: []string{"A. Author", "B. Author"},
		Journal: "Journal of Trials",
		DOI:     "10.1000/xyz123",
	}
)

// fullDocument exercises nested objects, arrays, braces inside strings and
// escaped quotes.
const fullDocument = `{
  "classification": {"documentType": "article", "field": "medical", "confidence": "High", "source": "inferred"},
  "credibility": {
    "methodologicalRigor": {"score": 2.1, "maxScore": 2.5, "description": "Randomized {double-blind} design", "evidence": ["n=1200"], "confidence": 88, "reasoning": "Well \"controlled\""},
    "dataTransparency": {"score": 1.6, "maxScore": 2.0, "description": "Data shared", "evidence": [], "confidence": "medium", "reasoning": "Repository linked"},
    "sourceQuality": {"score": 1.2, "maxScore": 1.5, "description": "Recent sources", "evidence": [], "confidence": "HIGH", "reasoning": "ok"},
    "authorCredibility": {"score": 1.0, "maxScore": 1.5, "description": "Established group", "evidence": [], "confidence": "low", "reasoning": "ok"},
    "statisticalValidity": {"score": 1.1, "maxScore": 1.5, "description": "Appropriate tests", "evidence": [], "confidence": "uncertain", "reasoning": "ok"},
    "logicalConsistency": {"score": 0.9, "maxScore": 1.0, "description": "Coherent", "evidence": [], "confidence": "high", "reasoning": "ok"},
    "totalScore": 7.9,
    "rating": "Strong",
    "overallConfidence": "high"
  },
  "bias": {"biases": [{"type": "Funding", "evidence": "Sponsor wrote \"the {analysis}\"", "severity": "Moderate", "confidence": "medium", "verifiable": true}], "overallLevel": "Moderate", "overallConfidence": "medium", "justification": "Industry funded"},
  "keyFindings": {
    "fundamentals": {"title": "Vaccine efficacy in older adults", "authors": ["A. Author", "B. Author"], "journal": "Journal of Trials", "doi": "10.1000/xyz123", "publicationDate": "2024", "articleType": "article"},
    "researchQuestion": "Does the vaccine work in adults over 65?",
    "methodology": {"studyDesign": "RCT", "sampleSize": "1200", "population": "Adults 65+", "samplingMethod": "Random", "setting": "Clinics", "outcomesMeasures": ["Infection"], "statisticalMethods": ["Cox regression"], "studyDuration": "2 years"},
    "findings": {"primaryFindings": ["62% reduction"], "secondaryFindings": [], "effectSizes": ["HR 0.38"], "clinicalSignificance": "High", "unexpectedFindings": []},
    "limitations": {"authorAcknowledged": ["Single region"], "methodologicalIdentified": [], "severity": "Minor"},
    "conclusions": {"primaryConclusion": "Effective", "supportedByData": true, "practicalImplications": [], "futureResearchNeeded": [], "recommendations": [], "generalizability": "Moderate"}
  },
  "perspective": {"theoreticalFramework": "Clinical epidemiology", "paradigm": "Positivist", "disciplinaryPerspective": "Medicine", "epistemologicalStance": "Empiricist", "assumptions": {"stated": ["Randomization worked"], "unstated": []}, "context": {"geographic": "EU", "temporal": "2022-2024", "institutional": "University hospitals"}},
  "redFlags": [{"type": "Conflict", "description": "Sponsor role {unclear}", "severity": "moderate"}],
  "aiLimitations": {"cannotAssess": ["Raw data"], "requiresExpertReview": ["Statistics"], "uncertaintyAreas": []},
  "humanReview": {"priority": "HIGH", "reason": "Funding", "suggestedExperts": ["Biostatistician"]},
  "limitations": {"unverifiableClaims": [{"claim": "No adverse events", "reason": "Data withheld", "section": "Results"}], "dataLimitations": ["Short follow-up"], "uncertainties": [], "aiConfidenceNote": "Based on abstract and full text"}
}`

func tenPointWeights() model.FrameworkWeights {
	return model.DefaultComponentMax
}

func metadataLine(t *testing.T, w model.FrameworkWeights, docType, field string) string {
	t.Helper()
	line, err := EncodeMetadata(&model.Metadata{
		DocumentType: docType,
		Field:        field,
		Framework: model.FrameworkGuidelines{
			DocumentType:    docType,
			Field:           field,
			Weights:         w,
			BiasPriorities:  []string{"Publication bias"},
			AssessmentFocus: []string{"Sample size"},
			Limitations:     []string{"Single study"},
		},
	})
	require.NoError(t, err)
	return line
}

type recorder struct {
	t         *testing.T
	emissions []Emission
}

func (r *recorder) emit(e Emission) error {
	r.emissions = append(r.emissions, e)
	if e.Type == EmissionSnapshot {
		c := e.Snapshot.Credibility
		assert.LessOrEqual(r.t, c.TotalScore, c.MaxTotalScore, "snapshot %d", len(r.emissions))
		for _, comp := range c.Components() {
			assert.LessOrEqual(r.t, comp.Score, comp.MaxScore)
		}
	}
	return nil
}

func (r *recorder) last() *model.AnalysisResult {
	require.NotEmpty(r.t, r.emissions)
	return r.emissions[len(r.emissions)-1].Snapshot
}

func newAssembler(t *testing.T) *Assembler {
	return New(Options{
		Paper:  testPaper,
		Clock:  func() time.Time { return startTime },
		Logger: zaptest.NewLogger(t),
	})
}

func run(t *testing.T, chunks ...string) (*Outcome, *recorder, error) {
	t.Helper()
	rec := &recorder{t: t}
	out, err := newAssembler(t).Run(context.Background(), stream.FromSlice(chunks...), rec.emit)
	return out, rec, err
}

func randomChunks(rng *rand.Rand, s string) []string {
	var chunks []string
	for len(s) > 0 {
		n := 1 + rng.IntN(16)
		if n > len(s) {
			n = len(s)
		}
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return chunks
}

func TestRun_ChunkingDoesNotChangeResult(t *testing.T) {
	input := metadataLine(t, tenPointWeights(), "article", "medical") + fullDocument

	want, _, err := run(t, input)
	require.NoError(t, err)
	require.True(t, want.Final)

	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 25; i++ {
		got, _, err := run(t, randomChunks(rng, input)...)
		require.NoError(t, err)
		if diff := cmp.Diff(want.Result, got.Result); diff != "" {
			t.Fatalf("chunking %d changed the result (-want +got):\n%s", i, diff)
		}
	}
}

func TestRun_MatchesOnePassParse(t *testing.T) {
	out, _, err := run(t, metadataLine(t, tenPointWeights(), "article", "medical")+fullDocument)
	require.NoError(t, err)
	res := out.Result

	var doc struct {
		KeyFindings model.KeyFindings         `json:"keyFindings"`
		Perspective model.Perspective         `json:"perspective"`
		RedFlags    []model.RedFlag           `json:"redFlags"`
		HumanReview model.HumanReview         `json:"humanReview"`
		Limitations model.AnalysisLimitations `json:"limitations"`
	}
	require.NoError(t, json.Unmarshal([]byte(fullDocument), &doc))

	assert.Equal(t, doc.KeyFindings, res.KeyFindings)
	assert.Equal(t, doc.Perspective, res.Perspective)
	assert.Equal(t, doc.RedFlags, res.RedFlags)
	assert.Equal(t, doc.Limitations, res.Limitations)
	assert.Equal(t, "HIGH", res.HumanReview.Priority)

	assert.Equal(t, "article", res.Classification.DocumentType)
	assert.Equal(t, model.ConfidenceHigh, res.Classification.Confidence)
	assert.Equal(t, 7.9, res.Credibility.TotalScore)
	assert.Equal(t, 10.0, res.Credibility.MaxTotalScore)
	assert.Equal(t, model.RatingStrong, res.Credibility.Rating)
	assert.Equal(t, model.ConfidenceHigh, res.Credibility.MethodologicalRigor.Confidence)
	assert.Equal(t, "Methodological Rigor", res.Credibility.MethodologicalRigor.Name)
	assert.Equal(t, "Sponsor wrote \"the {analysis}\"", res.Bias.Biases[0].Evidence)

	assert.True(t, res.Final)
	require.NotNil(t, res.CompletedAt)
	assert.Equal(t, startTime, *res.CompletedAt)
	assert.False(t, out.Degraded)
}

func TestRun_MetadataFirst(t *testing.T) {
	meta := metadataLine(t, tenPointWeights(), "article", "medical")
	_, rec, err := run(t, meta[:20], meta[20:]+`{"bias": {"overallLevel": "High"}`, `}`)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(rec.emissions), 3)
	first := rec.emissions[0]
	assert.Equal(t, EmissionMetadata, first.Type)
	assert.Equal(t, "article", first.Metadata.DocumentType)
	assert.False(t, first.Metadata.Degraded)

	placeholder := rec.emissions[1].Snapshot
	assert.Equal(t, EmissionSnapshot, rec.emissions[1].Type)
	assert.Equal(t, "article", placeholder.Classification.DocumentType)
	assert.Equal(t, "Analyzing...", placeholder.Bias.Justification)
	assert.Equal(t, []string{"Single study"}, placeholder.Limitations.DataLimitations)
	assert.Equal(t, []string{"A. Author", "B. Author"}, placeholder.KeyFindings.Fundamentals.Authors)

	for _, e := range rec.emissions[1:] {
		assert.Equal(t, EmissionSnapshot, e.Type)
	}
	assert.Equal(t, "High", rec.last().Bias.OverallLevel)
	assert.True(t, rec.last().Final)
}

func TestRun_TotalCappedToFrameworkMax(t *testing.T) {
	cred := `{"credibility": {"methodologicalRigor": {"score": 4, "confidence": "high"}, "totalScore": 12, "overallConfidence": "high"}}`
	out, rec, err := run(t, metadataLine(t, tenPointWeights(), "article", "medical"), cred[:30], cred[30:])
	require.NoError(t, err)

	got := out.Result.Credibility
	assert.Equal(t, 10.0, got.TotalScore)
	assert.Equal(t, 10.0, got.MaxTotalScore)
	assert.Equal(t, model.RatingExemplary, got.Rating)
	assert.Equal(t, 2.5, got.MethodologicalRigor.Score)
	assert.Equal(t, 2.5, got.MethodologicalRigor.MaxScore)
	assert.Equal(t, "Pending analysis...", got.LogicalConsistency.Reasoning)
	assert.Equal(t, 1.0, got.LogicalConsistency.MaxScore)

	// Every progressive snapshot, not just the last, respected the cap
	assert.Greater(t, len(rec.emissions), 2)
}

func TestRun_AbortKeepsParsedSections(t *testing.T) {
	kf := `{"keyFindings": {"researchQuestion": "Does it work?", "findings": {"primaryFindings": ["yes"]}}, "credibility": {"totalSc`
	chunks := []string{metadataLine(t, tenPointWeights(), "article", "medical"), kf[:25], kf[25:]}
	boom := errors.New("connection reset by peer")

	i := 0
	closed := 0
	src := stream.NewChunkIterable(func(context.Context) (string, error) {
		if i == len(chunks) {
			return "", boom
		}
		i++
		return chunks[i-1], nil
	}, func() error {
		closed++
		return nil
	})

	rec := &recorder{t: t}
	out, err := newAssembler(t).Run(context.Background(), src, rec.emit)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStream)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, closed)
	require.NotNil(t, out)
	assert.False(t, out.Final)

	res := out.Result
	placeholder := model.NewPlaceholderResult(testPaper, out.Metadata, startTime)
	assert.Equal(t, "Does it work?", res.KeyFindings.ResearchQuestion)
	assert.Equal(t, []string{"yes"}, res.KeyFindings.Findings.PrimaryFindings)
	assert.Equal(t, placeholder.KeyFindings.Methodology, res.KeyFindings.Methodology)
	assert.Equal(t, placeholder.Credibility, res.Credibility)
	assert.Equal(t, placeholder.Bias, res.Bias)
	assert.Equal(t, placeholder.Perspective, res.Perspective)
	assert.Equal(t, placeholder.HumanReview, res.HumanReview)
	assert.Equal(t, res, rec.last())
}

func TestRun_GenericExternalOverridden(t *testing.T) {
	body := `{"classification": {"documentType": "unknown", "source": "external"}, ` +
		`"bias": {"overallLevel": "Low"}, ` +
		`"classification": {"documentType": "article", "source": "inferred"}}`
	_, rec, err := run(t, metadataLine(t, tenPointWeights(), "unknown", "unknown"), body)
	require.NoError(t, err)

	got := rec.last().Classification
	assert.Equal(t, "article", got.DocumentType)
	assert.Equal(t, model.SourceInferred, got.Source)
}

func TestRun_DegradedPassThrough(t *testing.T) {
	body := "{\"credibility\": {\"totalScore\": 12, \"maxTotalScore\": 20, \"rating\": \"weak\"},\n" +
		"\"bias\": {\"overallLevel\": \"High\"}}"
	out, rec, err := run(t, body)
	require.NoError(t, err)

	assert.True(t, out.Degraded)
	assert.Nil(t, out.Metadata)
	assert.True(t, rec.emissions[0].Metadata.Degraded)
	assert.Equal(t, model.DefaultComponentMax, rec.emissions[0].Metadata.Framework.Weights)

	assert.Equal(t, 12.0, out.Result.Credibility.TotalScore)
	assert.Equal(t, 20.0, out.Result.Credibility.MaxTotalScore)
	assert.Equal(t, model.RatingWeak, out.Result.Credibility.Rating)
	assert.Equal(t, "High", out.Result.Bias.OverallLevel)
	assert.Equal(t, model.GenericUnknown, out.Result.Classification.DocumentType)
	assert.True(t, out.Final)
}

func TestRun_InvalidMetadataIsDropped(t *testing.T) {
	badMeta := `{"type":"metadata","data":{"framework":{"weights":{"methodologicalRigor":2}}}}` + "\n"
	out, _, err := run(t, badMeta, `{"bias": {"overallLevel": "High"}}`)
	require.NoError(t, err)

	assert.True(t, out.Degraded)
	assert.True(t, out.Final)
	assert.Equal(t, "High", out.Result.Bias.OverallLevel)
}

func TestRun_MissingTotalScoreDiscarded(t *testing.T) {
	body := `{"credibility": {"methodologicalRigor": {"score": 2}}, "bias": {"overallLevel": "High"}}`
	out, _, err := run(t, metadataLine(t, tenPointWeights(), "article", "medical"), body)
	require.NoError(t, err)

	assert.Equal(t, model.PlaceholderCredibility(tenPointWeights()), out.Result.Credibility)
	assert.Equal(t, "High", out.Result.Bias.OverallLevel)
}

func TestRun_FinalParseFailureKeepsSnapshot(t *testing.T) {
	body := `{"bias": {"overallLevel": "High"}, "keyFindings": {"researchQuestion": "Why?"}, "perspective": {"paradigm": `
	out, rec, err := run(t, metadataLine(t, tenPointWeights(), "article", "medical"), body)
	require.NoError(t, err)

	assert.False(t, out.Final)
	assert.Nil(t, out.Result.CompletedAt)
	assert.Equal(t, "High", out.Result.Bias.OverallLevel)
	assert.Equal(t, "Why?", out.Result.KeyFindings.ResearchQuestion)
	assert.Equal(t, "Positivist", out.Result.Perspective.Paradigm)
	assert.False(t, rec.last().Final)
}

func TestRun_ToleratesFencedDocument(t *testing.T) {
	body := "```json\n" + `{"bias": {"overallLevel": "High"}}` + "\n```\n"
	out, _, err := run(t, metadataLine(t, tenPointWeights(), "article", "medical"), body)
	require.NoError(t, err)

	assert.True(t, out.Final)
	assert.Equal(t, "High", out.Result.Bias.OverallLevel)
}

func TestRun_BracedPreambleBeforeDocument(t *testing.T) {
	body := "Here is the analysis {as requested}:\n```json\n" + fullDocument + "\n```"
	want, _, err := run(t, metadataLine(t, tenPointWeights(), "article", "medical")+fullDocument)
	require.NoError(t, err)

	out, _, err := run(t, metadataLine(t, tenPointWeights(), "article", "medical"), body)
	require.NoError(t, err)

	assert.True(t, out.Final)
	assert.Equal(t, 7.9, out.Result.Credibility.TotalScore)
	assert.Equal(t, "Moderate", out.Result.Bias.OverallLevel)
	assert.Equal(t, "Does the vaccine work in adults over 65?", out.Result.KeyFindings.ResearchQuestion)
	if diff := cmp.Diff(want.Result, out.Result); diff != "" {
		t.Fatalf("preamble changed the result (-want +got):\n%s", diff)
	}
}

func TestRun_ClassificationUpdatesPaper(t *testing.T) {
	body := `{"classification": {"documentType": "review", "field": "medical"}}`
	out, rec, err := run(t, metadataLine(t, tenPointWeights(), "unknown", "unknown"), body)
	require.NoError(t, err)

	assert.Equal(t, "unknown", rec.emissions[1].Snapshot.Paper.DocumentType)
	assert.Equal(t, "review", out.Result.Classification.DocumentType)
	assert.Equal(t, "review", out.Result.Paper.DocumentType)
	assert.Equal(t, "medical", out.Result.Paper.Field)
	for _, e := range rec.emissions[2:] {
		assert.Equal(t, e.Snapshot.Classification.DocumentType, e.Snapshot.Paper.DocumentType)
	}
}

func TestRun_ClassificationKeepsCallerPaperValues(t *testing.T) {
	paper := testPaper
	paper.DocumentType = "trial"
	asm := New(Options{
		Paper:  paper,
		Clock:  func() time.Time { return startTime },
		Logger: zaptest.NewLogger(t),
	})
	body := `{"classification": {"documentType": "review", "field": "medical"}}`
	src := stream.FromSlice(metadataLine(t, tenPointWeights(), "unknown", "unknown"), body)

	rec := &recorder{t: t}
	out, err := asm.Run(context.Background(), src, rec.emit)
	require.NoError(t, err)

	assert.Equal(t, "review", out.Result.Classification.DocumentType)
	assert.Equal(t, "trial", out.Result.Paper.DocumentType)
	assert.Equal(t, "medical", out.Result.Paper.Field)
}

func TestRun_LaterParseOverwrites(t *testing.T) {
	body := `{"redFlags": [{"type": "a"}], "redFlags": [{"type": "b"}, {"type": "c"}]}`
	out, _, err := run(t, metadataLine(t, tenPointWeights(), "article", "medical"), body)
	require.NoError(t, err)

	require.Len(t, out.Result.RedFlags, 2)
	assert.Equal(t, "b", out.Result.RedFlags[0].Type)
}

func TestRun_EmptyStream(t *testing.T) {
	out, rec, err := run(t)
	require.NoError(t, err)

	assert.True(t, out.Degraded)
	assert.False(t, out.Final)
	require.Len(t, rec.emissions, 2)
	assert.Equal(t, EmissionMetadata, rec.emissions[0].Type)
}

func TestRun_EmitterErrorStops(t *testing.T) {
	stop := errors.New("client went away")
	closed := false
	chunks := []string{
		metadataLine(t, tenPointWeights(), "article", "medical"),
		`{"bias": {"overallLevel": "High"}, `,
		`"keyFindings": {}}`,
	}
	i := 0
	src := stream.NewChunkIterable(func(context.Context) (string, error) {
		if i == len(chunks) {
			return "", io.EOF
		}
		i++
		return chunks[i-1], nil
	}, func() error {
		closed = true
		return nil
	})

	calls := 0
	out, err := newAssembler(t).Run(context.Background(), src, func(e Emission) error {
		calls++
		if calls == 3 {
			return stop
		}
		return nil
	})

	assert.ErrorIs(t, err, stop)
	assert.True(t, closed)
	assert.Equal(t, 2, i)
	assert.False(t, out.Final)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := newAssembler(t).Run(ctx, stream.FromSlice("anything"), func(Emission) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out.Result)
}

func TestEmission_MarshalJSON(t *testing.T) {
	meta := Emission{Type: EmissionMetadata, Metadata: &MetadataPayload{
		Metadata: model.Metadata{DocumentType: "article", Field: "medical"},
	}}
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"type":"metadata","data":{"documentType":"article","field":"medical"`))
	assert.NotContains(t, string(data), "degraded")

	snap := Emission{Type: EmissionSnapshot, Snapshot: model.NewPlaceholderResult(testPaper, nil, startTime)}
	data, err = json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"snapshot"`)
	assert.Contains(t, string(data), `"final":false`)

	_, err = json.Marshal(Emission{Type: "bogus"})
	assert.Error(t, err)
}
