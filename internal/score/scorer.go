package score

import (
	"errors"

	"go.uber.org/zap"

	"github.com/ppiankov/syllogos/internal/logging"
	"github.com/ppiankov/syllogos/internal/metrics"
	"github.com/ppiankov/syllogos/internal/model"
)

// ErrMissingTotalScore marks a credibility fragment that has no totalScore yet
var ErrMissingTotalScore = errors.New("credibility totalScore missing")

// RawCredibility is a credibility section as the model emitted it
type RawCredibility struct {
	MethodologicalRigor *model.CredibilityComponent `json:"methodologicalRigor"`
	DataTransparency    *model.CredibilityComponent `json:"dataTransparency"`
	SourceQuality       *model.CredibilityComponent `json:"sourceQuality"`
	AuthorCredibility   *model.CredibilityComponent `json:"authorCredibility"`
	StatisticalValidity *model.CredibilityComponent `json:"statisticalValidity"`
	LogicalConsistency  *model.CredibilityComponent `json:"logicalConsistency"`

	TotalScore        *float64              `json:"totalScore"`
	MaxTotalScore     *float64              `json:"maxTotalScore"`
	Rating            string                `json:"rating"`
	OverallConfidence model.ConfidenceLevel `json:"overallConfidence"`
}

func (r *RawCredibility) components() []*model.CredibilityComponent {
	return []*model.CredibilityComponent{
		r.MethodologicalRigor,
		r.DataTransparency,
		r.SourceQuality,
		r.AuthorCredibility,
		r.StatisticalValidity,
		r.LogicalConsistency,
	}
}

// Adjustment records what Normalize had to change
type Adjustment struct {
	TotalClamped      bool
	OriginalTotal     float64
	ComponentsClamped []string
}

// Clamped reports whether any score was pulled into range
func (a Adjustment) Clamped() bool {
	return a.TotalClamped || len(a.ComponentsClamped) > 0
}

// Scorer validates credibility sections against framework weights
type Scorer struct {
	logger *zap.Logger
}

// NewScorer creates a scorer. logger may be nil.
func NewScorer(logger *zap.Logger) *Scorer {
	return &Scorer{logger: logging.OrNop(logger)}
}

// Normalize validates raw against weights and returns a section that obeys
// score <= maxScore and totalScore <= maxTotalScore. It does not modify raw,
// and applying it to its own output (via FromSection) changes nothing.
func (s *Scorer) Normalize(raw RawCredibility, weights model.FrameworkWeights) (model.CredibilitySection, Adjustment, error) {
	var adj Adjustment
	if raw.TotalScore == nil {
		return model.CredibilitySection{}, adj, ErrMissingTotalScore
	}

	maxTotal := weights.Total()
	total := *raw.TotalScore
	adj.OriginalTotal = total
	switch {
	case total > maxTotal:
		total = maxTotal
		adj.TotalClamped = true
	case total < 0:
		total = 0
		adj.TotalClamped = true
	}

	out := model.CredibilitySection{
		TotalScore:        total,
		MaxTotalScore:     maxTotal,
		OverallConfidence: model.ParseConfidence(raw.OverallConfidence),
	}

	maxes := weights.Values()
	dst := out.Components()
	for i, c := range raw.components() {
		key := model.ComponentKeys[i]
		comp, clamped := normalizeComponent(key, c, maxes[i])
		if clamped {
			adj.ComponentsClamped = append(adj.ComponentsClamped, key)
		}
		*dst[i] = comp
	}

	out.Rating = RatingFor(out.TotalScore, out.MaxTotalScore)

	if adj.TotalClamped {
		metrics.ScoreClamps.WithLabelValues("total").Inc()
		s.logger.Warn("credibility total score out of range, clamped",
			zap.Float64("reported", adj.OriginalTotal),
			zap.Float64("max", maxTotal),
			zap.Float64("clamped", total))
	}
	if len(adj.ComponentsClamped) > 0 {
		metrics.ScoreClamps.WithLabelValues("component").Add(float64(len(adj.ComponentsClamped)))
		s.logger.Debug("credibility component scores clamped",
			zap.Strings("components", adj.ComponentsClamped))
	}

	return out, adj, nil
}

func normalizeComponent(key string, c *model.CredibilityComponent, maxScore float64) (model.CredibilityComponent, bool) {
	if c == nil {
		return model.PlaceholderComponent(key, maxScore), false
	}
	comp := *c
	comp.MaxScore = maxScore
	if comp.Name == "" {
		comp.Name = model.ComponentNames[key]
	}
	if comp.Evidence == nil {
		comp.Evidence = []string{}
	}
	comp.Confidence = model.ParseConfidence(comp.Confidence)

	clamped := false
	if comp.Score > maxScore {
		comp.Score = maxScore
		clamped = true
	}
	if comp.Score < 0 {
		comp.Score = 0
		clamped = true
	}
	return comp, clamped
}

// Passthrough accepts raw without framework validation. It is used when the
// stream has no trustworthy weights: scores are kept as reported, only the
// shape is completed so the section never has holes.
func (s *Scorer) Passthrough(raw RawCredibility) (model.CredibilitySection, error) {
	if raw.TotalScore == nil {
		return model.CredibilitySection{}, ErrMissingTotalScore
	}

	out := model.CredibilitySection{
		TotalScore:        *raw.TotalScore,
		OverallConfidence: model.ParseConfidence(raw.OverallConfidence),
	}

	dst := out.Components()
	componentMax := 0.0
	defaults := model.DefaultComponentMax.Values()
	for i, c := range raw.components() {
		key := model.ComponentKeys[i]
		var comp model.CredibilityComponent
		if c == nil {
			comp = model.PlaceholderComponent(key, defaults[i])
		} else {
			comp = *c
			if comp.Name == "" {
				comp.Name = model.ComponentNames[key]
			}
			if comp.Evidence == nil {
				comp.Evidence = []string{}
			}
			comp.Confidence = model.ParseConfidence(comp.Confidence)
		}
		componentMax += comp.MaxScore
		*dst[i] = comp
	}

	switch {
	case raw.MaxTotalScore != nil && *raw.MaxTotalScore > 0:
		out.MaxTotalScore = *raw.MaxTotalScore
	case componentMax > 0:
		out.MaxTotalScore = model.Round9(componentMax)
	default:
		out.MaxTotalScore = model.DefaultComponentMax.Total()
	}

	if r, ok := ParseRating(raw.Rating); ok {
		out.Rating = r
	} else {
		out.Rating = RatingFor(out.TotalScore, out.MaxTotalScore)
	}
	return out, nil
}

// FromSection converts a normalized section back into raw form
func FromSection(sec model.CredibilitySection) RawCredibility {
	total := sec.TotalScore
	maxTotal := sec.MaxTotalScore
	raw := RawCredibility{
		TotalScore:        &total,
		MaxTotalScore:     &maxTotal,
		Rating:            string(sec.Rating),
		OverallConfidence: sec.OverallConfidence,
	}
	comps := sec.Components()
	ptrs := []**model.CredibilityComponent{
		&raw.MethodologicalRigor,
		&raw.DataTransparency,
		&raw.SourceQuality,
		&raw.AuthorCredibility,
		&raw.StatisticalValidity,
		&raw.LogicalConsistency,
	}
	for i, c := range comps {
		cp := *c
		*ptrs[i] = &cp
	}
	return raw
}
