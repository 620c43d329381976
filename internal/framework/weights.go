package framework

import (
	"math"

	"go.uber.org/zap"

	"github.com/ppiankov/syllogos/internal/logging"
	"github.com/ppiankov/syllogos/internal/model"
)

// Provider resolves weights and guidelines for a classification
type Provider struct {
	cfg    *Config
	logger *zap.Logger
}

// NewProvider creates a provider over cfg. A nil cfg uses DefaultConfig.
func NewProvider(cfg *Config, logger *zap.Logger) *Provider {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Provider{cfg: cfg, logger: logging.OrNop(logger)}
}

// WeightsFor returns the base weights of docType plus the field adjustment,
// each capped at the component maximum. Unknown types use the unknown row.
func (p *Provider) WeightsFor(docType, field string) model.FrameworkWeights {
	base, ok := p.cfg.BaseWeights[docType]
	if !ok {
		base = p.cfg.BaseWeights[TypeUnknown]
	}
	adj := p.cfg.FieldAdjustments[field] // zero value for unknown fields

	baseV, adjV, maxV := base.Values(), adj.Values(), p.cfg.ComponentMax.Values()
	out := make([]float64, len(baseV))
	for i := range baseV {
		out[i] = model.Round9(math.Min(baseV[i]+adjV[i], maxV[i]))
	}

	w := model.FrameworkWeights{
		MethodologicalRigor: out[0],
		DataTransparency:    out[1],
		SourceQuality:       out[2],
		AuthorCredibility:   out[3],
		StatisticalValidity: out[4],
		LogicalConsistency:  out[5],
	}
	if total, ceiling := w.Total(), p.cfg.ComponentMax.Total(); total > ceiling+0.01 {
		p.logger.Warn("framework weights exceed ceiling",
			zap.String("document_type", docType),
			zap.String("field", field),
			zap.Float64("total", total),
			zap.Float64("ceiling", ceiling))
	}
	return w
}

// GuidelinesFor returns the full framework for a classification
func (p *Provider) GuidelinesFor(docType, field string) model.FrameworkGuidelines {
	return model.FrameworkGuidelines{
		DocumentType:    docType,
		Field:           field,
		Weights:         p.WeightsFor(docType, field),
		BiasPriorities:  lookup(p.cfg.BiasPriorities, field, FieldInterdisciplinary),
		AssessmentFocus: lookup(p.cfg.AssessmentFocus, docType, TypeUnknown),
		Limitations:     lookup(p.cfg.TypicalLimitations, docType, TypeUnknown),
		Assumptions:     lookup(p.cfg.CommonAssumptions, field, FieldUnknown),
	}
}

func lookup(table map[string][]string, key, fallback string) []string {
	if v, ok := table[key]; ok {
		return append([]string(nil), v...)
	}
	if v, ok := table[fallback]; ok {
		return append([]string(nil), v...)
	}
	return []string{}
}
