package assemble

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/syllogos/internal/model"
)

var (
	// ErrNotMetadata means the first line is not a metadata envelope at all
	ErrNotMetadata = errors.New("first line is not a metadata envelope")
	// ErrInvalidMetadata means the envelope is present but unusable
	ErrInvalidMetadata = errors.New("invalid metadata envelope")
)

// MetadataType is the envelope type tag
const MetadataType = "metadata"

type envelope struct {
	Type string        `json:"type"`
	Data *envelopeData `json:"data"`
}

type envelopeData struct {
	DocumentType string             `json:"documentType"`
	Field        string             `json:"field"`
	Source       *string            `json:"source"`
	Framework    *envelopeFramework `json:"framework"`
}

type envelopeFramework struct {
	Weights         *envelopeWeights `json:"weights"`
	BiasPriorities  []string         `json:"biasPriorities"`
	AssessmentFocus []string         `json:"assessmentFocus"`
	Limitations     []string         `json:"limitations"`
	Assumptions     []string         `json:"assumptions"`
}

type envelopeWeights struct {
	MethodologicalRigor *float64 `json:"methodologicalRigor"`
	DataTransparency    *float64 `json:"dataTransparency"`
	SourceQuality       *float64 `json:"sourceQuality"`
	AuthorCredibility   *float64 `json:"authorCredibility"`
	StatisticalValidity *float64 `json:"statisticalValidity"`
	LogicalConsistency  *float64 `json:"logicalConsistency"`
}

// ParseMetadata parses the first line of an analysis stream.
//
// It returns ErrNotMetadata when the line is not an envelope (the caller
// treats it as document text) and ErrInvalidMetadata when the envelope is
// malformed or any of the six weights is missing, negative or non-finite.
// Weights are never defaulted.
func ParseMetadata(line string) (*model.Metadata, error) {
	line = strings.TrimSpace(line)

	var env envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		// A truncated envelope must not leak into the document body
		if strings.Contains(line, `"`+MetadataType+`"`) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		return nil, ErrNotMetadata
	}
	if env.Type != MetadataType {
		return nil, ErrNotMetadata
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrInvalidMetadata)
	}
	if env.Data.Framework == nil || env.Data.Framework.Weights == nil {
		return nil, fmt.Errorf("%w: missing framework weights", ErrInvalidMetadata)
	}

	weights, err := env.Data.Framework.Weights.resolve()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	meta := &model.Metadata{
		DocumentType: orUnknown(env.Data.DocumentType),
		Field:        orUnknown(env.Data.Field),
		Source:       model.SourceInferred,
	}
	if env.Data.Source != nil {
		meta.Source = model.ParseSource(*env.Data.Source)
	}

	fw := env.Data.Framework
	meta.Framework = model.FrameworkGuidelines{
		DocumentType:    meta.DocumentType,
		Field:           meta.Field,
		Weights:         weights,
		BiasPriorities:  nonNil(fw.BiasPriorities),
		AssessmentFocus: nonNil(fw.AssessmentFocus),
		Limitations:     nonNil(fw.Limitations),
		Assumptions:     nonNil(fw.Assumptions),
	}
	return meta, nil
}

func (w *envelopeWeights) resolve() (model.FrameworkWeights, error) {
	fields := []*float64{
		w.MethodologicalRigor,
		w.DataTransparency,
		w.SourceQuality,
		w.AuthorCredibility,
		w.StatisticalValidity,
		w.LogicalConsistency,
	}
	for i, v := range fields {
		name := model.ComponentKeys[i]
		switch {
		case v == nil:
			return model.FrameworkWeights{}, fmt.Errorf("weight %s missing", name)
		case math.IsNaN(*v) || math.IsInf(*v, 0):
			return model.FrameworkWeights{}, fmt.Errorf("weight %s not finite", name)
		case *v < 0:
			return model.FrameworkWeights{}, fmt.Errorf("weight %s negative", name)
		}
	}

	out := model.FrameworkWeights{
		MethodologicalRigor: *w.MethodologicalRigor,
		DataTransparency:    *w.DataTransparency,
		SourceQuality:       *w.SourceQuality,
		AuthorCredibility:   *w.AuthorCredibility,
		StatisticalValidity: *w.StatisticalValidity,
		LogicalConsistency:  *w.LogicalConsistency,
	}
	if out.Total() <= 0 {
		return model.FrameworkWeights{}, errors.New("weights sum to zero")
	}
	return out, nil
}

// EncodeMetadata renders the envelope line a producer puts before its stream
func EncodeMetadata(meta *model.Metadata) (string, error) {
	data, err := json.Marshal(struct {
		Type string          `json:"type"`
		Data *model.Metadata `json:"data"`
	}{MetadataType, meta})
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data) + "\n", nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.GenericUnknown
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
