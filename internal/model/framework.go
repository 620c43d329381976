package model

import "math"

// Component keys in canonical order
const (
	KeyMethodologicalRigor = "methodologicalRigor"
	KeyDataTransparency    = "dataTransparency"
	KeySourceQuality       = "sourceQuality"
	KeyAuthorCredibility   = "authorCredibility"
	KeyStatisticalValidity = "statisticalValidity"
	KeyLogicalConsistency  = "logicalConsistency"
)

// GenericUnknown is the placeholder document type and field
const GenericUnknown = "unknown"

// ComponentKeys lists the six credibility components in canonical order
var ComponentKeys = []string{
	KeyMethodologicalRigor,
	KeyDataTransparency,
	KeySourceQuality,
	KeyAuthorCredibility,
	KeyStatisticalValidity,
	KeyLogicalConsistency,
}

// ComponentNames maps component keys to display names
var ComponentNames = map[string]string{
	KeyMethodologicalRigor: "Methodological Rigor",
	KeyDataTransparency:    "Data Transparency",
	KeySourceQuality:       "Source Quality",
	KeyAuthorCredibility:   "Author Credibility",
	KeyStatisticalValidity: "Statistical Validity",
	KeyLogicalConsistency:  "Logical Consistency",
}

// DefaultComponentMax is the absolute ceiling for each component (sums to 10)
var DefaultComponentMax = FrameworkWeights{
	MethodologicalRigor: 2.5,
	DataTransparency:    2.0,
	SourceQuality:       1.5,
	AuthorCredibility:   1.5,
	StatisticalValidity: 1.5,
	LogicalConsistency:  1.0,
}

// FrameworkWeights are the per-component maxima for one document type / field
// combination. Their sum is the scoring ceiling of the document.
type FrameworkWeights struct {
	MethodologicalRigor float64 `json:"methodologicalRigor" yaml:"methodologicalRigor"`
	DataTransparency    float64 `json:"dataTransparency" yaml:"dataTransparency"`
	SourceQuality       float64 `json:"sourceQuality" yaml:"sourceQuality"`
	AuthorCredibility   float64 `json:"authorCredibility" yaml:"authorCredibility"`
	StatisticalValidity float64 `json:"statisticalValidity" yaml:"statisticalValidity"`
	LogicalConsistency  float64 `json:"logicalConsistency" yaml:"logicalConsistency"`
}

// Values returns the weights in ComponentKeys order
func (w FrameworkWeights) Values() []float64 {
	return []float64{
		w.MethodologicalRigor,
		w.DataTransparency,
		w.SourceQuality,
		w.AuthorCredibility,
		w.StatisticalValidity,
		w.LogicalConsistency,
	}
}

// Total is the sum of all weights, rounded to absorb float drift
// (1.5 + 1.3 + 0.8 and friends).
func (w FrameworkWeights) Total() float64 {
	sum := 0.0
	for _, v := range w.Values() {
		sum += v
	}
	return Round9(sum)
}

// Round9 rounds v to nine decimal places
func Round9(v float64) float64 {
	const scale = 1e9
	return math.Round(v*scale) / scale
}

// FrameworkGuidelines is the assessment framework for one classification
type FrameworkGuidelines struct {
	DocumentType    string           `json:"documentType"`
	Field           string           `json:"field"`
	Weights         FrameworkWeights `json:"weights"`
	BiasPriorities  []string         `json:"biasPriorities"`
	AssessmentFocus []string         `json:"assessmentFocus"`
	Limitations     []string         `json:"limitations"`
	Assumptions     []string         `json:"assumptions"`
}

// Metadata is the envelope that precedes every analysis stream
type Metadata struct {
	DocumentType string               `json:"documentType"`
	Field        string               `json:"field"`
	Source       ClassificationSource `json:"source,omitempty"`
	Framework    FrameworkGuidelines  `json:"framework"`
}
