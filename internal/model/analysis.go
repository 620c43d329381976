package model

import "time"

// AnalysisResult is the complete assessment of one paper.
// Every section is populated from the moment a stream starts; sections
// that have not arrived yet hold placeholder values.
type AnalysisResult struct {
	Paper          Paper               `json:"paper"`
	Classification Classification      `json:"classification"`
	Credibility    CredibilitySection  `json:"credibility"`
	Bias           BiasAnalysis        `json:"bias"`
	KeyFindings    KeyFindings         `json:"keyFindings"`
	Perspective    Perspective         `json:"perspective"`
	RedFlags       []RedFlag           `json:"redFlags"`
	AILimitations  AILimitations       `json:"aiLimitations"`
	HumanReview    HumanReview         `json:"humanReview"`
	Limitations    AnalysisLimitations `json:"limitations"`
	Timestamp      time.Time           `json:"timestamp"`
	Final          bool                `json:"final"`
	CompletedAt    *time.Time          `json:"completedAt,omitempty"`
}

// Classification is the document type / academic field pair
type Classification struct {
	DocumentType string               `json:"documentType"`
	Field        string               `json:"field"`
	Confidence   ConfidenceLevel      `json:"confidence"`
	Source       ClassificationSource `json:"source"`
}

// CredibilityComponent is one of the six scored credibility dimensions
type CredibilityComponent struct {
	Name        string          `json:"name,omitempty"`
	Score       float64         `json:"score"`
	MaxScore    float64         `json:"maxScore"`
	Description string          `json:"description"`
	Evidence    []string        `json:"evidence"`
	Confidence  ConfidenceLevel `json:"confidence"`
	Reasoning   string          `json:"reasoning"`
	Limitations []string        `json:"limitations,omitempty"`
}

// CredibilitySection holds the six components and their aggregate
type CredibilitySection struct {
	MethodologicalRigor CredibilityComponent `json:"methodologicalRigor"`
	DataTransparency    CredibilityComponent `json:"dataTransparency"`
	SourceQuality       CredibilityComponent `json:"sourceQuality"`
	AuthorCredibility   CredibilityComponent `json:"authorCredibility"`
	StatisticalValidity CredibilityComponent `json:"statisticalValidity"`
	LogicalConsistency  CredibilityComponent `json:"logicalConsistency"`

	TotalScore        float64         `json:"totalScore"`
	MaxTotalScore     float64         `json:"maxTotalScore"`
	Rating            Rating          `json:"rating"`
	OverallConfidence ConfidenceLevel `json:"overallConfidence"`
}

// Components returns pointers to the six components in canonical order
func (c *CredibilitySection) Components() []*CredibilityComponent {
	return []*CredibilityComponent{
		&c.MethodologicalRigor,
		&c.DataTransparency,
		&c.SourceQuality,
		&c.AuthorCredibility,
		&c.StatisticalValidity,
		&c.LogicalConsistency,
	}
}

// BiasAnalysis summarizes detected biases
type BiasAnalysis struct {
	Biases            []BiasDetection `json:"biases"`
	OverallLevel      string          `json:"overallLevel"`
	OverallConfidence ConfidenceLevel `json:"overallConfidence"`
	Justification     string          `json:"justification"`
}

// BiasDetection is a single detected bias
type BiasDetection struct {
	Type       string          `json:"type"`
	Evidence   string          `json:"evidence"`
	Severity   string          `json:"severity"`
	Confidence ConfidenceLevel `json:"confidence"`
	Verifiable bool            `json:"verifiable"`
	Impact     string          `json:"impact,omitempty"`
	Mitigation string          `json:"mitigation,omitempty"`
}

// KeyFindings is the structured summary of the paper's content
type KeyFindings struct {
	Fundamentals     Fundamentals       `json:"fundamentals"`
	ResearchQuestion string             `json:"researchQuestion"`
	Hypothesis       string             `json:"hypothesis,omitempty"`
	Methodology      Methodology        `json:"methodology"`
	Findings         Findings           `json:"findings"`
	Limitations      FindingLimitations `json:"limitations"`
	Conclusions      Conclusions        `json:"conclusions"`
}

type Fundamentals struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Journal         string   `json:"journal"`
	DOI             string   `json:"doi,omitempty"`
	PublicationDate string   `json:"publicationDate"`
	ArticleType     string   `json:"articleType"`
}

type Methodology struct {
	StudyDesign        string   `json:"studyDesign"`
	SampleSize         string   `json:"sampleSize"`
	Population         string   `json:"population"`
	SamplingMethod     string   `json:"samplingMethod"`
	Setting            string   `json:"setting"`
	Intervention       string   `json:"intervention,omitempty"`
	ComparisonGroups   string   `json:"comparisonGroups,omitempty"`
	OutcomesMeasures   []string `json:"outcomesMeasures"`
	StatisticalMethods []string `json:"statisticalMethods"`
	StudyDuration      string   `json:"studyDuration"`
}

type Findings struct {
	PrimaryFindings      []string `json:"primaryFindings"`
	SecondaryFindings    []string `json:"secondaryFindings"`
	EffectSizes          []string `json:"effectSizes"`
	ClinicalSignificance string   `json:"clinicalSignificance"`
	UnexpectedFindings   []string `json:"unexpectedFindings"`
}

type FindingLimitations struct {
	AuthorAcknowledged       []string `json:"authorAcknowledged"`
	MethodologicalIdentified []string `json:"methodologicalIdentified"`
	Severity                 string   `json:"severity"`
}

type Conclusions struct {
	PrimaryConclusion     string   `json:"primaryConclusion"`
	SupportedByData       bool     `json:"supportedByData"`
	PracticalImplications []string `json:"practicalImplications"`
	FutureResearchNeeded  []string `json:"futureResearchNeeded"`
	Recommendations       []string `json:"recommendations"`
	Generalizability      string   `json:"generalizability"`
}

// Perspective describes the paper's research stance
type Perspective struct {
	TheoreticalFramework    string             `json:"theoreticalFramework"`
	Paradigm                string             `json:"paradigm"`
	DisciplinaryPerspective string             `json:"disciplinaryPerspective"`
	EpistemologicalStance   string             `json:"epistemologicalStance"`
	Assumptions             PerspectiveClaims  `json:"assumptions"`
	IdeologicalPosition     string             `json:"ideologicalPosition,omitempty"`
	AuthorReflexivity       string             `json:"authorReflexivity,omitempty"`
	Context                 PerspectiveContext `json:"context"`
}

type PerspectiveClaims struct {
	Stated   []string `json:"stated"`
	Unstated []string `json:"unstated"`
}

type PerspectiveContext struct {
	Geographic    string `json:"geographic"`
	Temporal      string `json:"temporal"`
	Institutional string `json:"institutional"`
}

// RedFlag is a serious quality concern
type RedFlag struct {
	Type                string `json:"type"`
	Description         string `json:"description"`
	Severity            string `json:"severity"`
	Evidence            string `json:"evidence,omitempty"`
	RequiresAction      string `json:"requiresAction,omitempty"`
	Recommendation      string `json:"recommendation,omitempty"`
	RequiresHumanReview bool   `json:"requiresHumanReview,omitempty"`
}

// AILimitations lists what automated assessment cannot evaluate
type AILimitations struct {
	CannotAssess         []string `json:"cannotAssess"`
	RequiresExpertReview []string `json:"requiresExpertReview"`
	UncertaintyAreas     []string `json:"uncertaintyAreas"`
	ConfidenceNote       string   `json:"confidenceNote,omitempty"`
}

// HumanReview is the recommendation for expert follow-up
type HumanReview struct {
	Priority         string   `json:"priority"`
	Reason           string   `json:"reason"`
	SuggestedExperts []string `json:"suggestedExperts"`
	SpecificAreas    []string `json:"specificAreas,omitempty"`
}

// AnalysisLimitations is derived from the framework and refined by the model
type AnalysisLimitations struct {
	UnverifiableClaims []UnverifiableClaim `json:"unverifiableClaims"`
	DataLimitations    []string            `json:"dataLimitations"`
	Uncertainties      []string            `json:"uncertainties"`
	AIConfidenceNote   string              `json:"aiConfidenceNote"`
}

type UnverifiableClaim struct {
	Claim   string `json:"claim"`
	Reason  string `json:"reason"`
	Section string `json:"section"`
}

const (
	pendingText  = "Analyzing..."
	progressNote = "Analysis in progress..."
	unknownText  = "Unknown"
)

// NewPlaceholderResult builds a fully populated result for a stream that has
// not produced any sections yet. meta may be nil when the stream is degraded.
func NewPlaceholderResult(paper Paper, meta *Metadata, now time.Time) *AnalysisResult {
	docType, field := GenericUnknown, GenericUnknown
	source := SourceInferred
	weights := DefaultComponentMax
	var dataLimitations []string
	if meta != nil {
		docType, field = meta.DocumentType, meta.Field
		if meta.Source != "" {
			source = meta.Source
		}
		weights = meta.Framework.Weights
		dataLimitations = append(dataLimitations, meta.Framework.Limitations...)
	}
	if dataLimitations == nil {
		dataLimitations = []string{}
	}

	if paper.DocumentType == "" {
		paper.DocumentType = docType
	}
	if paper.Field == "" {
		paper.Field = field
	}
	if paper.Authors == nil {
		paper.Authors = []string{}
	}

	journal := paper.Journal
	if journal == "" {
		journal = unknownText
	}
	published := paper.PublicationDate
	if published == "" {
		published = unknownText
	}

	return &AnalysisResult{
		Paper: paper,
		Classification: Classification{
			DocumentType: docType,
			Field:        field,
			Confidence:   ConfidenceMedium,
			Source:       source,
		},
		Credibility: PlaceholderCredibility(weights),
		Bias: BiasAnalysis{
			Biases:            []BiasDetection{},
			OverallLevel:      "Low",
			OverallConfidence: ConfidenceUncertain,
			Justification:     pendingText,
		},
		KeyFindings: KeyFindings{
			Fundamentals: Fundamentals{
				Title:           paper.Title,
				Authors:         append([]string{}, paper.Authors...),
				Journal:         journal,
				DOI:             paper.DOI,
				PublicationDate: published,
				ArticleType:     docType,
			},
			ResearchQuestion: pendingText,
			Methodology: Methodology{
				StudyDesign:        "...",
				SampleSize:         "...",
				Population:         "...",
				SamplingMethod:     "...",
				Setting:            "...",
				OutcomesMeasures:   []string{},
				StatisticalMethods: []string{},
				StudyDuration:      "...",
			},
			Findings: Findings{
				PrimaryFindings:      []string{},
				SecondaryFindings:    []string{},
				EffectSizes:          []string{},
				ClinicalSignificance: "...",
				UnexpectedFindings:   []string{},
			},
			Limitations: FindingLimitations{
				AuthorAcknowledged:       []string{},
				MethodologicalIdentified: []string{},
				Severity:                 "Minor",
			},
			Conclusions: Conclusions{
				PrimaryConclusion:     "...",
				SupportedByData:       true,
				PracticalImplications: []string{},
				FutureResearchNeeded:  []string{},
				Recommendations:       []string{},
				Generalizability:      "...",
			},
		},
		Perspective: Perspective{
			TheoreticalFramework:    "...",
			Paradigm:                "Positivist",
			DisciplinaryPerspective: "...",
			EpistemologicalStance:   "...",
			Assumptions:             PerspectiveClaims{Stated: []string{}, Unstated: []string{}},
			Context:                 PerspectiveContext{Geographic: "...", Temporal: "...", Institutional: "..."},
		},
		RedFlags: []RedFlag{},
		AILimitations: AILimitations{
			CannotAssess:         []string{},
			RequiresExpertReview: []string{},
			UncertaintyAreas:     []string{},
			ConfidenceNote:       progressNote,
		},
		HumanReview: HumanReview{
			Priority:         "STANDARD",
			Reason:           "Analysis in progress",
			SuggestedExperts: []string{},
		},
		Limitations: AnalysisLimitations{
			UnverifiableClaims: []UnverifiableClaim{},
			DataLimitations:    dataLimitations,
			Uncertainties:      []string{},
			AIConfidenceNote:   progressNote,
		},
		Timestamp: now,
	}
}

// PlaceholderCredibility returns a zero-scored section sized to weights
func PlaceholderCredibility(weights FrameworkWeights) CredibilitySection {
	sec := CredibilitySection{
		MaxTotalScore:     weights.Total(),
		Rating:            RatingInvalid,
		OverallConfidence: ConfidenceUncertain,
	}
	maxes := weights.Values()
	for i, c := range sec.Components() {
		*c = PlaceholderComponent(ComponentKeys[i], maxes[i])
	}
	return sec
}

// PlaceholderComponent is a component that has not been assessed yet
func PlaceholderComponent(key string, maxScore float64) CredibilityComponent {
	return CredibilityComponent{
		Name:        ComponentNames[key],
		MaxScore:    maxScore,
		Description: pendingText,
		Evidence:    []string{},
		Confidence:  ConfidenceUncertain,
		Reasoning:   "Pending analysis...",
	}
}

// Clone returns a copy safe to hand to a consumer. Sections are only ever
// replaced wholesale, so nested slices are shared.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	out.RedFlags = append([]RedFlag(nil), r.RedFlags...)
	if out.RedFlags == nil {
		out.RedFlags = []RedFlag{}
	}
	return &out
}
