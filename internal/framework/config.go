// Package framework classifies documents and derives the assessment
// framework (component weights and guidelines) for each classification.
package framework

import "github.com/ppiankov/syllogos/internal/model"

// Document types
const (
	TypeArticle      = "article"
	TypeReview       = "review"
	TypeBook         = "book"
	TypeDissertation = "dissertation"
	TypeProposal     = "proposal"
	TypeCaseStudy    = "case-study"
	TypeEssay        = "essay"
	TypeTheoretical  = "theoretical"
	TypePreprint     = "preprint"
	TypeConference   = "conference"
	TypeUnknown      = model.GenericUnknown
)

// Academic fields
const (
	FieldNaturalSciences   = "natural-sciences"
	FieldEngineering       = "engineering"
	FieldMedical           = "medical"
	FieldAgricultural      = "agricultural"
	FieldSocialSciences    = "social-sciences"
	FieldHumanities        = "humanities"
	FieldFormalSciences    = "formal-sciences"
	FieldInterdisciplinary = "interdisciplinary"
	FieldUnknown           = model.GenericUnknown
)

// TypePattern maps a regular expression to a document type
type TypePattern struct {
	Type    string `yaml:"type"`
	Pattern string `yaml:"pattern"`
}

// FieldPattern scores a field: Primary matches are worth 3, Secondary 1
type FieldPattern struct {
	Field     string `yaml:"field"`
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
}

// Config holds classification patterns and framework tables.
// Order of TypePatterns and FieldPatterns is significant.
type Config struct {
	ComponentMax      model.FrameworkWeights            `yaml:"component_max"`
	BaseWeights       map[string]model.FrameworkWeights `yaml:"base_weights"`
	FieldAdjustments  map[string]model.FrameworkWeights `yaml:"field_adjustments"`
	TypePatterns      []TypePattern                     `yaml:"type_patterns"`
	FieldPatterns     []FieldPattern                    `yaml:"field_patterns"`
	StructurePatterns map[string]string                 `yaml:"structure_patterns"`

	BiasPriorities     map[string][]string `yaml:"bias_priorities"`
	AssessmentFocus    map[string][]string `yaml:"assessment_focus"`
	TypicalLimitations map[string][]string `yaml:"typical_limitations"`
	CommonAssumptions  map[string][]string `yaml:"common_assumptions"`
}

// Structure pattern names
const (
	StructMethodology = "methodology"
	StructResults     = "results"
	StructConclusion  = "conclusion"
)

// DefaultConfig returns the built-in framework
func DefaultConfig() *Config {
	return &Config{
		ComponentMax: model.DefaultComponentMax,
		BaseWeights: map[string]model.FrameworkWeights{
			TypeArticle:      {MethodologicalRigor: 2.5, DataTransparency: 2.0, SourceQuality: 1.5, AuthorCredibility: 1.0, StatisticalValidity: 1.5, LogicalConsistency: 0.5},
			TypeReview:       {MethodologicalRigor: 1.0, DataTransparency: 1.5, SourceQuality: 2.5, AuthorCredibility: 1.5, StatisticalValidity: 0.5, LogicalConsistency: 1.5},
			TypeBook:         {MethodologicalRigor: 1.5, DataTransparency: 1.5, SourceQuality: 2.0, AuthorCredibility: 2.0, StatisticalValidity: 0.5, LogicalConsistency: 1.0},
			TypeDissertation: {MethodologicalRigor: 2.5, DataTransparency: 2.0, SourceQuality: 1.5, AuthorCredibility: 0.5, StatisticalValidity: 1.5, LogicalConsistency: 1.0},
			TypeProposal:     {MethodologicalRigor: 2.0, DataTransparency: 1.5, SourceQuality: 1.5, AuthorCredibility: 1.0, StatisticalValidity: 0.5, LogicalConsistency: 1.5},
			TypeCaseStudy:    {MethodologicalRigor: 1.5, DataTransparency: 2.0, SourceQuality: 1.5, AuthorCredibility: 1.0, StatisticalValidity: 1.0, LogicalConsistency: 1.5},
			TypeEssay:        {MethodologicalRigor: 0.5, DataTransparency: 1.0, SourceQuality: 2.0, AuthorCredibility: 2.0, StatisticalValidity: 0.5, LogicalConsistency: 1.0},
			TypeTheoretical:  {MethodologicalRigor: 0.5, DataTransparency: 1.0, SourceQuality: 1.5, AuthorCredibility: 1.5, StatisticalValidity: 0.5, LogicalConsistency: 1.0},
			TypePreprint:     {MethodologicalRigor: 2.0, DataTransparency: 1.5, SourceQuality: 1.0, AuthorCredibility: 1.0, StatisticalValidity: 1.5, LogicalConsistency: 1.0},
			TypeConference:   {MethodologicalRigor: 2.0, DataTransparency: 1.5, SourceQuality: 1.5, AuthorCredibility: 0.8, StatisticalValidity: 1.3, LogicalConsistency: 1.0},
			TypeUnknown:      {MethodologicalRigor: 1.5, DataTransparency: 1.5, SourceQuality: 1.5, AuthorCredibility: 1.5, StatisticalValidity: 1.0, LogicalConsistency: 1.0},
		},
		FieldAdjustments: map[string]model.FrameworkWeights{
			FieldNaturalSciences: {MethodologicalRigor: 0.3, StatisticalValidity: 0.2},
			FieldEngineering:     {MethodologicalRigor: 0.2, DataTransparency: 0.2},
			FieldMedical:         {MethodologicalRigor: 0.3, StatisticalValidity: 0.3},
			FieldAgricultural:    {MethodologicalRigor: 0.2, StatisticalValidity: 0.1},
			FieldSocialSciences:  {MethodologicalRigor: 0.1, LogicalConsistency: 0.1},
			FieldHumanities:      {SourceQuality: 0.2},
			FieldFormalSciences:  {StatisticalValidity: 0.2},
		},
		TypePatterns: []TypePattern{
			{TypePreprint, `preprint|arxiv|not peer-reviewed|eprint`},
			{TypeConference, `\b(conference|proceeding|workshop|symposium|proceedings|conference paper|conference abstract)\b`},
			{TypeDissertation, `\b(dissertation|thesis|doctoral dissertation|master.?s thesis|phd dissertation)\b`},
			{TypeBook, `\b(book|chapter|volume|edited collection|edited book|textbook|monograph)\b`},
			{TypeCaseStudy, `\b(case study|case analysis|case report|case presentation|single case|case example)\b`},
			{TypeProposal, `\b(proposal|propose|proposed|propose to|proposal for|aims to|objectives|will conduct|research plan)\b`},
			{TypeEssay, `\b(essay|perspective|opinion|commentary|editorial|viewpoint|reflective essay|critical essay)\b`},
			{TypeTheoretical, `\b(theory|theoretical|conceptual|theoretical framework|concept|model|philosophical|conceptual model)\b`},
			{TypeReview, `\b(review|survey|systematic review|meta-analysis|scoping review|narrative review|literature review|examination of|synthesis of literature|state of the art)\b`},
		},
		FieldPatterns: []FieldPattern{
			{
				Field:     FieldNaturalSciences,
				Primary:   `\b(physics|chemistry|biology|quantum|molecular|atomic|particle|astronomy|astrophysics|geology|botany|zoology|oceanography|mineralogy|petrology|seismology|meteorology)\b`,
				Secondary: `\b(nuclei|electron|photon|energy|wavelength|frequency|atom|molecule|organic|inorganic|reaction|compound|isotope|element|mineral|rock|fossil|species|organism|cell|gene|protein|dna|enzyme|metabolism|photosynthesis|evolution|natural selection)\b`,
			},
			{
				Field:     FieldEngineering,
				Primary:   `\b(engineering|software|algorithm|circuit|mechanical|electrical|civil|computer science|programming|coding|database|system|network|automation|manufacturing|construction|infrastructure|hardware|firmware|application|framework|api|design pattern|agile|devops|cloud)\b`,
				Secondary: `\b(mechanical|structural|thermal|fluid|stress|strength|load|efficiency|optimization|control|signal|processing|encryption|architecture|module|component|integration|testing|deployment|scalability)\b`,
			},
			{
				Field:     FieldMedical,
				Primary:   `\b(medical|clinical|pharmaceutical|medicine|health|disease|patient|treatment|diagnosis|therapy|surgery|nursing|hospital|prescription|medication|drug|vaccine|infection|inflammation|symptom|pathology|anatomy|physiology|oncology|cardiology|neurology|psychiatry|dermatology|pediatrics|geriatrics)\b`,
				Secondary: `\b(therapeutic|intervention|efficacy|safety|adverse event|complication|prognosis|remission|relapse|comorbidity|biomarker|clinical trial|randomized controlled|double blind|placebo|cohort|retrospective|prospective|case control)\b`,
			},
			{
				Field:     FieldAgricultural,
				Primary:   `\b(agriculture|environmental|climate|forestry|fisheries|sustainable|conservation|ecology|ecosystem|crop|soil|water|pollution|biodiversity|habitat|species protection|renewable|green|carbon|emission|environmental impact|sustainability)\b`,
				Secondary: `\b(agricultural practice|farming|livestock|irrigation|pest management|soil quality|water quality|watershed|endangered|conservation strategy|environmental assessment|climate change impact|ecological restoration)\b`,
			},
			{
				Field:     FieldSocialSciences,
				Primary:   `\b(psychology|sociology|economics|political|anthropology|behavior|society|social|culture|institution|demographic|survey|questionnaire|interview|participant|respondent|statistical analysis|correlation|regression|hypothesis testing|sample|population|variables)\b`,
				Secondary: `\b(cognitive|emotion|motivation|perception|learning|memory|personality|development|relationship|family|group|organization|management|leadership|decision making|economic theory|market|trade|finance|political system|governance|law|education|welfare)\b`,
			},
			{
				Field:     FieldHumanities,
				Primary:   `\b(history|philosophy|literature|language|linguistics|humanities|art|culture|civilization|classic|ancient|medieval|renaissance|period|era|dynasty|empire|author|poet|writer|literary|linguistic|semantic|syntax|dialect|etymology|translation)\b`,
				Secondary: `\b(historical context|philosophical argument|literary analysis|linguistic structure|cultural meaning|artistic expression|interpretation|critique|textual|manuscript|archive|historical document|cultural heritage|intellectual history|moral theory|aesthetics|hermeneutics)\b`,
			},
			{
				Field:     FieldFormalSciences,
				Primary:   `\b(mathematics|mathematical|geometry|algebra|logic|statistics|formal|proof|theorem|axiom|equation|calculus|topology|set theory|number theory|abstract algebra|linear algebra|group theory|ring theory|field theory|probability|distribution|hypothesis test|confidence interval|variance|covariance)\b`,
				Secondary: `\b(mathematical model|algorithm analysis|computational complexity|theorem proving|formal verification|discrete mathematics|combinatorics|graph theory|function|mapping|transformation|sequence|series|limit|derivative|integral|matrix|vector|eigenvalue|optimization|constraint satisfaction)\b`,
			},
		},
		StructurePatterns: map[string]string{
			StructMethodology: `method|procedure|approach|design|protocol|experiment|test|sample|variable|hypothesis`,
			StructResults:     `result|finding|outcome|data|show|demonstrate|evidence|conclude`,
			StructConclusion:  `conclusion|summary|concluding|conclude|final remark|future work|implication`,
		},
		BiasPriorities: map[string][]string{
			FieldNaturalSciences:   {"Selection bias in experimental design", "Measurement bias from instrumentation", "Publication bias for significant results", "Funding source influence"},
			FieldEngineering:       {"Confirmation bias in design choices", "Incomplete testing of edge cases", "Scalability assumptions not verified", "Cost-benefit bias in recommendations"},
			FieldMedical:           {"Patient selection bias", "Placebo effect (if applicable)", "Publication bias for efficacy claims", "Conflict of interest from pharmaceutical funding", "Reporting bias on adverse effects"},
			FieldAgricultural:      {"Environmental variation not controlled", "Seasonal/temporal bias", "Economic incentive bias", "Publication bias for positive results"},
			FieldSocialSciences:    {"Demographic sampling bias", "Social desirability bias", "Researcher's cultural assumptions", "Selection effects in self-report"},
			FieldHumanities:        {"Interpretive bias based on author's perspective", "Selective evidence citation", "Presentist bias (applying modern standards)", "Source authenticity concerns"},
			FieldFormalSciences:    {"Assumption validity in axioms", "Proof completeness", "Generalizability of abstract results", "Computational bias (approximation errors)"},
			FieldInterdisciplinary: {"Disciplinary assumption conflicts", "Method appropriateness across domains", "Oversimplification of complexity"},
		},
		AssessmentFocus: map[string][]string{
			TypeArticle:      {"Study design appropriateness", "Sample size adequacy", "Statistical power", "Conflict of interest disclosure", "Reproducibility information"},
			TypeReview:       {"Comprehensiveness of literature search", "Selection criteria for included papers", "Quality assessment of source papers", "Synthesis methodology", "Currency of sources"},
			TypeBook:         {"Author credentials and expertise", "Evidence quality for claims", "Comprehensive treatment of topic", "Logical flow and organization", "Academic rigor vs. accessibility"},
			TypeDissertation: {"Research novelty and contribution", "Methodological rigor", "Committee credentials", "Data integrity and security", "Ethical approval documentation"},
			TypeProposal:     {"Feasibility of proposed work", "Timeline and resource realism", "Preliminary evidence quality", "Budget justification", "Contingency planning"},
			TypeCaseStudy:    {"Case selection justification", "Data collection rigor", "Triangulation methods", "Researcher reflexivity", "Transferability limitations"},
			TypeEssay:        {"Argument logical coherence", "Evidence quality for claims", "Author's expertise in topic", "Acknowledgment of counterarguments", "Writing clarity and organization"},
			TypeTheoretical:  {"Internal consistency of theory", "Logical rigor of definitions", "Falsifiability of propositions", "Practical application potential", "Clarity of theoretical framework"},
			TypePreprint:     {"Preliminary validation available", "Preprint server reputation", "Author's publication history", "Clear indication of peer review status", "Date of posting"},
			TypeConference:   {"Conference selectivity/reputation", "Peer review process quality", "Extended abstract detail level", "Author presentation quality", "Citation impact potential"},
			TypeUnknown:      {"Document format and completeness", "Author identification", "Claims substantiation", "Logical coherence", "Appropriate evidence quality"},
		},
		TypicalLimitations: map[string][]string{
			TypeArticle:      {"Limited to single study outcomes", "Generalizability constraints from sample", "Temporal limitations of single timepoint"},
			TypeReview:       {"Dependent on quality of included studies", "Publication bias in source papers", "Subjective selection of sources", "Rapid field evolution may date review"},
			TypeBook:         {"Lack of peer review process", "Single author perspective", "Potential outdated information"},
			TypeDissertation: {"Limited publication scrutiny", "Focused scope for degree requirement", "May emphasize methodology over breadth"},
			TypeProposal:     {"Speculative nature of unfunded research", "Uncertainty in execution", "May overestimate feasibility"},
			TypeCaseStudy:    {"Limited generalizability", "Potential for selection bias", "Subjective interpretation risk", "Context-dependent findings"},
			TypeEssay:        {"Author opinion influence", "Limited empirical evidence", "Subjective argumentation"},
			TypeTheoretical:  {"Lack of empirical validation", "Abstract applicability", "Testability limitations"},
			TypePreprint:     {"Lack of formal peer review", "Potential substantial revisions pending", "Uncertain publication timeline"},
			TypeConference:   {"Space limitations on depth", "Varying peer review rigor", "Often preliminary work"},
			TypeUnknown:      {"Unclear publication/credibility standard", "Uncertain peer review status", "Source verification needed"},
		},
		CommonAssumptions: map[string][]string{
			FieldNaturalSciences:   {"Replicability of results under controlled conditions", "Objectivity of measurements", "Universal applicability of laws discovered", "Predictability based on established principles"},
			FieldEngineering:       {"Technical feasibility of proposed designs", "Performance predictability from models", "Scalability of lab results", "Resource availability for implementation"},
			FieldMedical:           {"Biological mechanisms are consistent across populations", "Clinical outcomes correlate with biomarkers", "Beneficence justifies research risks", "Informed consent adequately protects subjects"},
			FieldAgricultural:      {"Environmental conditions can be generalized", "Agricultural systems are manageable variables", "Economic models reflect farmer behavior", "Sustainability is achievable with intervention"},
			FieldSocialSciences:    {"Human behavior is systematic and predictable", "Self-report data reflects actual behavior", "Context can be sufficiently controlled", "Causality can be inferred from association"},
			FieldHumanities:        {"Texts have stable, discoverable meanings", "Historical sources reflect reality", "Interpretation can be validated", "Values are not entirely subjective"},
			FieldFormalSciences:    {"Axioms are self-evident truths", "Logical deduction produces certainty", "Infinite sets can be meaningfully discussed", "Proofs are indisputable once accepted"},
			FieldInterdisciplinary: {"Concepts translate across disciplines", "Methods from one field apply to another", "Interdisciplinary synthesis adds value", "Disciplinary boundaries are not essential"},
			FieldUnknown:           {"Basic academic standards apply", "Claims require evidence", "Logic must be consistent"},
		},
	}
}
