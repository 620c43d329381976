package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/syllogos/internal/model"
)

// MaxPromptText caps the document text embedded in a prompt
const MaxPromptText = 150_000

// SystemPrompt frames every analysis request
const SystemPrompt = `You are an expert research analyst. You evaluate academic documents for credibility, bias and rigor, and you state uncertainty honestly. You never assert that a claim is true or false; you describe how well it is supported.`

// outputFormat lists the top-level keys in the order the model must write them
const outputFormat = `Respond with ONE JSON object and nothing else. No markdown fences, no commentary.
Write the keys in exactly this order so partial results can be shown while you write:
{
  "classification": {"documentType": string, "field": string, "confidence": "high"|"medium"|"low"|"uncertain", "source": "inferred"},
  "credibility": {
    "methodologicalRigor": {"score": number, "maxScore": number, "description": string, "evidence": [string], "confidence": level, "reasoning": string},
    "dataTransparency": {...same shape...},
    "sourceQuality": {...},
    "authorCredibility": {...},
    "statisticalValidity": {...},
    "logicalConsistency": {...},
    "totalScore": number,
    "overallConfidence": level
  },
  "bias": {"biases": [{"type", "evidence", "severity", "confidence", "verifiable"}], "overallLevel": string, "overallConfidence": level, "justification": string},
  "keyFindings": {"fundamentals": {...}, "researchQuestion": string, "methodology": {...}, "findings": {...}, "limitations": {...}, "conclusions": {...}},
  "perspective": {"theoreticalFramework", "paradigm", "disciplinaryPerspective", "epistemologicalStance", "assumptions": {"stated": [], "unstated": []}, "context": {"geographic", "temporal", "institutional"}},
  "redFlags": [{"type", "description", "severity", "evidence"}],
  "aiLimitations": {"cannotAssess": [], "requiresExpertReview": [], "uncertaintyAreas": []},
  "humanReview": {"priority": "STANDARD"|"HIGH"|"URGENT", "reason": string, "suggestedExperts": []},
  "limitations": {"unverifiableClaims": [{"claim", "reason", "section"}], "dataLimitations": [], "uncertainties": [], "aiConfidenceNote": string}
}`

// BuildPrompt constructs the analysis prompt for paper under guidelines.
// text is the extracted document text; it may be empty when the document is
// attached as a PDF.
func BuildPrompt(paper model.Paper, text string, g model.FrameworkGuidelines) string {
	var b strings.Builder

	w := g.Weights
	fmt.Fprintf(&b, "CREDIBILITY COMPONENTS (Total: %.1f points)\n", w.Total())
	fmt.Fprintf(&b, "Weights for %s in %s:\n", g.DocumentType, g.Field)
	for i, v := range w.Values() {
		fmt.Fprintf(&b, "- %s: 0-%g\n", model.ComponentNames[model.ComponentKeys[i]], v)
	}
	b.WriteString("Never give a component more than its maximum. totalScore is the sum of the component scores.\n\n")

	writeList(&b, "ASSESSMENT FOCUS", g.AssessmentFocus)
	writeList(&b, "BIAS PRIORITIES", g.BiasPriorities)
	writeList(&b, "TYPICAL LIMITATIONS OF THIS DOCUMENT TYPE", g.Limitations)
	writeList(&b, "FIELD ASSUMPTIONS", g.Assumptions)

	fmt.Fprintf(&b, "CLASSIFICATION\nThe document was classified as %s in %s. ", g.DocumentType, g.Field)
	b.WriteString("If the content shows otherwise, report the actual type and field in \"classification\" and adapt your criteria.\n\n")

	b.WriteString(outputFormat)
	b.WriteString("\n\nDOCUMENT TO ANALYZE\n")
	fmt.Fprintf(&b, "Title: %s\n", orDefault(paper.Title, "Unknown"))
	if len(paper.Authors) > 0 {
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(paper.Authors, ", "))
	}
	if paper.Journal != "" {
		fmt.Fprintf(&b, "Journal: %s\n", paper.Journal)
	}
	if paper.DOI != "" {
		fmt.Fprintf(&b, "DOI: %s\n", paper.DOI)
	}
	if paper.Abstract != "" {
		fmt.Fprintf(&b, "Abstract: %s\n", paper.Abstract)
	}

	if text != "" {
		b.WriteString("\n")
		if len(text) > MaxPromptText {
			b.WriteString(text[:MaxPromptText])
			b.WriteString(" [... document continues ...]")
		} else {
			b.WriteString(text)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nBegin analysis now.")
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title)
	b.WriteString(":\n")
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
