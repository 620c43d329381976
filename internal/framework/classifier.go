package framework

import (
	"fmt"
	"regexp"
	"strings"
)

// Classifier guesses document type and academic field from text
type Classifier struct {
	typePatterns  []*compiledType
	fieldPatterns []*compiledField
	methodology   *regexp.Regexp
	results       *regexp.Regexp
	conclusion    *regexp.Regexp
	metaAnalysis  *regexp.Regexp
}

type compiledType struct {
	docType string
	pattern *regexp.Regexp
}

type compiledField struct {
	field     string
	primary   *regexp.Regexp
	secondary *regexp.Regexp
}

// NewClassifier compiles the patterns in cfg. A nil cfg uses DefaultConfig.
func NewClassifier(cfg *Config) (*Classifier, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	c := &Classifier{metaAnalysis: regexp.MustCompile(`meta-analysis`)}

	for _, tp := range cfg.TypePatterns {
		re, err := regexp.Compile(tp.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %s pattern: %w", tp.Type, err)
		}
		c.typePatterns = append(c.typePatterns, &compiledType{docType: tp.Type, pattern: re})
	}

	for _, fp := range cfg.FieldPatterns {
		cf := &compiledField{field: fp.Field}
		var err error
		if cf.primary, err = compileOptional(fp.Primary); err != nil {
			return nil, fmt.Errorf("compile %s primary pattern: %w", fp.Field, err)
		}
		if cf.secondary, err = compileOptional(fp.Secondary); err != nil {
			return nil, fmt.Errorf("compile %s secondary pattern: %w", fp.Field, err)
		}
		c.fieldPatterns = append(c.fieldPatterns, cf)
	}

	structure := map[string]**regexp.Regexp{
		StructMethodology: &c.methodology,
		StructResults:     &c.results,
		StructConclusion:  &c.conclusion,
	}
	for name, dst := range structure {
		re, err := compileOptional(cfg.StructurePatterns[name])
		if err != nil {
			return nil, fmt.Errorf("compile %s structure pattern: %w", name, err)
		}
		*dst = re
	}

	return c, nil
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

func matches(re *regexp.Regexp, s string) bool {
	return re != nil && re.MatchString(s)
}

// Classify returns the document type and field for text titled title
func (c *Classifier) Classify(text, title string) (docType, field string) {
	return c.DocumentType(text, title), c.Field(text, title)
}

// DocumentType returns the first matching type pattern, falling back to
// structural cues for research articles, then unknown.
func (c *Classifier) DocumentType(text, title string) string {
	if strings.Contains(title, "arXiv") {
		return TypePreprint
	}
	combined := strings.ToLower(title + " " + text)
	hasMethodology := matches(c.methodology, combined)

	for _, tp := range c.typePatterns {
		if !tp.pattern.MatchString(combined) {
			continue
		}
		// Keywords that also show up in empirical papers
		switch tp.docType {
		case TypeProposal:
			if matches(c.results, combined) {
				continue
			}
		case TypeEssay, TypeTheoretical:
			if hasMethodology {
				continue
			}
		case TypeReview:
			if hasMethodology && !c.metaAnalysis.MatchString(combined) {
				continue
			}
		}
		return tp.docType
	}

	if hasMethodology && matches(c.results, combined) {
		return TypeArticle
	}
	hasAbstract := strings.Contains(combined, "abstract") || strings.Contains(combined, "introduction")
	if hasAbstract && matches(c.conclusion, combined) {
		return TypeArticle
	}
	return TypeUnknown
}

// Field scores every field (3 for a primary match, 1 for a secondary) and
// returns the best. Ties go to the field listed first.
func (c *Classifier) Field(text, title string) string {
	combined := strings.ToLower(title + " " + text)

	best, bestScore := FieldUnknown, 0
	for _, fp := range c.fieldPatterns {
		score := 0
		if matches(fp.primary, combined) {
			score += 3
		}
		if matches(fp.secondary, combined) {
			score++
		}
		if score > bestScore {
			best, bestScore = fp.field, score
		}
	}
	return best
}
