package model

import (
	"encoding/json"
	"strings"
)

// ConfidenceLevel is the canonical confidence attached to every assessment
type ConfidenceLevel string

const (
	ConfidenceHigh      ConfidenceLevel = "high"
	ConfidenceMedium    ConfidenceLevel = "medium"
	ConfidenceLow       ConfidenceLevel = "low"
	ConfidenceUncertain ConfidenceLevel = "uncertain"
)

// ParseConfidence maps a loosely typed confidence value to a canonical level.
// Canonical names match case-insensitively, legacy 0-100 numbers use the
// 85/60/40 thresholds, and anything else is medium.
func ParseConfidence(v any) ConfidenceLevel {
	switch c := v.(type) {
	case ConfidenceLevel:
		return ParseConfidence(string(c))
	case string:
		switch ConfidenceLevel(strings.ToLower(strings.TrimSpace(c))) {
		case ConfidenceHigh:
			return ConfidenceHigh
		case ConfidenceMedium:
			return ConfidenceMedium
		case ConfidenceLow:
			return ConfidenceLow
		case ConfidenceUncertain:
			return ConfidenceUncertain
		}
	case float64:
		return confidenceFromPercent(c)
	case int:
		return confidenceFromPercent(float64(c))
	case json.Number:
		if f, err := c.Float64(); err == nil {
			return confidenceFromPercent(f)
		}
	}
	return ConfidenceMedium
}

func confidenceFromPercent(p float64) ConfidenceLevel {
	switch {
	case p >= 85:
		return ConfidenceHigh
	case p >= 60:
		return ConfidenceMedium
	case p >= 40:
		return ConfidenceLow
	default:
		return ConfidenceUncertain
	}
}

// UnmarshalJSON accepts strings and legacy numbers; null leaves the value unchanged
func (c *ConfidenceLevel) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	*c = ParseConfidence(raw)
	return nil
}

// Rating is the qualitative band derived from totalScore / maxTotalScore
type Rating string

const (
	RatingExemplary Rating = "exemplary"
	RatingStrong    Rating = "strong"
	RatingModerate  Rating = "moderate"
	RatingWeak      Rating = "weak"
	RatingVeryPoor  Rating = "very-poor"
	RatingInvalid   Rating = "invalid"
)

// ClassificationSource records where a classification came from
type ClassificationSource string

const (
	// SourceExternal is authoritative document metadata (DOI registry, user input)
	SourceExternal ClassificationSource = "external"
	// SourceInferred is a classification guessed from content
	SourceInferred ClassificationSource = "inferred"
)

// ParseSource normalizes a source label. Legacy labels DOI and USER are
// external, AI is inferred; anything unrecognized counts as inferred.
func ParseSource(s string) ClassificationSource {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "external", "doi", "user":
		return SourceExternal
	default:
		return SourceInferred
	}
}

// UnmarshalJSON normalizes legacy and unknown labels
func (s *ClassificationSource) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	*s = ParseSource(*raw)
	return nil
}
