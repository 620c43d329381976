package score

import (
	"strings"

	"github.com/ppiankov/syllogos/internal/model"
)

// Rating thresholds, as percentages of the maximum total score.
// Each tier's lower bound is inclusive.
const (
	ExemplaryThreshold = 90.0
	StrongThreshold    = 70.0
	ModerateThreshold  = 50.0
	WeakThreshold      = 30.0
)

// RatingFor derives the rating band from a total and its maximum
func RatingFor(total, maxTotal float64) model.Rating {
	if maxTotal <= 0 {
		return model.RatingInvalid
	}
	// Round away float noise so 2.7/3.0 lands exactly on 90
	pct := model.Round9(total * 100 / maxTotal)
	switch {
	case pct >= ExemplaryThreshold:
		return model.RatingExemplary
	case pct >= StrongThreshold:
		return model.RatingStrong
	case pct >= ModerateThreshold:
		return model.RatingModerate
	case pct >= WeakThreshold:
		return model.RatingWeak
	case total > 0:
		return model.RatingVeryPoor
	default:
		return model.RatingInvalid
	}
}

// ParseRating accepts canonical and display spellings ("Very Poor")
func ParseRating(s string) (model.Rating, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "-", "_", "-").Replace(norm)
	switch r := model.Rating(norm); r {
	case model.RatingExemplary, model.RatingStrong, model.RatingModerate,
		model.RatingWeak, model.RatingVeryPoor, model.RatingInvalid:
		return r, true
	}
	return "", false
}
