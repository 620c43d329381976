package score

import (
	"testing"

	"github.com/ppiankov/syllogos/internal/model"
)

func TestRatingFor_Boundaries(t *testing.T) {
	tests := []struct {
		total, max float64
		want       model.Rating
	}{
		{9, 10, model.RatingExemplary},
		{8.999999, 10, model.RatingStrong},
		{7, 10, model.RatingStrong},
		{6.99, 10, model.RatingModerate},
		{5, 10, model.RatingModerate},
		{4.99, 10, model.RatingWeak},
		{3, 10, model.RatingWeak},
		{2.99, 10, model.RatingVeryPoor},
		{0.01, 10, model.RatingVeryPoor},
		{1e-12, 10, model.RatingVeryPoor},
		{0, 10, model.RatingInvalid},
		{10, 10, model.RatingExemplary},
		// float noise: 2.7/3 is 90.00000000000001 before rounding, 2.1/3 is 70
		{2.7, 3, model.RatingExemplary},
		{2.1, 3, model.RatingStrong},
		{0.3, 1, model.RatingWeak},
		{5, 0, model.RatingInvalid},
	}

	for _, tt := range tests {
		if got := RatingFor(tt.total, tt.max); got != tt.want {
			t.Errorf("RatingFor(%v, %v) = %s, want %s", tt.total, tt.max, got, tt.want)
		}
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in     string
		want   model.Rating
		wantOK bool
	}{
		{"Exemplary", model.RatingExemplary, true},
		{"very poor", model.RatingVeryPoor, true},
		{"Very_Poor", model.RatingVeryPoor, true},
		{"very-poor", model.RatingVeryPoor, true},
		{" STRONG ", model.RatingStrong, true},
		{"excellent", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseRating(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseRating(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
