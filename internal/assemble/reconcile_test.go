package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/syllogos/internal/model"
)

func str(s string) *string { return &s }

func conf(c model.ConfidenceLevel) *model.ConfidenceLevel { return &c }

func TestReconciler_GenericExternalDoesNotLock(t *testing.T) {
	r := NewReconciler(nil)

	r.Apply(ClassificationUpdate{DocumentType: str("unknown"), Source: model.SourceExternal})
	got, changed := r.Apply(ClassificationUpdate{DocumentType: str("article"), Source: model.SourceInferred})

	assert.True(t, changed)
	assert.Equal(t, "article", got.DocumentType)
	assert.Equal(t, model.SourceInferred, got.Source)
	assert.False(t, r.Locked())
}

func TestReconciler_GenuineExternalLocks(t *testing.T) {
	r := NewReconciler(nil)

	r.Apply(ClassificationUpdate{DocumentType: str("review"), Field: str("medical"), Source: model.SourceExternal})

	for _, u := range []ClassificationUpdate{
		{DocumentType: str("article"), Field: str("humanities"), Source: model.SourceInferred},
		{DocumentType: str("unknown"), Field: str("General"), Source: model.SourceExternal},
		{DocumentType: str("preprint"), Source: model.SourceInferred},
	} {
		got, changed := r.Apply(u)
		assert.False(t, changed)
		assert.Equal(t, "review", got.DocumentType)
		assert.Equal(t, "medical", got.Field)
		assert.Equal(t, model.SourceExternal, got.Source)
	}

	// A later genuine external value still replaces an earlier one
	got, changed := r.Apply(ClassificationUpdate{DocumentType: str("article"), Source: model.SourceExternal})
	assert.True(t, changed)
	assert.Equal(t, "article", got.DocumentType)
}

func TestReconciler_LocksPerField(t *testing.T) {
	r := NewReconciler(nil)

	r.Apply(ClassificationUpdate{DocumentType: str("article"), Field: str("n/a"), Source: model.SourceExternal})
	got, _ := r.Apply(ClassificationUpdate{DocumentType: str("essay"), Field: str("medical"), Source: model.SourceInferred})

	assert.Equal(t, "article", got.DocumentType)
	assert.Equal(t, "medical", got.Field)
	assert.Equal(t, model.SourceExternal, got.Source)
}

func TestReconciler_GenericInferredDoesNotRegress(t *testing.T) {
	r := NewReconciler(nil)

	r.Apply(ClassificationUpdate{DocumentType: str("article"), Field: str("medical"), Source: model.SourceInferred})
	got, changed := r.Apply(ClassificationUpdate{DocumentType: str("Unknown"), Field: str(""), Source: model.SourceInferred})

	assert.False(t, changed)
	assert.Equal(t, "article", got.DocumentType)
	assert.Equal(t, "medical", got.Field)

	got, _ = r.Apply(ClassificationUpdate{DocumentType: str("miscellaneous"), Source: model.SourceExternal})
	assert.Equal(t, "article", got.DocumentType)
}

func TestReconciler_Confidence(t *testing.T) {
	r := NewReconciler(nil)
	r.Apply(ClassificationUpdate{DocumentType: str("article"), Source: model.SourceExternal})

	// Rejected update keeps the old confidence
	got, _ := r.Apply(ClassificationUpdate{DocumentType: str("essay"), Confidence: conf(model.ConfidenceLow)})
	assert.Equal(t, model.ConfidenceMedium, got.Confidence)

	got, _ = r.Apply(ClassificationUpdate{Field: str("physics"), Confidence: conf(model.ConfidenceHigh)})
	assert.Equal(t, model.ConfidenceHigh, got.Confidence)
	assert.Equal(t, "physics", got.Field)
}

func TestReconciler_Seed(t *testing.T) {
	r := NewReconciler(nil)

	got := r.Seed(model.Classification{DocumentType: "article", Field: "unknown", Source: model.SourceExternal})
	assert.Equal(t, "article", got.DocumentType)
	assert.Equal(t, model.ConfidenceMedium, got.Confidence)
	assert.True(t, r.Locked())

	got, _ = r.Apply(ClassificationUpdate{DocumentType: str("essay"), Field: str("humanities")})
	assert.Equal(t, "article", got.DocumentType)
	assert.Equal(t, "humanities", got.Field)
}

func TestReconciler_CustomGenericSet(t *testing.T) {
	r := NewReconciler([]string{"tbd"})

	assert.True(t, r.IsGeneric(" TBD "))
	assert.False(t, r.IsGeneric("unknown"))
}

func TestClassificationUpdate_UnmarshalJSON(t *testing.T) {
	var u ClassificationUpdate
	err := u.UnmarshalJSON([]byte(`{"documentType":"article","confidence":72,"source":"USER"}`))

	assert.NoError(t, err)
	assert.Equal(t, "article", *u.DocumentType)
	assert.Nil(t, u.Field)
	assert.Equal(t, model.ConfidenceMedium, *u.Confidence)
	assert.Equal(t, model.SourceExternal, u.Source)

	err = u.UnmarshalJSON([]byte(`{"field":"medical"}`))
	assert.NoError(t, err)
	assert.Nil(t, u.DocumentType)
	assert.Nil(t, u.Confidence)
	assert.Equal(t, model.SourceInferred, u.Source)
}
