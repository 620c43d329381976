package assemble

import (
	"encoding/json"
	"strings"

	"github.com/ppiankov/syllogos/internal/model"
)

// DefaultGenericValues are placeholder classification values that never lock
var DefaultGenericValues = []string{"unknown", "n/a", "undefined", "null", "", "general", "miscellaneous"}

// ClassificationUpdate is one classification fragment. Nil fields were absent.
type ClassificationUpdate struct {
	DocumentType *string
	Field        *string
	Confidence   *model.ConfidenceLevel
	Source       model.ClassificationSource
}

// UnmarshalJSON decodes a classification object as the model writes it
func (u *ClassificationUpdate) UnmarshalJSON(data []byte) error {
	var raw struct {
		DocumentType *string `json:"documentType"`
		Field        *string `json:"field"`
		Confidence   any     `json:"confidence"`
		Source       *string `json:"source"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.DocumentType = raw.DocumentType
	u.Field = raw.Field
	u.Confidence = nil
	if raw.Confidence != nil {
		c := model.ParseConfidence(raw.Confidence)
		u.Confidence = &c
	}
	u.Source = model.SourceInferred
	if raw.Source != nil {
		u.Source = model.ParseSource(*raw.Source)
	}
	return nil
}

// Reconciler applies classification updates with source precedence:
// genuine external beats inferred, which beats generic external.
// Locks are tracked per field, so an external documentType does not freeze
// an inferred field.
type Reconciler struct {
	generic map[string]struct{}

	current   model.Classification
	typeLock  bool
	fieldLock bool
}

// NewReconciler creates a reconciler. A nil generic set uses DefaultGenericValues.
func NewReconciler(generic []string) *Reconciler {
	if generic == nil {
		generic = DefaultGenericValues
	}
	set := make(map[string]struct{}, len(generic))
	for _, g := range generic {
		set[strings.ToLower(strings.TrimSpace(g))] = struct{}{}
	}
	return &Reconciler{
		generic: set,
		current: model.Classification{
			DocumentType: model.GenericUnknown,
			Field:        model.GenericUnknown,
			Confidence:   model.ConfidenceMedium,
			Source:       model.SourceInferred,
		},
	}
}

// IsGeneric reports whether v is a placeholder value
func (r *Reconciler) IsGeneric(v string) bool {
	_, ok := r.generic[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// Seed sets the starting classification, usually from the metadata envelope.
// Seeding follows the same precedence rules as Apply.
func (r *Reconciler) Seed(c model.Classification) model.Classification {
	dt, f := c.DocumentType, c.Field
	conf := c.Confidence
	if conf == "" {
		conf = model.ConfidenceMedium
	}
	r.current.Confidence = conf
	r.Apply(ClassificationUpdate{DocumentType: &dt, Field: &f, Source: c.Source})
	return r.current
}

// Apply merges u into the current classification and reports whether
// anything changed.
func (r *Reconciler) Apply(u ClassificationUpdate) (model.Classification, bool) {
	before := r.current
	source := u.Source
	if source == "" {
		source = model.SourceInferred
	}

	accepted := false
	if u.DocumentType != nil && r.accept(*u.DocumentType, r.current.DocumentType, source, &r.typeLock) {
		r.current.DocumentType = *u.DocumentType
		accepted = true
	}
	if u.Field != nil && r.accept(*u.Field, r.current.Field, source, &r.fieldLock) {
		r.current.Field = *u.Field
		accepted = true
	}

	if accepted && u.Confidence != nil {
		r.current.Confidence = *u.Confidence
	}

	switch {
	case r.typeLock || r.fieldLock:
		r.current.Source = model.SourceExternal
	case accepted:
		r.current.Source = source
	}

	return r.current, r.current != before
}

// Current returns the reconciled classification
func (r *Reconciler) Current() model.Classification {
	return r.current
}

// Locked reports whether either field is held by a genuine external value
func (r *Reconciler) Locked() bool {
	return r.typeLock || r.fieldLock
}

func (r *Reconciler) accept(value, current string, source model.ClassificationSource, lock *bool) bool {
	generic := r.IsGeneric(value)
	if source == model.SourceExternal {
		if !generic {
			*lock = true
			return true
		}
		return r.IsGeneric(current)
	}
	if *lock {
		return false
	}
	return !generic || r.IsGeneric(current)
}
