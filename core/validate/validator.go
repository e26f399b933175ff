// Package validate implements the fuzzy comparison between a row's
// handwritten names and the name fields the target application renders for
// the typed cédula. The verdict drives the row processor's branch:
// auto-save, human validation, or a not-found alert.
package validate

import (
	"fmt"
	"log/slog"

	"github.com/firmas-hq/firmas/core/cedula"
	"github.com/firmas-hq/firmas/core/textmatch"
)

// DefaultMinSimilarity is the gate threshold applied when none is
// configured.
const DefaultMinSimilarity = 0.85

// Validator classifies one row against the rendered form response. The
// normalization memo is per-instance; instances must not be shared across
// goroutines.
type Validator struct {
	minSimilarity float64
	memo          map[string]string
	logger        *slog.Logger
}

// New returns a Validator with the given similarity threshold. A
// non-positive threshold falls back to DefaultMinSimilarity.
func New(minSimilarity float64, logger *slog.Logger) *Validator {
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		minSimilarity: minSimilarity,
		memo:          make(map[string]string),
		logger:        logger,
	}
}

// SetMinSimilarity changes the gate threshold and invalidates the
// normalization memo.
func (v *Validator) SetMinSimilarity(m float64) {
	if m <= 0 {
		m = DefaultMinSimilarity
	}
	v.minSimilarity = m
	v.memo = make(map[string]string)
}

// normalize memoizes textmatch.Normalize per input string. Rows repeat the
// same surnames often enough that the memo pays for itself within a run.
func (v *Validator) normalize(s string) string {
	if cached, ok := v.memo[s]; ok {
		return cached
	}
	n := textmatch.Normalize(s)
	v.memo[s] = n
	return n
}

// Validate compares the handwritten row against the rendered form fields.
//
// Two gates must pass for auto-acceptance: the first surname must match a
// handwritten token at or above the threshold, and at least one non-empty
// rendered name field (first or middle) must do the same. An empty form
// means the person is not in the database.
func (v *Validator) Validate(row cedula.RowData, form cedula.FormData) cedula.ValidationResult {
	if form.IsEmpty() {
		return cedula.ValidationResult{
			Status:     cedula.StatusError,
			Action:     cedula.ActionAlertNotFound,
			Confidence: 0,
			Detail:     fmt.Sprintf("cedula %s: person not in database", row.Cedula),
		}
	}

	tokens := textmatch.Tokens(v.normalize(row.Names))
	matches := make(map[string]cedula.FieldMatch, 4)

	surname := v.bestMatch(cedula.FieldFirstSurname, form.FirstSurname, tokens)
	matches[cedula.FieldFirstSurname] = surname

	first := v.bestMatch(cedula.FieldFirstName, form.FirstName, tokens)
	matches[cedula.FieldFirstName] = first

	middle := v.bestMatch(cedula.FieldMiddleName, form.MiddleName, tokens)
	matches[cedula.FieldMiddleName] = middle

	// The second surname is recorded for the operator but does not gate:
	// handwritten rows frequently omit it.
	matches[cedula.FieldSecondSurname] = v.bestMatch(cedula.FieldSecondSurname, form.SecondSurname, tokens)

	surnameGate := surname.Matched
	nameGate := false
	nameFieldPresent := false
	for _, m := range []cedula.FieldMatch{first, middle} {
		if m.Compared == "" {
			continue
		}
		nameFieldPresent = true
		if m.Matched {
			nameGate = true
		}
	}
	if !nameFieldPresent {
		// Nothing rendered to compare against; the surname alone decides.
		nameGate = surnameGate
	}

	confidence := meanSimilarity(matches)

	if surnameGate && nameGate {
		return cedula.ValidationResult{
			Status:     cedula.StatusOK,
			Action:     cedula.ActionAutoSave,
			Confidence: confidence,
			Matches:    matches,
		}
	}

	detail := "name mismatch:"
	if !surnameGate {
		detail += fmt.Sprintf(" surname %q best similarity %.2f below %.2f;", form.FirstSurname, surname.Similarity, v.minSimilarity)
	}
	if !nameGate {
		detail += " no rendered name field matched a handwritten token;"
	}
	return cedula.ValidationResult{
		Status:     cedula.StatusWarning,
		Action:     cedula.ActionRequireValidation,
		Confidence: confidence,
		Matches:    matches,
		Detail:     detail,
	}
}

// bestMatch compares one rendered field against every handwritten token and
// keeps the best similarity. An empty rendered field yields an unmatched
// record with the empty Compared marker.
func (v *Validator) bestMatch(field, rendered string, tokens []string) cedula.FieldMatch {
	normalized := v.normalize(rendered)
	m := cedula.FieldMatch{Field: field, Compared: normalized}
	if normalized == "" {
		return m
	}
	for _, tok := range tokens {
		if sim := textmatch.Ratio(normalized, tok); sim > m.Similarity {
			m.Similarity = sim
		}
	}
	m.Matched = m.Similarity >= v.minSimilarity
	return m
}

func meanSimilarity(matches map[string]cedula.FieldMatch) float64 {
	counted := 0
	var sum float64
	for _, m := range matches {
		if m.Compared == "" {
			continue
		}
		sum += m.Similarity
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}
