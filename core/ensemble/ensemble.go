// Package ensemble implements the digit-level OCR combination core: two
// independent providers read the same handwritten column, their candidate
// lists are paired by position, and each pair is reconciled digit by digit
// using per-digit confidences, a confusion-pair table, and length-priority
// rules. The result is measurably more accurate than either provider alone.
package ensemble

import (
	"context"

	"github.com/firmas-hq/firmas/core/cedula"
)

// Provider is the ensemble's view of one cloud OCR backend. Extract returns
// the provider's candidates ordered top-to-bottom as they appear in the
// image. PerDigit re-queries the candidate's native response tree for
// per-digit confidence scores aligned to target.
type Provider interface {
	Name() string
	Extract(ctx context.Context, image []byte) ([]cedula.RawCandidate, error)
	PerDigit(ctx context.Context, cand cedula.RawCandidate, target cedula.DigitString) (cedula.DigitConfidence, error)
}

// Config holds the ensemble tuning knobs. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// MinDigitConfidence rejects a whole cédula when any resolved position
	// lands below this confidence (unless AllowLowConfidenceOverride).
	MinDigitConfidence cedula.Confidence
	// MinAgreementRatio is informational; the hard gate is MaxConflictRatio.
	MinAgreementRatio float64
	// MaxConflictRatio drops a cédula when more than this share of its
	// positions had to be conflict-resolved.
	MaxConflictRatio float64
	// ConfidenceBoost multiplies the winning confidence on unanimous
	// positions, capped at 1.0.
	ConfidenceBoost float64
	// AmbiguityThreshold is the margin one side must clear over the other
	// to win a confusion-pair disagreement outright.
	AmbiguityThreshold float64
	// AllowLowConfidenceOverride disables the MinDigitConfidence rejection.
	AllowLowConfidenceOverride bool
	// VerboseLogging emits the per-position decision table.
	VerboseLogging bool
	// PairSimilarityFloor triggers the windowed pairing search when a
	// positional pair's similarity falls below it.
	PairSimilarityFloor float64
	// PairWindow is the search radius for the windowed pairing override.
	PairWindow int
}

// DefaultConfig returns the tuning used in production runs.
func DefaultConfig() Config {
	return Config{
		MinDigitConfidence:  0.70,
		MinAgreementRatio:   0.60,
		MaxConflictRatio:    0.50,
		ConfidenceBoost:     1.10,
		AmbiguityThreshold:  0.05,
		PairSimilarityFloor: 0.30,
		PairWindow:          2,
	}
}
