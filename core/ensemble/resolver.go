package ensemble

import (
	"github.com/firmas-hq/firmas/core/cedula"
)

// digitPair is an unordered pair of digits, normalized so a <= b.
type digitPair struct {
	a, b byte
}

func pairKey(a, b byte) digitPair {
	if a > b {
		a, b = b, a
	}
	return digitPair{a, b}
}

// confusionTable maps digit pairs that OCR engines frequently mistake for
// each other to their observed confusion probability. The probability is
// informational; membership in the table is what changes the resolution
// policy. Extend by adding entries, nothing else consults the values.
var confusionTable = map[digitPair]float64{
	pairKey('1', '7'): 0.15,
	pairKey('7', '2'): 0.12,
	pairKey('5', '6'): 0.10,
	pairKey('0', '6'): 0.08,
	pairKey('3', '8'): 0.08,
	pairKey('4', '9'): 0.07,
	pairKey('0', '8'): 0.06,
	pairKey('1', '4'): 0.05,
}

// IsConfusionPair reports whether a and b are a known OCR confusion pair.
func IsConfusionPair(a, b byte) bool {
	_, ok := confusionTable[pairKey(a, b)]
	return ok
}

// Resolver decides single-position digit conflicts between the two
// providers. It is stateless apart from its configuration.
type Resolver struct {
	cfg Config
}

// NewResolver returns a Resolver with the given configuration.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve chooses a digit for one position.
//
// Agreement wins immediately: the higher confidence is boosted by
// ConfidenceBoost (capped at 1.0). On a known confusion pair, a side must
// exceed the other by strictly more than AmbiguityThreshold to win on the
// margin; a gap of exactly the threshold does not clear it and the decision
// falls through to the raw-confidence comparison, same as a generic
// disagreement. Raw-confidence ties go to the primary provider.
//
// A chosen confidence below MinDigitConfidence yields KindRejected unless
// AllowLowConfidenceOverride is set; the comparator aborts the whole cédula
// on the first rejected position.
func (r *Resolver) Resolve(pDigit byte, pConf cedula.Confidence, sDigit byte, sConf cedula.Confidence, position int) cedula.PositionDecision {
	d := cedula.PositionDecision{Position: position}

	if pDigit == sDigit {
		best := pConf
		if sConf > best {
			best = sConf
		}
		d.Digit = pDigit
		d.Confidence = cedula.ClampConfidence(float64(best) * r.cfg.ConfidenceBoost)
		d.Source = cedula.SourceBoth
		d.Kind = cedula.KindUnanimous
		return r.gate(d)
	}

	d.Kind = cedula.KindConflictResolved
	if IsConfusionPair(pDigit, sDigit) {
		gap := float64(pConf) - float64(sConf)
		switch {
		case gap > r.cfg.AmbiguityThreshold:
			d.Digit, d.Confidence, d.Source = pDigit, pConf, cedula.SourcePrimary
			return r.gate(d)
		case -gap > r.cfg.AmbiguityThreshold:
			d.Digit, d.Confidence, d.Source = sDigit, sConf, cedula.SourceSecondary
			return r.gate(d)
		}
		// Inside the ambiguity margin: fall through to raw confidence.
	}

	if sConf > pConf {
		d.Digit, d.Confidence, d.Source = sDigit, sConf, cedula.SourceSecondary
	} else {
		d.Digit, d.Confidence, d.Source = pDigit, pConf, cedula.SourcePrimary
	}
	return r.gate(d)
}

// gate applies the low-confidence rejection.
func (r *Resolver) gate(d cedula.PositionDecision) cedula.PositionDecision {
	if d.Confidence < r.cfg.MinDigitConfidence && !r.cfg.AllowLowConfidenceOverride {
		d.Kind = cedula.KindRejected
	}
	return d
}
