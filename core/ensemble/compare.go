package ensemble

import (
	"errors"
	"fmt"

	"github.com/firmas-hq/firmas/core/cedula"
)

// ErrRejected aborts a cédula whose reconciliation produced a position
// below the confidence floor.
var ErrRejected = errors.New("ensemble: cedula rejected by low-confidence position")

// CompareAll drives the resolver across every position of two
// length-aligned per-digit confidence records. Positions where one side has
// no digit (or a non-digit character) are decided by the present side alone
// and marked single-source. The first rejected position aborts the whole
// cédula with ErrRejected.
//
// The length pre-condition is guaranteed by consulting ChooseByLength
// first; a mismatch here is a programming error, not an OCR condition.
func CompareAll(r *Resolver, pData, sData cedula.DigitConfidence) ([]cedula.PositionDecision, error) {
	if pData.Text.Len() != sData.Text.Len() {
		return nil, fmt.Errorf("ensemble: length mismatch %d vs %d reached digit comparison", pData.Text.Len(), sData.Text.Len())
	}

	pText, sText := pData.Text.String(), sData.Text.String()
	decisions := make([]cedula.PositionDecision, 0, len(pText))

	for i := 0; i < len(pText); i++ {
		pd, sd := pText[i], sText[i]
		pOK, sOK := isDigit(pd), isDigit(sd)

		var d cedula.PositionDecision
		switch {
		case pOK && !sOK:
			d = cedula.PositionDecision{
				Position:   i,
				Digit:      pd,
				Confidence: pData.PerDigit[i],
				Source:     cedula.SourcePrimary,
				Kind:       cedula.KindSingleSource,
			}
		case sOK && !pOK:
			d = cedula.PositionDecision{
				Position:   i,
				Digit:      sd,
				Confidence: sData.PerDigit[i],
				Source:     cedula.SourceSecondary,
				Kind:       cedula.KindSingleSource,
			}
		case !pOK && !sOK:
			return nil, fmt.Errorf("ensemble: no digit at position %d on either side", i)
		default:
			d = r.Resolve(pd, pData.PerDigit[i], sd, sData.PerDigit[i], i)
		}

		if d.Kind == cedula.KindRejected {
			return nil, fmt.Errorf("%w: position %d digit %q confidence %.2f", ErrRejected, i, d.Digit, float64(d.Confidence))
		}
		decisions = append(decisions, d)
	}

	return decisions, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
