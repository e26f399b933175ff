package ensemble

import "github.com/firmas-hq/firmas/core/cedula"

// lengthPriority ranks candidate lengths by how plausible they are for a
// Colombian cédula. One provider frequently inserts or drops a digit;
// aligning positions across different lengths is catastrophic, so a length
// winner is chosen outright instead. A 9-digit read is almost always an
// 8- or 10-digit cédula with an OCR artifact, hence its low rank.
func lengthPriority(n int) int {
	switch n {
	case 10:
		return 3
	case 8:
		return 2
	case 9:
		return 1
	default:
		return 0
	}
}

// ChooseByLength short-circuits digit-level combination when the two
// candidates disagree on length. The higher-priority length wins even at
// lower confidence; on a priority tie the higher-confidence candidate wins.
// Equal lengths return nil, deferring to the digit comparator.
func ChooseByLength(primary, secondary cedula.RawCandidate) *cedula.RawCandidate {
	lp, ls := primary.Digits.Len(), secondary.Digits.Len()
	if lp == ls {
		return nil
	}

	pp, ps := lengthPriority(lp), lengthPriority(ls)
	switch {
	case pp > ps:
		return &primary
	case ps > pp:
		return &secondary
	case primary.Confidence >= secondary.Confidence:
		return &primary
	default:
		return &secondary
	}
}
