package ensemble

import (
	"github.com/firmas-hq/firmas/core/cedula"
	"github.com/firmas-hq/firmas/core/textmatch"
)

// Pair is one primary/secondary candidate pairing handed to the digit-level
// combination.
type Pair struct {
	Primary   cedula.RawCandidate
	Secondary cedula.RawCandidate
}

// PairCandidates maps the primary provider's candidates to the secondary's.
// Rows are read in strict top-to-bottom order in the source form, so pairs
// are formed by position, not by best similarity: similarity-maximum
// pairing loses the row ordering whenever one side misreads several digits.
//
// When a positional pair's edit-distance similarity falls below
// PairSimilarityFloor, a symmetric window of radius PairWindow in the
// secondary list is searched for a strictly better match; if one is found,
// the two secondary entries swap places. Otherwise the positional pair is
// kept anyway — the length validator and digit comparator make the better
// call downstream. Unpaired trailing entries are dropped.
func PairCandidates(primary, secondary []cedula.RawCandidate, cfg Config) []Pair {
	n := len(primary)
	if len(secondary) < n {
		n = len(secondary)
	}
	if n == 0 {
		return nil
	}

	// Work on a copy: window overrides reorder the secondary list.
	sec := make([]cedula.RawCandidate, len(secondary))
	copy(sec, secondary)

	pairs := make([]Pair, 0, n)
	for i := 0; i < n; i++ {
		best := textmatch.Ratio(primary[i].Digits.String(), sec[i].Digits.String())
		if best < cfg.PairSimilarityFloor {
			bestJ := i
			lo, hi := i-cfg.PairWindow, i+cfg.PairWindow
			if lo < 0 {
				lo = 0
			}
			if hi > len(sec)-1 {
				hi = len(sec) - 1
			}
			for j := lo; j <= hi; j++ {
				if j == i {
					continue
				}
				if r := textmatch.Ratio(primary[i].Digits.String(), sec[j].Digits.String()); r > best {
					best, bestJ = r, j
				}
			}
			if bestJ != i {
				sec[i], sec[bestJ] = sec[bestJ], sec[i]
			}
		}
		pairs = append(pairs, Pair{Primary: primary[i], Secondary: sec[i]})
	}
	return pairs
}
