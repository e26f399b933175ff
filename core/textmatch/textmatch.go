// Package textmatch provides the string comparison primitives used across
// the pipeline: edit distance, similarity ratios, and the accent-insensitive
// normalization applied to handwritten and rendered name text.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Levenshtein computes the edit distance between two strings using the
// classic dynamic programming algorithm with a rolling pair of rows, so
// memory stays O(min(m,n)).
func Levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	if la < lb {
		a, b = b, a
		la, lb = lb, la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)

	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost

			minVal := del
			if ins < minVal {
				minVal = ins
			}
			if sub < minVal {
				minVal = sub
			}
			curr[j] = minVal
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}

// Ratio returns an edit-distance similarity in [0, 1]: identical strings
// score 1.0, disjoint strings approach 0. A character-overlap count is not
// an acceptable substitute here: it scores anagrams as equal.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(longest)
}

// stripAccents removes combining marks after NFD decomposition, turning
// "Ñ" into "N" and "É" into "E".
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize prepares a name string for comparison: diacritics stripped,
// uppercased, non-alphanumerics dropped, interior whitespace collapsed to
// single spaces. Normalize is idempotent.
func Normalize(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		// Transform failures only occur on invalid UTF-8; fall back to the
		// raw input and let the character filter below handle it.
		out = s
	}

	var b strings.Builder
	b.Grow(len(out))
	lastSpace := true
	for _, r := range strings.ToUpper(out) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) && !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// connectors are the short linking words dropped when tokenizing full names,
// unless the name is so short that dropping them would leave too little to
// compare.
var connectors = map[string]struct{}{
	"DE": {}, "LA": {}, "DEL": {}, "LAS": {}, "LOS": {}, "Y": {},
}

// Tokens splits a normalized full name into comparison tokens. Connector
// words (DE, LA, DEL, ...) are filtered out unless the name has two tokens
// or fewer, in which case everything is kept.
func Tokens(normalized string) []string {
	fields := strings.Fields(normalized)
	if len(fields) <= 2 {
		return fields
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := connectors[f]; skip {
			continue
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return fields
	}
	return out
}
