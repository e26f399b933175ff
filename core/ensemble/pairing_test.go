package ensemble

import (
	"testing"

	"github.com/firmas-hq/firmas/core/cedula"
)

func candidates(digits ...string) []cedula.RawCandidate {
	out := make([]cedula.RawCandidate, len(digits))
	for i, d := range digits {
		out[i] = cand(d, 0.9)
	}
	return out
}

func pairDigits(pairs []Pair) [][2]string {
	out := make([][2]string, len(pairs))
	for i, p := range pairs {
		out[i] = [2]string{p.Primary.Digits.String(), p.Secondary.Digits.String()}
	}
	return out
}

func TestPairCandidates_Positional(t *testing.T) {
	t.Parallel()

	p := candidates("53134051", "1026266536", "64772737")
	s := candidates("53134051", "1026266536", "11172731")

	pairs := PairCandidates(p, s, DefaultConfig())
	if len(pairs) != 3 {
		t.Fatalf("got %d pairs, want 3", len(pairs))
	}
	for i, pd := range pairDigits(pairs) {
		if pd[0] != p[i].Digits.String() || pd[1] != s[i].Digits.String() {
			t.Fatalf("pair %d = %v, want positional pairing", i, pd)
		}
	}
}

func TestPairCandidates_TrailingDropped(t *testing.T) {
	t.Parallel()

	p := candidates("53134051", "1026266536", "64772737")
	s := candidates("53134051", "1026266536")

	pairs := PairCandidates(p, s, DefaultConfig())
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2 (trailing primary dropped)", len(pairs))
	}
}

func TestPairCandidates_WindowOverride(t *testing.T) {
	t.Parallel()

	// The secondary list is shifted by one: position 1 pairs terribly, but
	// its true partner sits inside the radius-2 window.
	p := candidates("1036221525", "99999999")
	s := candidates("88888888", "1036221525")

	pairs := PairCandidates(p, s, DefaultConfig())
	got := pairDigits(pairs)
	if got[0][1] != "1036221525" {
		t.Fatalf("window override did not recover the shifted partner: %v", got)
	}
}

func TestPairCandidates_BadPairKeptWithoutBetterMatch(t *testing.T) {
	t.Parallel()

	// Low similarity but nothing better in the window: the positional pair
	// is kept anyway; length and digit validation decide downstream.
	p := candidates("1111111111")
	s := candidates("9999999999")

	pairs := PairCandidates(p, s, DefaultConfig())
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0].Secondary.Digits.String() != "9999999999" {
		t.Fatalf("positional pair must be kept: %v", pairDigits(pairs))
	}
}

func TestPairCandidates_Deterministic(t *testing.T) {
	t.Parallel()

	p := candidates("53134051", "1026266536", "296570012", "64772737")
	s := candidates("53134051", "296570012", "1026266536", "11172731")

	first := pairDigits(PairCandidates(p, s, DefaultConfig()))
	for i := 0; i < 10; i++ {
		again := pairDigits(PairCandidates(p, s, DefaultConfig()))
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("pairing not deterministic at %d: %v vs %v", j, first[j], again[j])
			}
		}
	}
}

func TestPairCandidates_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	p := candidates("1036221525", "99999999")
	s := candidates("88888888", "1036221525")
	before := [2]string{s[0].Digits.String(), s[1].Digits.String()}

	PairCandidates(p, s, DefaultConfig())

	after := [2]string{s[0].Digits.String(), s[1].Digits.String()}
	if before != after {
		t.Fatal("PairCandidates mutated the caller's secondary slice")
	}
}
