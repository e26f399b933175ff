package ensemble

import (
	"errors"
	"testing"

	"github.com/firmas-hq/firmas/core/cedula"
)

func confData(text string, confs ...float64) cedula.DigitConfidence {
	perDigit := make([]cedula.Confidence, len(confs))
	var sum float64
	for i, c := range confs {
		perDigit[i] = cedula.Confidence(c)
		sum += c
	}
	return cedula.DigitConfidence{
		Text:     cedula.DigitString(text),
		PerDigit: perDigit,
		Average:  cedula.Confidence(sum / float64(len(confs))),
	}
}

func TestCompareAll_AllPositionsDecided(t *testing.T) {
	t.Parallel()

	r := NewResolver(DefaultConfig())
	p := confData("123", 0.95, 0.95, 0.95)
	s := confData("173", 0.95, 0.80, 0.95)

	decisions, err := CompareAll(r, p, s)
	if err != nil {
		t.Fatalf("CompareAll: %v", err)
	}
	if len(decisions) != 3 {
		t.Fatalf("got %d decisions, want 3", len(decisions))
	}
	if decisions[0].Kind != cedula.KindUnanimous || decisions[2].Kind != cedula.KindUnanimous {
		t.Fatalf("edges should be unanimous: %+v", decisions)
	}
	// Position 1: 2 vs 7 is a confusion pair; 0.95 - 0.80 clears the margin.
	if decisions[1].Digit != '2' || decisions[1].Kind != cedula.KindConflictResolved {
		t.Fatalf("middle decision = %+v", decisions[1])
	}
}

func TestCompareAll_RejectionAborts(t *testing.T) {
	t.Parallel()

	r := NewResolver(DefaultConfig())
	p := confData("123", 0.95, 0.50, 0.95)
	s := confData("153", 0.95, 0.55, 0.95)

	_, err := CompareAll(r, p, s)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestCompareAll_LengthMismatchIsError(t *testing.T) {
	t.Parallel()

	r := NewResolver(DefaultConfig())
	_, err := CompareAll(r, confData("123", 0.9, 0.9, 0.9), confData("1234", 0.9, 0.9, 0.9, 0.9))
	if err == nil {
		t.Fatal("length mismatch must error, ChooseByLength guards this path")
	}
}
