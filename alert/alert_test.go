package alert

import (
	"testing"

	"github.com/firmas-hq/firmas/core/cedula"
)

func TestHeadlessSink_AnswersConfiguredDefaults(t *testing.T) {
	t.Parallel()

	s := NewHeadlessSink(Defaults{
		NotFound: NotFoundMarkNovelty,
		Mismatch: MismatchSave,
		EmptyRow: EmptyRowPause,
		Error:    ErrorRetry,
	}, nil)

	if got := s.OnNotFound("99999999", "JOHN DOE", 3); got != NotFoundMarkNovelty {
		t.Fatalf("OnNotFound = %s", got)
	}
	if got := s.OnValidationMismatch(cedula.ValidationResult{Detail: "x"}, 3); got != MismatchSave {
		t.Fatalf("OnValidationMismatch = %s", got)
	}
	if got := s.OnEmptyRow(3); got != EmptyRowPause {
		t.Fatalf("OnEmptyRow = %s", got)
	}
	if got := s.OnError("boom", 3); got != ErrorRetry {
		t.Fatalf("OnError = %s", got)
	}
}

func TestHeadlessSink_EmptyFieldsFallBackToSafeDefaults(t *testing.T) {
	t.Parallel()

	s := NewHeadlessSink(Defaults{}, nil)
	if got := s.OnNotFound("99999999", "JOHN DOE", 1); got != NotFoundContinue {
		t.Fatalf("OnNotFound = %s, want safe default", got)
	}
	if got := s.OnValidationMismatch(cedula.ValidationResult{}, 1); got != MismatchSkip {
		t.Fatalf("OnValidationMismatch = %s, want safe default", got)
	}
	if got := s.OnEmptyRow(1); got != EmptyRowSkip {
		t.Fatalf("OnEmptyRow = %s, want safe default", got)
	}
	if got := s.OnError("boom", 1); got != ErrorSkip {
		t.Fatalf("OnError = %s, want safe default", got)
	}
}
