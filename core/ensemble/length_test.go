package ensemble

import (
	"testing"

	"github.com/firmas-hq/firmas/core/cedula"
)

func cand(digits string, conf float64) cedula.RawCandidate {
	return cedula.RawCandidate{
		Digits:     cedula.DigitString(digits),
		Confidence: cedula.Confidence(conf),
	}
}

func TestChooseByLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		primary   cedula.RawCandidate
		secondary cedula.RawCandidate
		want      string // "" means nil (defer to digit comparison)
	}{
		{
			name:      "equal lengths defer",
			primary:   cand("1036221525", 0.95),
			secondary: cand("7036221525", 0.99),
			want:      "",
		},
		{
			name:      "ten beats nine even at lower confidence",
			primary:   cand("1036221525", 0.60),
			secondary: cand("103622152", 0.99),
			want:      "1036221525",
		},
		{
			name:      "eight beats nine",
			primary:   cand("296570012", 0.95),
			secondary: cand("29657092", 0.95),
			want:      "29657092",
		},
		{
			name:      "ten beats eight",
			primary:   cand("29657092", 0.99),
			secondary: cand("1036221525", 0.70),
			want:      "1036221525",
		},
		{
			name:      "priority tie falls to confidence",
			primary:   cand("1234567", 0.80), // priority 0
			secondary: cand("123456", 0.90),  // priority 0
			want:      "123456",
		},
		{
			name:      "priority and confidence tie keeps primary",
			primary:   cand("1234567", 0.80),
			secondary: cand("123456", 0.80),
			want:      "1234567",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ChooseByLength(tt.primary, tt.secondary)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("ChooseByLength = %q, want nil", got.Digits)
				}
				return
			}
			if got == nil {
				t.Fatal("ChooseByLength = nil, want a winner")
			}
			if got.Digits.String() != tt.want {
				t.Fatalf("ChooseByLength = %q, want %q", got.Digits, tt.want)
			}
		})
	}
}

func TestChooseByLength_ReturnsCandidateVerbatim(t *testing.T) {
	t.Parallel()

	p := cand("1036221525", 0.61)
	s := cand("103622152", 0.99)
	got := ChooseByLength(p, s)
	if got == nil || got.Confidence != p.Confidence || got.Digits != p.Digits {
		t.Fatalf("winner must be returned verbatim, got %+v", got)
	}
}
