package cedula

import (
	"testing"
)

// ---------------------------------------------------------------------------
// DigitString tests
// ---------------------------------------------------------------------------

func TestNewDigitString_Bounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "typical current format", in: "1036221525", wantErr: false},
		{name: "legacy format", in: "29657092", wantErr: false},
		{name: "minimum length", in: "123", wantErr: false},
		{name: "maximum length", in: "12345678901", wantErr: false},
		{name: "too short", in: "12", wantErr: true},
		{name: "too long", in: "123456789012", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "letters", in: "10362a1525", wantErr: true},
		{name: "whitespace", in: "1036 21525", wantErr: true},
		{name: "non-ascii digits rejected", in: "١٢٣٤", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewDigitString(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewDigitString(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDigitString(%q): %v", tt.in, err)
			}
			if got.String() != tt.in {
				t.Fatalf("NewDigitString(%q) = %q", tt.in, got)
			}
		})
	}
}

func TestClampConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want Confidence
	}{
		{in: -0.5, want: 0},
		{in: 0, want: 0},
		{in: 0.85, want: 0.85},
		{in: 1, want: 1},
		{in: 1.1, want: 1},
	}
	for _, tt := range tests {
		if got := ClampConfidence(tt.in); got != tt.want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Invariant checks
// ---------------------------------------------------------------------------

func TestDigitConfidence_Check(t *testing.T) {
	t.Parallel()

	ok := DigitConfidence{
		Text:     "123",
		PerDigit: []Confidence{0.9, 0.8, 0.7},
		Average:  0.8,
	}
	if err := ok.Check(); err != nil {
		t.Fatalf("Check on aligned data: %v", err)
	}

	misaligned := DigitConfidence{Text: "123", PerDigit: []Confidence{0.9}}
	if err := misaligned.Check(); err == nil {
		t.Fatal("Check accepted misaligned per-digit slice")
	}

	outOfRange := DigitConfidence{Text: "12", PerDigit: []Confidence{0.5, 1.5}}
	if err := outOfRange.Check(); err == nil {
		t.Fatal("Check accepted confidence outside [0,1]")
	}
}

func TestValidationResult_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		result  ValidationResult
		wantErr bool
	}{
		{
			name:   "auto save with ok",
			result: ValidationResult{Status: StatusOK, Action: ActionAutoSave},
		},
		{
			name:    "auto save with warning",
			result:  ValidationResult{Status: StatusWarning, Action: ActionAutoSave},
			wantErr: true,
		},
		{
			name:   "not found with error",
			result: ValidationResult{Status: StatusError, Action: ActionAlertNotFound},
		},
		{
			name:    "not found with ok",
			result:  ValidationResult{Status: StatusOK, Action: ActionAlertNotFound},
			wantErr: true,
		},
		{
			name:   "require validation with warning",
			result: ValidationResult{Status: StatusWarning, Action: ActionRequireValidation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.result.Check()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormData_IsEmpty(t *testing.T) {
	t.Parallel()

	if !(FormData{}).IsEmpty() {
		t.Fatal("zero FormData should be empty")
	}
	if !(FormData{FirstName: "  "}).IsEmpty() {
		t.Fatal("whitespace-only fields should count as empty")
	}
	if (FormData{FirstSurname: "MAYORGA"}).IsEmpty() {
		t.Fatal("FormData with a surname should not be empty")
	}
}
