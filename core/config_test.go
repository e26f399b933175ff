package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFile)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), ConfigFile))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.OCR.Provider != "digit_ensemble" {
		t.Fatalf("Provider = %q", cfg.OCR.Provider)
	}
	if cfg.OCR.DigitEnsemble.MinDigitConfidence != 0.70 {
		t.Fatalf("MinDigitConfidence = %v", cfg.OCR.DigitEnsemble.MinDigitConfidence)
	}
	if cfg.OCR.DigitEnsemble.MaxConflictRatio != 0.50 {
		t.Fatalf("MaxConflictRatio = %v", cfg.OCR.DigitEnsemble.MaxConflictRatio)
	}
	if cfg.OCR.DigitEnsemble.ConfidenceBoost != 1.10 {
		t.Fatalf("ConfidenceBoost = %v", cfg.OCR.DigitEnsemble.ConfidenceBoost)
	}
	if cfg.OCR.DigitEnsemble.AmbiguityThreshold != 0.05 {
		t.Fatalf("AmbiguityThreshold = %v", cfg.OCR.DigitEnsemble.AmbiguityThreshold)
	}
	if cfg.Validation.MinSimilarity != 0.85 {
		t.Fatalf("MinSimilarity = %v", cfg.Validation.MinSimilarity)
	}
	if cfg.Automation.TypingInterval != 0.01 || cfg.Automation.PageLoadTimeout != 5 {
		t.Fatalf("automation timings = %+v", cfg.Automation)
	}
	if cfg.Automation.PreEnterDelay != 0.3 || cfg.Automation.PostEnterDelay != 0.5 {
		t.Fatalf("enter delays = %+v", cfg.Automation)
	}
	if cfg.Keys.Pause != "esc" || cfg.Keys.Resume != "f9" {
		t.Fatalf("keys = %+v", cfg.Keys)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Fatalf("Debounce = %v", cfg.Watch.Debounce)
	}
}

func TestLoadConfig_ParsesAndOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
ocr:
  provider: azure
  digit_ensemble:
    min_digit_confidence: 0.80
    verbose_logging: true
validation:
  min_similarity: 0.90
automation:
  typing_interval: 0.05
search_field:
  x: 640
  y: 312
buttons:
  blank_row:
    x: 10
    y: 20
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.OCR.Provider != "azure" {
		t.Fatalf("Provider = %q", cfg.OCR.Provider)
	}
	if cfg.OCR.DigitEnsemble.MinDigitConfidence != 0.80 {
		t.Fatalf("MinDigitConfidence = %v", cfg.OCR.DigitEnsemble.MinDigitConfidence)
	}
	if !cfg.OCR.DigitEnsemble.VerboseLogging {
		t.Fatal("VerboseLogging not parsed")
	}
	// Untouched keys keep their defaults.
	if cfg.OCR.DigitEnsemble.MaxConflictRatio != 0.50 {
		t.Fatalf("MaxConflictRatio = %v", cfg.OCR.DigitEnsemble.MaxConflictRatio)
	}
	if cfg.SearchField.X != 640 || cfg.SearchField.Y != 312 {
		t.Fatalf("SearchField = %+v", cfg.SearchField)
	}
	if cfg.Buttons.BlankRow == nil || cfg.Buttons.BlankRow.X != 10 {
		t.Fatalf("BlankRow = %+v", cfg.Buttons.BlankRow)
	}
	if cfg.Buttons.Save != nil {
		t.Fatal("unset buttons must stay nil")
	}
}

func TestLoadConfig_RejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "ocr: [not a map")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("malformed yaml must error")
	}
}

func TestValidate_RequiresSearchField(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), ConfigFile))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("Validate = %v, want ErrConfigMissing", err)
	}

	cfg.SearchField.X, cfg.SearchField.Y = 640, 312
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with coordinates: %v", err)
	}

	// A dry run has nothing to click, so no coordinates are required.
	cfg.SearchField.X, cfg.SearchField.Y = 0, 0
	cfg.Automation.Backend = "none"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate dry run: %v", err)
	}
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), ConfigFile))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.Automation.Backend = "none"
	cfg.OCR.Provider = "tesseract"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown provider must be rejected")
	}
}

func TestValidate_CaptureBackends(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		cfg := &Config{}
		cfg.applyDefaults()
		cfg.SearchField.X, cfg.SearchField.Y = 640, 312
		return cfg
	}

	for _, backend := range []string{"import", "scrot"} {
		cfg := base()
		cfg.WebForm.Capture = backend
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate(%s): %v", backend, err)
		}
	}

	cfg := base()
	cfg.WebForm.Capture = "file"
	if err := cfg.Validate(); !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("file capture without capture_file: %v, want ErrConfigMissing", err)
	}
	cfg.WebForm.CaptureFile = "screen.png"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate(file): %v", err)
	}

	cfg = base()
	cfg.WebForm.Capture = "xwd"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown capture backend must be rejected, never substituted")
	}
}

func TestSeconds(t *testing.T) {
	t.Parallel()

	if got := Seconds(0.01); got != 10*time.Millisecond {
		t.Fatalf("Seconds(0.01) = %v", got)
	}
	if got := Seconds(5); got != 5*time.Second {
		t.Fatalf("Seconds(5) = %v", got)
	}
}

func TestProcessSettings(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), ConfigFile))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.SearchField.X, cfg.SearchField.Y = 7, 9

	s := cfg.ProcessSettings()
	if s.TypingInterval != 10*time.Millisecond {
		t.Fatalf("TypingInterval = %v", s.TypingInterval)
	}
	if s.PageLoadTimeout != 5*time.Second {
		t.Fatalf("PageLoadTimeout = %v", s.PageLoadTimeout)
	}
	if s.SearchField.X != 7 || s.SearchField.Y != 9 {
		t.Fatalf("SearchField = %+v", s.SearchField)
	}
}
