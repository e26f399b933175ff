// Package core provides the run configuration and the orchestrator driving
// a full transcription run: extract handwritten rows, reconcile cédulas
// through the digit ensemble, process each row against the target
// application, and report the outcome.
package core

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/firmas-hq/firmas/core/process"
	"github.com/firmas-hq/firmas/screenio"
)

// ErrConfigMissing marks a required configuration key that is absent.
// Fatal at startup.
var ErrConfigMissing = errors.New("core: required configuration missing")

// ConfigFile is the dot-file read from the working directory.
const ConfigFile = ".firmas.yaml"

// Config is the project configuration loaded from .firmas.yaml.
type Config struct {
	OCR         OCRSettings        `yaml:"ocr"`
	Rows        RowsSettings       `yaml:"rows"`
	Validation  ValidationSettings `yaml:"validation"`
	Automation  AutomationSettings `yaml:"automation"`
	SearchField process.Point      `yaml:"search_field"`
	Buttons     ButtonSettings     `yaml:"buttons"`
	WebForm     WebFormSettings    `yaml:"web_form"`
	Keys        KeySettings        `yaml:"keys"`
	Alerts      AlertSettings      `yaml:"alerts"`
	Watch       WatchSettings      `yaml:"watch"`
	Report      ReportSettings     `yaml:"report"`
}

// OCRSettings selects and tunes the OCR providers.
type OCRSettings struct {
	// Provider is digit_ensemble (default), google, azure, or openai.
	Provider          string                `yaml:"provider"`
	RequestsPerMinute int                   `yaml:"requests_per_minute"`
	TimeoutSeconds    float64               `yaml:"timeout"`
	Google            GoogleSettings        `yaml:"google"`
	Azure             AzureSettings         `yaml:"azure"`
	OpenAI            OpenAISettings        `yaml:"openai"`
	DigitEnsemble     DigitEnsembleSettings `yaml:"digit_ensemble"`
}

// GoogleSettings configures the Vision adapter. The key itself stays in the
// environment.
type GoogleSettings struct {
	APIKeyEnv string `yaml:"api_key_env"`
}

// AzureSettings configures the Read adapter.
type AzureSettings struct {
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// OpenAISettings configures the fallback vision adapter.
type OpenAISettings struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// DigitEnsembleSettings tunes the digit-level combination. Zero values mean
// "use the default".
type DigitEnsembleSettings struct {
	MinDigitConfidence         float64 `yaml:"min_digit_confidence"`
	MinAgreementRatio          float64 `yaml:"min_agreement_ratio"`
	MaxConflictRatio           float64 `yaml:"max_conflict_ratio"`
	ConfidenceBoost            float64 `yaml:"confidence_boost"`
	AmbiguityThreshold         float64 `yaml:"ambiguity_threshold"`
	AllowLowConfidenceOverride bool    `yaml:"allow_low_confidence_override"`
	VerboseLogging             bool    `yaml:"verbose_logging"`
}

// RowsSettings controls the handwritten-row extraction.
type RowsSettings struct {
	Expected int     `yaml:"expected"`
	Split    float64 `yaml:"split"`
}

// ValidationSettings tunes the fuzzy name validator.
type ValidationSettings struct {
	MinSimilarity float64 `yaml:"min_similarity"`
}

// AutomationSettings controls the UI-driving backend and timing. Delays are
// in seconds.
type AutomationSettings struct {
	// Backend is xdotool (default) or none (dry run).
	Backend         string  `yaml:"backend"`
	TypingInterval  float64 `yaml:"typing_interval"`
	PageLoadTimeout float64 `yaml:"page_load_timeout"`
	PreEnterDelay   float64 `yaml:"pre_enter_delay"`
	PostEnterDelay  float64 `yaml:"post_enter_delay"`
}

// ButtonSettings are optional click targets in the target application.
type ButtonSettings struct {
	Save     *process.Point `yaml:"save"`
	BlankRow *process.Point `yaml:"blank_row"`
	Novelty  *process.Point `yaml:"novelty"`
}

// WebFormSettings locates the rendered response fields on screen.
type WebFormSettings struct {
	// Capture is import (default), scrot, or file.
	Capture     string          `yaml:"capture"`
	CaptureFile string          `yaml:"capture_file"`
	Regions     RegionsSettings `yaml:"regions"`
}

// RegionsSettings maps the four rendered fields to screen rectangles.
type RegionsSettings struct {
	FirstName     screenio.Region `yaml:"first_name"`
	MiddleName    screenio.Region `yaml:"middle_name"`
	FirstSurname  screenio.Region `yaml:"first_surname"`
	SecondSurname screenio.Region `yaml:"second_surname"`
}

// KeySettings binds the pause and resume keys.
type KeySettings struct {
	Pause  string `yaml:"pause"`
	Resume string `yaml:"resume"`
}

// AlertSettings are the headless sink's directives.
type AlertSettings struct {
	DefaultNotFound string `yaml:"default_not_found"`
	DefaultMismatch string `yaml:"default_mismatch"`
	DefaultEmptyRow string `yaml:"default_empty_row"`
	DefaultError    string `yaml:"default_error"`
}

// WatchSettings controls watch mode.
type WatchSettings struct {
	Debounce time.Duration `yaml:"debounce"`
	Pattern  string        `yaml:"pattern"`
}

// ReportSettings controls the JSON run report.
type ReportSettings struct {
	// IncludeRows embeds per-row cédulas and names in the report. Off by
	// default: the report is run metadata, not a data store.
	IncludeRows bool `yaml:"include_rows"`
}

// LoadConfig reads path (or ConfigFile when empty) and applies defaults.
// A missing file yields the defaults with no error; required keys are
// checked by Validate, not here.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigFile
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OCR.Provider == "" {
		c.OCR.Provider = "digit_ensemble"
	}
	if c.OCR.TimeoutSeconds <= 0 {
		c.OCR.TimeoutSeconds = 30
	}
	if c.OCR.Google.APIKeyEnv == "" {
		c.OCR.Google.APIKeyEnv = "GOOGLE_VISION_API_KEY"
	}
	if c.OCR.Azure.APIKeyEnv == "" {
		c.OCR.Azure.APIKeyEnv = "AZURE_VISION_API_KEY"
	}
	if c.OCR.OpenAI.APIKeyEnv == "" {
		c.OCR.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.OCR.OpenAI.Model == "" {
		c.OCR.OpenAI.Model = "gpt-4o"
	}

	d := &c.OCR.DigitEnsemble
	if d.MinDigitConfidence <= 0 {
		d.MinDigitConfidence = 0.70
	}
	if d.MinAgreementRatio <= 0 {
		d.MinAgreementRatio = 0.60
	}
	if d.MaxConflictRatio <= 0 {
		d.MaxConflictRatio = 0.50
	}
	if d.ConfidenceBoost <= 0 {
		d.ConfidenceBoost = 1.10
	}
	if d.AmbiguityThreshold <= 0 {
		d.AmbiguityThreshold = 0.05
	}

	if c.Rows.Expected <= 0 {
		c.Rows.Expected = 20
	}
	if c.Rows.Split <= 0 || c.Rows.Split >= 1 {
		c.Rows.Split = 0.60
	}
	if c.Validation.MinSimilarity <= 0 {
		c.Validation.MinSimilarity = 0.85
	}

	a := &c.Automation
	if a.Backend == "" {
		a.Backend = "xdotool"
	}
	if a.TypingInterval <= 0 {
		a.TypingInterval = 0.01
	}
	if a.PageLoadTimeout <= 0 {
		a.PageLoadTimeout = 5
	}
	if a.PreEnterDelay <= 0 {
		a.PreEnterDelay = 0.3
	}
	if a.PostEnterDelay <= 0 {
		a.PostEnterDelay = 0.5
	}

	if c.WebForm.Capture == "" {
		c.WebForm.Capture = "import"
	}
	if c.Keys.Pause == "" {
		c.Keys.Pause = "esc"
	}
	if c.Keys.Resume == "" {
		c.Keys.Resume = "f9"
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	if c.Watch.Pattern == "" {
		c.Watch.Pattern = "*.png"
	}
}

// Validate checks the keys that have no usable default. The search-field
// coordinates are required whenever the run drives a real UI.
func (c *Config) Validate() error {
	if c.Automation.Backend != "none" && c.SearchField.X == 0 && c.SearchField.Y == 0 {
		return fmt.Errorf("%w: search_field.x and search_field.y", ErrConfigMissing)
	}
	switch c.OCR.Provider {
	case "digit_ensemble", "google", "azure", "openai":
	default:
		return fmt.Errorf("core: unknown ocr.provider %q", c.OCR.Provider)
	}
	switch c.WebForm.Capture {
	case "import", "scrot":
	case "file":
		if c.WebForm.CaptureFile == "" {
			return fmt.Errorf("%w: web_form.capture_file", ErrConfigMissing)
		}
	default:
		return fmt.Errorf("core: unknown web_form.capture %q", c.WebForm.Capture)
	}
	return nil
}

// Seconds converts a float seconds value from configuration into a
// duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ProcessSettings assembles the row processor's settings from the
// configuration.
func (c *Config) ProcessSettings() process.Settings {
	return process.Settings{
		TypingInterval:  Seconds(c.Automation.TypingInterval),
		PageLoadTimeout: Seconds(c.Automation.PageLoadTimeout),
		PreEnterDelay:   Seconds(c.Automation.PreEnterDelay),
		PostEnterDelay:  Seconds(c.Automation.PostEnterDelay),
		SearchField:     c.SearchField,
		SaveButton:      c.Buttons.Save,
		BlankRowButton:  c.Buttons.BlankRow,
		NoveltyButton:   c.Buttons.Novelty,
	}
}
