package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/firmas-hq/firmas/alert"
	"github.com/firmas-hq/firmas/automation"
	"github.com/firmas-hq/firmas/core"
	"github.com/firmas-hq/firmas/core/cedula"
	"github.com/firmas-hq/firmas/core/ensemble"
	"github.com/firmas-hq/firmas/core/process"
	"github.com/firmas-hq/firmas/core/validate"
	"github.com/firmas-hq/firmas/providers"
	"github.com/firmas-hq/firmas/providers/azureread"
	"github.com/firmas-hq/firmas/providers/googlevision"
	"github.com/firmas-hq/firmas/providers/openaivision"
	"github.com/firmas-hq/firmas/rows"
	"github.com/firmas-hq/firmas/screenio"
	"github.com/firmas-hq/firmas/supervisor"
	"github.com/firmas-hq/firmas/webform"
)

// ocrStack is the set of constructed OCR clients: the ensemble driver plus
// the plain-text reader shared by the row extractor and the web-form pass.
type ocrStack struct {
	driver *ensemble.Driver
	reader providers.TextReader
}

// buildOCR constructs the providers selected by configuration. In ensemble
// mode a missing credential degrades to single-provider mode with a logged
// warning; only a fully credential-less setup is fatal.
func buildOCR(cfg *core.Config, logger *slog.Logger) (*ocrStack, error) {
	timeout := core.Seconds(cfg.OCR.TimeoutSeconds)

	google, googleErr := googlevision.New(
		os.Getenv(cfg.OCR.Google.APIKeyEnv),
		googlevision.WithTimeout(timeout),
		googlevision.WithRateLimiter(providers.NewRateLimiter(cfg.OCR.RequestsPerMinute)),
		googlevision.WithLogger(logger),
	)
	azure, azureErr := azureread.New(
		cfg.OCR.Azure.Endpoint,
		os.Getenv(cfg.OCR.Azure.APIKeyEnv),
		azureread.WithTimeout(timeout),
		azureread.WithRateLimiter(providers.NewRateLimiter(cfg.OCR.RequestsPerMinute)),
		azureread.WithLogger(logger),
	)

	ensembleCfg := ensemble.Config{
		MinDigitConfidence:         cedula.ClampConfidence(cfg.OCR.DigitEnsemble.MinDigitConfidence),
		MinAgreementRatio:          cfg.OCR.DigitEnsemble.MinAgreementRatio,
		MaxConflictRatio:           cfg.OCR.DigitEnsemble.MaxConflictRatio,
		ConfidenceBoost:            cfg.OCR.DigitEnsemble.ConfidenceBoost,
		AmbiguityThreshold:         cfg.OCR.DigitEnsemble.AmbiguityThreshold,
		AllowLowConfidenceOverride: cfg.OCR.DigitEnsemble.AllowLowConfidenceOverride,
		VerboseLogging:             cfg.OCR.DigitEnsemble.VerboseLogging,
		PairSimilarityFloor:        ensemble.DefaultConfig().PairSimilarityFloor,
		PairWindow:                 ensemble.DefaultConfig().PairWindow,
	}

	switch cfg.OCR.Provider {
	case "digit_ensemble":
		switch {
		case googleErr == nil && azureErr == nil:
			return &ocrStack{
				driver: ensemble.NewDriver(google, azure, ensembleCfg, logger),
				reader: google,
			}, nil
		case googleErr == nil:
			logger.Warn("azure unavailable, ensemble degraded to google only", "error", azureErr)
			return &ocrStack{driver: ensemble.NewDriver(google, nil, ensembleCfg, logger), reader: google}, nil
		case azureErr == nil:
			logger.Warn("google unavailable, ensemble degraded to azure only", "error", googleErr)
			return &ocrStack{driver: ensemble.NewDriver(azure, nil, ensembleCfg, logger), reader: azure}, nil
		default:
			return nil, fmt.Errorf("no ensemble provider available: google: %v; azure: %v", googleErr, azureErr)
		}
	case "google":
		if googleErr != nil {
			return nil, googleErr
		}
		return &ocrStack{driver: ensemble.NewDriver(google, nil, ensembleCfg, logger), reader: google}, nil
	case "azure":
		if azureErr != nil {
			return nil, azureErr
		}
		return &ocrStack{driver: ensemble.NewDriver(azure, nil, ensembleCfg, logger), reader: azure}, nil
	case "openai":
		oa := openaivision.New(
			openaivision.WithModel(cfg.OCR.OpenAI.Model),
			openaivision.WithAPIKey(os.Getenv(cfg.OCR.OpenAI.APIKeyEnv)),
			openaivision.WithBaseURL(cfg.OCR.OpenAI.BaseURL),
			openaivision.WithTimeout(timeout),
			openaivision.WithLogger(logger),
		)
		return &ocrStack{driver: ensemble.NewDriver(oa, nil, ensembleCfg, logger), reader: oa}, nil
	default:
		return nil, fmt.Errorf("unknown ocr.provider %q", cfg.OCR.Provider)
	}
}

// buildAutomator selects the UI-driving backend.
func buildAutomator(cfg *core.Config, logger *slog.Logger) automation.Automator {
	if cfg.Automation.Backend == "none" {
		return automation.NewNoop(logger)
	}
	return automation.NewXdotool()
}

// buildCapturer selects the screen-capture backend. Unknown values are
// rejected here and in Config.Validate; a typo must never silently land on
// a different backend.
func buildCapturer(cfg *core.Config) (screenio.Capturer, error) {
	switch cfg.WebForm.Capture {
	case "import":
		return screenio.NewImportCapturer(), nil
	case "scrot":
		return screenio.NewScrotCapturer(), nil
	case "file":
		return screenio.NewFileCapturer(cfg.WebForm.CaptureFile)
	default:
		return nil, fmt.Errorf("unknown web_form.capture %q", cfg.WebForm.Capture)
	}
}

// sinkDefaults maps the configured directive strings onto typed alert
// defaults; empty strings fall through to the safe set.
func sinkDefaults(cfg *core.Config) alert.Defaults {
	return alert.Defaults{
		NotFound: alert.NotFoundDirective(cfg.Alerts.DefaultNotFound),
		Mismatch: alert.MismatchDirective(cfg.Alerts.DefaultMismatch),
		EmptyRow: alert.EmptyRowDirective(cfg.Alerts.DefaultEmptyRow),
		Error:    alert.ErrorDirective(cfg.Alerts.DefaultError),
	}
}

// buildOrchestrator assembles the full pipeline behind the given sink and
// progress ports.
func buildOrchestrator(cfg *core.Config, sup *supervisor.Supervisor, sink alert.Sink, progress core.Progress, logger *slog.Logger) (*core.Orchestrator, error) {
	stack, err := buildOCR(cfg, logger)
	if err != nil {
		return nil, err
	}
	capturer, err := buildCapturer(cfg)
	if err != nil {
		return nil, err
	}

	formReader := webform.NewReader(capturer, stack.reader, webform.Regions{
		FirstName:     cfg.WebForm.Regions.FirstName,
		MiddleName:    cfg.WebForm.Regions.MiddleName,
		FirstSurname:  cfg.WebForm.Regions.FirstSurname,
		SecondSurname: cfg.WebForm.Regions.SecondSurname,
	}, logger)

	validator := validate.New(cfg.Validation.MinSimilarity, logger)
	automator := buildAutomator(cfg, logger)
	processor := process.New(automator, formReader, validator, sup, cfg.ProcessSettings(), logger)
	extractor := rows.NewExtractor(stack.reader, cfg.Rows.Split, logger)

	return core.NewOrchestrator(extractor, stack.driver, processor, sup, sink, progress, cfg, logger), nil
}
