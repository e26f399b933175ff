// Package process drives one handwritten row through the target
// application: focus the search field, type the cédula, submit, read the
// rendered response, validate the names, and route the row to its terminal
// outcome. Every failure below the protocol boundary is absorbed into an
// error outcome; a row can never abort the run.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firmas-hq/firmas/alert"
	"github.com/firmas-hq/firmas/automation"
	"github.com/firmas-hq/firmas/core/cedula"
)

// ErrBlankButtonUnconfigured is returned when the empty-row policy asks for
// the blank-row button but no coordinates are configured. Silently skipping
// the click is forbidden; the operator must see this.
var ErrBlankButtonUnconfigured = errors.New("process: blank-row button requested but not configured")

// FormReader reads the rendered response after a submit.
type FormReader interface {
	ReadFields(ctx context.Context) (cedula.FormData, error)
}

// Validator classifies a row against the rendered form.
type Validator interface {
	Validate(row cedula.RowData, form cedula.FormData) cedula.ValidationResult
}

// Pauser receives pause requests raised by alert directives. The
// orchestrator observes the flag at the next row boundary and reports the
// pause as alert-driven, distinct from an operator keypress.
type Pauser interface {
	PauseForAlert()
}

// Point is a configured click target.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Settings carries the timing and coordinate configuration. All waits are
// configuration-driven.
type Settings struct {
	TypingInterval  time.Duration
	PageLoadTimeout time.Duration
	PreEnterDelay   time.Duration
	PostEnterDelay  time.Duration
	SearchField     Point
	SaveButton      *Point
	BlankRowButton  *Point
	NoveltyButton   *Point
}

// RowProcessor executes the per-row protocol.
type RowProcessor struct {
	auto      automation.Automator
	form      FormReader
	validator Validator
	pauser    Pauser
	settings  Settings
	logger    *slog.Logger
}

// New returns a row processor. pauser may be nil when no pause control
// exists (headless runs); a pause directive is then only logged, and the
// row keeps the outcome that directive maps to.
func New(auto automation.Automator, form FormReader, validator Validator, pauser Pauser, settings Settings, logger *slog.Logger) *RowProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RowProcessor{
		auto:      auto,
		form:      form,
		validator: validator,
		pauser:    pauser,
		settings:  settings,
		logger:    logger,
	}
}

// Process runs one row to a terminal outcome. rowNumber is 1-based and
// used in every alert-sink call.
func (p *RowProcessor) Process(ctx context.Context, row cedula.RowData, rowNumber int, sink alert.Sink) cedula.RowOutcome {
	if row.Empty {
		return p.handleEmptyRow(ctx, rowNumber, sink)
	}
	if row.Cedula == "" {
		return p.handleError(ctx, row, rowNumber, sink,
			fmt.Errorf("row %d has names but no readable cedula", rowNumber), true)
	}

	outcome, err := p.processFilled(ctx, row, rowNumber, sink)
	if err != nil {
		return p.handleError(ctx, row, rowNumber, sink, err, true)
	}
	return outcome
}

// processFilled is the happy path: steps 2–9 of the protocol, strictly
// sequential.
func (p *RowProcessor) processFilled(ctx context.Context, row cedula.RowData, rowNumber int, sink alert.Sink) (cedula.RowOutcome, error) {
	// Focus and clear the search field.
	if err := p.auto.Click(ctx, p.settings.SearchField.X, p.settings.SearchField.Y); err != nil {
		return "", fmt.Errorf("focusing search field: %w", err)
	}
	if err := p.auto.PressKey(ctx, "ctrl+a"); err != nil {
		return "", fmt.Errorf("selecting field contents: %w", err)
	}
	if err := p.auto.PressKey(ctx, "Delete"); err != nil {
		return "", fmt.Errorf("clearing field: %w", err)
	}

	// Type the cédula and submit.
	if err := p.auto.TypeText(ctx, row.Cedula.String(), p.settings.TypingInterval); err != nil {
		return "", fmt.Errorf("typing cedula: %w", err)
	}
	if err := sleep(ctx, p.settings.PreEnterDelay); err != nil {
		return "", err
	}
	if err := p.auto.PressKey(ctx, "Return"); err != nil {
		return "", fmt.Errorf("submitting: %w", err)
	}
	if err := sleep(ctx, p.settings.PostEnterDelay); err != nil {
		return "", err
	}

	// Let the page render, then read it back.
	if err := sleep(ctx, p.settings.PageLoadTimeout); err != nil {
		return "", err
	}
	form, err := p.form.ReadFields(ctx)
	if err != nil {
		return "", fmt.Errorf("reading rendered form: %w", err)
	}

	result := p.validator.Validate(row, form)
	switch result.Action {
	case cedula.ActionAutoSave:
		if err := p.save(ctx); err != nil {
			return "", fmt.Errorf("saving: %w", err)
		}
		return cedula.OutcomeAutoSaved, nil
	case cedula.ActionRequireValidation:
		return p.handleMismatch(ctx, result, rowNumber, sink)
	case cedula.ActionAlertNotFound:
		return p.handleNotFound(ctx, row, rowNumber, sink)
	default:
		return "", fmt.Errorf("unknown validation action %q", result.Action)
	}
}

// save triggers the configured save action: a button click when
// coordinates are configured, ctrl+s otherwise.
func (p *RowProcessor) save(ctx context.Context) error {
	if b := p.settings.SaveButton; b != nil {
		return p.auto.Click(ctx, b.X, b.Y)
	}
	return p.auto.PressKey(ctx, "ctrl+s")
}

func (p *RowProcessor) handleEmptyRow(ctx context.Context, rowNumber int, sink alert.Sink) cedula.RowOutcome {
	switch sink.OnEmptyRow(rowNumber) {
	case alert.EmptyRowClickBlankButton:
		b := p.settings.BlankRowButton
		if b == nil {
			return p.handleError(ctx, cedula.RowData{}, rowNumber, sink, ErrBlankButtonUnconfigured, false)
		}
		if err := p.auto.Click(ctx, b.X, b.Y); err != nil {
			return p.handleError(ctx, cedula.RowData{}, rowNumber, sink, err, false)
		}
		return cedula.OutcomeEmptyRow
	case alert.EmptyRowPause:
		p.requestPause()
		return cedula.OutcomeEmptyRow
	default:
		return cedula.OutcomeEmptyRow
	}
}

// handleMismatch routes a validation warning through the sink. The reply
// drives the terminal outcome; the row still counts as requiring
// validation unless the operator skipped it outright.
func (p *RowProcessor) handleMismatch(ctx context.Context, result cedula.ValidationResult, rowNumber int, sink alert.Sink) (cedula.RowOutcome, error) {
	switch sink.OnValidationMismatch(result, rowNumber) {
	case alert.MismatchSave:
		if err := p.save(ctx); err != nil {
			return "", fmt.Errorf("saving after operator approval: %w", err)
		}
		return cedula.OutcomeRequiredValidation, nil
	case alert.MismatchSkip:
		return cedula.OutcomeSkipped, nil
	case alert.MismatchCorrect, alert.MismatchPause:
		// The operator takes over; pause so the run stops at the next row
		// boundary while they work.
		p.requestPause()
		return cedula.OutcomeRequiredValidation, nil
	default:
		return cedula.OutcomeRequiredValidation, nil
	}
}

func (p *RowProcessor) handleNotFound(ctx context.Context, row cedula.RowData, rowNumber int, sink alert.Sink) (cedula.RowOutcome, error) {
	switch sink.OnNotFound(row.Cedula, row.Names, rowNumber) {
	case alert.NotFoundMarkNovelty:
		if b := p.settings.NoveltyButton; b != nil {
			if err := p.auto.Click(ctx, b.X, b.Y); err != nil {
				return "", fmt.Errorf("marking novelty: %w", err)
			}
		} else {
			p.logger.Warn("novelty requested but no novelty button configured", "row", rowNumber)
		}
		return cedula.OutcomeNotFound, nil
	case alert.NotFoundPause:
		p.requestPause()
		return cedula.OutcomeNotFound, nil
	default:
		return cedula.OutcomeNotFound, nil
	}
}

// handleError consults the sink and maps its directive. A retry re-runs
// the protocol once; allowRetry guards against retry loops.
func (p *RowProcessor) handleError(ctx context.Context, row cedula.RowData, rowNumber int, sink alert.Sink, cause error, allowRetry bool) cedula.RowOutcome {
	p.logger.Error("row processing failed", "row", rowNumber, "error", cause)
	switch sink.OnError(cause.Error(), rowNumber) {
	case alert.ErrorRetry:
		if allowRetry && row.Cedula != "" {
			outcome, err := p.processFilled(ctx, row, rowNumber, sink)
			if err != nil {
				return p.handleError(ctx, row, rowNumber, sink, err, false)
			}
			return outcome
		}
		return cedula.OutcomeError
	case alert.ErrorPause:
		p.requestPause()
		return cedula.OutcomeError
	default:
		return cedula.OutcomeError
	}
}

func (p *RowProcessor) requestPause() {
	if p.pauser != nil {
		p.pauser.PauseForAlert()
	} else {
		p.logger.Warn("pause requested but no pause control attached")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
