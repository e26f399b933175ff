// Package alert defines the sink that receives ambiguous-row notifications
// and replies with a directive. The orchestrator blocks on every call, so a
// sink either prompts a human (the TUI) or answers immediately from
// configured policy (HeadlessSink).
package alert

import (
	"log/slog"

	"github.com/firmas-hq/firmas/core/cedula"
)

// NotFoundDirective is the reply to a person-not-in-database alert.
type NotFoundDirective string

// Not-found replies.
const (
	NotFoundContinue    NotFoundDirective = "continue"
	NotFoundMarkNovelty NotFoundDirective = "mark_novelty"
	NotFoundPause       NotFoundDirective = "pause"
)

// MismatchDirective is the reply to a name-validation mismatch.
type MismatchDirective string

// Mismatch replies.
const (
	MismatchSave    MismatchDirective = "save"
	MismatchSkip    MismatchDirective = "skip"
	MismatchCorrect MismatchDirective = "correct"
	MismatchPause   MismatchDirective = "pause"
)

// EmptyRowDirective is the reply to an empty-row notification.
type EmptyRowDirective string

// Empty-row replies.
const (
	EmptyRowClickBlankButton EmptyRowDirective = "click_blank_button"
	EmptyRowPause            EmptyRowDirective = "pause"
	EmptyRowSkip             EmptyRowDirective = "skip"
)

// ErrorDirective is the reply to a row-processing error.
type ErrorDirective string

// Error replies.
const (
	ErrorRetry ErrorDirective = "retry"
	ErrorSkip  ErrorDirective = "skip"
	ErrorPause ErrorDirective = "pause"
)

// Sink receives row notifications and replies synchronously. One call at a
// time; the orchestrator blocks waiting for each reply.
type Sink interface {
	OnNotFound(cedulaDigits cedula.DigitString, names string, rowNumber int) NotFoundDirective
	OnValidationMismatch(result cedula.ValidationResult, rowNumber int) MismatchDirective
	OnEmptyRow(rowNumber int) EmptyRowDirective
	OnError(message string, rowNumber int) ErrorDirective
}

// Defaults are the directives a headless run answers with.
type Defaults struct {
	NotFound NotFoundDirective
	Mismatch MismatchDirective
	EmptyRow EmptyRowDirective
	Error    ErrorDirective
}

// SafeDefaults skips everything ambiguous, which never blocks a run and
// never writes a record a human did not approve.
func SafeDefaults() Defaults {
	return Defaults{
		NotFound: NotFoundContinue,
		Mismatch: MismatchSkip,
		EmptyRow: EmptyRowSkip,
		Error:    ErrorSkip,
	}
}

// HeadlessSink answers every notification from configured defaults without
// blocking. Each notification is still logged so the run report can be
// audited.
type HeadlessSink struct {
	defaults Defaults
	logger   *slog.Logger
}

// NewHeadlessSink returns a sink answering with the given defaults. Empty
// directive fields fall back to SafeDefaults.
func NewHeadlessSink(d Defaults, logger *slog.Logger) *HeadlessSink {
	safe := SafeDefaults()
	if d.NotFound == "" {
		d.NotFound = safe.NotFound
	}
	if d.Mismatch == "" {
		d.Mismatch = safe.Mismatch
	}
	if d.EmptyRow == "" {
		d.EmptyRow = safe.EmptyRow
	}
	if d.Error == "" {
		d.Error = safe.Error
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HeadlessSink{defaults: d, logger: logger}
}

// OnNotFound implements Sink.
func (h *HeadlessSink) OnNotFound(cedulaDigits cedula.DigitString, names string, rowNumber int) NotFoundDirective {
	h.logger.Warn("person not found", "row", rowNumber, "cedula", cedulaDigits.String(), "names", names, "reply", string(h.defaults.NotFound))
	return h.defaults.NotFound
}

// OnValidationMismatch implements Sink.
func (h *HeadlessSink) OnValidationMismatch(result cedula.ValidationResult, rowNumber int) MismatchDirective {
	h.logger.Warn("validation mismatch", "row", rowNumber, "detail", result.Detail, "reply", string(h.defaults.Mismatch))
	return h.defaults.Mismatch
}

// OnEmptyRow implements Sink.
func (h *HeadlessSink) OnEmptyRow(rowNumber int) EmptyRowDirective {
	h.logger.Info("empty row", "row", rowNumber, "reply", string(h.defaults.EmptyRow))
	return h.defaults.EmptyRow
}

// OnError implements Sink.
func (h *HeadlessSink) OnError(message string, rowNumber int) ErrorDirective {
	h.logger.Error("row processing error", "row", rowNumber, "message", message, "reply", string(h.defaults.Error))
	return h.defaults.Error
}
