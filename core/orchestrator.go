package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firmas-hq/firmas/alert"
	"github.com/firmas-hq/firmas/core/cedula"
	"github.com/firmas-hq/firmas/core/ensemble"
	"github.com/firmas-hq/firmas/core/report"
	"github.com/firmas-hq/firmas/rows"
	"github.com/firmas-hq/firmas/supervisor"
)

// Orchestrator error sentinels. Everything else is absorbed into counters.
var (
	ErrExtractionFailed = errors.New("core: handwritten-row extraction failed")
	ErrCancelled        = errors.New("core: run cancelled")
)

// State is the orchestrator's lifecycle state.
type State string

// Orchestrator states.
const (
	StateIdle           State = "idle"
	StateRunning        State = "running"
	StatePausedByUser   State = "paused_by_user"
	StatePausedForAlert State = "paused_for_alert"
	StatePausedOnError  State = "paused_on_error"
	StateCompleted      State = "completed"
	StateCancelled      State = "cancelled"
)

// RowSource is the handwritten-row extraction port.
type RowSource interface {
	ExtractRows(ctx context.Context, image []byte, expectedRows int) ([]cedula.RowData, error)
}

// CedulaExtractor is the digit-ensemble port over the cédula column.
type CedulaExtractor interface {
	Extract(ctx context.Context, image []byte) (*ensemble.Result, error)
}

// RowProcessor runs one row to a terminal outcome.
type RowProcessor interface {
	Process(ctx context.Context, row cedula.RowData, rowNumber int, sink alert.Sink) cedula.RowOutcome
}

// Progress is the progress-handler port. No return values; the
// orchestrator never blocks on it.
type Progress interface {
	Update(current, total int, message string)
	SetStatus(status string)
	ShowCompletionSummary(stats report.Stats)
}

// Orchestrator runs the top-level state machine over one captured form
// image. It is single-use per image but safe to call Run repeatedly; each
// run gets a fresh reporter.
type Orchestrator struct {
	source     RowSource
	cedulas    CedulaExtractor
	processor  RowProcessor
	sup        *supervisor.Supervisor
	sink       alert.Sink
	progress   Progress
	split      float64
	expected   int
	includeRow bool
	logger     *slog.Logger

	state State
}

// NewOrchestrator wires the run pipeline. cedulas may be nil to skip the
// ensemble pass and trust the per-band reads.
func NewOrchestrator(source RowSource, cedulas CedulaExtractor, processor RowProcessor, sup *supervisor.Supervisor, sink alert.Sink, progress Progress, cfg *Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		source:     source,
		cedulas:    cedulas,
		processor:  processor,
		sup:        sup,
		sink:       sink,
		progress:   progress,
		split:      cfg.Rows.Split,
		expected:   cfg.Rows.Expected,
		includeRow: cfg.Report.IncludeRows,
		logger:     logger,
		state:      StateIdle,
	}
}

// State returns the current lifecycle state. Only the run goroutine
// mutates it.
func (o *Orchestrator) State() State { return o.state }

// Run processes one captured form image to completion and returns the run
// statistics. Extraction failures return empty statistics with
// ErrExtractionFailed; cancellation returns the partial statistics with
// ErrCancelled. Per-row failures only increment counters.
func (o *Orchestrator) Run(ctx context.Context, image []byte) (report.Stats, []report.RowRecord, error) {
	reporter := report.NewReporter()
	o.state = StateRunning
	o.progress.SetStatus(string(StateRunning))

	rowData, err := o.source.ExtractRows(ctx, image, o.expected)
	if err != nil {
		o.state = StatePausedOnError
		o.progress.SetStatus(string(StatePausedOnError))
		o.logger.Error("row extraction failed", "error", err)
		o.state = StateCancelled
		return reporter.Stats(), nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	rowData = o.reconcileCedulas(ctx, image, rowData)
	reporter.SetTotal(len(rowData))

	handle, err := o.sup.Acquire()
	if err != nil {
		return reporter.Stats(), nil, fmt.Errorf("acquiring keyboard supervisor: %w", err)
	}
	defer handle.Release()

	var records []report.RowRecord
	for i, row := range rowData {
		if err := o.checkPause(ctx); err != nil {
			o.state = StateCancelled
			o.progress.SetStatus(string(StateCancelled))
			return reporter.Stats(), records, err
		}

		outcome := o.processor.Process(ctx, row, i+1, o.sink)
		reporter.Record(outcome)

		rec := report.RowRecord{Row: i + 1, Outcome: outcome}
		if o.includeRow {
			rec.Cedula = row.Cedula.String()
			rec.Names = row.Names
		}
		records = append(records, rec)

		o.progress.Update(i+1, len(rowData), reporter.ProgressMessage(i+1))
	}

	o.state = StateCompleted
	o.progress.SetStatus(string(StateCompleted))
	o.progress.ShowCompletionSummary(reporter.Stats())
	return reporter.Stats(), records, nil
}

// reconcileCedulas runs the digit ensemble over the cédula column and
// merges the reconciled records into the extracted rows. Ensemble failures
// leave the per-band reads in place; the run continues.
func (o *Orchestrator) reconcileCedulas(ctx context.Context, image []byte, rowData []cedula.RowData) []cedula.RowData {
	if o.cedulas == nil {
		return rowData
	}

	column, err := rows.CedulaColumn(image, o.split)
	if err != nil {
		o.logger.Warn("cedula column crop failed, keeping per-band reads", "error", err)
		return rowData
	}
	res, err := o.cedulas.Extract(ctx, column)
	if err != nil {
		o.logger.Warn("ensemble extraction failed, keeping per-band reads", "error", err)
		return rowData
	}
	if res.DegradedTo != "" {
		o.logger.Warn("ensemble ran in single-provider mode", "provider", res.DegradedTo)
	}
	return rows.MergeCedulas(rowData, res.Records, o.logger)
}

// checkPause honors the cooperative pause flag at a row boundary and
// context cancellation at any boundary. The supervisor's pause reason
// selects between the user-pause and alert-pause states.
func (o *Orchestrator) checkPause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	if !o.sup.Paused() {
		return nil
	}

	paused := StatePausedByUser
	if o.sup.Reason() == supervisor.PauseAlert {
		paused = StatePausedForAlert
	}
	o.state = paused
	o.progress.SetStatus(string(paused))
	o.logger.Info("run paused, waiting for resume", "state", string(paused))

	if err := o.sup.WaitResume(ctx.Done()); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	o.state = StateRunning
	o.progress.SetStatus(string(StateRunning))
	o.logger.Info("run resumed")
	return nil
}
