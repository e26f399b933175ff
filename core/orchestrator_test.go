package core

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/firmas-hq/firmas/alert"
	"github.com/firmas-hq/firmas/core/cedula"
	"github.com/firmas-hq/firmas/core/ensemble"
	"github.com/firmas-hq/firmas/core/report"
	"github.com/firmas-hq/firmas/screenio"
	"github.com/firmas-hq/firmas/supervisor"
)

// fakeSource returns canned rows without touching the image. Extraction
// from real pixels is covered by the rows package tests; here only the
// orchestration matters.
type fakeSource struct {
	rows []cedula.RowData
	err  error
}

func (f *fakeSource) ExtractRows(context.Context, []byte, int) ([]cedula.RowData, error) {
	return f.rows, f.err
}

// orderProcessor records processing order and returns scripted outcomes.
type orderProcessor struct {
	outcomes map[int]cedula.RowOutcome
	order    []int
	onRow    func(rowNumber int)
}

func (p *orderProcessor) Process(_ context.Context, _ cedula.RowData, rowNumber int, _ alert.Sink) cedula.RowOutcome {
	p.order = append(p.order, rowNumber)
	if p.onRow != nil {
		p.onRow(rowNumber)
	}
	if o, ok := p.outcomes[rowNumber]; ok {
		return o
	}
	return cedula.OutcomeAutoSaved
}

type fakeProgress struct {
	updates  []string
	statuses []string
	summary  *report.Stats
}

func (f *fakeProgress) Update(_, _ int, message string) { f.updates = append(f.updates, message) }
func (f *fakeProgress) SetStatus(s string)              { f.statuses = append(f.statuses, s) }
func (f *fakeProgress) ShowCompletionSummary(s report.Stats) {
	f.summary = &s
}

func testRows(n int) []cedula.RowData {
	out := make([]cedula.RowData, n)
	for i := range out {
		out[i] = cedula.RowData{Index: i, Names: "ROW", Cedula: "1036221525"}
	}
	return out
}

func newTestOrchestrator(t *testing.T, source RowSource, proc RowProcessor, progress Progress) (*Orchestrator, *supervisor.Supervisor) {
	t.Helper()
	sup, err := supervisor.New("", "", nil)
	if err != nil {
		t.Fatalf("supervisor.New: %v", err)
	}
	cfg := &Config{}
	cfg.applyDefaults()
	sink := alert.NewHeadlessSink(alert.SafeDefaults(), nil)
	return NewOrchestrator(source, nil, proc, sup, sink, progress, cfg, nil), sup
}

func TestRun_ProcessesRowsInOrder(t *testing.T) {
	t.Parallel()

	proc := &orderProcessor{outcomes: map[int]cedula.RowOutcome{
		2: cedula.OutcomeNotFound,
		3: cedula.OutcomeError,
	}}
	progress := &fakeProgress{}
	o, _ := newTestOrchestrator(t, &fakeSource{rows: testRows(4)}, proc, progress)

	stats, records, err := o.Run(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Property 5: strict extraction order.
	for i, row := range proc.order {
		if row != i+1 {
			t.Fatalf("processing order = %v", proc.order)
		}
	}
	if stats.Processed != 4 || stats.AutoSaved != 2 || stats.NotFound != 1 || stats.Errors != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(records) != 4 || records[1].Outcome != cedula.OutcomeNotFound {
		t.Fatalf("records = %+v", records)
	}
	if len(progress.updates) != 4 {
		t.Fatalf("progress updates = %d, want one per row", len(progress.updates))
	}
	if progress.summary == nil || progress.summary.Processed != 4 {
		t.Fatalf("completion summary = %+v", progress.summary)
	}
	if o.State() != StateCompleted {
		t.Fatalf("state = %s", o.State())
	}
}

func TestRun_ExtractionFailure(t *testing.T) {
	t.Parallel()

	progress := &fakeProgress{}
	o, _ := newTestOrchestrator(t, &fakeSource{err: errors.New("blurry image")}, &orderProcessor{}, progress)

	stats, _, err := o.Run(context.Background(), []byte("img"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
	if stats.Processed != 0 {
		t.Fatalf("stats = %+v, want empty", stats)
	}
}

func TestRun_RowsExcludedFromReportByDefault(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, &fakeSource{rows: testRows(1)}, &orderProcessor{}, &fakeProgress{})
	_, records, err := o.Run(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if records[0].Cedula != "" || records[0].Names != "" {
		t.Fatalf("records leak row data by default: %+v", records[0])
	}
}

func TestRun_PauseResumeBetweenRows(t *testing.T) {
	t.Parallel()

	progress := &fakeProgress{}
	var sup *supervisor.Supervisor
	proc := &orderProcessor{}
	proc.onRow = func(rowNumber int) {
		if rowNumber == 1 {
			sup.Pause()
			// Resume shortly after; the orchestrator must wait in between.
			go func() {
				time.Sleep(300 * time.Millisecond)
				sup.Resume()
			}()
		}
	}

	o, s := newTestOrchestrator(t, &fakeSource{rows: testRows(2)}, proc, progress)
	sup = s

	stats, _, err := o.Run(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Processed != 2 {
		t.Fatalf("stats = %+v", stats)
	}

	sawPaused := false
	for _, st := range progress.statuses {
		if st == string(StatePausedByUser) {
			sawPaused = true
		}
	}
	if !sawPaused {
		t.Fatalf("statuses = %v, want a paused transition", progress.statuses)
	}
}

// A pause raised by an alert-sink directive surfaces as the alert-pause
// state, not the user-pause state.
func TestRun_AlertPauseState(t *testing.T) {
	t.Parallel()

	progress := &fakeProgress{}
	var sup *supervisor.Supervisor
	proc := &orderProcessor{}
	proc.onRow = func(rowNumber int) {
		if rowNumber == 1 {
			sup.PauseForAlert()
			go func() {
				time.Sleep(300 * time.Millisecond)
				sup.Resume()
			}()
		}
	}

	o, s := newTestOrchestrator(t, &fakeSource{rows: testRows(2)}, proc, progress)
	sup = s

	if _, _, err := o.Run(context.Background(), []byte("img")); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sawAlertPause := false
	for _, st := range progress.statuses {
		if st == string(StatePausedForAlert) {
			sawAlertPause = true
		}
		if st == string(StatePausedByUser) {
			t.Fatalf("statuses = %v, alert pause reported as user pause", progress.statuses)
		}
	}
	if !sawAlertPause {
		t.Fatalf("statuses = %v, want a paused_for_alert transition", progress.statuses)
	}
}

func TestRun_CancelledWhilePaused(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var sup *supervisor.Supervisor
	proc := &orderProcessor{}
	proc.onRow = func(rowNumber int) {
		if rowNumber == 1 {
			sup.Pause()
			cancel()
		}
	}

	o, s := newTestOrchestrator(t, &fakeSource{rows: testRows(3)}, proc, &fakeProgress{})
	sup = s

	stats, _, err := o.Run(ctx, []byte("img"))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if stats.Processed != 1 {
		t.Fatalf("stats = %+v, want the one processed row", stats)
	}
	if o.State() != StateCancelled {
		t.Fatalf("state = %s", o.State())
	}
}

// fakeExtractor feeds reconciled records into the merge step.
type fakeExtractor struct {
	result *ensemble.Result
	err    error
}

func (f *fakeExtractor) Extract(context.Context, []byte) (*ensemble.Result, error) {
	return f.result, f.err
}

func TestRun_EnsembleFailureKeepsBandReads(t *testing.T) {
	t.Parallel()

	sup, err := supervisor.New("", "", nil)
	if err != nil {
		t.Fatalf("supervisor.New: %v", err)
	}
	cfg := &Config{}
	cfg.applyDefaults()

	image, err := screenio.EncodePNG(imaging.New(100, 40, color.White))
	if err != nil {
		t.Fatalf("encoding test image: %v", err)
	}

	ext := &fakeExtractor{err: errors.New("providers down")}
	var processed []cedula.DigitString
	proc := &captureProcessor{capture: &processed}

	o := NewOrchestrator(&fakeSource{rows: testRows(1)}, ext, proc, sup,
		alert.NewHeadlessSink(alert.SafeDefaults(), nil), &fakeProgress{}, cfg, nil)

	// The image decodes, so the column crop succeeds and the extractor is
	// consulted; its failure leaves the band reads in place.
	if _, _, err := o.Run(context.Background(), image); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(processed) != 1 || processed[0] != "1036221525" {
		t.Fatalf("processed cedulas = %v, want the band read", processed)
	}
}

func TestRun_EnsembleRecordsMerged(t *testing.T) {
	t.Parallel()

	sup, err := supervisor.New("", "", nil)
	if err != nil {
		t.Fatalf("supervisor.New: %v", err)
	}
	cfg := &Config{}
	cfg.applyDefaults()

	image, err := screenio.EncodePNG(imaging.New(100, 40, color.White))
	if err != nil {
		t.Fatalf("encoding test image: %v", err)
	}

	ext := &fakeExtractor{result: &ensemble.Result{Records: []cedula.CedulaRecord{
		{Digits: "53134051", Confidence: 0.99},
		{Digits: "1026266536", Confidence: 0.97},
	}}}
	var processed []cedula.DigitString
	proc := &captureProcessor{capture: &processed}

	o := NewOrchestrator(&fakeSource{rows: testRows(2)}, ext, proc, sup,
		alert.NewHeadlessSink(alert.SafeDefaults(), nil), &fakeProgress{}, cfg, nil)

	if _, _, err := o.Run(context.Background(), image); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(processed) != 2 || processed[0] != "53134051" || processed[1] != "1026266536" {
		t.Fatalf("processed cedulas = %v, want the ensemble records", processed)
	}
}

type captureProcessor struct {
	capture *[]cedula.DigitString
}

func (p *captureProcessor) Process(_ context.Context, row cedula.RowData, _ int, _ alert.Sink) cedula.RowOutcome {
	*p.capture = append(*p.capture, row.Cedula)
	return cedula.OutcomeAutoSaved
}
