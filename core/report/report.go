// Package report maintains the per-run processing counters and produces the
// progress messages, completion summary, and the optional JSON run report.
// Counters are monotonic: the Reporter exposes increments and derived reads,
// never decrements, and is only mutated from the orchestrator's goroutine.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/firmas-hq/firmas/core/cedula"
)

// Stats holds the run counters and is embedded verbatim in the JSON report.
type Stats struct {
	RunID              string    `json:"run_id"`
	StartedAt          time.Time `json:"started_at"`
	TotalRows          int       `json:"total_rows"`
	Processed          int       `json:"processed"`
	AutoSaved          int       `json:"auto_saved"`
	RequiredValidation int       `json:"required_validation"`
	EmptyRows          int       `json:"empty_rows"`
	NotFound           int       `json:"not_found"`
	Errors             int       `json:"errors"`
	Skipped            int       `json:"skipped"`
}

// SuccessRate is the share of processed rows that were auto-saved.
func (s Stats) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.AutoSaved) / float64(s.Processed)
}

// ProgressPercentage is the share of total rows processed so far.
func (s Stats) ProgressPercentage() float64 {
	if s.TotalRows == 0 {
		return 0
	}
	return 100 * float64(s.Processed) / float64(s.TotalRows)
}

// Pending is the number of rows not yet processed.
func (s Stats) Pending() int {
	p := s.TotalRows - s.Processed
	if p < 0 {
		return 0
	}
	return p
}

// Reporter owns a Stats value for one run.
type Reporter struct {
	stats Stats
}

// NewReporter returns a Reporter stamped with a fresh run ID.
func NewReporter() *Reporter {
	return &Reporter{stats: Stats{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}}
}

// Stats returns a copy of the current counters.
func (r *Reporter) Stats() Stats { return r.stats }

// SetTotal records the number of rows extracted for this run.
func (r *Reporter) SetTotal(n int) { r.stats.TotalRows = n }

// IncrementProcessed advances the processed counter. Called once per row
// regardless of outcome.
func (r *Reporter) IncrementProcessed() { r.stats.Processed++ }

// IncrementAutoSaved advances the auto-saved counter.
func (r *Reporter) IncrementAutoSaved() { r.stats.AutoSaved++ }

// IncrementRequiredValidation advances the human-validation counter.
func (r *Reporter) IncrementRequiredValidation() { r.stats.RequiredValidation++ }

// IncrementEmptyRows advances the empty-row counter.
func (r *Reporter) IncrementEmptyRows() { r.stats.EmptyRows++ }

// IncrementNotFound advances the not-found counter.
func (r *Reporter) IncrementNotFound() { r.stats.NotFound++ }

// IncrementErrors advances the error counter.
func (r *Reporter) IncrementErrors() { r.stats.Errors++ }

// IncrementSkipped advances the skipped counter.
func (r *Reporter) IncrementSkipped() { r.stats.Skipped++ }

// Record maps a terminal row outcome onto its counter and always advances
// the processed counter.
func (r *Reporter) Record(outcome cedula.RowOutcome) {
	switch outcome {
	case cedula.OutcomeAutoSaved:
		r.IncrementAutoSaved()
	case cedula.OutcomeRequiredValidation:
		r.IncrementRequiredValidation()
	case cedula.OutcomeEmptyRow:
		r.IncrementEmptyRows()
	case cedula.OutcomeNotFound:
		r.IncrementNotFound()
	case cedula.OutcomeError:
		r.IncrementErrors()
	case cedula.OutcomeSkipped:
		r.IncrementSkipped()
	}
	r.IncrementProcessed()
}

// ProgressMessage formats the one-line status emitted after each row.
func (r *Reporter) ProgressMessage(rowNumber int) string {
	s := r.stats
	return fmt.Sprintf("row %d/%d — saved %d, review %d, empty %d, not found %d, errors %d (%.0f%%)",
		rowNumber, s.TotalRows, s.AutoSaved, s.RequiredValidation, s.EmptyRows, s.NotFound, s.Errors,
		s.ProgressPercentage())
}

// SummaryTable renders the completion summary as an aligned text table.
func (r *Reporter) SummaryTable() string {
	s := r.stats
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", s.RunID)
	rows := []struct {
		label string
		value string
	}{
		{"total rows", fmt.Sprintf("%d", s.TotalRows)},
		{"processed", fmt.Sprintf("%d", s.Processed)},
		{"auto saved", fmt.Sprintf("%d", s.AutoSaved)},
		{"needs review", fmt.Sprintf("%d", s.RequiredValidation)},
		{"empty rows", fmt.Sprintf("%d", s.EmptyRows)},
		{"not found", fmt.Sprintf("%d", s.NotFound)},
		{"errors", fmt.Sprintf("%d", s.Errors)},
		{"skipped", fmt.Sprintf("%d", s.Skipped)},
		{"pending", fmt.Sprintf("%d", s.Pending())},
		{"success rate", fmt.Sprintf("%.1f%%", 100*s.SuccessRate())},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "  %-13s %s\n", row.label, row.value)
	}
	return b.String()
}

// RowRecord is one row's disposition in the JSON report. Cedula and Names
// are only populated when the run is configured to include them.
type RowRecord struct {
	Row     int               `json:"row"`
	Outcome cedula.RowOutcome `json:"outcome"`
	Cedula  string            `json:"cedula,omitempty"`
	Names   string            `json:"names,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

// Meta identifies the report and the tool that produced it.
type Meta struct {
	SchemaVersion string `json:"schema_version"`
	GeneratedAt   string `json:"generated_at"`
	ToolName      string `json:"tool_name"`
	ToolVersion   string `json:"tool_version"`
}

// JSONReport is the top-level structure written by --output.
type JSONReport struct {
	Meta  Meta        `json:"meta"`
	Stats Stats       `json:"stats"`
	Rows  []RowRecord `json:"rows"`
}

// Generate serializes the report to pretty-printed JSON. Output is stable
// across runs given the same inputs, aside from timestamps and the run ID.
func Generate(stats Stats, rows []RowRecord, toolVersion string) ([]byte, error) {
	if rows == nil {
		rows = []RowRecord{}
	}
	rep := JSONReport{
		Meta: Meta{
			SchemaVersion: "1",
			GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
			ToolName:      "firmas",
			ToolVersion:   toolVersion,
		},
		Stats: stats,
		Rows:  rows,
	}
	return json.MarshalIndent(rep, "", "  ")
}
