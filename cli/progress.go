package main

import (
	"fmt"
	"io"

	"github.com/firmas-hq/firmas/core/report"
)

// consoleProgress is the headless progress handler: one line per row plus
// the completion summary.
type consoleProgress struct {
	w io.Writer
}

func newConsoleProgress(w io.Writer) *consoleProgress {
	return &consoleProgress{w: w}
}

// Update implements core.Progress.
func (c *consoleProgress) Update(_, _ int, message string) {
	fmt.Fprintln(c.w, message)
}

// SetStatus implements core.Progress.
func (c *consoleProgress) SetStatus(status string) {
	fmt.Fprintf(c.w, "[%s]\n", status)
}

// ShowCompletionSummary implements core.Progress.
func (c *consoleProgress) ShowCompletionSummary(stats report.Stats) {
	fmt.Fprintf(c.w, "\nprocessed %d/%d rows — %d auto saved, %d need review, %d not found, %d errors\n",
		stats.Processed, stats.TotalRows, stats.AutoSaved, stats.RequiredValidation, stats.NotFound, stats.Errors)
}
