// Package tui provides the interactive run UI built on Bubble Tea: a live
// progress view over the orchestrator plus modal prompts that implement
// the alert-sink port. The orchestrator runs on its own goroutine and
// communicates with the UI exclusively through program messages.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/firmas-hq/firmas/alert"
	"github.com/firmas-hq/firmas/core/cedula"
	"github.com/firmas-hq/firmas/core/report"
)

// ProgressMsg updates the progress bar and row message.
type ProgressMsg struct {
	Current int
	Total   int
	Message string
}

// StatusMsg updates the orchestrator state line.
type StatusMsg struct {
	Status string
}

// SummaryMsg carries the completion statistics.
type SummaryMsg struct {
	Stats report.Stats
}

// Option is one selectable prompt reply.
type Option struct {
	Label string
	Value string
}

// PromptMsg asks the operator for an alert directive. The sink blocks on
// reply until the operator selects an option.
type PromptMsg struct {
	Title   string
	Detail  string
	Options []Option
	reply   chan string
}

// RunDoneMsg signals that the orchestrator returned.
type RunDoneMsg struct {
	Err error
}

// UI adapts a running Bubble Tea program to the progress-handler and
// alert-sink ports. All methods are called from the orchestrator's
// goroutine.
type UI struct {
	program *tea.Program
}

// NewUI wraps the program.
func NewUI(p *tea.Program) *UI {
	return &UI{program: p}
}

// Update implements core.Progress.
func (u *UI) Update(current, total int, message string) {
	u.program.Send(ProgressMsg{Current: current, Total: total, Message: message})
}

// SetStatus implements core.Progress.
func (u *UI) SetStatus(status string) {
	u.program.Send(StatusMsg{Status: status})
}

// ShowCompletionSummary implements core.Progress.
func (u *UI) ShowCompletionSummary(stats report.Stats) {
	u.program.Send(SummaryMsg{Stats: stats})
}

// prompt sends a modal prompt and blocks for the reply.
func (u *UI) prompt(title, detail string, options []Option) string {
	reply := make(chan string, 1)
	u.program.Send(PromptMsg{Title: title, Detail: detail, Options: options, reply: reply})
	return <-reply
}

// OnNotFound implements alert.Sink.
func (u *UI) OnNotFound(cedulaDigits cedula.DigitString, names string, rowNumber int) alert.NotFoundDirective {
	v := u.prompt(
		fmt.Sprintf("row %d: person not found", rowNumber),
		fmt.Sprintf("cedula %s — %s", cedulaDigits, names),
		[]Option{
			{Label: "continue", Value: string(alert.NotFoundContinue)},
			{Label: "mark novelty", Value: string(alert.NotFoundMarkNovelty)},
			{Label: "pause", Value: string(alert.NotFoundPause)},
		})
	return alert.NotFoundDirective(v)
}

// OnValidationMismatch implements alert.Sink.
func (u *UI) OnValidationMismatch(result cedula.ValidationResult, rowNumber int) alert.MismatchDirective {
	v := u.prompt(
		fmt.Sprintf("row %d: names do not match", rowNumber),
		result.Detail,
		[]Option{
			{Label: "save anyway", Value: string(alert.MismatchSave)},
			{Label: "skip", Value: string(alert.MismatchSkip)},
			{Label: "correct manually", Value: string(alert.MismatchCorrect)},
			{Label: "pause", Value: string(alert.MismatchPause)},
		})
	return alert.MismatchDirective(v)
}

// OnEmptyRow implements alert.Sink.
func (u *UI) OnEmptyRow(rowNumber int) alert.EmptyRowDirective {
	v := u.prompt(
		fmt.Sprintf("row %d: empty row", rowNumber),
		"the band has no names and no cedula",
		[]Option{
			{Label: "skip", Value: string(alert.EmptyRowSkip)},
			{Label: "click blank-row button", Value: string(alert.EmptyRowClickBlankButton)},
			{Label: "pause", Value: string(alert.EmptyRowPause)},
		})
	return alert.EmptyRowDirective(v)
}

// OnError implements alert.Sink.
func (u *UI) OnError(message string, rowNumber int) alert.ErrorDirective {
	v := u.prompt(
		fmt.Sprintf("row %d: processing error", rowNumber),
		message,
		[]Option{
			{Label: "retry", Value: string(alert.ErrorRetry)},
			{Label: "skip", Value: string(alert.ErrorSkip)},
			{Label: "pause", Value: string(alert.ErrorPause)},
		})
	return alert.ErrorDirective(v)
}
