package tui

import (
	"fmt"
	"strings"
)

// renderRun draws the live run screen: title, state line, progress bar,
// the latest row message, and (when active) the modal alert prompt.
func renderRun(m *Model) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("firmas"))
	b.WriteString("  ")
	b.WriteString(statusStyle(m.status).Render(m.status))
	b.WriteString("\n\n")

	if m.total > 0 {
		b.WriteString(m.bar.ViewAs(float64(m.current) / float64(m.total)))
		b.WriteString(fmt.Sprintf("  %d/%d\n", m.current, m.total))
	}
	if m.message != "" {
		b.WriteString(subtleStyle.Render(m.message))
		b.WriteString("\n")
	}

	if m.prompt != nil {
		b.WriteString("\n")
		b.WriteString(renderPrompt(m))
	}

	if m.summary != nil {
		s := m.summary
		b.WriteString("\n")
		b.WriteString(summaryStyle.Render(fmt.Sprintf(
			"auto saved %d   review %d   empty %d   not found %d   errors %d   success %.1f%%",
			s.AutoSaved, s.RequiredValidation, s.EmptyRows, s.NotFound, s.Errors, 100*s.SuccessRate())))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("esc pause · f9 resume · q cancel"))
	return b.String()
}

// renderPrompt draws the modal alert prompt with its selectable replies.
func renderPrompt(m *Model) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.prompt.Title))
	b.WriteString("\n")
	if m.prompt.Detail != "" {
		b.WriteString(subtleStyle.Render(m.prompt.Detail))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for i, opt := range m.prompt.Options {
		cursor := "  "
		label := opt.Label
		if i == m.cursor {
			cursor = "> "
			label = selectedStyle.Render(label)
		}
		b.WriteString(cursor + label + "\n")
	}
	return promptStyle.Render(strings.TrimRight(b.String(), "\n"))
}
