package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/firmas-hq/firmas/core"
)

var (
	// State colors.
	colorRunning   = lipgloss.Color("#A3BE8C")
	colorPaused    = lipgloss.Color("#FFD700")
	colorError     = lipgloss.Color("#FF0000")
	colorCompleted = lipgloss.Color("#88C0D0")

	// UI colors.
	colorTitle    = lipgloss.Color("#FFFFFF")
	colorSubtle   = lipgloss.Color("#666666")
	colorSelected = lipgloss.Color("#7D56F4")

	// Styles.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorTitle)

	subtleStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSelected)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)

	promptStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorSelected).
			Padding(0, 1)

	summaryStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(colorSubtle)
)

// statusStyle colors the state line by orchestrator state.
func statusStyle(status string) lipgloss.Style {
	var color lipgloss.Color
	switch core.State(status) {
	case core.StateRunning:
		color = colorRunning
	case core.StatePausedByUser, core.StatePausedForAlert:
		color = colorPaused
	case core.StatePausedOnError, core.StateCancelled:
		color = colorError
	case core.StateCompleted:
		color = colorCompleted
	default:
		color = colorSubtle
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color)
}
