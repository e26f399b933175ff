package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/firmas-hq/firmas/core/report"
	"github.com/firmas-hq/firmas/supervisor"
)

// Model is the root Bubble Tea model for a run.
type Model struct {
	sup    *supervisor.Supervisor
	cancel func()

	bar     progress.Model
	current int
	total   int
	message string
	status  string
	summary *report.Stats
	prompt  *PromptMsg
	cursor  int
	done    bool
	runErr  error
	width   int
	height  int
}

// NewModel creates the run model. cancel aborts the orchestrator context
// when the operator quits mid-run.
func NewModel(sup *supervisor.Supervisor, cancel func()) *Model {
	return &Model{
		sup:    sup,
		cancel: cancel,
		bar:    progress.New(progress.WithDefaultGradient()),
		status: "starting",
		width:  80,
		height: 24,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 8
		return m, nil

	case ProgressMsg:
		m.current = msg.Current
		m.total = msg.Total
		m.message = msg.Message
		return m, nil

	case StatusMsg:
		m.status = msg.Status
		return m, nil

	case SummaryMsg:
		stats := msg.Stats
		m.summary = &stats
		return m, nil

	case PromptMsg:
		prompt := msg
		m.prompt = &prompt
		m.cursor = 0
		return m, nil

	case RunDoneMsg:
		m.done = true
		m.runErr = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt != nil {
		return m.handlePromptKey(msg)
	}

	switch {
	case matchesBinding(msg.String(), keys.Quit):
		m.cancel()
		return m, nil

	case matchesBinding(msg.String(), keys.Pause):
		m.sup.Pause()
		return m, nil

	case matchesBinding(msg.String(), keys.Resume):
		m.sup.Resume()
		return m, nil
	}
	return m, nil
}

// handlePromptKey navigates and answers the modal prompt. The pause and
// quit bindings stay live so an operator can stop the run from inside a
// prompt.
func (m *Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case matchesBinding(msg.String(), keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case matchesBinding(msg.String(), keys.Down):
		if m.cursor < len(m.prompt.Options)-1 {
			m.cursor++
		}

	case matchesBinding(msg.String(), keys.Enter):
		m.prompt.reply <- m.prompt.Options[m.cursor].Value
		m.prompt = nil

	case matchesBinding(msg.String(), keys.Quit):
		// Answer with the last option (always the most conservative) and
		// cancel the run.
		m.prompt.reply <- m.prompt.Options[len(m.prompt.Options)-1].Value
		m.prompt = nil
		m.cancel()
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	return renderRun(m)
}
