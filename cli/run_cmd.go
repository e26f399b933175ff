package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/firmas-hq/firmas/alert"
	"github.com/firmas-hq/firmas/cli/tui"
	"github.com/firmas-hq/firmas/core"
	"github.com/firmas-hq/firmas/core/report"
	"github.com/firmas-hq/firmas/supervisor"
)

func runRun(args []string, logger *slog.Logger) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var (
		configFlag string
		outputFlag string
		tuiFlag    bool
	)
	fs.StringVar(&configFlag, "config", "", "path to configuration file (default .firmas.yaml)")
	fs.StringVar(&outputFlag, "output", "", "write a JSON run report to this file")
	fs.BoolVar(&tuiFlag, "tui", false, "interactive terminal UI with alert prompts")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: firmas run [flags] <form-image>")
		return 2
	}

	cfg, err := core.LoadConfig(configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	image, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: reading form image: %v\n", err)
		return 2
	}

	sup, err := supervisor.New(cfg.Keys.Pause, cfg.Keys.Resume, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		stats   report.Stats
		records []report.RowRecord
		runErr  error
	)
	if tuiFlag {
		stats, records, runErr = runWithTUI(ctx, cfg, sup, image, logger)
	} else {
		sink := alert.NewHeadlessSink(sinkDefaults(cfg), logger)
		orch, err := buildOrchestrator(cfg, sup, sink, newConsoleProgress(os.Stdout), logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		stats, records, runErr = orch.Run(ctx, image)
	}

	if outputFlag != "" {
		if err := writeReport(outputFlag, stats, records); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
	}

	switch {
	case errors.Is(runErr, core.ErrCancelled):
		fmt.Fprintln(os.Stderr, "run cancelled")
		return 1
	case runErr != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		return 2
	case stats.Errors > 0 || stats.RequiredValidation > 0:
		return 1
	default:
		return 0
	}
}

// runWithTUI hosts the orchestrator behind the Bubble Tea program. The TUI
// owns the keyboard, so the raw supervisor listener is disabled and the
// pause/resume keys flow through the TUI's key map instead.
func runWithTUI(ctx context.Context, cfg *core.Config, sup *supervisor.Supervisor, image []byte, logger *slog.Logger) (report.Stats, []report.RowRecord, error) {
	sup.DisableListener()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewModel(sup, cancel)
	program := tea.NewProgram(model, tea.WithAltScreen())
	ui := tui.NewUI(program)

	orch, err := buildOrchestrator(cfg, sup, ui, ui, logger)
	if err != nil {
		return report.Stats{}, nil, err
	}

	var (
		stats   report.Stats
		records []report.RowRecord
		runErr  error
	)
	go func() {
		stats, records, runErr = orch.Run(ctx, image)
		program.Send(tui.RunDoneMsg{Err: runErr})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		return stats, records, fmt.Errorf("tui: %w", err)
	}
	// The alternate screen is gone; repeat the summary on the real one.
	newConsoleProgress(os.Stdout).ShowCompletionSummary(stats)
	return stats, records, runErr
}

func writeReport(path string, stats report.Stats, records []report.RowRecord) error {
	data, err := report.Generate(stats, records, version)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
