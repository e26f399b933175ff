// Package main is the entry point for the firmas CLI.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the exit code.
// 0 = clean run, 1 = run finished with errors or warnings, 2 = usage or
// fatal error.
func run(args []string) int {
	fs := flag.NewFlagSet("firmas", flag.ContinueOnError)

	var (
		verboseFlag bool
		quietFlag   bool
		versionFlag bool
	)
	fs.BoolVar(&verboseFlag, "verbose", false, "enable verbose output")
	fs.BoolVar(&verboseFlag, "v", false, "enable verbose output (shorthand)")
	fs.BoolVar(&quietFlag, "quiet", false, "suppress all output except errors")
	fs.BoolVar(&quietFlag, "q", false, "suppress all output except errors (shorthand)")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `firmas — handwritten cédula transcription automation

Usage:
  firmas [flags] <command> [command flags]

Commands:
  run <form-image>   process one captured form image
  watch <dir>        process capture files as they appear
  version            print version information

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if versionFlag {
		printVersion()
		return 0
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger := newLogger(verboseFlag, quietFlag)
	slog.SetDefault(logger)

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "run":
		return runRun(rest, logger)
	case "watch":
		return runWatch(rest, logger)
	case "version":
		printVersion()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}
}

// newLogger builds the process logger. Verbose enables debug records (the
// ensemble's per-position tables); quiet drops everything below error.
func newLogger(verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func printVersion() {
	fmt.Printf("firmas %s (commit %s, built %s)\n", version, commit, date)
}
