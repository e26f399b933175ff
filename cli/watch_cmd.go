package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/firmas-hq/firmas/alert"
	"github.com/firmas-hq/firmas/core"
	"github.com/firmas-hq/firmas/supervisor"
)

// runWatch processes capture files as they land in a directory. Each new or
// rewritten file matching the configured pattern is debounced (scanners
// write in chunks) and then run through the full pipeline.
func runWatch(args []string, logger *slog.Logger) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	var (
		configFlag string
		debounce   time.Duration
	)
	fs.StringVar(&configFlag, "config", "", "path to configuration file (default .firmas.yaml)")
	fs.DurationVar(&debounce, "debounce", 0, "debounce interval for file changes (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: firmas watch [flags] <captures-dir>")
		return 2
	}
	dir := fs.Arg(0)

	cfg, err := core.LoadConfig(configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if debounce <= 0 {
		debounce = cfg.Watch.Debounce
	}

	sup, err := supervisor.New(cfg.Keys.Pause, cfg.Keys.Resume, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	sink := alert.NewHeadlessSink(sinkDefaults(cfg), logger)
	orch, err := buildOrchestrator(cfg, sup, sink, newConsoleProgress(os.Stdout), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: creating watcher: %v\n", err)
		return 2
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		fmt.Fprintf(os.Stderr, "error: watching %s: %v\n", dir, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("watch: %s (pattern %s, debounce %s)\n", dir, cfg.Watch.Pattern, debounce)

	// Debounce per file: scanners and network shares deliver several write
	// events per capture.
	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	processFile := func(path string) {
		mu.Lock()
		delete(timers, path)
		mu.Unlock()

		image, err := os.ReadFile(path)
		if err != nil {
			logger.Error("reading capture", "path", path, "error", err)
			return
		}
		fmt.Printf("watch: processing %s\n", filepath.Base(path))
		if _, _, err := orch.Run(ctx, image); err != nil {
			logger.Error("run failed", "path", path, "error", err)
		}
	}
	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Stop()
		}
		timers[path] = time.AfterFunc(debounce, func() { processFile(path) })
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			matched, err := filepath.Match(cfg.Watch.Pattern, filepath.Base(event.Name))
			if err != nil || !matched {
				continue
			}
			schedule(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-ctx.Done():
			fmt.Println("\nwatch: stopped")
			return 0
		}
	}
}
