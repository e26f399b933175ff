package automation

import (
	"context"
	"log/slog"
	"time"
)

// Noop logs every action without touching the desktop. Used for dry runs
// and headless environments: timing behavior (typing intervals) is
// preserved so a dry run paces like a real one.
type Noop struct {
	logger *slog.Logger
}

// NewNoop returns a logging dry-run Automator.
func NewNoop(logger *slog.Logger) *Noop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Noop{logger: logger}
}

// Click implements Automator.
func (n *Noop) Click(_ context.Context, x, y int) error {
	n.logger.Info("dry-run click", "x", x, "y", y)
	return nil
}

// PressKey implements Automator.
func (n *Noop) PressKey(_ context.Context, name string) error {
	n.logger.Info("dry-run key", "key", name)
	return nil
}

// TypeText implements Automator.
func (n *Noop) TypeText(ctx context.Context, text string, interval time.Duration) error {
	n.logger.Info("dry-run type", "chars", len(text), "interval", interval)
	for range text {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil
}
