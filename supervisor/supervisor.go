// Package supervisor listens for the pause and resume keys during a run.
// The listener is passive: it only flips an atomic flag that the
// orchestrator polls at row boundaries, so a row is never interrupted
// mid-flight. Acquire puts the terminal into raw mode and starts the
// listener goroutine; Release restores the terminal and terminates the
// goroutine even when the orchestrator unwinds through a panic or error.
package supervisor

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

// Default key bindings.
const (
	DefaultPauseKey  = "esc"
	DefaultResumeKey = "f9"
)

// pollInterval paces both the raw reads (via read deadlines) and the
// orchestrator-facing WaitResume loop.
const pollInterval = 200 * time.Millisecond

// keySequences maps configurable key names to the byte sequences a raw
// terminal delivers for them.
var keySequences = map[string][]byte{
	"esc":   {0x1b},
	"f9":    {0x1b, '[', '2', '0', '~'},
	"f10":   {0x1b, '[', '2', '1', '~'},
	"f11":   {0x1b, '[', '2', '3', '~'},
	"f12":   {0x1b, '[', '2', '4', '~'},
	"space": {' '},
}

func sequenceFor(name string) ([]byte, error) {
	if seq, ok := keySequences[name]; ok {
		return seq, nil
	}
	if len(name) == 1 {
		return []byte(name), nil
	}
	return nil, fmt.Errorf("supervisor: unsupported key %q", name)
}

// PauseReason records who requested an active pause, so the orchestrator
// can surface a user pause and an alert pause as distinct states.
type PauseReason int32

// Pause reasons.
const (
	PauseNone PauseReason = iota
	PauseUser
	PauseAlert
)

// Supervisor owns the pause flag. Pause, PauseForAlert, and Resume may
// also be called programmatically (the TUI and alert directives do), with
// or without an active listener.
type Supervisor struct {
	pauseSeq   []byte
	resumeSeq  []byte
	reason     atomic.Int32
	noListener bool
	logger     *slog.Logger
}

// New returns a Supervisor bound to the given key names. Empty names fall
// back to the defaults.
func New(pauseKey, resumeKey string, logger *slog.Logger) (*Supervisor, error) {
	if pauseKey == "" {
		pauseKey = DefaultPauseKey
	}
	if resumeKey == "" {
		resumeKey = DefaultResumeKey
	}
	pauseSeq, err := sequenceFor(pauseKey)
	if err != nil {
		return nil, err
	}
	resumeSeq, err := sequenceFor(resumeKey)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{pauseSeq: pauseSeq, resumeSeq: resumeSeq, logger: logger}, nil
}

// DisableListener makes Acquire return an inert handle without touching
// the terminal. Used when another component (the TUI) owns the keyboard
// and forwards pause/resume programmatically.
func (s *Supervisor) DisableListener() { s.noListener = true }

// Pause sets the pause flag on the operator's behalf.
func (s *Supervisor) Pause() { s.reason.Store(int32(PauseUser)) }

// PauseForAlert sets the pause flag on behalf of an alert-sink directive.
func (s *Supervisor) PauseForAlert() { s.reason.Store(int32(PauseAlert)) }

// Resume clears the pause flag.
func (s *Supervisor) Resume() { s.reason.Store(int32(PauseNone)) }

// Paused reports the flag. The orchestrator checks it between rows only.
func (s *Supervisor) Paused() bool { return s.reason.Load() != int32(PauseNone) }

// Reason reports who requested the active pause, PauseNone when running.
func (s *Supervisor) Reason() PauseReason { return PauseReason(s.reason.Load()) }

// WaitResume blocks until the pause flag clears or done is closed.
func (s *Supervisor) WaitResume(done <-chan struct{}) error {
	for s.Paused() {
		select {
		case <-done:
			return errors.New("supervisor: cancelled while paused")
		case <-time.After(pollInterval):
		}
	}
	return nil
}

// input abstracts the raw byte source so tests can drive the listener
// without a terminal. os.Stdin satisfies it.
type input interface {
	Read(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
}

// Handle is the acquired listener resource.
type Handle struct {
	sup     *Supervisor
	restore func()
	quit    chan struct{}
	done    chan struct{}
}

// Acquire puts stdin into raw mode and starts the key listener. On a
// non-terminal stdin (headless runs, tests) no listener starts and the
// returned handle is inert; programmatic Pause/Resume still work.
func (s *Supervisor) Acquire() (*Handle, error) {
	if s.noListener {
		return &Handle{sup: s}, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		s.logger.Info("stdin is not a terminal, keyboard supervisor inactive")
		return &Handle{sup: s}, nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("supervisor: raw mode: %w", err)
	}

	h := &Handle{
		sup:     s,
		restore: func() { _ = term.Restore(fd, oldState) },
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.listen(os.Stdin, h.quit, h.done)
	return h, nil
}

// Release restores the terminal and stops the listener goroutine. Safe to
// call from a deferred scope exit and on an inert handle.
func (h *Handle) Release() {
	if h == nil || h.sup == nil {
		return
	}
	if h.quit != nil {
		close(h.quit)
		<-h.done
	}
	if h.restore != nil {
		h.restore()
	}
}

// listen reads raw key bytes until quit closes. Read deadlines keep the
// loop responsive to quit without consuming input meant for anyone else.
func (s *Supervisor) listen(in input, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, 16)
	for {
		select {
		case <-quit:
			return
		default:
		}

		_ = in.SetReadDeadline(time.Now().Add(pollInterval))
		n, err := in.Read(buf)
		if n > 0 {
			s.handleKeys(buf[:n])
		}
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			return
		}
	}
}

// handleKeys matches one raw chunk against the bindings. The resume
// sequence is checked first because function keys begin with the escape
// byte that doubles as the default pause key.
func (s *Supervisor) handleKeys(chunk []byte) {
	if bytes.Contains(chunk, s.resumeSeq) {
		s.logger.Info("resume requested")
		s.Resume()
		return
	}
	if s.matchesPause(chunk) {
		s.logger.Info("pause requested")
		s.Pause()
	}
}

// matchesPause handles the lone-escape ambiguity: a bare ESC pauses, an
// ESC that introduces a control sequence does not.
func (s *Supervisor) matchesPause(chunk []byte) bool {
	if len(s.pauseSeq) != 1 || s.pauseSeq[0] != 0x1b {
		return bytes.Contains(chunk, s.pauseSeq)
	}
	for i, b := range chunk {
		if b != 0x1b {
			continue
		}
		if i == len(chunk)-1 || chunk[i+1] != '[' {
			return true
		}
	}
	return false
}
