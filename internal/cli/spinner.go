package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner is a terminal progress indicator on stderr. An inactive spinner
// (disabled, or stderr not a terminal) turns every method into a no-op,
// so callers never have to guard.
type spinner struct {
	message string
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	active  bool
	once    sync.Once
	mu      sync.Mutex
}

// startSpinner begins a spinner that animates until Stop is called or ctx
// is cancelled.
func startSpinner(ctx context.Context, message string, enabled bool) *spinner {
	s := &spinner{message: message}
	if !enabled || !isTerminal(os.Stderr) {
		return s
	}

	s.active = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.spin(ctx)
	return s
}

// spin starts a progress spinner for a command, suppressed when verbose
// logging is on so the animation does not fight the debug output.
func (c *CLI) spin(ctx context.Context, message string) *spinner {
	return startSpinner(ctx, message, c.Logger.GetLevel() > LogDebug)
}

func (s *spinner) spin(ctx context.Context) {
	defer close(s.stopped)
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			s.clearLine()
			return
		case <-s.done:
			return
		case <-ticker.C:
			frame := spinnerFrames[i%len(spinnerFrames)]
			s.mu.Lock()
			fmt.Fprintf(os.Stderr, "\r%s %s", styleSpinner.Render(frame), StyleDim.Render(s.message))
			s.mu.Unlock()
		}
	}
}

// Stop halts the animation and clears the line. Safe to call repeatedly.
func (s *spinner) Stop() {
	if !s.active {
		return
	}
	s.once.Do(func() {
		s.cancel()
		close(s.done)
		<-s.stopped
		s.clearLine()
	})
}

// StopWithSuccess stops the spinner and prints a success line. It prints
// even when the spinner itself never rendered.
func (s *spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

func (s *spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

// isTerminal reports whether f is attached to a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
