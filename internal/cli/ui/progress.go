package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message while a slow operation runs. Without color
// (pipes, CI logs) it prints nothing until the outcome.
type Spinner struct {
	writer   io.Writer
	message  string
	interval time.Duration
	noColor  bool

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a spinner for message
func NewSpinner(w io.Writer, message string, noColor bool) *Spinner {
	return &Spinner{writer: w, message: message, interval: 100 * time.Millisecond, noColor: noColor}
}

// Start begins the animation
func (s *Spinner) Start() {
	if s.noColor {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.animate(s.stop, s.stopped)
}

// Stop ends the animation and clears its line
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop, stopped := s.stop, s.stopped
	s.stop, s.stopped = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-stopped
	fmt.Fprint(s.writer, "\r\033[K")
}

func (s *Spinner) animate(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := color.New(color.FgCyan)
	for frame := 0; ; frame = (frame + 1) % len(spinnerFrames) {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cyan.Fprintf(s.writer, "\r%s %s", spinnerFrames[frame], s.message)
		}
	}
}

// WithSpinner runs fn behind a spinner and reports its outcome
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	s := NewSpinner(w, message, noColor)
	s.Start()
	err := fn()
	s.Stop()

	if err != nil {
		red := color.New(color.FgRed, color.Bold)
		if noColor {
			red.DisableColor()
		}
		red.Fprintf(w, "❌ %s failed\n", message)
		return err
	}
	WriteSuccess(w, message, noColor)
	return nil
}
