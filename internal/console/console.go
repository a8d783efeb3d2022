// Package console renders findings to the terminal. It stands in for
// the GitLab comment sink during local reviews and dry runs.
package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/redlinehq/redline/internal/review"
)

var (
	colorRed    = lipgloss.Color("#ff5555")
	colorYellow = lipgloss.Color("#f1fa8c")
	colorBlue   = lipgloss.Color("#8be9fd")
	colorDim    = lipgloss.Color("#6272a4")

	locationStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	guidelineStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	messageStyle = lipgloss.NewStyle()

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)
)

// Sink writes findings to w as styled lines. Safe for concurrent use;
// the engine posts from multiple workers.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSink creates a console sink writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// PostComment renders one finding. It never fails; a terminal is not a
// transport.
func (s *Sink) PostComment(_ context.Context, _ string, f review.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.w, "%s %s\n  %s\n\n",
		locationStyle.Render(fmt.Sprintf("%s:%d", f.Path, f.Line)),
		guidelineStyle.Render("["+f.GuidelineID+"]"),
		messageStyle.Render(f.Message),
	)
	return nil
}

// PrintSummary writes a one-line wrap-up after a run.
func (s *Sink) PrintSummary(r *review.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Posted == 0 && r.Suppressed == 0 {
		fmt.Fprintln(s.w, dimStyle.Render("No findings."))
		return
	}
	line := fmt.Sprintf("%d finding(s)", r.Posted)
	if r.Suppressed > 0 {
		line += dimStyle.Render(fmt.Sprintf(" (%d already reported)", r.Suppressed))
	}
	fmt.Fprintln(s.w, line)

	for _, p := range r.Passes {
		if p.Failed {
			fmt.Fprintln(s.w, errorStyle.Render(fmt.Sprintf("pass %s failed: %s", p.Name, p.Error)))
		}
	}
}
