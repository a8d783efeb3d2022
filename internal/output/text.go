package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/redlinehq/redline/internal/review"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8be9fd")).
			Bold(true)

	passOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50fa7b"))

	passFailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5555")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272a4"))
)

// TextWriter outputs a human-readable run summary.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}

	ew.printf("%s\n", headerStyle.Render("Redline Review — "+report.ChangeRef))
	ew.printf("%s\n", mutedStyle.Render("run "+report.RunID))
	ew.println(strings.Repeat("─", 60))

	for _, p := range report.Passes {
		if p.Failed {
			ew.printf("  %s %s — %s\n",
				passFailStyle.Render("✗"), p.Name, p.Error)
			continue
		}
		ew.printf("  %s %s — %d guideline(s), %d candidate(s)\n",
			passOKStyle.Render("✓"), p.Name, p.Guidelines, p.Candidates)
	}

	ew.println(strings.Repeat("─", 60))
	ew.printf("Candidates: %d   Suppressed: %d   Posted: %d\n",
		report.Candidates, report.Suppressed, report.Posted)

	if len(report.EmitFailures) > 0 {
		ew.printf("\n%s\n", passFailStyle.Render(fmt.Sprintf("%d comment(s) could not be posted:", len(report.EmitFailures))))
		for _, ef := range report.EmitFailures {
			ew.printf("  %s:%d [%s] — %s\n",
				ef.Finding.Path, ef.Finding.Line, ef.Finding.GuidelineID, ef.Error)
		}
	}

	ew.printf("\nCompleted in %dms (fetch: %dms, review: %dms)\n",
		report.Timing.TotalMs, report.Timing.FetchMs, report.Timing.ReviewMs)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
