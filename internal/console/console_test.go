package console

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlinehq/redline/internal/review"
)

func TestPostCommentRendersFinding(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf)

	f := review.Finding{
		Path:        "svc/handler.go",
		Line:        42,
		GuidelineID: "security/sql-injection",
		Message:     "use a parameterized query",
	}
	require.NoError(t, sink.PostComment(context.Background(), "local", f))

	out := buf.String()
	assert.Contains(t, out, "svc/handler.go:42")
	assert.Contains(t, out, "[security/sql-injection]")
	assert.Contains(t, out, "use a parameterized query")
}

func TestPrintSummaryNoFindings(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf)

	sink.PrintSummary(&review.Report{})
	assert.Contains(t, buf.String(), "No findings.")
}

func TestPrintSummaryCountsAndFailures(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf)

	sink.PrintSummary(&review.Report{
		Posted:     3,
		Suppressed: 2,
		Passes: []review.PassResult{
			{Name: "style.yaml"},
			{Name: "security.yaml", Failed: true, Error: "model unavailable"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "3 finding(s)")
	assert.Contains(t, out, "2 already reported")
	assert.Contains(t, out, "pass security.yaml failed: model unavailable")
}
