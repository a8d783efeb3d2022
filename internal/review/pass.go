package review

import (
	"context"

	"github.com/redlinehq/redline/internal/diff"
	"github.com/redlinehq/redline/internal/guideline"
)

// Pass is one evaluation unit: one resolved guideline set against the
// diff under review.
type Pass struct {
	Set  guideline.Set
	Diff *diff.Diff
}

// RunPass invokes the generator once and normalizes its output.
// Findings whose guideline ID is outside the pass's set, or whose line
// is not a changed line of the diff, are dropped: the former is a
// defensive filter against a non-conforming generator, the latter
// cannot be anchored as an inline comment. Generator failure is wrapped
// in a PassError and does not abort sibling passes.
func RunPass(ctx context.Context, p Pass, gen FindingGenerator) ([]Finding, error) {
	candidates, err := gen.GenerateFindings(ctx, p.Diff, p.Set)
	if err != nil {
		return nil, &PassError{Pass: p.Set.Name, Err: err}
	}

	out := make([]Finding, 0, len(candidates))
	for _, f := range candidates {
		if !p.Set.Has(f.GuidelineID) {
			continue
		}
		if !p.Diff.Contains(f.Path, f.Line) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}
