package review

import (
	"context"

	"github.com/redlinehq/redline/internal/diff"
	"github.com/redlinehq/redline/internal/guideline"
)

// ChangeSource fetches the change under review and what has already
// been said about it.
type ChangeSource interface {
	FetchDiff(ctx context.Context, changeRef string) (*diff.Diff, error)
	FetchComments(ctx context.Context, changeRef string) ([]ExistingComment, error)
}

// FindingGenerator produces candidate findings for a diff and one
// guideline set. Implementations own chunking, batching, and retries;
// the engine calls it exactly once per pass.
type FindingGenerator interface {
	GenerateFindings(ctx context.Context, d *diff.Diff, set guideline.Set) ([]Finding, error)
}

// CommentSink posts one finding as a comment on the change.
type CommentSink interface {
	PostComment(ctx context.Context, changeRef string, f Finding) error
}

// GeneratorFunc adapts a function to the FindingGenerator interface.
type GeneratorFunc func(ctx context.Context, d *diff.Diff, set guideline.Set) ([]Finding, error)

func (fn GeneratorFunc) GenerateFindings(ctx context.Context, d *diff.Diff, set guideline.Set) ([]Finding, error) {
	return fn(ctx, d, set)
}
