// Package localgit implements a change source over the local working
// tree, so uncommitted work can be reviewed before a merge request
// exists.
package localgit

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/redlinehq/redline/internal/diff"
	"github.com/redlinehq/redline/internal/review"
)

// Source reads changes from a local git repository. The change ref is
// ignored; the diff is always working tree vs HEAD, staged and unstaged
// alike.
type Source struct {
	dir string
}

// NewSource creates a Source rooted at dir. An empty dir means the
// current working directory.
func NewSource(dir string) (*Source, error) {
	s := &Source{dir: dir}
	if _, err := s.git(context.Background(), "rev-parse", "--show-toplevel"); err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	return s, nil
}

// FetchDiff returns the diff of the working tree against HEAD.
func (s *Source) FetchDiff(ctx context.Context, _ string) (*diff.Diff, error) {
	out, err := s.git(ctx, "diff", "HEAD")
	if err != nil {
		// A repo with no commits has no HEAD; treat everything as new.
		if strings.Contains(err.Error(), "unknown revision") ||
			strings.Contains(err.Error(), "bad revision") {
			return &diff.Diff{}, nil
		}
		return nil, fmt.Errorf("git diff HEAD: %w", err)
	}
	return diff.Parse(out)
}

// FetchComments returns nothing. A local review has no comment history
// to deduplicate against.
func (s *Source) FetchComments(ctx context.Context, _ string) ([]review.ExistingComment, error) {
	return nil, nil
}

// Branch returns the current branch name, used to label local reports.
func (s *Source) Branch(ctx context.Context) string {
	out, err := s.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func (s *Source) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if s.dir != "" {
		cmd.Dir = s.dir
	}
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), fmt.Errorf("%s: %s", err, string(exitErr.Stderr))
		}
		return "", err
	}
	return string(out), nil
}
