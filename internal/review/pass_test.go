package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlinehq/redline/internal/diff"
	"github.com/redlinehq/redline/internal/guideline"
)

func testSet(name string, ids ...string) guideline.Set {
	var gs []guideline.Guideline
	for _, id := range ids {
		gs = append(gs, guideline.Guideline{ID: id, Description: "test guideline for " + id})
	}
	return guideline.NewSet(name, gs)
}

func testDiff() *diff.Diff {
	return &diff.Diff{Files: []diff.FileDiff{
		{Path: "app.py", Ranges: []diff.LineRange{{Start: 40, End: 45}}},
	}}
}

func TestRunPassNormalization(t *testing.T) {
	p := Pass{Set: testSet("sec.yaml", "security/secrets-management"), Diff: testDiff()}
	gen := GeneratorFunc(func(ctx context.Context, d *diff.Diff, set guideline.Set) ([]Finding, error) {
		return []Finding{
			{Path: "app.py", Line: 42, GuidelineID: "security/secrets-management", Message: "hardcoded API key"},
			{Path: "app.py", Line: 42, GuidelineID: "made/up", Message: "not in the set"},
			{Path: "app.py", Line: 900, GuidelineID: "security/secrets-management", Message: "outside the diff"},
			{Path: "missing.py", Line: 42, GuidelineID: "security/secrets-management", Message: "file not in diff"},
		}, nil
	})

	got, err := RunPass(context.Background(), p, gen)
	require.NoError(t, err)
	assert.Equal(t, []Finding{
		{Path: "app.py", Line: 42, GuidelineID: "security/secrets-management", Message: "hardcoded API key"},
	}, got)
}

func TestRunPassWrapsGeneratorFailure(t *testing.T) {
	p := Pass{Set: testSet("sec.yaml", "g/x"), Diff: testDiff()}
	boom := errors.New("model timeout")
	gen := GeneratorFunc(func(ctx context.Context, d *diff.Diff, set guideline.Set) ([]Finding, error) {
		return nil, boom
	})

	_, err := RunPass(context.Background(), p, gen)
	require.Error(t, err)

	var pe *PassError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "sec.yaml", pe.Pass)
	assert.ErrorIs(t, err, boom)
}
