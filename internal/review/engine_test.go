package review

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlinehq/redline/internal/diff"
	"github.com/redlinehq/redline/internal/guideline"
)

type fakeSource struct {
	diff        *diff.Diff
	comments    []ExistingComment
	diffErr     error
	commentsErr error
}

func (s *fakeSource) FetchDiff(ctx context.Context, changeRef string) (*diff.Diff, error) {
	return s.diff, s.diffErr
}

func (s *fakeSource) FetchComments(ctx context.Context, changeRef string) ([]ExistingComment, error) {
	return s.comments, s.commentsErr
}

type fakeSink struct {
	mu       sync.Mutex
	posted   []Finding
	failPath string
	failErr  error
}

func (s *fakeSink) PostComment(ctx context.Context, changeRef string, f Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPath != "" && f.Path == s.failPath {
		return s.failErr
	}
	s.posted = append(s.posted, f)
	return nil
}

func (s *fakeSink) sortedPosted() []Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Finding, len(s.posted))
	copy(out, s.posted)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path || (out[i].Path == out[j].Path && out[i].Line < out[j].Line) })
	return out
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func secretsDiff() *diff.Diff {
	return &diff.Diff{Files: []diff.FileDiff{
		{Path: "app.py", Ranges: []diff.LineRange{{Start: 40, End: 45}}},
	}}
}

func secretsSources() []guideline.DocumentSource {
	return []guideline.DocumentSource{{
		Name: "security.yaml",
		Raw:  []byte("includes:\n  - builtin:security\n"),
	}}
}

func secretFinding() Finding {
	return Finding{Path: "app.py", Line: 42, GuidelineID: "security/secrets-management", Message: "hardcoded API key"}
}

func staticGen(findings ...Finding) FindingGenerator {
	return GeneratorFunc(func(ctx context.Context, d *diff.Diff, set guideline.Set) ([]Finding, error) {
		return findings, nil
	})
}

func TestEngineHappyPath(t *testing.T) {
	sink := &fakeSink{}
	eng := NewEngine(&fakeSource{diff: secretsDiff()}, staticGen(secretFinding()), sink, quietLog(), Options{})

	report, err := eng.Run(context.Background(), "42", secretsSources())
	require.NoError(t, err)

	assert.Equal(t, []Finding{secretFinding()}, sink.sortedPosted())
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 0, report.Suppressed)
	assert.Equal(t, 1, report.Posted)
	assert.Equal(t, 0, report.FailedPasses())
	require.Len(t, report.Passes, 1)
	assert.Equal(t, "security.yaml", report.Passes[0].Name)
	assert.NotEmpty(t, report.RunID)
}

func TestEngineSuppressesNearbyExistingComment(t *testing.T) {
	sink := &fakeSink{}
	source := &fakeSource{
		diff:     secretsDiff(),
		comments: []ExistingComment{{Path: "app.py", Line: 45, GuidelineID: "security/secrets-management"}},
	}
	eng := NewEngine(source, staticGen(secretFinding()), sink, quietLog(), Options{})

	report, err := eng.Run(context.Background(), "42", secretsSources())
	require.NoError(t, err)

	assert.Empty(t, sink.sortedPosted())
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Suppressed)
	assert.Equal(t, 0, report.Posted)
}

func TestEngineCollapsesCrossPassDuplicates(t *testing.T) {
	// Two documents flag the same issue near the same line: one comment,
	// at the lower line number.
	sink := &fakeSink{}
	gen := GeneratorFunc(func(ctx context.Context, d *diff.Diff, set guideline.Set) ([]Finding, error) {
		switch set.Name {
		case "a.yaml":
			return []Finding{{Path: "app.py", Line: 44, GuidelineID: "security/secrets-management", Message: "a"}}, nil
		default:
			return []Finding{{Path: "app.py", Line: 42, GuidelineID: "security/secrets-management", Message: "b"}}, nil
		}
	})
	sources := []guideline.DocumentSource{
		{Name: "a.yaml", Raw: []byte("includes:\n  - builtin:security\n")},
		{Name: "b.yaml", Raw: []byte("includes:\n  - builtin:security\n")},
	}
	eng := NewEngine(&fakeSource{diff: secretsDiff()}, gen, sink, quietLog(), Options{})

	report, err := eng.Run(context.Background(), "42", sources)
	require.NoError(t, err)

	posted := sink.sortedPosted()
	require.Len(t, posted, 1)
	assert.Equal(t, 42, posted[0].Line)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 1, report.Suppressed)
	assert.Equal(t, 1, report.Posted)
}

func TestEnginePartialPassFailure(t *testing.T) {
	// One of three passes fails: the run completes with findings from
	// the two successes and the failure in the report.
	sink := &fakeSink{}
	gen := GeneratorFunc(func(ctx context.Context, d *diff.Diff, set guideline.Set) ([]Finding, error) {
		switch set.Name {
		case "b.yaml":
			return nil, errors.New("model timeout")
		case "a.yaml":
			return []Finding{{Path: "app.py", Line: 40, GuidelineID: "security/sql-injection", Message: "a"}}, nil
		default:
			return []Finding{{Path: "app.py", Line: 45, GuidelineID: "readability/function-length", Message: "c"}}, nil
		}
	})
	sources := []guideline.DocumentSource{
		{Name: "a.yaml", Raw: []byte("includes:\n  - builtin:security\n")},
		{Name: "b.yaml", Raw: []byte("includes:\n  - builtin:security\n")},
		{Name: "c.yaml", Raw: []byte("includes:\n  - builtin:readability\n")},
	}
	eng := NewEngine(&fakeSource{diff: secretsDiff()}, gen, sink, quietLog(), Options{})

	report, err := eng.Run(context.Background(), "42", sources)
	require.NoError(t, err)

	assert.Equal(t, 1, report.FailedPasses())
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 2, report.Posted)
	require.Len(t, report.Passes, 3)
	assert.True(t, report.Passes[1].Failed)
	assert.Contains(t, report.Passes[1].Error, "model timeout")
	assert.False(t, report.Passes[0].Failed)
	assert.False(t, report.Passes[2].Failed)
}

func TestEngineConfigErrorIsFatal(t *testing.T) {
	sink := &fakeSink{}
	eng := NewEngine(&fakeSource{diff: secretsDiff()}, staticGen(), sink, quietLog(), Options{})

	bad := []guideline.DocumentSource{{Name: "bad.yaml", Raw: []byte("includes:\n  - builtin:nope\n")}}
	_, err := eng.Run(context.Background(), "42", bad)
	require.Error(t, err)
	assert.True(t, guideline.IsConfigError(err))
	assert.Empty(t, sink.sortedPosted(), "nothing may be posted on a fatal error")
}

func TestEngineFetchFailureIsFatal(t *testing.T) {
	eng := NewEngine(&fakeSource{diffErr: errors.New("connection refused")}, staticGen(), &fakeSink{}, quietLog(), Options{})
	_, err := eng.Run(context.Background(), "42", nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err))

	eng = NewEngine(&fakeSource{diff: secretsDiff(), commentsErr: errors.New("503")}, staticGen(), &fakeSink{}, quietLog(), Options{})
	_, err = eng.Run(context.Background(), "42", nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestEngineEmptyDiffShortCircuits(t *testing.T) {
	called := false
	gen := GeneratorFunc(func(ctx context.Context, d *diff.Diff, set guideline.Set) ([]Finding, error) {
		called = true
		return nil, nil
	})
	eng := NewEngine(&fakeSource{diff: &diff.Diff{}}, gen, &fakeSink{}, quietLog(), Options{})

	report, err := eng.Run(context.Background(), "42", nil)
	require.NoError(t, err)
	assert.False(t, called)
	assert.Empty(t, report.Passes)
	assert.Equal(t, 0, report.Candidates)
}

func TestEngineRecordsEmitFailures(t *testing.T) {
	twoFiles := &diff.Diff{Files: []diff.FileDiff{
		{Path: "a.py", Ranges: []diff.LineRange{{Start: 1, End: 5}}},
		{Path: "b.py", Ranges: []diff.LineRange{{Start: 1, End: 5}}},
	}}
	sink := &fakeSink{failPath: "a.py", failErr: errors.New("position rejected")}
	gen := staticGen(
		Finding{Path: "a.py", Line: 2, GuidelineID: "security/sql-injection", Message: "x"},
		Finding{Path: "b.py", Line: 2, GuidelineID: "security/sql-injection", Message: "y"},
	)
	eng := NewEngine(&fakeSource{diff: twoFiles}, gen, sink, quietLog(), Options{})

	report, err := eng.Run(context.Background(), "42", secretsSources())
	require.NoError(t, err, "a single emit failure is not fatal")

	assert.Equal(t, 1, report.Posted)
	require.Len(t, report.EmitFailures, 1)
	assert.Equal(t, "a.py", report.EmitFailures[0].Finding.Path)
	assert.Contains(t, report.EmitFailures[0].Error, "position rejected")
}

func TestEmitErrorCarriesFindingContext(t *testing.T) {
	cause := errors.New("position rejected")
	ee := &EmitError{
		Finding: Finding{Path: "a.py", Line: 2, GuidelineID: "security/sql-injection", Message: "x"},
		Err:     cause,
	}

	assert.Equal(t, "posting security/sql-injection at a.py:2: position rejected", ee.Error())
	assert.True(t, errors.Is(ee, cause))

	ef := ee.failure()
	assert.Equal(t, ee.Finding, ef.Finding)
	assert.Equal(t, "position rejected", ef.Error)
}

func TestEngineTransportErrorDuringEmitIsFatal(t *testing.T) {
	sink := &fakeSink{failPath: "app.py", failErr: &TransportError{Op: "post", Err: errors.New("401")}}
	eng := NewEngine(&fakeSource{diff: secretsDiff()}, staticGen(secretFinding()), sink, quietLog(), Options{})

	report, err := eng.Run(context.Background(), "42", secretsSources())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Posted)
}

func TestEngineAppliesPathFilters(t *testing.T) {
	twoFiles := &diff.Diff{Files: []diff.FileDiff{
		{Path: "src/a.py", Ranges: []diff.LineRange{{Start: 1, End: 5}}},
		{Path: "vendor/b.py", Ranges: []diff.LineRange{{Start: 1, End: 5}}},
	}}
	var sawPaths []string
	gen := GeneratorFunc(func(ctx context.Context, d *diff.Diff, set guideline.Set) ([]Finding, error) {
		sawPaths = d.Paths()
		return nil, nil
	})
	eng := NewEngine(&fakeSource{diff: twoFiles}, gen, &fakeSink{}, quietLog(), Options{Exclude: []string{"vendor/**"}})

	_, err := eng.Run(context.Background(), "42", secretsSources())
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.py"}, sawPaths)
}
