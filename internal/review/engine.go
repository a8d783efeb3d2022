package review

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redlinehq/redline/internal/diff"
	"github.com/redlinehq/redline/internal/guideline"
)

// Options tunes engine behavior. Zero values select defaults.
type Options struct {
	ProximityWindow int
	PassConcurrency int
	EmitWorkers     int
	Include         []string
	Exclude         []string
}

const (
	defaultPassConcurrency = 4
	defaultEmitWorkers     = 4
)

// Engine runs one review invocation end to end. It owns no state
// across runs: every run is a pure function of the guideline documents,
// the diff, and the comments already on the change.
type Engine struct {
	source ChangeSource
	gen    FindingGenerator
	sink   CommentSink
	opts   Options
	log    *slog.Logger
}

// NewEngine wires an engine from its collaborators.
func NewEngine(source ChangeSource, gen FindingGenerator, sink CommentSink, log *slog.Logger, opts Options) *Engine {
	if opts.ProximityWindow <= 0 {
		opts.ProximityWindow = DefaultProximityWindow
	}
	if opts.PassConcurrency <= 0 {
		opts.PassConcurrency = defaultPassConcurrency
	}
	if opts.EmitWorkers <= 0 {
		opts.EmitWorkers = defaultEmitWorkers
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{source: source, gen: gen, sink: sink, opts: opts, log: log}
}

// Run reviews one change. Configuration errors and fetch failures are
// fatal and abort before any posting occurs. Pass failures and
// per-finding emit failures degrade gracefully and are aggregated into
// the report.
func (e *Engine) Run(ctx context.Context, changeRef string, sources []guideline.DocumentSource) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		ChangeRef: changeRef,
	}

	// Init: fetch the diff and the current comment state.
	d, err := e.source.FetchDiff(ctx, changeRef)
	if err != nil {
		return nil, &TransportError{Op: "fetching diff for " + changeRef, Err: err}
	}
	existing, err := e.source.FetchComments(ctx, changeRef)
	if err != nil {
		return nil, &TransportError{Op: "fetching comments for " + changeRef, Err: err}
	}
	report.Timing.FetchMs = time.Since(start).Milliseconds()

	if len(e.opts.Include) > 0 || len(e.opts.Exclude) > 0 {
		d, err = d.Filter(e.opts.Include, e.opts.Exclude)
		if err != nil {
			return nil, err
		}
	}
	if d.IsEmpty() {
		e.log.Info("nothing to review", "change", changeRef)
		report.Timing.TotalMs = time.Since(start).Milliseconds()
		return report, nil
	}

	// Resolve: a configuration error means there is no valid rule set
	// to review against.
	sets, err := guideline.Resolve(sources)
	if err != nil {
		return nil, err
	}
	e.log.Info("resolved guideline documents", "passes", len(sets), "files", len(d.Files))

	// Run passes, bounded, then aggregate.
	reviewStart := time.Now()
	results := e.runPasses(ctx, d, sets)
	report.Timing.ReviewMs = time.Since(reviewStart).Milliseconds()

	var candidates []Finding
	for i, set := range sets {
		pr := PassResult{Name: set.Name, Guidelines: set.Len()}
		if results[i].err != nil {
			pr.Failed = true
			pr.Error = results[i].err.Error()
			e.log.Warn("pass failed", "pass", set.Name, "error", results[i].err)
		} else {
			pr.Candidates = len(results[i].findings)
			candidates = append(candidates, results[i].findings...)
		}
		report.Passes = append(report.Passes, pr)
	}
	report.Candidates = len(candidates)

	// Deduplicate against prior comments and within the candidate set.
	fresh := Deduplicate(candidates, existing, e.opts.ProximityWindow)
	report.Suppressed = len(candidates) - len(fresh)
	e.log.Info("deduplicated findings",
		"candidates", len(candidates), "suppressed", report.Suppressed, "existing", len(existing))

	if err := e.emit(ctx, changeRef, fresh, report); err != nil {
		report.Timing.TotalMs = time.Since(start).Milliseconds()
		return report, err
	}

	report.Timing.TotalMs = time.Since(start).Milliseconds()
	return report, nil
}

type passOutcome struct {
	findings []Finding
	err      error
}

// runPasses executes every pass with bounded concurrency. All passes
// complete, successfully or not, before aggregation proceeds.
func (e *Engine) runPasses(ctx context.Context, d *diff.Diff, sets []guideline.Set) []passOutcome {
	results := make([]passOutcome, len(sets))
	sem := make(chan struct{}, e.opts.PassConcurrency)
	var wg sync.WaitGroup

	for i, set := range sets {
		wg.Add(1)
		go func(i int, set guideline.Set) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			findings, err := RunPass(ctx, Pass{Set: set, Diff: d}, e.gen)
			results[i] = passOutcome{findings: findings, err: err}
		}(i, set)
	}
	wg.Wait()
	return results
}

// emit posts findings with a bounded worker pool. A failure posting one
// finding is recorded and does not block the rest, unless the sink
// reports a transport error, which aborts the remaining posts.
func (e *Engine) emit(ctx context.Context, changeRef string, findings []Finding, report *Report) error {
	if len(findings) == 0 {
		return nil
	}

	var (
		mu    sync.Mutex
		fatal error
		wg    sync.WaitGroup
		sem   = make(chan struct{}, e.opts.EmitWorkers)
	)

	for _, f := range findings {
		wg.Add(1)
		go func(f Finding) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			aborted := fatal != nil
			mu.Unlock()
			if aborted {
				return
			}

			err := e.sink.PostComment(ctx, changeRef, f)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Posted++
			case IsTransport(err):
				if fatal == nil {
					fatal = &TransportError{Op: "posting comments for " + changeRef, Err: err}
				}
			default:
				ee := &EmitError{Finding: f, Err: err}
				report.EmitFailures = append(report.EmitFailures, ee.failure())
				e.log.Warn("failed to post finding", "error", ee)
			}
		}(f)
	}
	wg.Wait()
	return fatal
}
