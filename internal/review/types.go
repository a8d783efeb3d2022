package review

// Finding is a candidate issue produced by a review pass. Line is in
// new-file numbering. Findings are ephemeral: they live for one run and
// are only emitted to the comment sink.
type Finding struct {
	Path        string `json:"path"`
	Line        int    `json:"line"`
	GuidelineID string `json:"guidelineId"`
	Message     string `json:"message"`
}

// ExistingComment is a previously posted finding, re-derived each run
// from the host's current comments on the change. Message content is
// irrelevant to deduplication.
type ExistingComment struct {
	Path        string `json:"path"`
	Line        int    `json:"line"`
	GuidelineID string `json:"guidelineId"`
}

// PassResult records the outcome of one review pass for the run report.
type PassResult struct {
	Name       string `json:"name"`
	Guidelines int    `json:"guidelines"`
	Candidates int    `json:"candidates"`
	Failed     bool   `json:"failed"`
	Error      string `json:"error,omitempty"`
}

// EmitFailure records one finding that could not be posted.
type EmitFailure struct {
	Finding Finding `json:"finding"`
	Error   string  `json:"error"`
}

// Timing contains per-phase durations in milliseconds.
type Timing struct {
	FetchMs  int64 `json:"fetchMs"`
	ReviewMs int64 `json:"reviewMs"`
	TotalMs  int64 `json:"totalMs"`
}

// Report is the user-visible summary of a run: which passes ran, which
// failed, how many candidates were found, suppressed, and posted.
type Report struct {
	RunID        string        `json:"runId"`
	ChangeRef    string        `json:"changeRef"`
	Passes       []PassResult  `json:"passes"`
	Candidates   int           `json:"candidates"`
	Suppressed   int           `json:"suppressed"`
	Posted       int           `json:"posted"`
	EmitFailures []EmitFailure `json:"emitFailures,omitempty"`
	Timing       Timing        `json:"timing"`
}

// FailedPasses returns the number of passes that failed.
func (r *Report) FailedPasses() int {
	var n int
	for _, p := range r.Passes {
		if p.Failed {
			n++
		}
	}
	return n
}
