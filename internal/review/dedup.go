package review

import "sort"

// DefaultProximityWindow is the line distance within which two findings
// on the same file and guideline are considered the same issue. The
// tolerance absorbs the same issue being re-flagged at a slightly
// different anchor line across incremental diffs.
const DefaultProximityWindow = 10

// matches reports whether a candidate and a prior comment (or kept
// candidate) refer to the same underlying issue.
func matches(f Finding, path string, line int, guidelineID string, window int) bool {
	if f.Path != path || f.GuidelineID != guidelineID {
		return false
	}
	delta := f.Line - line
	if delta < 0 {
		delta = -delta
	}
	return delta <= window
}

// Deduplicate filters candidates down to genuinely new findings. A
// candidate matching any existing comment is suppressed; matching is
// many-to-one, so one prior comment can suppress several nearby
// candidates. Candidates that match each other collapse to the
// earliest-by-line survivor, which prevents two passes from commenting
// twice on one issue.
//
// Output order is sorted by (path, line, guideline ID) independent of
// input order, so identical inputs produce byte-identical output. The
// function is pure and idempotent.
func Deduplicate(candidates []Finding, existing []ExistingComment, window int) []Finding {
	if window <= 0 {
		window = DefaultProximityWindow
	}

	sorted := make([]Finding, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.GuidelineID < b.GuidelineID
	})

	kept := make([]Finding, 0, len(sorted))
	for _, f := range sorted {
		if suppressedBy(f, existing, window) || duplicateOfKept(f, kept, window) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func suppressedBy(f Finding, existing []ExistingComment, window int) bool {
	for _, c := range existing {
		if matches(f, c.Path, c.Line, c.GuidelineID, window) {
			return true
		}
	}
	return false
}

// duplicateOfKept checks f against candidates already kept. Since kept
// is filled in ascending line order, the survivor of a cluster is
// always its earliest-by-line member.
func duplicateOfKept(f Finding, kept []Finding, window int) bool {
	for _, k := range kept {
		if matches(f, k.Path, k.Line, k.GuidelineID, window) {
			return true
		}
	}
	return false
}
