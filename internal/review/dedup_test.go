package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeduplicateProximityBoundary(t *testing.T) {
	existing := []ExistingComment{{Path: "app.py", Line: 100, GuidelineID: "security/secrets-management"}}

	at110 := []Finding{{Path: "app.py", Line: 110, GuidelineID: "security/secrets-management", Message: "m"}}
	assert.Empty(t, Deduplicate(at110, existing, 10), "delta 10 is inside the window (inclusive)")

	at111 := []Finding{{Path: "app.py", Line: 111, GuidelineID: "security/secrets-management", Message: "m"}}
	assert.Len(t, Deduplicate(at111, existing, 10), 1, "delta 11 is outside the window")
}

func TestDeduplicateRequiresSamePathAndGuideline(t *testing.T) {
	existing := []ExistingComment{{Path: "app.py", Line: 42, GuidelineID: "security/secrets-management"}}

	otherFile := []Finding{{Path: "other.py", Line: 42, GuidelineID: "security/secrets-management"}}
	assert.Len(t, Deduplicate(otherFile, existing, 10), 1)

	otherGuideline := []Finding{{Path: "app.py", Line: 42, GuidelineID: "security/sql-injection"}}
	assert.Len(t, Deduplicate(otherGuideline, existing, 10), 1)
}

func TestDeduplicateManyToOne(t *testing.T) {
	// One prior comment suppresses several nearby candidates.
	existing := []ExistingComment{{Path: "app.py", Line: 50, GuidelineID: "g/x"}}
	candidates := []Finding{
		{Path: "app.py", Line: 45, GuidelineID: "g/x"},
		{Path: "app.py", Line: 50, GuidelineID: "g/x"},
		{Path: "app.py", Line: 58, GuidelineID: "g/x"},
	}
	assert.Empty(t, Deduplicate(candidates, existing, 10))
}

func TestDeduplicateMergesCandidateCluster(t *testing.T) {
	// Two passes flagged the same issue near the same line: the
	// earliest-by-line candidate survives.
	candidates := []Finding{
		{Path: "app.py", Line: 44, GuidelineID: "g/x", Message: "from pass two"},
		{Path: "app.py", Line: 42, GuidelineID: "g/x", Message: "from pass one"},
	}
	got := Deduplicate(candidates, nil, 10)
	assert.Equal(t, []Finding{{Path: "app.py", Line: 42, GuidelineID: "g/x", Message: "from pass one"}}, got)
}

func TestDeduplicateOutputOrderStable(t *testing.T) {
	candidates := []Finding{
		{Path: "b.py", Line: 1, GuidelineID: "g/b"},
		{Path: "a.py", Line: 90, GuidelineID: "g/a"},
		{Path: "a.py", Line: 5, GuidelineID: "g/z"},
		{Path: "a.py", Line: 5, GuidelineID: "g/a"},
	}
	want := []Finding{
		{Path: "a.py", Line: 5, GuidelineID: "g/a"},
		{Path: "a.py", Line: 5, GuidelineID: "g/z"},
		{Path: "a.py", Line: 90, GuidelineID: "g/a"},
		{Path: "b.py", Line: 1, GuidelineID: "g/b"},
	}
	assert.Equal(t, want, Deduplicate(candidates, nil, 10))

	// Reversed input yields identical output.
	reversed := []Finding{candidates[3], candidates[2], candidates[1], candidates[0]}
	assert.Equal(t, want, Deduplicate(reversed, nil, 10))
}

func TestDeduplicateIdempotent(t *testing.T) {
	existing := []ExistingComment{{Path: "a.py", Line: 10, GuidelineID: "g/x"}}
	candidates := []Finding{
		{Path: "a.py", Line: 15, GuidelineID: "g/x"},
		{Path: "a.py", Line: 40, GuidelineID: "g/x"},
		{Path: "a.py", Line: 45, GuidelineID: "g/x"},
		{Path: "a.py", Line: 52, GuidelineID: "g/x"},
	}
	once := Deduplicate(candidates, existing, 10)
	twice := Deduplicate(once, existing, 10)
	assert.Equal(t, once, twice)
}

func TestDeduplicateZeroWindowFallsBackToDefault(t *testing.T) {
	existing := []ExistingComment{{Path: "a.py", Line: 10, GuidelineID: "g/x"}}
	candidates := []Finding{{Path: "a.py", Line: 10 + DefaultProximityWindow, GuidelineID: "g/x"}}
	assert.Empty(t, Deduplicate(candidates, existing, 0))
}
