package guideline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func src(name, raw string) DocumentSource {
	return DocumentSource{Name: name, Raw: []byte(raw)}
}

func TestResolveZeroSourcesUsesBuiltinDefault(t *testing.T) {
	sets, err := Resolve(nil)
	require.NoError(t, err)
	require.Len(t, sets, 1)

	def, _ := Preset("default")
	assert.Equal(t, "default", sets[0].Name)
	assert.Equal(t, def, sets[0].Guidelines)
}

func TestResolveInlineGuidelines(t *testing.T) {
	sets, err := Resolve([]DocumentSource{src("team.yaml", `
guidelines:
  - label: no-print
    description: No print statements in production code.
  - label: use-logging
    description: Use the structured logger instead of stdout.
`)})
	require.NoError(t, err)
	require.Len(t, sets, 1)

	set := sets[0]
	require.Equal(t, 2, set.Len())
	assert.Equal(t, "team/no-print", set.Guidelines[0].ID)
	assert.Equal(t, "team/use-logging", set.Guidelines[1].ID)
	assert.True(t, set.Has("team/no-print"))
	assert.False(t, set.Has("team/missing"))
}

func TestResolveUniqueIDsAndValidLabels(t *testing.T) {
	sets, err := Resolve([]DocumentSource{src("mixed.yaml", `
includes:
  - builtin:security
  - builtin:readability
guidelines:
  - label: api-versioning
    description: Public API changes must bump the version header.
`)})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, g := range sets[0].Guidelines {
		assert.False(t, seen[g.ID], "duplicate id %s", g.ID)
		seen[g.ID] = true
		assert.Equal(t, g.Prefix+"/"+g.Label, g.ID)
		assert.True(t, ValidLabel(g.Label), "label %q", g.Label)
	}
}

func TestResolveIdempotentIncludes(t *testing.T) {
	once, err := Resolve([]DocumentSource{src("sec.yaml", "includes:\n  - builtin:security\n")})
	require.NoError(t, err)
	twice, err := Resolve([]DocumentSource{src("sec.yaml", "includes:\n  - builtin:security\n  - builtin:security\n")})
	require.NoError(t, err)

	assert.Equal(t, once[0].Guidelines, twice[0].Guidelines)
}

func TestResolveIncludeExtensionStripped(t *testing.T) {
	for _, ref := range []string{"builtin:security", "builtin:security.yaml", "builtin:security.yml"} {
		sets, err := Resolve([]DocumentSource{src("s.yaml", "includes:\n  - "+ref+"\n")})
		require.NoError(t, err, ref)
		sec, _ := Preset("security")
		assert.Equal(t, sec, sets[0].Guidelines, ref)
	}
}

func TestResolveUnknownPreset(t *testing.T) {
	_, err := Resolve([]DocumentSource{src("bad.yaml", "includes:\n  - builtin:nonexistent\n")})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "nonexistent")
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestResolveUnsupportedIncludeScheme(t *testing.T) {
	_, err := Resolve([]DocumentSource{src("bad.yaml", "includes:\n  - file:other.yaml\n")})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestResolveInvalidLabels(t *testing.T) {
	bad := []string{"Bad-Case", "has spaces", "under_score", "-leading", "trailing-", "double--hyphen", ""}
	for _, label := range bad {
		_, err := Resolve([]DocumentSource{src("t.yaml", `
guidelines:
  - label: "` + label + `"
    description: A long enough description for the test.
`)})
		require.Error(t, err, "label %q", label)
		assert.True(t, IsConfigError(err), "label %q", label)
	}
}

func TestResolveInvalidLabelNamesOffender(t *testing.T) {
	_, err := Resolve([]DocumentSource{src("t.yaml", `
guidelines:
  - label: Bad_Label
    description: A long enough description for the test.
`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad_Label")
}

func TestResolveShortDescription(t *testing.T) {
	_, err := Resolve([]DocumentSource{src("t.yaml", `
guidelines:
  - label: short
    description: too short
`)})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestResolveAmbiguousInlineDuplicate(t *testing.T) {
	_, err := Resolve([]DocumentSource{src("t.yaml", `
guidelines:
  - label: no-print
    description: No print statements in production code.
  - label: no-print
    description: A different instruction for the same label.
`)})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "t/no-print")
}

func TestResolveIdenticalInlineDuplicateCollapsed(t *testing.T) {
	sets, err := Resolve([]DocumentSource{src("t.yaml", `
guidelines:
  - label: no-print
    description: No print statements in production code.
  - label: no-print
    description: No print statements in production code.
`)})
	require.NoError(t, err)
	assert.Equal(t, 1, sets[0].Len())
}

func TestResolveInlineRepeatOfIncludedIDKeepsFirst(t *testing.T) {
	// A document named "security" declares an inline label that collides
	// with an included builtin ID. The include came first, so it wins.
	sets, err := Resolve([]DocumentSource{src("security.yaml", `
includes:
  - builtin:security
guidelines:
  - label: sql-injection
    description: A project-local restatement of the builtin rule.
`)})
	require.NoError(t, err)

	sec, _ := Preset("security")
	require.Equal(t, len(sec), sets[0].Len())
	for _, g := range sets[0].Guidelines {
		if g.ID == "security/sql-injection" {
			assert.Equal(t, sec[0].Description, g.Description)
		}
	}
}

func TestResolveEmptyDocument(t *testing.T) {
	_, err := Resolve([]DocumentSource{src("empty.yaml", "")})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestResolveYAMLSyntaxError(t *testing.T) {
	_, err := Resolve([]DocumentSource{src("bad.yaml", "guidelines: [unclosed\n")})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestResolveOrderFollowsInput(t *testing.T) {
	sets, err := Resolve([]DocumentSource{
		src("aaa.yaml", "includes:\n  - builtin:security\n"),
		src("bbb.yaml", "includes:\n  - builtin:readability\n"),
	})
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "aaa.yaml", sets[0].Name)
	assert.Equal(t, "bbb.yaml", sets[1].Name)
}

func TestUnionCollapsesDuplicates(t *testing.T) {
	sets, err := Resolve([]DocumentSource{
		src("a.yaml", "includes:\n  - builtin:security\n"),
		src("b.yaml", "includes:\n  - builtin:security\n  - builtin:readability\n"),
	})
	require.NoError(t, err)

	union := Union(sets)
	sec, _ := Preset("security")
	read, _ := Preset("readability")
	assert.Len(t, union, len(sec)+len(read))
}
