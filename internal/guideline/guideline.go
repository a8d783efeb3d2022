package guideline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// labelRe validates guideline labels: lowercase alphanumeric runs
// separated by single hyphens.
var labelRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// minDescriptionLen guards against placeholder descriptions that give
// the finding generator nothing to work with.
const minDescriptionLen = 10

// Guideline is a single review rule. ID is always Prefix + "/" + Label.
type Guideline struct {
	ID          string `json:"id" yaml:"id"`
	Prefix      string `json:"-" yaml:"-"`
	Label       string `json:"-" yaml:"-"`
	Description string `json:"description" yaml:"description"`
}

// ValidLabel reports whether label satisfies the label pattern.
func ValidLabel(label string) bool {
	return labelRe.MatchString(label)
}

// DocumentSource is one raw guideline document before parsing. Name is
// the logical source name (typically the filename) and determines the
// prefix of inline guideline IDs.
type DocumentSource struct {
	Name string
	Raw  []byte
}

// Prefix derives the ID prefix from a document name by stripping the
// .yaml/.yml extension.
func (s DocumentSource) Prefix() string {
	return trimYAMLExt(s.Name)
}

func trimYAMLExt(name string) string {
	name = strings.TrimSuffix(name, ".yaml")
	name = strings.TrimSuffix(name, ".yml")
	return name
}

// Set is a resolved guideline set: ordered, with globally unique IDs.
// Name echoes the source document name and identifies the review pass.
type Set struct {
	Name       string
	Guidelines []Guideline

	ids map[string]bool
}

// NewSet builds a Set from already-deduplicated guidelines.
func NewSet(name string, guidelines []Guideline) Set {
	ids := make(map[string]bool, len(guidelines))
	for _, g := range guidelines {
		ids[g.ID] = true
	}
	return Set{Name: name, Guidelines: guidelines, ids: ids}
}

// Has reports whether the set contains a guideline with the given ID.
func (s Set) Has(id string) bool {
	return s.ids[id]
}

// Len returns the number of guidelines in the set.
func (s Set) Len() int {
	return len(s.Guidelines)
}

// Union merges sets into a single guideline list, collapsing duplicate
// IDs and keeping first occurrence. Used for display, not for review
// passes.
func Union(sets []Set) []Guideline {
	var out []Guideline
	seen := make(map[string]bool)
	for _, s := range sets {
		for _, g := range s.Guidelines {
			if seen[g.ID] {
				continue
			}
			seen[g.ID] = true
			out = append(out, g)
		}
	}
	return out
}

// ConfigError reports an invalid guideline document. It is fatal to the
// run: there is no valid rule set to review against.
type ConfigError struct {
	Doc    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid guideline document %s: %s", e.Doc, e.Reason)
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
