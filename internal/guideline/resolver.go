package guideline

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const includeScheme = "builtin:"

// document is the parsed YAML shape of a guideline document.
type document struct {
	Includes   []string          `yaml:"includes"`
	Guidelines []inlineGuideline `yaml:"guidelines"`
}

type inlineGuideline struct {
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
}

// Resolve expands, validates, and de-duplicates guideline documents,
// yielding one Set per source in input order. Zero sources resolves as
// a single synthetic document that includes builtin:default.
//
// Resolution per document: expand includes in declared order, append
// inline guidelines with IDs computed from the document prefix, validate
// labels, then de-duplicate by ID keeping first occurrence. Two inline
// declarations colliding on an ID with differing descriptions are a
// ConfigError; include-caused repeats are collapsed silently.
func Resolve(sources []DocumentSource) ([]Set, error) {
	if len(sources) == 0 {
		sources = []DocumentSource{{
			Name: "default",
			Raw:  []byte("includes:\n  - builtin:default\n"),
		}}
	}

	sets := make([]Set, 0, len(sources))
	for _, src := range sources {
		set, err := resolveOne(src)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func resolveOne(src DocumentSource) (Set, error) {
	var doc document
	if err := yaml.Unmarshal(src.Raw, &doc); err != nil {
		return Set{}, &ConfigError{Doc: src.Name, Reason: fmt.Sprintf("YAML syntax error: %v", err)}
	}
	if len(doc.Includes) == 0 && len(doc.Guidelines) == 0 {
		return Set{}, &ConfigError{Doc: src.Name, Reason: "contains no guidelines and no includes"}
	}

	// origin tracks how each ID entered the set so that inline/inline
	// collisions can be distinguished from include repeats.
	type origin struct {
		inline      bool
		description string
	}
	seen := make(map[string]origin)
	var resolved []Guideline

	for _, ref := range doc.Includes {
		list, err := expandInclude(src.Name, ref)
		if err != nil {
			return Set{}, err
		}
		for _, g := range list {
			if _, dup := seen[g.ID]; dup {
				continue
			}
			seen[g.ID] = origin{description: g.Description}
			resolved = append(resolved, g)
		}
	}

	prefix := src.Prefix()
	for _, in := range doc.Guidelines {
		if !ValidLabel(in.Label) {
			return Set{}, &ConfigError{
				Doc:    src.Name,
				Reason: fmt.Sprintf("invalid label %q: must match [a-z0-9]+(-[a-z0-9]+)*", in.Label),
			}
		}
		desc := strings.TrimSpace(in.Description)
		if len(desc) < minDescriptionLen {
			return Set{}, &ConfigError{
				Doc:    src.Name,
				Reason: fmt.Sprintf("guideline %q: description must be at least %d characters", in.Label, minDescriptionLen),
			}
		}
		g := Guideline{
			ID:          prefix + "/" + in.Label,
			Prefix:      prefix,
			Label:       in.Label,
			Description: desc,
		}
		if prev, dup := seen[g.ID]; dup {
			if prev.inline && prev.description != g.Description {
				return Set{}, &ConfigError{
					Doc:    src.Name,
					Reason: fmt.Sprintf("duplicate guideline ID %q with differing descriptions", g.ID),
				}
			}
			continue
		}
		seen[g.ID] = origin{inline: true, description: g.Description}
		resolved = append(resolved, g)
	}

	return NewSet(src.Name, resolved), nil
}

// expandInclude resolves one "builtin:<name>" reference against the
// preset table. Trailing .yaml/.yml on the preset name is accepted.
func expandInclude(docName, ref string) ([]Guideline, error) {
	if !strings.HasPrefix(ref, includeScheme) {
		return nil, &ConfigError{
			Doc:    docName,
			Reason: fmt.Sprintf("unsupported include %q: only builtin: references are allowed", ref),
		}
	}
	name := trimYAMLExt(strings.TrimPrefix(ref, includeScheme))
	list, ok := Preset(name)
	if !ok {
		return nil, &ConfigError{
			Doc:    docName,
			Reason: fmt.Sprintf("unknown builtin preset %q (available: %s)", name, strings.Join(PresetNames(), ", ")),
		}
	}
	return list, nil
}
