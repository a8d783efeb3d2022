package diff

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/bmatcuk/doublestar/v4"
)

// LineRange is a contiguous run of changed lines, inclusive on both
// ends, in new-file numbering.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether line falls inside the range.
func (r LineRange) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// FileDiff is one changed file with its changed-line ranges.
type FileDiff struct {
	Path    string      `json:"path"`
	OldPath string      `json:"oldPath,omitempty"`
	Ranges  []LineRange `json:"ranges"`

	// Patch holds the file's hunks as unified diff text. Annotated holds
	// the same hunks with new-file line numbers prefixed, which is what
	// the finding generator sends to the model.
	Patch     string `json:"-"`
	Annotated string `json:"-"`
}

// Diff is an ordered list of changed files.
type Diff struct {
	Files []FileDiff
}

// Parse reads a unified diff and extracts changed files and ranges.
// Deleted and binary files are skipped: findings cannot anchor to them.
func Parse(raw string) (*Diff, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	d := &Diff{}
	for _, f := range parsed {
		if f.IsDelete || f.IsBinary {
			continue
		}
		fd := FileDiff{Path: f.NewName}
		if f.OldName != "" && f.OldName != f.NewName {
			fd.OldPath = f.OldName
		}

		var patch, annotated strings.Builder
		for _, frag := range f.TextFragments {
			header := hunkHeader(frag)
			patch.WriteString(header)
			annotated.WriteString(header)

			newLine := int(frag.NewPosition)
			open := LineRange{}
			for _, line := range frag.Lines {
				text := strings.TrimRight(line.Line, "\n")
				switch line.Op {
				case gitdiff.OpAdd:
					if open.Start == 0 {
						open = LineRange{Start: newLine, End: newLine}
					} else {
						open.End = newLine
					}
					patch.WriteString("+" + text + "\n")
					fmt.Fprintf(&annotated, "%6d + %s\n", newLine, text)
					newLine++
				case gitdiff.OpContext:
					if open.Start != 0 {
						fd.Ranges = append(fd.Ranges, open)
						open = LineRange{}
					}
					patch.WriteString(" " + text + "\n")
					fmt.Fprintf(&annotated, "%6d   %s\n", newLine, text)
					newLine++
				case gitdiff.OpDelete:
					if open.Start != 0 {
						fd.Ranges = append(fd.Ranges, open)
						open = LineRange{}
					}
					patch.WriteString("-" + text + "\n")
					fmt.Fprintf(&annotated, "       - %s\n", text)
				}
			}
			if open.Start != 0 {
				fd.Ranges = append(fd.Ranges, open)
			}
		}
		fd.Patch = patch.String()
		fd.Annotated = annotated.String()
		d.Files = append(d.Files, fd)
	}
	return d, nil
}

func hunkHeader(frag *gitdiff.TextFragment) string {
	old := fmt.Sprintf("-%d", frag.OldPosition)
	if frag.OldLines != 1 {
		old += fmt.Sprintf(",%d", frag.OldLines)
	}
	new := fmt.Sprintf("+%d", frag.NewPosition)
	if frag.NewLines != 1 {
		new += fmt.Sprintf(",%d", frag.NewLines)
	}
	return fmt.Sprintf("@@ %s %s @@\n", old, new)
}

// IsEmpty reports whether the diff contains no reviewable files.
func (d *Diff) IsEmpty() bool {
	return d == nil || len(d.Files) == 0
}

// Paths returns the changed file paths in diff order.
func (d *Diff) Paths() []string {
	paths := make([]string, len(d.Files))
	for i, f := range d.Files {
		paths[i] = f.Path
	}
	return paths
}

// Contains reports whether line is a changed line of path. Findings
// outside a changed range cannot be anchored as inline comments.
func (d *Diff) Contains(path string, line int) bool {
	for _, f := range d.Files {
		if f.Path != path {
			continue
		}
		for _, r := range f.Ranges {
			if r.Contains(line) {
				return true
			}
		}
	}
	return false
}

// Filter returns a copy of the diff containing only files that match an
// include glob and no exclude glob. Empty include means include all.
// Invalid patterns are reported rather than silently matching nothing.
func (d *Diff) Filter(include, exclude []string) (*Diff, error) {
	out := &Diff{}
	for _, f := range d.Files {
		ok, err := matchAny(include, f.Path, true)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		excluded, err := matchAny(exclude, f.Path, false)
		if err != nil {
			return nil, err
		}
		if excluded {
			continue
		}
		out.Files = append(out.Files, f)
	}
	return out, nil
}

func matchAny(patterns []string, path string, emptyMatches bool) (bool, error) {
	if len(patterns) == 0 {
		return emptyMatches, nil
	}
	for _, p := range patterns {
		ok, err := doublestar.Match(p, path)
		if err != nil {
			return false, fmt.Errorf("invalid path pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
