package guideline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DocumentDir is the conventional project directory for guideline
// documents.
const DocumentDir = ".redline"

// LoadDir reads all guideline documents from dir in lexical filename
// order. A missing directory is not an error: it returns no sources,
// and Resolve substitutes the builtin default.
func LoadDir(dir string) ([]DocumentSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading guideline directory: %w", err)
	}

	var sources []DocumentSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading guideline document %s: %w", name, err)
		}
		sources = append(sources, DocumentSource{Name: name, Raw: raw})
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources, nil
}
