package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ruleSpec mirrors the full entry shape of the local rule document.
type ruleSpec struct {
	Patterns []string `yaml:"patterns"`
	Exclude  []string `yaml:"exclude,omitempty"`
	Weight   float64  `yaml:"weight"`
}

// Document reassembles catalog entries into rule document bytes. The
// result goes through the same parser as the local YAML file, so
// per-entry validation (tag shape, regex compile, weight range) stays
// in one place; this function only restores the list structure the
// remote flattened into newline-joined text.
//
// Entries with a blank tag are dropped here because a map key cannot
// carry them. Duplicate tags collapse to the last occurrence; the
// returned duplicate list lets the caller log them.
func Document(entries []Entry) ([]byte, []string, error) {
	doc := make(map[string]ruleSpec, len(entries))
	var duplicates []string

	for _, e := range entries {
		key := strings.TrimSpace(e.Tag)
		if key == "" {
			continue
		}
		if _, seen := doc[key]; seen {
			duplicates = append(duplicates, key)
		}
		doc[key] = ruleSpec{
			Patterns: splitLines(e.Patterns),
			Exclude:  splitLines(e.Exclude),
			Weight:   e.Weight,
		}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("rendering rule document: %w", err)
	}
	return data, duplicates, nil
}

// splitLines splits a newline-joined text block into trimmed,
// non-empty lines.
func splitLines(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
