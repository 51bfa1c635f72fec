// Package rules loads and serves the declarative tagging rule set.
//
// A rule document maps canonical tag names to match specifications.
// Each specification is either a bare list of regex pattern strings
// (legacy shorthand) or a full object with patterns, exclude patterns,
// and a weight. Documents load per-entry: one malformed entry is
// logged and skipped without failing the rest.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tagmill/tagmill/internal/tag"
)

const (
	// DefaultWeight applies when a rule spec omits the weight field.
	DefaultWeight = 1.0

	// MaxWeight is the inclusive upper bound of the valid weight range.
	MaxWeight = 10.0
)

// Rule is one compiled tagging rule bound to a canonical tag.
type Rule struct {
	Tag      tag.Tag
	Patterns []*regexp.Regexp
	Exclude  []*regexp.Regexp
	Weight   float64
}

// Excluded reports whether any exclude pattern matches the text. An
// excluded rule contributes no score regardless of pattern hits.
func (r *Rule) Excluded(text string) bool {
	for _, ex := range r.Exclude {
		if ex.MatchString(text) {
			return true
		}
	}
	return false
}

// MatchCount sums non-overlapping match counts across all patterns,
// counting repeated matches of a single pattern.
func (r *Rule) MatchCount(text string) int {
	total := 0
	for _, p := range r.Patterns {
		total += len(p.FindAllStringIndex(text, -1))
	}
	return total
}

// Set is an immutable compiled rule set. Stores publish a *Set by
// pointer swap; callers never mutate a Set after construction.
type Set struct {
	rules map[tag.Tag]*Rule
}

// NewSet builds a Set from compiled rules. Later duplicates replace
// earlier ones.
func NewSet(rules []*Rule) *Set {
	m := make(map[tag.Tag]*Rule, len(rules))
	for _, r := range rules {
		m[r.Tag] = r
	}
	return &Set{rules: m}
}

// Len returns the number of active rules.
func (s *Set) Len() int { return len(s.rules) }

// Rules returns all rules in unspecified order.
func (s *Set) Rules() []*Rule {
	out := make([]*Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	return out
}

// Lookup returns the rule bound to t, if any.
func (s *Set) Lookup(t tag.Tag) (*Rule, bool) {
	r, ok := s.rules[t]
	return r, ok
}

// compilePattern compiles a rule pattern case-insensitively. Go's
// regexp is Unicode-aware, so (?i) covers non-ASCII case folding.
func compilePattern(expr string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + expr)
}

// validateWeight checks the inclusive [0, MaxWeight] range.
func validateWeight(w float64) error {
	if w < 0 || w > MaxWeight {
		return fmt.Errorf("weight %.2f outside [0, %.0f]", w, MaxWeight)
	}
	return nil
}

// validateTagName checks the Family/Name shape of a rule key. Rule
// keys follow the strict tag contract.
func validateTagName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty tag name")
	}
	return tag.Validate(tag.Tag(name))
}
