// Package tag defines the canonical Family/Name tag model shared by
// every stage of the tagging pipeline: parsing, validation, family
// priority ordering, and normalized comparison.
package tag

import (
	"fmt"
	"sort"
	"strings"
)

// Separator splits the family from the name inside a canonical tag.
const Separator = "/"

// Family is a top-level tag category. The set is closed; it governs
// sort priority and inheritance behavior.
type Family string

const (
	FamilyPeople   Family = "People"
	FamilyBusiness Family = "Business"
	FamilyProjects Family = "Projects"
	FamilyFinance  Family = "Finance"
	FamilyTopic    Family = "Topic"
)

// familyPriority orders families for TagSet sorting. Unknown families
// sort after Topic.
var familyPriority = map[Family]int{
	FamilyPeople:   0,
	FamilyBusiness: 1,
	FamilyProjects: 2,
	FamilyFinance:  3,
	FamilyTopic:    4,
}

const unknownFamilyPriority = 5

// Families returns the closed family set in priority order.
func Families() []Family {
	return []Family{FamilyPeople, FamilyBusiness, FamilyProjects, FamilyFinance, FamilyTopic}
}

// Priority returns the sort priority of f. Lower sorts first.
func (f Family) Priority() int {
	if p, ok := familyPriority[f]; ok {
		return p
	}
	return unknownFamilyPriority
}

// Known reports whether f belongs to the closed family set.
func (f Family) Known() bool {
	_, ok := familyPriority[f]
	return ok
}

// Tag is a canonical tag string of the form "Family/Name".
type Tag string

// Family returns the family segment of t. A tag with no separator has
// an empty family.
func (t Tag) Family() Family {
	s := string(t)
	if i := strings.Index(s, Separator); i >= 0 {
		return Family(s[:i])
	}
	return ""
}

// Name returns the name segment of t (everything after the first
// separator), or the whole string when no separator is present.
func (t Tag) Name() string {
	s := string(t)
	if i := strings.Index(s, Separator); i >= 0 {
		return s[i+len(Separator):]
	}
	return s
}

// IsPerson reports whether t is an identity tag (People/*).
func (t Tag) IsPerson() bool {
	return t.Family() == FamilyPeople
}

// String implements fmt.Stringer.
func (t Tag) String() string { return string(t) }

// Validate strictly checks that t has the Family/Name shape with a
// known family and a non-empty name. This is the strict path used by
// merge, validation, and the rule loader; the lenient v0 mapping path
// lives in the legacy package.
func Validate(t Tag) error {
	s := strings.TrimSpace(string(t))
	if s == "" {
		return fmt.Errorf("empty tag")
	}
	i := strings.Index(s, Separator)
	if i < 0 {
		return fmt.Errorf("tag %q missing %q separator", s, Separator)
	}
	fam := Family(s[:i])
	if !fam.Known() {
		return fmt.Errorf("tag %q has unknown family %q", s, fam)
	}
	if strings.TrimSpace(s[i+len(Separator):]) == "" {
		return fmt.Errorf("tag %q has empty name", s)
	}
	return nil
}

// Normalize produces the comparison key for t: whitespace collapsed
// and lowercased. The stored tag keeps its original casing; only
// equality checks use this form.
func Normalize(t Tag) string {
	return strings.ToLower(strings.Join(strings.Fields(string(t)), " "))
}

// Clean trims surrounding whitespace and collapses internal runs of
// whitespace while preserving casing.
func Clean(t Tag) Tag {
	return Tag(strings.Join(strings.Fields(string(t)), " "))
}

// Less orders two tags by family priority, then lexicographically
// within equal priority.
func Less(a, b Tag) bool {
	pa, pb := a.Family().Priority(), b.Family().Priority()
	if pa != pb {
		return pa < pb
	}
	return a < b
}

// SortSet sorts tags in place by family priority then name and removes
// duplicates under Normalize, keeping the first occurrence's casing.
// The result is a valid TagSet ordering per the pipeline contract.
func SortSet(tags []Tag) []Tag {
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0]
	for _, t := range tags {
		t = Clean(t)
		if t == "" {
			continue
		}
		key := Normalize(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// Strings converts a tag slice to plain strings, preserving order.
func Strings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

// FromStrings converts raw strings to tags, dropping empty entries
// after whitespace cleanup. No validation is applied.
func FromStrings(raw []string) []Tag {
	out := make([]Tag, 0, len(raw))
	for _, s := range raw {
		t := Clean(Tag(s))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
