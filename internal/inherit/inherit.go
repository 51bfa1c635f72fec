// Package inherit propagates a parent record's tags onto a dependent
// record. Unlike the dedup merge, both operands are context rather
// than competing opinions about the same text, so there is no priority
// logic: everything survives the union.
package inherit

import (
	"github.com/tagmill/tagmill/internal/tag"
)

// Inherit unions parentTags with childTags, deduplicating
// case-insensitively within each family, and returns the result in
// family-priority order. People tags from both sides are always kept,
// for the same reason the dedup merge never drops them.
func Inherit(parentTags, childTags []tag.Tag) []tag.Tag {
	union := make([]tag.Tag, 0, len(parentTags)+len(childTags))
	// Child entries first so a casing conflict resolves toward the
	// record being composed.
	union = append(union, childTags...)
	union = append(union, parentTags...)
	return tag.SortSet(union)
}
