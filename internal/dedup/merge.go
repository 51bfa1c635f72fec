// Package dedup reconciles the outputs of two tagger generations into
// one canonical tag set. The newer tagger wins conflicts on every
// family except People: identity tags from either side are considered
// independently reliable and are always unioned, never dropped.
package dedup

import (
	"strings"
	"time"

	"github.com/tagmill/tagmill/internal/tag"
)

// Metrics describes one merge run for operational dashboards. The
// counts are arithmetically consistent with the merge itself:
//
//	OutputCount == BKept + AUniqueKept + PeoplePreserved
//
// after duplicates within each input have been collapsed.
type Metrics struct {
	AInputCount       int           `json:"a_input_count"`
	BInputCount       int           `json:"b_input_count"`
	OutputCount       int           `json:"output_count"`
	BKept             int           `json:"b_kept"`
	ConflictsResolved int           `json:"conflicts_resolved"`
	BPriorityWins     int           `json:"b_priority_wins"`
	AUniqueKept       int           `json:"a_unique_kept"`
	PeoplePreserved   int           `json:"people_preserved"`
	Elapsed           time.Duration `json:"elapsed"`
}

// Merge reconciles tagsA (legacy tagger) with tagsB (newer tagger).
// tagsB has priority on non-People conflicts: any tagsA entry whose
// normalized form already exists in tagsB is dropped, and the tagsB
// spelling survives. People tags from both sides are unioned. The
// result is sorted by family priority, then lexicographically.
func Merge(tagsA, tagsB []tag.Tag) ([]tag.Tag, Metrics) {
	start := time.Now()

	m := Metrics{
		AInputCount: len(tagsA),
		BInputCount: len(tagsB),
	}

	aPeople, aOther := partition(tagsA)
	bPeople, bOther := partition(tagsB)

	// Non-People: index tagsB, keep all of it, keep only the tagsA
	// entries that do not normalize onto an existing tagsB key. A
	// duplicate within tagsA itself is collapsed silently, not counted
	// as a resolved conflict.
	bIndex := make(map[string]struct{}, len(bOther))
	var kept []tag.Tag
	for _, t := range bOther {
		key := tag.Normalize(t)
		if _, dup := bIndex[key]; dup {
			continue
		}
		bIndex[key] = struct{}{}
		kept = append(kept, t)
	}
	m.BKept = len(kept)

	aSeen := make(map[string]struct{}, len(aOther))
	for _, t := range aOther {
		key := tag.Normalize(t)
		if _, dup := aSeen[key]; dup {
			continue
		}
		aSeen[key] = struct{}{}
		if _, conflict := bIndex[key]; conflict {
			m.ConflictsResolved++
			m.BPriorityWins++
			continue
		}
		kept = append(kept, t)
		m.AUniqueKept++
	}

	// People: union of both inputs, case-insensitive dedup, all kept.
	peopleSeen := make(map[string]struct{}, len(aPeople)+len(bPeople))
	for _, t := range append(bPeople, aPeople...) {
		key := tag.Normalize(t)
		if _, dup := peopleSeen[key]; dup {
			continue
		}
		peopleSeen[key] = struct{}{}
		kept = append(kept, t)
		m.PeoplePreserved++
	}

	out := tag.SortSet(kept)
	m.OutputCount = len(out)
	m.Elapsed = time.Since(start)
	return out, m
}

// partition splits cleaned, non-empty tags into People and the rest.
// Family detection is case-insensitive; otherwise a "people/x" spelling
// would land in the non-People bucket and collide with "People/X" only
// at the final sort, skewing the metrics arithmetic.
func partition(tags []tag.Tag) (people, other []tag.Tag) {
	for _, t := range tags {
		t = tag.Clean(t)
		if t == "" {
			continue
		}
		if strings.EqualFold(string(t.Family()), string(tag.FamilyPeople)) {
			people = append(people, t)
		} else {
			other = append(other, t)
		}
	}
	return people, other
}
