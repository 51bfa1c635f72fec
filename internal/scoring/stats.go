package scoring

import (
	"sort"
	"sync"
	"time"

	"github.com/tagmill/tagmill/internal/tag"
)

const (
	// topTableCapacity bounds the most-frequent-tag table. Tags beyond
	// capacity are admitted only by evicting the current minimum.
	topTableCapacity = 64

	// latencyWindowSize bounds the rolling per-call latency window.
	latencyWindowSize = 256

	// scoreSmoothing is the EWMA factor for the average-score metric.
	scoreSmoothing = 0.1
)

// Stats accumulates diagnostic counters for one tagger instance. It is
// an explicitly-owned, lock-guarded object injected at construction so
// tests can run isolated instances; nothing here ever influences
// evaluate results.
type Stats struct {
	mu sync.Mutex

	calls       uint64
	tagsEmitted uint64

	tagCounts map[tag.Tag]uint64

	avgScore    float64
	scoreSeeded bool

	latencies []time.Duration
	latencyAt int
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{
		tagCounts: make(map[tag.Tag]uint64, topTableCapacity),
		latencies: make([]time.Duration, 0, latencyWindowSize),
	}
}

// RecordCall folds one evaluate call into the counters.
func (s *Stats) RecordCall(emitted []ScoredTag, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.tagsEmitted += uint64(len(emitted))

	for _, st := range emitted {
		s.admit(st.Tag)
		if !s.scoreSeeded {
			s.avgScore = st.Score
			s.scoreSeeded = true
		} else {
			s.avgScore = scoreSmoothing*st.Score + (1-scoreSmoothing)*s.avgScore
		}
	}

	if len(s.latencies) < latencyWindowSize {
		s.latencies = append(s.latencies, elapsed)
	} else {
		s.latencies[s.latencyAt] = elapsed
		s.latencyAt = (s.latencyAt + 1) % latencyWindowSize
	}
}

// admit counts t in the bounded top table. Caller holds the lock.
func (s *Stats) admit(t tag.Tag) {
	if _, ok := s.tagCounts[t]; ok {
		s.tagCounts[t]++
		return
	}
	if len(s.tagCounts) < topTableCapacity {
		s.tagCounts[t] = 1
		return
	}
	// Evict the least frequent entry to make room.
	var minTag tag.Tag
	var minCount uint64
	first := true
	for k, v := range s.tagCounts {
		if first || v < minCount {
			minTag, minCount, first = k, v, false
		}
	}
	if minCount <= 1 {
		delete(s.tagCounts, minTag)
		s.tagCounts[t] = 1
	}
}

// TagFrequency is one row of the top-tags table.
type TagFrequency struct {
	Tag   tag.Tag `json:"tag"`
	Count uint64  `json:"count"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Calls          uint64         `json:"calls"`
	TagsEmitted    uint64         `json:"tags_emitted"`
	AverageScore   float64        `json:"average_score"`
	AverageLatency time.Duration  `json:"average_latency"`
	TopTags        []TagFrequency `json:"top_tags"`
}

// Snapshot returns a copy of the counters with the top table limited
// to n rows (all rows when n <= 0), ordered by descending count then
// tag name.
func (s *Stats) Snapshot(n int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	top := make([]TagFrequency, 0, len(s.tagCounts))
	for t, c := range s.tagCounts {
		top = append(top, TagFrequency{Tag: t, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Tag < top[j].Tag
	})
	if n > 0 && len(top) > n {
		top = top[:n]
	}

	var avgLatency time.Duration
	if len(s.latencies) > 0 {
		var sum time.Duration
		for _, d := range s.latencies {
			sum += d
		}
		avgLatency = sum / time.Duration(len(s.latencies))
	}

	return Snapshot{
		Calls:          s.calls,
		TagsEmitted:    s.tagsEmitted,
		AverageScore:   s.avgScore,
		AverageLatency: avgLatency,
		TopTags:        top,
	}
}

// Reset clears every counter.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = 0
	s.tagsEmitted = 0
	s.tagCounts = make(map[tag.Tag]uint64, topTableCapacity)
	s.avgScore = 0
	s.scoreSeeded = false
	s.latencies = s.latencies[:0]
	s.latencyAt = 0
}
