// Package scoring implements the weighted-regex tagger. Each active
// rule contributes weight × match count unless an exclude pattern
// fires; a people pass appends fixed-score identity tags on top.
package scoring

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tagmill/tagmill/internal/people"
	"github.com/tagmill/tagmill/internal/rules"
	"github.com/tagmill/tagmill/internal/tag"
)

// PeopleScore is the fixed score carried by every identity tag. People
// tags are exempt from weight arithmetic; the minimum-score filter
// still applies to them like to everything else.
const PeopleScore = 1.0

// DefaultMinScore is the production filter threshold.
const DefaultMinScore = 0.5

// ScoredTag pairs a tag with the score one evaluate call produced.
type ScoredTag struct {
	Tag   tag.Tag `json:"tag"`
	Score float64 `json:"score"`
}

// Config configures a Tagger.
type Config struct {
	Store     *rules.Store
	Directory people.Directory

	// MinScore is the EvaluateFiltered threshold. Zero keeps every
	// matched tag; a negative value selects DefaultMinScore.
	MinScore float64

	Disabled bool
	Stats    *Stats
	Logger   *zap.Logger
}

// Tagger evaluates text against the active rule set. Evaluate calls
// are read-only over the published rule set, so they run concurrently
// with reloads without coordination.
type Tagger struct {
	store    *rules.Store
	dir      people.Directory
	minScore float64
	disabled bool
	stats    *Stats
	logger   *zap.Logger
}

// New creates a Tagger. Nil optional fields get safe defaults.
func New(cfg Config) *Tagger {
	if cfg.Directory == nil {
		cfg.Directory = people.Empty
	}
	if cfg.Stats == nil {
		cfg.Stats = NewStats()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	// Zero is a legitimate threshold (keep everything that matched);
	// negative selects the default.
	if cfg.MinScore < 0 {
		cfg.MinScore = DefaultMinScore
	}
	return &Tagger{
		store:    cfg.Store,
		dir:      cfg.Directory,
		minScore: cfg.MinScore,
		disabled: cfg.Disabled,
		stats:    cfg.Stats,
		logger:   cfg.Logger,
	}
}

// MinScore returns the configured filter threshold.
func (t *Tagger) MinScore() float64 { return t.minScore }

// Stats returns the injected stats object.
func (t *Tagger) Stats() *Stats { return t.stats }

// Evaluate scores text against every active rule and appends the
// people pass, returning pairs sorted by descending score then
// ascending tag name. Disabled taggers return nil immediately without
// consulting the rule store or accruing statistics.
func (t *Tagger) Evaluate(text string) ([]ScoredTag, error) {
	if t.disabled {
		return nil, nil
	}

	start := time.Now()

	var out []ScoredTag
	if t.store != nil {
		for _, r := range t.store.Active().Rules() {
			st, ok := t.scoreRule(r, text)
			if ok {
				out = append(out, st)
			}
		}
	}

	out = t.appendPeople(out, text)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Tag < out[j].Tag
	})

	t.stats.RecordCall(out, time.Since(start))
	return out, nil
}

// EvaluateFiltered keeps only tags at or above the minimum score and
// returns the names sorted alphabetically. The alphabetic order of the
// filtered form is a deliberate contract; callers rely on it for
// deterministic display, while the scored form stays score-ordered.
func (t *Tagger) EvaluateFiltered(text string) ([]tag.Tag, error) {
	scored, err := t.Evaluate(text)
	if err != nil {
		return nil, err
	}

	out := make([]tag.Tag, 0, len(scored))
	for _, st := range scored {
		if st.Score >= t.minScore {
			out = append(out, st.Tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// scoreRule evaluates one rule in isolation. A panicking regex engine
// (pathological input, encoding trouble) costs that rule its score for
// this call and nothing else.
func (t *Tagger) scoreRule(r *rules.Rule, text string) (st ScoredTag, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			t.logger.Warn("rule evaluation panicked",
				zap.String("tag", string(r.Tag)),
				zap.Any("panic", rec))
			ok = false
		}
	}()

	if r.Excluded(text) {
		return ScoredTag{}, false
	}
	count := r.MatchCount(text)
	if count == 0 {
		return ScoredTag{}, false
	}
	// Identity tags carry the fixed score even when keyed by a rule;
	// only presence is pattern-driven.
	if r.Tag.IsPerson() {
		return ScoredTag{Tag: r.Tag, Score: PeopleScore}, true
	}
	return ScoredTag{Tag: r.Tag, Score: r.Weight * float64(count)}, true
}

// appendPeople runs the identity pass: each known identity whose
// canonical name or any alias occurs as a case-insensitive substring
// of text contributes People/<Name> once at the fixed score. The first
// alias hit wins; multiple alias hits never double-count.
func (t *Tagger) appendPeople(out []ScoredTag, text string) []ScoredTag {
	lower := strings.ToLower(text)

	present := make(map[tag.Tag]struct{}, len(out))
	for _, st := range out {
		present[st.Tag] = struct{}{}
	}

	for _, id := range t.dir.Identities() {
		personTag := tag.Tag(string(tag.FamilyPeople) + tag.Separator + id.Name)
		if _, dup := present[personTag]; dup {
			continue
		}

		needles := append([]string{id.Name}, id.Aliases...)
		for _, needle := range needles {
			if needle == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(needle)) {
				out = append(out, ScoredTag{Tag: personTag, Score: PeopleScore})
				present[personTag] = struct{}{}
				break
			}
		}
	}
	return out
}
