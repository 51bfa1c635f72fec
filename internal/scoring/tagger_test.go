package scoring

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagmill/tagmill/internal/people"
	"github.com/tagmill/tagmill/internal/rules"
	"github.com/tagmill/tagmill/internal/tag"
)

const taggerDoc = `
Finance/IFRS:
  patterns: ['\bifrs\b']
  exclude: ['ifrs\.com']
  weight: 1.2
Finance/Budget:
  patterns: ['\bbudget(s|ing)?\b']
  weight: 0.8
Business/Lavka:
  - '\blavka\b'
`

func newTestTagger(t *testing.T, cfg Config) *Tagger {
	t.Helper()
	if cfg.Store == nil {
		cfg.Store = rules.NewStaticStore(rules.Load([]byte(taggerDoc), nil), nil)
	}
	return New(cfg)
}

func TestEvaluateBasicMatch(t *testing.T) {
	tgr := newTestTagger(t, Config{})

	scored, err := tgr.Evaluate("We reviewed IFRS compliance")
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, tag.Tag("Finance/IFRS"), scored[0].Tag)
	assert.InDelta(t, 1.2, scored[0].Score, 1e-9)
}

func TestEvaluateRepeatedMatchesScaleScore(t *testing.T) {
	tgr := newTestTagger(t, Config{})

	scored, err := tgr.Evaluate("IFRS first, then more IFRS later")
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.InDelta(t, 2.4, scored[0].Score, 1e-9)
}

func TestEvaluateExclusionWins(t *testing.T) {
	tgr := newTestTagger(t, Config{})

	scored, err := tgr.Evaluate("contact support@ifrs.com")
	require.NoError(t, err)
	for _, st := range scored {
		assert.NotEqual(t, tag.Tag("Finance/IFRS"), st.Tag)
	}
}

func TestEvaluateSortedByScoreThenName(t *testing.T) {
	tgr := newTestTagger(t, Config{})

	scored, err := tgr.Evaluate("lavka budget ifrs")
	require.NoError(t, err)
	require.Len(t, scored, 3)

	for i := 0; i+1 < len(scored); i++ {
		if scored[i].Score == scored[i+1].Score {
			assert.Less(t, string(scored[i].Tag), string(scored[i+1].Tag))
		} else {
			assert.Greater(t, scored[i].Score, scored[i+1].Score)
		}
	}
	assert.Equal(t, tag.Tag("Finance/IFRS"), scored[0].Tag)
}

func TestEvaluateFilteredAlphabetical(t *testing.T) {
	tgr := newTestTagger(t, Config{MinScore: 0.5})

	tags, err := tgr.EvaluateFiltered("lavka budget ifrs")
	require.NoError(t, err)

	names := tag.Strings(tags)
	assert.True(t, sort.StringsAreSorted(names), "filtered output must be alphabetical, got %v", names)
	assert.Equal(t, []string{"Business/Lavka", "Finance/Budget", "Finance/IFRS"}, names)
}

func TestThresholdMonotonicity(t *testing.T) {
	text := "lavka budget ifrs"

	low := newTestTagger(t, Config{MinScore: 0.5})
	high := newTestTagger(t, Config{MinScore: 1.0})

	lowTags, err := low.EvaluateFiltered(text)
	require.NoError(t, err)
	highTags, err := high.EvaluateFiltered(text)
	require.NoError(t, err)

	lowSet := map[tag.Tag]bool{}
	for _, tg := range lowTags {
		lowSet[tg] = true
	}
	for _, tg := range highTags {
		assert.True(t, lowSet[tg], "raising the threshold must never add tags; %s appeared", tg)
	}
	assert.LessOrEqual(t, len(highTags), len(lowTags))
}

func TestZeroThresholdIsLiteral(t *testing.T) {
	doc := `
Topic/Sidenote:
  patterns: ['\bsidenote\b']
  weight: 0.3
`
	store := rules.NewStaticStore(rules.Load([]byte(doc), nil), nil)

	// MinScore 0 keeps everything that matched.
	zero := newTestTagger(t, Config{Store: store, MinScore: 0})
	tags, err := zero.EvaluateFiltered("a quick sidenote")
	require.NoError(t, err)
	assert.Equal(t, []tag.Tag{"Topic/Sidenote"}, tags)

	// A negative threshold selects the default, which drops it.
	def := newTestTagger(t, Config{Store: store, MinScore: -1})
	assert.Equal(t, DefaultMinScore, def.MinScore())
	tags, err = def.EvaluateFiltered("a quick sidenote")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestPeoplePassAliasMatch(t *testing.T) {
	dir := people.NewStaticDirectory([]people.Identity{
		{Name: "Ivan Petrov", Aliases: []string{"ivan", "vanya"}},
		{Name: "Maria Sidorova", Aliases: []string{"maria"}},
	})
	tgr := newTestTagger(t, Config{Directory: dir})

	scored, err := tgr.Evaluate("vanya will own the budget")
	require.NoError(t, err)

	var person *ScoredTag
	for i := range scored {
		if scored[i].Tag == "People/Ivan Petrov" {
			person = &scored[i]
		}
	}
	require.NotNil(t, person, "alias hit must emit the canonical identity tag")
	assert.Equal(t, PeopleScore, person.Score)
}

func TestPeoplePassNoDoubleCount(t *testing.T) {
	dir := people.NewStaticDirectory([]people.Identity{
		{Name: "Ivan Petrov", Aliases: []string{"ivan", "vanya"}},
	})
	tgr := newTestTagger(t, Config{Directory: dir})

	scored, err := tgr.Evaluate("ivan, also known as vanya, and Ivan Petrov himself")
	require.NoError(t, err)

	count := 0
	for _, st := range scored {
		if st.Tag == "People/Ivan Petrov" {
			count++
			assert.Equal(t, PeopleScore, st.Score, "people score is fixed regardless of occurrences")
		}
	}
	assert.Equal(t, 1, count)
}

func TestPeopleRuleScoreIsFixed(t *testing.T) {
	// An identity tag keyed by a rule carries the fixed score too;
	// weight and match count only gate presence.
	doc := `
People/Jane Doe:
  patterns: ['\bjane\b']
  weight: 2.0
`
	store := rules.NewStaticStore(rules.Load([]byte(doc), nil), nil)
	tgr := newTestTagger(t, Config{Store: store})

	scored, err := tgr.Evaluate("jane asked jane to follow up")
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, tag.Tag("People/Jane Doe"), scored[0].Tag)
	assert.Equal(t, PeopleScore, scored[0].Score)
}

func TestPeopleSubjectToThreshold(t *testing.T) {
	dir := people.NewStaticDirectory([]people.Identity{
		{Name: "Ivan Petrov", Aliases: []string{"ivan"}},
	})
	tgr := newTestTagger(t, Config{Directory: dir, MinScore: 1.5})

	tags, err := tgr.EvaluateFiltered("ivan was present")
	require.NoError(t, err)
	assert.Empty(t, tags, "a threshold above 1.0 filters identity tags too")
}

func TestDisabledModeEmptiness(t *testing.T) {
	tgr := newTestTagger(t, Config{Disabled: true})

	scored, err := tgr.Evaluate("IFRS budget lavka")
	require.NoError(t, err)
	assert.Empty(t, scored)

	tags, err := tgr.EvaluateFiltered("IFRS budget lavka")
	require.NoError(t, err)
	assert.Empty(t, tags)

	assert.Zero(t, tgr.Stats().Snapshot(0).Calls, "disabled calls accrue no statistics")
}

func TestStatsAccrual(t *testing.T) {
	stats := NewStats()
	tgr := newTestTagger(t, Config{Stats: stats})

	_, err := tgr.Evaluate("ifrs budget")
	require.NoError(t, err)
	_, err = tgr.Evaluate("ifrs")
	require.NoError(t, err)

	snap := stats.Snapshot(10)
	assert.Equal(t, uint64(2), snap.Calls)
	assert.Equal(t, uint64(3), snap.TagsEmitted)
	assert.Positive(t, snap.AverageScore)
	require.NotEmpty(t, snap.TopTags)
	assert.Equal(t, tag.Tag("Finance/IFRS"), snap.TopTags[0].Tag)
	assert.Equal(t, uint64(2), snap.TopTags[0].Count)
}

func TestStatsReset(t *testing.T) {
	stats := NewStats()
	stats.RecordCall([]ScoredTag{{Tag: "Topic/X", Score: 1}}, time.Millisecond)
	stats.Reset()

	snap := stats.Snapshot(0)
	assert.Zero(t, snap.Calls)
	assert.Zero(t, snap.TagsEmitted)
	assert.Empty(t, snap.TopTags)
	assert.Zero(t, snap.AverageLatency)
}

func TestStatsTopTableBounded(t *testing.T) {
	stats := NewStats()
	for i := 0; i < topTableCapacity*2; i++ {
		stats.RecordCall([]ScoredTag{{Tag: tag.Tag("Topic/T" + string(rune('A'+i%26)) + string(rune('a'+i/26))), Score: 1}}, 0)
	}
	snap := stats.Snapshot(0)
	assert.LessOrEqual(t, len(snap.TopTags), topTableCapacity)
}
