package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagmill/tagmill/internal/tag"
)

const sampleDoc = `
Finance/IFRS:
  patterns:
    - '\bifrs\b'
    - 'международн\w* стандарт\w*'
  exclude:
    - 'ifrs\.com'
  weight: 1.2
Business/Lavka:
  - '\blavka\b'
Projects/Budgets:
  patterns:
    - '\bbudget(s|ing)?\b'
`

func TestLoadFullAndShorthandSpecs(t *testing.T) {
	set := Load([]byte(sampleDoc), nil)
	require.Equal(t, 3, set.Len())

	r, ok := set.Lookup("Finance/IFRS")
	require.True(t, ok)
	assert.Len(t, r.Patterns, 2)
	assert.Len(t, r.Exclude, 1)
	assert.Equal(t, 1.2, r.Weight)

	// Shorthand list gets defaults.
	r, ok = set.Lookup("Business/Lavka")
	require.True(t, ok)
	assert.Empty(t, r.Exclude)
	assert.Equal(t, DefaultWeight, r.Weight)
}

func TestLoadCaseInsensitiveUnicode(t *testing.T) {
	set := Load([]byte(sampleDoc), nil)
	r, _ := set.Lookup("Finance/IFRS")

	assert.Equal(t, 1, r.MatchCount("We reviewed IFRS compliance"))
	assert.Equal(t, 1, r.MatchCount("МЕЖДУНАРОДНЫЕ СТАНДАРТЫ отчетности"))
}

func TestLoadSkipsMalformedEntriesKeepsRest(t *testing.T) {
	doc := `
Finance/IFRS:
  patterns: ['\bifrs\b']
Topic/Broken:
  patterns: ['[unclosed']
Topic/NoPatterns:
  patterns: []
Topic/BadWeight:
  patterns: ['x']
  weight: 42
`
	set := Load([]byte(doc), nil)
	assert.Equal(t, 1, set.Len())

	_, ok := set.Lookup("Finance/IFRS")
	assert.True(t, ok)

	// The rule whose only pattern failed to compile is dropped, not
	// retained as an empty placeholder.
	_, ok = set.Lookup("Topic/Broken")
	assert.False(t, ok)
}

func TestLoadDropsOnlyInvalidPattern(t *testing.T) {
	doc := `
Topic/Mixed:
  patterns:
    - '[unclosed'
    - '\bok\b'
`
	set := Load([]byte(doc), nil)
	r, ok := set.Lookup("Topic/Mixed")
	require.True(t, ok)
	assert.Len(t, r.Patterns, 1)
}

func TestLoadEmptyOrGarbageDocument(t *testing.T) {
	assert.Equal(t, 0, Load(nil, nil).Len())
	assert.Equal(t, 0, Load([]byte("- just\n- a list\n"), nil).Len())
	assert.Equal(t, 0, Load([]byte(":\tnot yaml ["), nil).Len())
}

func TestRuleExcluded(t *testing.T) {
	set := Load([]byte(sampleDoc), nil)
	r, _ := set.Lookup("Finance/IFRS")

	assert.True(t, r.Excluded("contact support@ifrs.com"))
	assert.False(t, r.Excluded("plain IFRS mention"))
}

func TestRuleMatchCountRepeats(t *testing.T) {
	set := Load([]byte(sampleDoc), nil)
	r, _ := set.Lookup("Finance/IFRS")

	assert.Equal(t, 2, r.MatchCount("IFRS here and more IFRS there"))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	doc := `
Finance/IFRS:
  patterns: ['\bifrs\b']
Topic/Bad:
  patterns: ['[unclosed']
NoSeparator:
  patterns: ['x']
Gadgets/Widget:
  patterns: ['x']
Topic/Blank:
  patterns: ['']
Topic/Heavy:
  patterns: ['x']
  weight: 11
Topic/NotAList:
  patterns: nope
`
	problems := Validate([]byte(doc))
	joined := strings.Join(problems, "\n")

	assert.Contains(t, joined, "Topic/Bad")
	assert.Contains(t, joined, "unparseable regex")
	assert.Contains(t, joined, "NoSeparator")
	assert.Contains(t, joined, "Gadgets/Widget")
	assert.Contains(t, joined, "empty pattern string")
	assert.Contains(t, joined, "outside [0, 10]")
	assert.Contains(t, joined, "Topic/NotAList")
}

func TestValidateDuplicateTagName(t *testing.T) {
	doc := "Topic/Dup:\n  patterns: ['a']\nTopic/Dup:\n  patterns: ['b']\n"
	problems := Validate([]byte(doc))

	found := false
	for _, p := range problems {
		if strings.Contains(p, "duplicate tag name") {
			found = true
		}
	}
	assert.True(t, found, "expected duplicate tag error, got %v", problems)
}

func TestValidatePerformanceWarningsDistinguishable(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		b.WriteString("Topic/T")
		b.WriteString(string(rune('A' + i%26)))
		b.WriteString(string(rune('a' + i/26)))
		b.WriteString(":\n  patterns: ['a', 'b', 'c']\n  exclude: ['x']\n")
	}
	problems := Validate([]byte(b.String()))

	warnings := 0
	for _, p := range problems {
		if strings.HasPrefix(p, "warning: ") {
			warnings++
		}
	}
	assert.GreaterOrEqual(t, warnings, 2, "expected pattern and exclude volume warnings, got %v", problems)
}

func TestValidateCleanDocumentIsQuiet(t *testing.T) {
	assert.Empty(t, Validate([]byte(sampleDoc)))
}

func TestSetLookupAndRules(t *testing.T) {
	set := Load([]byte(sampleDoc), nil)
	assert.Len(t, set.Rules(), 3)

	_, ok := set.Lookup(tag.Tag("Finance/Missing"))
	assert.False(t, ok)
}
