// Package legacy bridges the older token-classification tagger into
// the canonical Family/Name namespace. The legacy algorithm itself is
// a collaborator behind the Evaluator interface; this package owns its
// output contract (raw tokens like "area/ifrs") and the mapping step
// that coerces those tokens into canonical tags.
package legacy

import (
	"strings"

	"github.com/tagmill/tagmill/internal/tag"
)

// Evaluator is the legacy tagging engine. Implementations return raw,
// non-canonical tokens; meta carries caller context (chat id, message
// kind) that some implementations use for disambiguation.
type Evaluator interface {
	Evaluate(text string, meta map[string]string) ([]string, error)
}

// KeywordEvaluator is the default Evaluator: a token emitted when any
// of its keywords occurs in the lowercased text. It reproduces the
// original classifier's behavior closely enough for the mapping layer
// and for environments without the real legacy engine.
type KeywordEvaluator struct {
	rules map[string][]string
}

// DefaultKeywordRules maps raw legacy tokens to trigger keywords.
var DefaultKeywordRules = map[string][]string{
	"area/ifrs":       {"ifrs", "мсфо"},
	"area/rsbu":       {"rsbu", "рсбу"},
	"area/audit":      {"audit", "аудит"},
	"area/budgets":    {"budget", "бюджет"},
	"project/budgets": {"budget planning", "бюджетирование"},
	"area/hiring":     {"hiring", "найм", "вакансия"},
}

// NewKeywordEvaluator creates an evaluator with the given rules, or
// DefaultKeywordRules when rules is empty.
func NewKeywordEvaluator(rules map[string][]string) *KeywordEvaluator {
	if len(rules) == 0 {
		rules = DefaultKeywordRules
	}
	return &KeywordEvaluator{rules: rules}
}

// Evaluate implements Evaluator by substring keyword matching.
func (e *KeywordEvaluator) Evaluate(text string, _ map[string]string) ([]string, error) {
	lower := strings.ToLower(text)

	var out []string
	for token, keywords := range e.rules {
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				out = append(out, token)
				break
			}
		}
	}
	return out, nil
}

var _ Evaluator = (*KeywordEvaluator)(nil)

// Mapper coerces raw legacy tokens into canonical tags. The mapping is
// lossy-safe: it never fails and always produces some canonical-shaped
// tag for every input.
type Mapper struct {
	table        map[string]tag.Tag
	financeAreas map[string]bool
}

// DefaultTable maps well-known raw tokens directly. Checked before any
// prefix coercion.
var DefaultTable = map[string]tag.Tag{
	"area/ifrs":       "Finance/IFRS",
	"area/rsbu":       "Finance/RSBU",
	"area/msfo":       "Finance/IFRS",
	"area/audit":      "Finance/Audit",
	"project/budgets": "Projects/Budgets",
}

// DefaultFinanceAreas lists area tokens coerced into Finance rather
// than Topic. Which areas count as finance is deployment data, not
// something the mapper can infer; override via NewMapper.
var DefaultFinanceAreas = []string{"ifrs", "rsbu", "msfo", "gaap", "opex", "capex"}

// NewMapper creates a Mapper. Nil arguments select the defaults.
func NewMapper(table map[string]tag.Tag, financeAreas []string) *Mapper {
	if table == nil {
		table = DefaultTable
	}
	if financeAreas == nil {
		financeAreas = DefaultFinanceAreas
	}
	fa := make(map[string]bool, len(financeAreas))
	for _, a := range financeAreas {
		fa[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return &Mapper{table: table, financeAreas: fa}
}

// MapToCanonical maps every raw token to a canonical tag and returns
// the deduplicated, family-sorted set. Canonical tags are fixed points:
// mapping already-canonical input is a no-op.
func (m *Mapper) MapToCanonical(rawTags []string) []tag.Tag {
	out := make([]tag.Tag, 0, len(rawTags))
	for _, raw := range rawTags {
		raw = strings.Join(strings.Fields(raw), " ")
		if raw == "" {
			continue
		}
		out = append(out, m.mapOne(raw))
	}
	return tag.SortSet(out)
}

// mapOne maps a single cleaned token.
func (m *Mapper) mapOne(raw string) tag.Tag {
	if mapped, ok := m.table[strings.ToLower(raw)]; ok {
		return mapped
	}

	i := strings.Index(raw, tag.Separator)
	if i < 0 {
		return tag.Tag(string(tag.FamilyTopic) + tag.Separator + titlecase(raw))
	}

	// Raw legacy tokens carry lowercase prefixes; anything cased
	// differently is canonical(ish) input and must reach the family
	// passthrough below untouched, Topic/* included.
	prefix, rest := raw[:i], raw[i+1:]
	switch prefix {
	case "person":
		return tag.Tag(string(tag.FamilyPeople) + tag.Separator + titlecase(strings.ReplaceAll(rest, "_", " ")))
	case "area":
		if m.financeAreas[strings.ToLower(rest)] {
			return tag.Tag(string(tag.FamilyFinance) + tag.Separator + strings.ToUpper(rest))
		}
		return tag.Tag(string(tag.FamilyTopic) + tag.Separator + titlecase(rest))
	case "project":
		return tag.Tag(string(tag.FamilyProjects) + tag.Separator + titlecase(rest))
	case "topic":
		return tag.Tag(string(tag.FamilyTopic) + tag.Separator + titlecase(rest))
	}

	// Canonical families pass through (family spelling normalized, name
	// casing kept) so the mapping is idempotent; anything else is
	// bucketed under Topic.
	for _, fam := range tag.Families() {
		if strings.EqualFold(prefix, string(fam)) {
			return tag.Tag(string(fam) + tag.Separator + rest)
		}
	}
	return tag.Tag(string(tag.FamilyTopic) + tag.Separator + titlecase(raw))
}

// titlecase uppercases the first rune of every whitespace- or
// underscore-separated word.
func titlecase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
