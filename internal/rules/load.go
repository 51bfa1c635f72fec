package rules

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/tagmill/tagmill/internal/tag"
)

// Load parses and compiles a rule document. Malformed entries and
// uncompilable patterns are logged and skipped; Load always returns a
// usable Set, possibly empty.
func Load(data []byte, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, problems := parseDocument(data)
	for _, p := range problems {
		if p.warning {
			logger.Warn("rule document warning", zap.String("entry", p.entry), zap.String("reason", p.msg))
			continue
		}
		logger.Warn("skipping malformed rule entry", zap.String("entry", p.entry), zap.String("reason", p.msg))
	}

	rules := make([]*Rule, 0, len(entries))
	for _, e := range entries {
		r := compileEntry(e, logger)
		if r == nil {
			continue
		}
		rules = append(rules, r)
	}

	return NewSet(rules)
}

// compileEntry compiles one parsed entry. Uncompilable patterns are
// dropped individually; a rule left with zero valid patterns is
// dropped entirely rather than retained as an empty placeholder.
func compileEntry(e entry, logger *zap.Logger) *Rule {
	r := &Rule{
		Tag:    tag.Tag(e.name),
		Weight: e.weight,
	}

	for _, p := range e.patterns {
		re, err := compilePattern(p)
		if err != nil {
			logger.Warn("dropping invalid rule pattern",
				zap.String("tag", e.name),
				zap.String("pattern", p),
				zap.Error(err))
			continue
		}
		r.Patterns = append(r.Patterns, re)
	}

	if len(r.Patterns) == 0 {
		logger.Warn("dropping rule with no valid patterns", zap.String("tag", e.name))
		return nil
	}

	for _, x := range e.exclude {
		re, err := compilePattern(x)
		if err != nil {
			logger.Warn("dropping invalid exclude pattern",
				zap.String("tag", e.name),
				zap.String("pattern", x),
				zap.Error(err))
			continue
		}
		r.Exclude = append(r.Exclude, re)
	}

	return r
}

// Validate dry-runs a load and reports every structural problem in the
// document without touching live state. Hard errors and advisory
// performance warnings share the list; warnings carry the "warning: "
// prefix so callers can split them.
func Validate(data []byte) []string {
	entries, problems := parseDocument(data)

	patternTotal, excludeTotal := 0, 0
	for _, e := range entries {
		for _, p := range e.patterns {
			if _, err := compilePattern(p); err != nil {
				problems = append(problems, problem{entry: e.name, msg: "unparseable regex " + strconv.Quote(p) + ": " + err.Error()})
			}
		}
		for _, x := range e.exclude {
			if _, err := compilePattern(x); err != nil {
				problems = append(problems, problem{entry: e.name, msg: "unparseable exclude regex " + strconv.Quote(x) + ": " + err.Error()})
			}
		}
		patternTotal += len(e.patterns)
		excludeTotal += len(e.exclude)
	}

	if patternTotal > warnPatternTotal {
		problems = append(problems, problem{
			msg:     rulesCountMsg("compiled pattern", patternTotal, warnPatternTotal),
			warning: true,
		})
	}
	if excludeTotal > warnExcludeTotal {
		problems = append(problems, problem{
			msg:     rulesCountMsg("exclude pattern", excludeTotal, warnExcludeTotal),
			warning: true,
		})
	}

	out := make([]string, 0, len(problems))
	for _, p := range problems {
		out = append(out, p.String())
	}
	return out
}

func rulesCountMsg(kind string, total, limit int) string {
	return fmt.Sprintf("document has %d %ss (over %d); evaluation latency will suffer", total, kind, limit)
}
