package rules

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// entry is one parsed, not-yet-compiled rule specification. Both the
// list shorthand and the full object shape normalize into this form at
// the parse boundary; nothing downstream sees the document ambiguity.
type entry struct {
	name     string
	patterns []string
	exclude  []string
	weight   float64
}

// problem describes one structural issue found while parsing a rule
// document. Warnings are advisory; errors make the entry unusable.
type problem struct {
	entry   string
	msg     string
	warning bool
}

func (p problem) String() string {
	prefix := ""
	if p.warning {
		prefix = "warning: "
	}
	if p.entry == "" {
		return prefix + p.msg
	}
	return fmt.Sprintf("%s%s: %s", prefix, p.entry, p.msg)
}

// fullSpec is the object form of a rule specification.
type fullSpec struct {
	Patterns []string `yaml:"patterns"`
	Exclude  []string `yaml:"exclude"`
	Weight   *float64 `yaml:"weight"`
}

// Performance warning thresholds for validate. Exceeding them does not
// fail the load; it flags documents that will slow every evaluate call.
const (
	warnPatternTotal = 300
	warnExcludeTotal = 100
)

// parseDocument decodes a rule document into entries plus the list of
// structural problems. Entries that produced a hard error are omitted;
// parsing itself never fails once the top-level YAML is a mapping.
func parseDocument(data []byte) ([]entry, []problem) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, []problem{{msg: fmt.Sprintf("unparseable document: %v", err)}}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, []problem{{msg: fmt.Sprintf("document must be a mapping of tag -> spec, got %s", kindName(doc.Kind))}}
	}

	var (
		entries  []entry
		problems []problem
		seen     = map[string]bool{}
	)

	for i := 0; i+1 < len(doc.Content); i += 2 {
		keyNode, valNode := doc.Content[i], doc.Content[i+1]
		name := strings.TrimSpace(keyNode.Value)

		if seen[name] {
			problems = append(problems, problem{entry: name, msg: "duplicate tag name"})
			continue
		}
		seen[name] = true

		if err := validateTagName(name); err != nil {
			problems = append(problems, problem{entry: name, msg: err.Error()})
			continue
		}

		e, probs := parseSpec(name, valNode)
		problems = append(problems, probs...)
		if e != nil {
			entries = append(entries, *e)
		}
	}

	return entries, problems
}

// parseSpec normalizes one spec node (sequence shorthand or mapping)
// into an entry. A nil entry means the spec had a hard error.
func parseSpec(name string, node *yaml.Node) (*entry, []problem) {
	var probs []problem

	e := entry{name: name, weight: DefaultWeight}

	switch node.Kind {
	case yaml.SequenceNode:
		// Legacy shorthand: bare pattern list, exclude empty, weight 1.0.
		if err := node.Decode(&e.patterns); err != nil {
			return nil, append(probs, problem{entry: name, msg: fmt.Sprintf("patterns must be a list of strings: %v", err)})
		}

	case yaml.MappingNode:
		var spec fullSpec
		if err := node.Decode(&spec); err != nil {
			return nil, append(probs, problem{entry: name, msg: fmt.Sprintf("invalid rule spec: %v", err)})
		}
		e.patterns = spec.Patterns
		e.exclude = spec.Exclude
		if spec.Weight != nil {
			e.weight = *spec.Weight
		}

	default:
		return nil, append(probs, problem{entry: name, msg: fmt.Sprintf("spec must be a pattern list or an object, got %s", kindName(node.Kind))})
	}

	for _, p := range e.patterns {
		if strings.TrimSpace(p) == "" {
			probs = append(probs, problem{entry: name, msg: "empty pattern string"})
		}
	}
	for _, x := range e.exclude {
		if strings.TrimSpace(x) == "" {
			probs = append(probs, problem{entry: name, msg: "empty exclude string"})
		}
	}

	if len(e.patterns) == 0 {
		return nil, append(probs, problem{entry: name, msg: "patterns must have at least one entry"})
	}
	if err := validateWeight(e.weight); err != nil {
		return nil, append(probs, problem{entry: name, msg: err.Error()})
	}

	return &e, probs
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
