package rules

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// The YAML schema mirrors the ruleset configuration format:
//
//	CPU:
//	  name_rules:
//	    - {key: name, regex: '^([^(]+)'}
//	    - {key: name, regex: '^([^-]+?)-\d+세대\s*([^(]+)', group: [1, 2]}
//	  spec:
//	    collision: last_wins
//	    colon_keys:
//	      기본 클럭: base_clock
//	    non_colon_patterns:
//	      - {key: cores, extract: '(\d+)코어'}
//	      - {key: pcie_versions, extract_all: 'PCIe(\d+\.\d+)'}
//
// Unrecognized keys are ignored rather than rejected, so rules can be
// partially disabled by commenting them out.

type rulesetYAML struct {
	NameRules []nameRuleYAML `yaml:"name_rules"`
	Spec      specYAML       `yaml:"spec"`
}

type nameRuleYAML struct {
	Key   string    `yaml:"key"`
	Regex string    `yaml:"regex"`
	Group groupSpec `yaml:"group"`
}

type specYAML struct {
	Collision        string            `yaml:"collision"`
	ColonKeys        map[string]string `yaml:"colon_keys"`
	NonColonPatterns []patternYAML     `yaml:"non_colon_patterns"`
}

// patternYAML holds one non-colon rule. Exactly which variant it compiles to
// is decided by which matcher key is present (see compilePattern).
type patternYAML struct {
	Key         string   `yaml:"key"`
	Regex       string   `yaml:"regex"`
	Groups      []int    `yaml:"groups"`
	Extract     string   `yaml:"extract"`
	ExtractAll  string   `yaml:"extract_all"`
	Contains    string   `yaml:"contains"`
	ContainsAny []string `yaml:"contains_any"`
	EndsWith    string   `yaml:"endswith"`
	SplitOn     string   `yaml:"split_on"`
	Value       string   `yaml:"value"`
}

// groupSpec accepts either a single group index or an ordered list of
// indices. The zero value means "group 1".
type groupSpec []int

func (g *groupSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var n int
		if err := node.Decode(&n); err != nil {
			return err
		}
		*g = []int{n}
		return nil
	case yaml.SequenceNode:
		var ns []int
		if err := node.Decode(&ns); err != nil {
			return err
		}
		*g = ns
		return nil
	default:
		return fmt.Errorf("group must be an index or a list of indices")
	}
}

// MalformedRulesetError reports a ruleset that failed to compile or
// validate. It is fatal at load time, before any listing is processed.
type MalformedRulesetError struct {
	Category string
	Path     string // config location, e.g. "name_rules[1].regex"
	Err      error
}

func (e *MalformedRulesetError) Error() string {
	return fmt.Sprintf("malformed ruleset %q: %s: %v", e.Category, e.Path, e.Err)
}

func (e *MalformedRulesetError) Unwrap() error { return e.Err }

// fieldName validates the lowercase/underscore canonical field convention.
var fieldName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// compileRuleset turns the raw YAML for one category into an immutable
// CategoryRuleset. Every pattern is compiled here so malformed rules surface
// at startup, never during per-listing extraction.
func compileRuleset(category string, raw rulesetYAML) (*CategoryRuleset, error) {
	fail := func(path string, err error) error {
		return &MalformedRulesetError{Category: category, Path: path, Err: err}
	}

	if len(raw.NameRules) == 0 {
		return nil, fail("name_rules", fmt.Errorf("at least one name rule is required"))
	}

	rs := &CategoryRuleset{
		Category:  category,
		ColonKeys: make(map[string]string, len(raw.Spec.ColonKeys)),
		Collision: LastWins,
	}

	switch raw.Spec.Collision {
	case "", string(LastWins):
	case string(FirstWins):
		rs.Collision = FirstWins
	default:
		return nil, fail("spec.collision", fmt.Errorf("unknown policy %q", raw.Spec.Collision))
	}

	for i, nr := range raw.NameRules {
		path := fmt.Sprintf("name_rules[%d]", i)
		key := nr.Key
		if key == "" {
			key = "name"
		}
		if !fieldName.MatchString(key) {
			return nil, fail(path+".key", fmt.Errorf("invalid field name %q", key))
		}
		re, err := regexp.Compile(nr.Regex)
		if err != nil {
			return nil, fail(path+".regex", err)
		}
		groups := []int(nr.Group)
		if len(groups) == 0 {
			groups = []int{1}
		}
		for _, g := range groups {
			if g < 0 || g > re.NumSubexp() {
				return nil, fail(path+".group", fmt.Errorf("group %d out of range (pattern has %d groups)", g, re.NumSubexp()))
			}
		}
		rs.NameRules = append(rs.NameRules, NameRule{Key: key, Regex: re, Groups: groups})
	}

	for label, field := range raw.Spec.ColonKeys {
		if !fieldName.MatchString(field) {
			return nil, fail(fmt.Sprintf("spec.colon_keys[%q]", label), fmt.Errorf("invalid field name %q", field))
		}
		rs.ColonKeys[label] = field
	}

	for i, p := range raw.Spec.NonColonPatterns {
		path := fmt.Sprintf("spec.non_colon_patterns[%d]", i)
		sr, err := compilePattern(p)
		if err != nil {
			return nil, fail(path, err)
		}
		rs.SegmentRules = append(rs.SegmentRules, sr)
	}

	return rs, nil
}

// compilePattern selects the rule variant for one non-colon pattern entry.
// Precedence when several matcher keys appear on a single rule follows the
// most specific extractor: extract_all, extract, regex+groups, split_on,
// contains_any, contains, endswith, bare regex.
func compilePattern(p patternYAML) (SegmentRule, error) {
	if !fieldName.MatchString(p.Key) {
		return nil, fmt.Errorf("invalid field name %q", p.Key)
	}

	switch {
	case p.ExtractAll != "":
		re, err := regexp.Compile(p.ExtractAll)
		if err != nil {
			return nil, fmt.Errorf("extract_all: %w", err)
		}
		return ExtractAll{Key: p.Key, Regex: re}, nil

	case p.Extract != "":
		re, err := regexp.Compile(p.Extract)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		return ExtractFirst{Key: p.Key, Regex: re}, nil

	case p.Regex != "" && len(p.Groups) > 0:
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("regex: %w", err)
		}
		for _, g := range p.Groups {
			if g < 0 || g > re.NumSubexp() {
				return nil, fmt.Errorf("groups: group %d out of range (pattern has %d groups)", g, re.NumSubexp())
			}
		}
		return RegexCapture{Key: p.Key, Regex: re, Groups: p.Groups}, nil

	case p.SplitOn != "":
		return SplitOn{Key: p.Key, Sep: p.SplitOn, Contains: p.Contains}, nil

	case len(p.ContainsAny) > 0:
		return ContainsAny{Key: p.Key, Candidates: p.ContainsAny, Value: p.Value}, nil

	case p.Contains != "":
		return Contains{Key: p.Key, Substr: p.Contains, Value: p.Value}, nil

	case p.EndsWith != "":
		return EndsWith{Key: p.Key, Suffix: p.EndsWith, Value: p.Value}, nil

	case p.Regex != "":
		// A bare regex with no group list behaves like extract: group 1
		// when present, full match otherwise.
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("regex: %w", err)
		}
		return ExtractFirst{Key: p.Key, Regex: re}, nil

	default:
		return nil, fmt.Errorf("rule %q has no matcher (want one of regex, extract, extract_all, contains, contains_any, endswith, split_on)", p.Key)
	}
}
