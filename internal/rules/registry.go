package rules

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownCategory is returned by Registry.Lookup for categories with no
// registered ruleset. It is fatal to that single extraction call only; batch
// callers report it per item and continue.
var ErrUnknownCategory = errors.New("unknown category")

// Registry holds the compiled ruleset for every configured category.
//
// A Registry is built once at startup and is read-only afterwards, so it can
// be shared across any number of concurrent extractions without locking.
type Registry struct {
	rulesets map[string]*CategoryRuleset
}

// LoadFile reads a YAML ruleset configuration file and compiles it.
// Compilation failures are *MalformedRulesetError values and should be
// treated as fatal: they must surface before any listing is processed.
func LoadFile(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset file: %w", err)
	}
	return Parse(b)
}

// Parse compiles a YAML ruleset document mapping category names to rulesets.
func Parse(b []byte) (*Registry, error) {
	var doc map[string]rulesetYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse ruleset yaml: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("ruleset config has no categories")
	}

	reg := &Registry{rulesets: make(map[string]*CategoryRuleset, len(doc))}
	for category, raw := range doc {
		rs, err := compileRuleset(category, raw)
		if err != nil {
			return nil, err
		}
		reg.rulesets[category] = rs
	}
	return reg, nil
}

// Lookup returns the ruleset for category, or ErrUnknownCategory.
func (r *Registry) Lookup(category string) (*CategoryRuleset, error) {
	rs, ok := r.rulesets[category]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", category, ErrUnknownCategory)
	}
	return rs, nil
}

// Categories returns the registered category names, sorted.
func (r *Registry) Categories() []string {
	out := make([]string, 0, len(r.rulesets))
	for c := range r.rulesets {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
