// Package cleaner removes unwanted listings (overseas models, used or
// refurbished items, server-grade parts) before they enter extraction,
// driven by a per-category YAML filter config.
package cleaner

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// The YAML schema, per category:
//
//	CPU:
//	  drop_if_name_contains: [해외, 중고]
//	  drop_if_name_regex: ['Xeon', 'EPYC', 'Opteron']
//
// Categories without an entry pass every row through unchanged.
type categoryYAML struct {
	DropIfNameContains []string `yaml:"drop_if_name_contains"`
	DropIfNameRegex    []string `yaml:"drop_if_name_regex"`
}

type nameRegex struct {
	pattern string // as written in the config, for reporting
	re      *regexp.Regexp
}

type categoryFilter struct {
	contains []string // lowercased
	regexes  []nameRegex
}

// Cleaner decides, per category, whether a listing should be dropped by its
// product name. Matching is case-insensitive. Immutable after load.
type Cleaner struct {
	filters map[string]categoryFilter
}

// LoadFile reads and compiles a YAML filter config. Invalid regexes fail
// here, at startup.
func LoadFile(path string) (*Cleaner, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clean rules: %w", err)
	}
	return Parse(b)
}

// Parse compiles a YAML filter document mapping category names to filters.
func Parse(b []byte) (*Cleaner, error) {
	var doc map[string]categoryYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse clean rules yaml: %w", err)
	}

	c := &Cleaner{filters: make(map[string]categoryFilter, len(doc))}
	for category, raw := range doc {
		f := categoryFilter{}
		for _, s := range raw.DropIfNameContains {
			f.contains = append(f.contains, strings.ToLower(s))
		}
		for _, p := range raw.DropIfNameRegex {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("clean rules %s: %w", category, err)
			}
			f.regexes = append(f.regexes, nameRegex{pattern: p, re: re})
		}
		c.filters[category] = f
	}
	return c, nil
}

// Drop reports whether a listing with the given product name should be
// excluded from category, and the filter term that matched.
func (c *Cleaner) Drop(category, name string) (bool, string) {
	f, ok := c.filters[category]
	if !ok {
		return false, ""
	}
	lower := strings.ToLower(name)
	for _, s := range f.contains {
		if strings.Contains(lower, s) {
			return true, s
		}
	}
	for _, r := range f.regexes {
		if r.re.MatchString(name) {
			return true, r.pattern
		}
	}
	return false, ""
}
