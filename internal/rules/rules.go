// Package rules defines the declarative per-category extraction ruleset:
// ordered name rules, the colon-key mapping, and the ordered non-colon
// segment rules. Rulesets are compiled once at load time and are immutable
// afterwards, so they can be shared read-only across concurrent extractions.
package rules

import (
	"regexp"
	"strings"
)

// CollisionPolicy controls what happens when two rules write the same
// canonical field for one listing.
type CollisionPolicy string

const (
	// LastWins lets a later-firing rule overwrite an earlier value.
	// This matches the list-order semantics used everywhere else
	// (later, more specific rules override earlier defaults).
	LastWins CollisionPolicy = "last_wins"

	// FirstWins keeps the first extracted value and ignores later ones.
	FirstWins CollisionPolicy = "first_wins"
)

// CategoryRuleset is the compiled ruleset for one product category.
//
// Immutable after Compile; extraction never mutates it.
type CategoryRuleset struct {
	Category string

	// NameRules are applied in order against the full listing string.
	// Every matching rule assigns its target field; the last match wins.
	NameRules []NameRule

	// ColonKeys maps the literal label before ':' in a segment to a
	// canonical field name. Lookup is exact; unknown labels are dropped.
	ColonKeys map[string]string

	// SegmentRules are evaluated in order against each non-colon segment.
	SegmentRules []SegmentRule

	// Collision is the same-field merge policy across segments.
	Collision CollisionPolicy
}

// NameRule extracts one or more capture groups from the full listing string
// into a single target field (default "name"). Multi-group captures are
// joined with a single space.
type NameRule struct {
	Key    string
	Regex  *regexp.Regexp
	Groups []int
}

// Apply returns the rule's value for text, or ok=false if the pattern does
// not match.
func (r NameRule) Apply(text string) (string, bool) {
	m := r.Regex.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	parts := make([]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		parts = append(parts, m[g])
	}
	return strings.TrimSpace(strings.Join(parts, " ")), true
}

// SegmentRule is the shared "attempt to extract from one text segment"
// capability implemented by every non-colon rule variant.
//
// Match returns the value to record (a string or an ordered []string) and
// whether the rule fired. Non-match is a normal, silent outcome.
// Matching is case-sensitive and performs no normalization; segments may mix
// Latin, digits and Hangul freely.
type SegmentRule interface {
	// Field is the canonical output field this rule targets.
	Field() string

	Match(segment string) (any, bool)
}

// RegexCapture returns specific capture group(s) on match.
// A single group yields a string; multiple groups yield an ordered []string.
type RegexCapture struct {
	Key    string
	Regex  *regexp.Regexp
	Groups []int
}

func (r RegexCapture) Field() string { return r.Key }

func (r RegexCapture) Match(segment string) (any, bool) {
	m := r.Regex.FindStringSubmatch(segment)
	if m == nil {
		return nil, false
	}
	if len(r.Groups) == 1 {
		return m[r.Groups[0]], true
	}
	vals := make([]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		vals = append(vals, m[g])
	}
	return vals, true
}

// ExtractFirst returns the first match of the pattern: capture group 1 when
// the pattern has groups, otherwise the full match.
type ExtractFirst struct {
	Key   string
	Regex *regexp.Regexp
}

func (r ExtractFirst) Field() string { return r.Key }

func (r ExtractFirst) Match(segment string) (any, bool) {
	m := r.Regex.FindStringSubmatch(segment)
	if m == nil {
		return nil, false
	}
	if len(m) > 1 {
		return m[1], true
	}
	return m[0], true
}

// ExtractAll returns every match of the pattern in source order, duplicates
// included (group 1 per match when the pattern has groups).
type ExtractAll struct {
	Key   string
	Regex *regexp.Regexp
}

func (r ExtractAll) Field() string { return r.Key }

func (r ExtractAll) Match(segment string) (any, bool) {
	ms := r.Regex.FindAllStringSubmatch(segment, -1)
	if ms == nil {
		return nil, false
	}
	vals := make([]string, 0, len(ms))
	for _, m := range ms {
		if len(m) > 1 {
			vals = append(vals, m[1])
		} else {
			vals = append(vals, m[0])
		}
	}
	return vals, true
}

// Contains fires when the segment contains a literal substring. The recorded
// value is Value when set, otherwise the whole segment.
type Contains struct {
	Key    string
	Substr string
	Value  string
}

func (r Contains) Field() string { return r.Key }

func (r Contains) Match(segment string) (any, bool) {
	if !strings.Contains(segment, r.Substr) {
		return nil, false
	}
	if r.Value != "" {
		return r.Value, true
	}
	return segment, true
}

// ContainsAny fires when any candidate substring is present. The recorded
// value is the first candidate found (in candidate order), or Value when set.
type ContainsAny struct {
	Key        string
	Candidates []string
	Value      string
}

func (r ContainsAny) Field() string { return r.Key }

func (r ContainsAny) Match(segment string) (any, bool) {
	for _, c := range r.Candidates {
		if strings.Contains(segment, c) {
			if r.Value != "" {
				return r.Value, true
			}
			return c, true
		}
	}
	return nil, false
}

// EndsWith fires when the segment ends with a literal suffix. The recorded
// value is Value when set, otherwise the whole segment.
type EndsWith struct {
	Key    string
	Suffix string
	Value  string
}

func (r EndsWith) Field() string { return r.Key }

func (r EndsWith) Match(segment string) (any, bool) {
	if !strings.HasSuffix(segment, r.Suffix) {
		return nil, false
	}
	if r.Value != "" {
		return r.Value, true
	}
	return segment, true
}

// SplitOn splits the segment on a separator into an ordered list of trimmed
// parts. When Contains is set it acts as the firing condition; otherwise the
// rule fires whenever the separator is present.
type SplitOn struct {
	Key      string
	Sep      string
	Contains string
}

func (r SplitOn) Field() string { return r.Key }

func (r SplitOn) Match(segment string) (any, bool) {
	if r.Contains != "" {
		if !strings.Contains(segment, r.Contains) {
			return nil, false
		}
	} else if !strings.Contains(segment, r.Sep) {
		return nil, false
	}
	raw := strings.Split(segment, r.Sep)
	vals := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			vals = append(vals, v)
		}
	}
	return vals, true
}
