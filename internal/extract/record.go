// Package extract turns one raw product listing string into a flat record of
// canonical fields, driven entirely by a compiled rules.CategoryRuleset.
//
// Extraction is a pure function of (ruleset, input string): it performs no
// I/O, holds no locks, and never mutates the ruleset, so listings can be
// processed on any number of goroutines sharing one registry.
package extract

import "partsetl/internal/rules"

// Record maps canonical field names to extracted values. A value is either a
// string or an ordered []string (for multi-valued fields such as extract_all
// results or comma-separated colon values).
//
// An empty or partially populated record is valid output, not an error;
// callers decide whether an under-populated record is acceptable.
type Record map[string]any

// set merges one extracted value under the given collision policy. The
// policy is applied here, centrally, so last-writer-wins is an explicit
// merge rule rather than an accident of iteration order.
func (r Record) set(field string, v any, policy rules.CollisionPolicy) {
	if policy == rules.FirstWins {
		if _, ok := r[field]; ok {
			return
		}
	}
	r[field] = v
}

// Values returns the field as an ordered string slice regardless of whether
// it was extracted as a single value or a list. ok is false when the field
// is absent.
func (r Record) Values(field string) ([]string, bool) {
	switch v := r[field].(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	default:
		return nil, false
	}
}

// String returns the field as a single string. List values return their
// first element.
func (r Record) String(field string) (string, bool) {
	vs, ok := r.Values(field)
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}
