package extract

import (
	"strings"

	"partsetl/internal/rules"
)

// resolveSegment emits zero or more canonical field:value pairs for one
// segment into rec and reports whether anything matched.
//
// Colon segments resolve through the ruleset's exact colon-key mapping;
// unrecognized labels are dropped silently (rulesets intentionally leave
// low-value keys unmapped). Non-colon segments are evaluated against the
// ordered rule list; every firing rule emits its field.
func resolveSegment(rs *rules.CategoryRuleset, seg Segment, rec Record) bool {
	if seg.HasColon {
		field, ok := rs.ColonKeys[seg.Label]
		if !ok {
			return false
		}
		rec.set(field, colonValue(seg.Value), rs.Collision)
		return true
	}

	matched := false
	for _, rule := range rs.SegmentRules {
		if v, ok := rule.Match(seg.Text); ok {
			rec.set(rule.Field(), v, rs.Collision)
			matched = true
		}
	}
	return matched
}

// colonValue keeps single values as strings and turns comma-separated values
// into ordered lists (e.g. supported memory frequencies).
func colonValue(value string) any {
	if !strings.Contains(value, ",") {
		return value
	}
	raw := strings.Split(value, ",")
	vals := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			vals = append(vals, v)
		}
	}
	return vals
}
