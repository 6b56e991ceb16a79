package extract

import "partsetl/internal/rules"

// extractName applies the ruleset's ordered name rules to the full listing
// string. Every rule whose pattern matches assigns its captured group(s) to
// its target field, overwriting any value a previous rule assigned to the
// same field.
//
// The first rule is conventionally a broad default ("everything before the
// first parenthesis"); later rules encode exceptions for naming conventions
// with extra structure, so rule order is part of the ruleset's semantics.
// Name-rule merging is always last-match-wins, independent of the ruleset's
// segment collision policy.
func extractName(rs *rules.CategoryRuleset, text string) map[string]string {
	out := make(map[string]string)
	for _, nr := range rs.NameRules {
		if v, ok := nr.Apply(text); ok {
			out[nr.Key] = v
		}
	}
	return out
}
