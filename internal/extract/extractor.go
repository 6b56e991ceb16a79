package extract

import "partsetl/internal/rules"

// Extractor assembles records by running the name extractor and the segment
// resolver against a shared, immutable rule registry.
type Extractor struct {
	reg *rules.Registry
}

// New returns an Extractor backed by reg.
func New(reg *rules.Registry) *Extractor {
	return &Extractor{reg: reg}
}

// Extract produces a record from a single raw listing string. The name rules
// run over the full string; the segment splitter runs over the same string
// when the listing has no separate specification section.
//
// It returns rules.ErrUnknownCategory (wrapped) when the category has no
// registered ruleset. A record with only "name" populated, or even an empty
// record, is valid output: no-match is tolerated everywhere, never an error.
func (e *Extractor) Extract(category, raw string) (Record, error) {
	rs, err := e.reg.Lookup(category)
	if err != nil {
		return nil, err
	}
	rec, _ := Assemble(rs, raw, raw)
	return rec, nil
}

// ExtractParts is the two-part form used by the pipeline, where listings
// arrive with the product name and the specification text already separate.
func (e *Extractor) ExtractParts(category, name, spec string) (Record, []string, error) {
	rs, err := e.reg.Lookup(category)
	if err != nil {
		return nil, nil, err
	}
	rec, unmatched := Assemble(rs, name, spec)
	return rec, unmatched, nil
}

// Assemble runs the full extraction for one listing against a resolved
// ruleset: name rules over nameText, then the segment splitter and field
// resolver over specText, merging everything into one flat record. Spec
// fields extracted from later segments overwrite earlier ones according to
// the ruleset's collision policy.
//
// The second return value lists segments no rule matched, in source order,
// for diagnostics; partial parse coverage is expected and tolerated.
func Assemble(rs *rules.CategoryRuleset, nameText, specText string) (Record, []string) {
	rec := make(Record)
	for field, v := range extractName(rs, nameText) {
		rec[field] = v
	}

	var unmatched []string
	for _, seg := range splitSegments(specText) {
		if !resolveSegment(rs, seg, rec) {
			unmatched = append(unmatched, seg.Text)
		}
	}
	return rec, unmatched
}
