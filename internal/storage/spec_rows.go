package storage

import "sort"

// SpecRow is one flattened spec value: single-valued fields get Ord 0,
// list values keep their source order.
type SpecRow struct {
	Field string
	Ord   int
	Value string
}

// SpecRows flattens a spec map into deterministic rows: fields sorted by
// name, list elements in extraction order. Deterministic output keeps
// re-runs byte-identical across backends.
func SpecRows(spec map[string]any) []SpecRow {
	fields := make([]string, 0, len(spec))
	for f := range spec {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var rows []SpecRow
	for _, f := range fields {
		switch v := spec[f].(type) {
		case string:
			rows = append(rows, SpecRow{Field: f, Ord: 0, Value: v})
		case []string:
			for i, s := range v {
				rows = append(rows, SpecRow{Field: f, Ord: i, Value: s})
			}
		}
	}
	return rows
}
