// Package listing defines the raw product listing row exchanged between
// producers (CSV exports, saved HTML pages) and the extraction pipeline.
package listing

// Row is one raw listing for a single product, pre-associated with a
// category by its source. Name and Spec are UTF-8 text and may freely mix
// Latin, digits and Hangul.
type Row struct {
	ID         int64
	Name       string
	Spec       string
	ImageURL   string
	ProductURL string

	// Line is the 1-based position in the source (CSV line or DOM record
	// index), kept for diagnostics.
	Line int
}
