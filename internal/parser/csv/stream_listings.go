// Package csv streams raw listing rows out of vendor CSV exports.
//
// Expected canonical columns: ID, Name, Spec, ImageURL, ProductURL. Header
// names are normalized (lowercased, spaces to underscores) and can be
// remapped via Options.HeaderMap; column order in the file is irrelevant.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"partsetl/internal/listing"
)

// Options controls CSV reading behavior.
type Options struct {
	// Encoding is the source charset: "" or "utf-8" for UTF-8, "euc-kr" or
	// "cp949" for legacy Korean exports (decoded via x/text).
	Encoding string

	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// HeaderMap remaps source header names (after normalization) to the
	// canonical column names id, name, spec, image_url, product_url.
	HeaderMap map[string]string

	// LazyQuotes is passed through to encoding/csv.
	LazyQuotes bool
}

// canonical column positions.
const (
	colID = iota
	colName
	colSpec
	colImageURL
	colProductURL
	numCols
)

var canonical = [numCols]string{"id", "name", "spec", "image_url", "product_url"}

// StreamListings reads src and sends one listing.Row per usable CSV record
// to out in file order.
//
// Row-level problems (short records, unparsable IDs, empty names) are
// reported through onErr with the 1-based line number and the row is
// skipped; they never abort the stream. Fatal setup problems (unreadable
// header, unknown encoding) return an error.
//
// On ctx cancellation the stream stops with ctx.Err().
func StreamListings(
	ctx context.Context,
	src io.Reader,
	opt Options,
	out chan<- listing.Row,
	onErr func(line int, err error),
) error {
	reportErr := func(line int, err error) {
		if onErr != nil {
			onErr(line, err)
		}
	}

	decoded, err := decodeReader(src, opt.Encoding)
	if err != nil {
		return err
	}

	cr := csv.NewReader(decoded)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = opt.LazyQuotes
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}

	var line int
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	hdr, err := readRec()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	colIx := mapHeader(hdr, opt.HeaderMap)
	if colIx[colName] < 0 {
		return fmt.Errorf("header has no name column")
	}

	field := func(rec []string, col int) string {
		si := colIx[col]
		if si < 0 || si >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[si])
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			reportErr(line, fmt.Errorf("csv read: %w", err))
			continue
		}

		row := listing.Row{
			Line:       line,
			Name:       field(rec, colName),
			Spec:       field(rec, colSpec),
			ImageURL:   field(rec, colImageURL),
			ProductURL: field(rec, colProductURL),
		}
		if row.Name == "" {
			reportErr(line, fmt.Errorf("empty name"))
			continue
		}
		if raw := field(rec, colID); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				reportErr(line, fmt.Errorf("bad id %q: %w", raw, err))
				continue
			}
			row.ID = id
		}

		select {
		case out <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Collect is the buffered form of StreamListings for small inputs.
func Collect(ctx context.Context, src io.Reader, opt Options, onErr func(line int, err error)) ([]listing.Row, error) {
	out := make(chan listing.Row, 64)
	var rows []listing.Row

	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		errCh <- StreamListings(ctx, src, opt, out, onErr)
	}()
	for row := range out {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}

// mapHeader resolves each canonical column to its source index, or -1 when
// the column is absent. The first header cell may carry a UTF-8 BOM.
func mapHeader(hdr []string, headerMap map[string]string) [numCols]int {
	srcToIdx := make(map[string]int, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if mapped, ok := headerMap[h]; ok {
			h = mapped
		} else {
			h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
			// Vendor exports write ImageURL / ProductURL without separators.
			h = strings.ReplaceAll(h, "imageurl", "image_url")
			h = strings.ReplaceAll(h, "producturl", "product_url")
		}
		srcToIdx[h] = i
	}

	var colIx [numCols]int
	for c := range canonical {
		colIx[c] = -1
		if si, ok := srcToIdx[canonical[c]]; ok {
			colIx[c] = si
		}
	}
	return colIx
}

// decodeReader wraps src with a charset decoder when the export is not
// already UTF-8.
func decodeReader(src io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return src, nil
	case "euc-kr", "euckr", "cp949":
		return transform.NewReader(src, korean.EUCKR.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}
