package htmlsource

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"partsetl/internal/listing"
)

// ExtractListings parses a product-list HTML page and returns one listing
// row per record element, in DOM order.
//
// Resilience: a record whose name or id cannot be extracted is skipped so
// one broken element never fails the whole page. Missing optional fields
// simply stay empty.
func ExtractListings(html string, cfg *Config) ([]listing.Row, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var rows []listing.Row
	doc.Find(cfg.RecordSelector).Each(func(i int, rec *goquery.Selection) {
		name := fieldValue(rec, cfg.Name)
		if name == "" {
			return
		}

		row := listing.Row{
			Name:       name,
			Spec:       fieldValue(rec, cfg.Spec),
			ImageURL:   fieldValue(rec, cfg.ImageURL),
			ProductURL: fieldValue(rec, cfg.ProductURL),
			Line:       i + 1,
		}
		if raw := fieldValue(rec, cfg.ID); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return
			}
			row.ID = id
		}
		rows = append(rows, row)
	})
	return rows, nil
}

// fieldValue extracts one field from a record element: first selector match,
// text or attribute, trimmed, then the optional regex filter.
func fieldValue(rec *goquery.Selection, f Field) string {
	if f.Selector == "" {
		return ""
	}
	sel := rec.Find(f.Selector).First()
	if sel.Length() == 0 {
		return ""
	}

	var v string
	if f.Attr != "" {
		v, _ = sel.Attr(f.Attr)
	} else {
		v = sel.Text()
	}
	v = strings.Join(strings.Fields(v), " ")

	if f.Match != "" {
		// Validated at config load; recompilation here keeps Field self-contained.
		re := regexp.MustCompile(f.Match)
		sm := re.FindStringSubmatch(v)
		if len(sm) == 0 {
			return ""
		}
		if len(sm) > 1 {
			return sm[1]
		}
		return sm[0]
	}
	return v
}
