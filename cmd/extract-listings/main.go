// Command extract-listings pulls raw listing rows out of saved product-list
// HTML pages using a JSON selector config, and prints them as CSV (the shape
// parts-etl's csv source reads) or JSON.
//
// Usage (stdin):
//
//	cat page.html | extract-listings -selectors configs/selectors/product_list.json
//
// Usage (single file):
//
//	extract-listings -selectors configs/selectors/product_list.json page_1.html
//
// Usage (directory mode, pages merged in file-name order):
//
//	extract-listings -selectors configs/selectors/product_list.json -dir ./pages -format json
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"partsetl/internal/htmlsource"
	"partsetl/internal/listing"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is split out from main so we can unit test the command without spawning
// an OS process.
//
// It returns a Unix-style exit code:
//   - 0 for success
//   - 2 for usage/config errors
//   - 1 for operational/runtime errors
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract-listings", flag.ContinueOnError)
	fs.SetOutput(stderr)

	selectorsPath := fs.String("selectors", "", "selector config JSON path (required)")
	dirFlag := fs.String("dir", "", "directory of HTML pages; positional file or stdin otherwise")
	format := fs.String("format", "csv", "output format (csv, json)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *selectorsPath == "" {
		fmt.Fprintf(stderr, "missing -selectors\n")
		return 2
	}
	if *format != "csv" && *format != "json" {
		fmt.Fprintf(stderr, "unknown -format %q\n", *format)
		return 2
	}

	cfg, err := htmlsource.LoadConfig(*selectorsPath)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	var pages []htmlsource.Page
	if *dirFlag != "" {
		pages, err = htmlsource.ReadDir(*dirFlag)
	} else {
		var page htmlsource.Page
		page, err = htmlsource.ReadInput(fs.Arg(0), stdin)
		pages = []htmlsource.Page{page}
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	var rows []listing.Row
	for _, page := range pages {
		pageRows, err := htmlsource.ExtractListings(page.HTML, cfg)
		if err != nil {
			fmt.Fprintf(stderr, "page %s: %v\n", page.Name, err)
			return 1
		}
		for i := range pageRows {
			pageRows[i].Line = len(rows) + i + 1
		}
		rows = append(rows, pageRows...)
	}

	if err := writeRows(stdout, rows, *format); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func writeRows(w io.Writer, rows []listing.Row, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "name", "spec", "image_url", "product_url"}); err != nil {
		return err
	}
	for _, row := range rows {
		rec := []string{
			strconv.FormatInt(row.ID, 10),
			row.Name,
			row.Spec,
			row.ImageURL,
			row.ProductURL,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
