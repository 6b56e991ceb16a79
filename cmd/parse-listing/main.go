// Command parse-listing runs one category's ruleset against raw listing
// strings and prints the extracted records as JSON. It exists for rule
// authoring: paste a listing, see the record.
//
// Usage:
//
//	echo 'i9-14900K(소켓LGA1700) / 인텔, 8코어, 16스레드' | parse-listing -rules configs/rules.yaml -category CPU
//
// Each non-empty input line is parsed as one listing; one JSON object is
// printed per line. With -unmatched the segments no rule claimed are included
// under "_unmatched".
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"partsetl/internal/extract"
	"partsetl/internal/rules"
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
	fs := flag.NewFlagSet("parse-listing", flag.ContinueOnError)
	fs.SetOutput(stderr)

	rulesPath := fs.String("rules", "configs/rules.yaml", "ruleset YAML path")
	category := fs.String("category", "", "category to parse as (required, e.g. CPU)")
	showUnmatched := fs.Bool("unmatched", false, "include unmatched segments under _unmatched")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *category == "" {
		fmt.Fprintf(stderr, "missing -category\n")
		return 2
	}

	reg, err := rules.LoadFile(*rulesPath)
	if err != nil {
		fmt.Fprintf(stderr, "load rules: %v\n", err)
		return 2
	}
	rs, err := reg.Lookup(*category)
	if err != nil {
		fmt.Fprintf(stderr, "%v (known: %s)\n", err, strings.Join(reg.Categories(), ", "))
		return 2
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	sc := bufio.NewScanner(stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		rec, unmatched := extract.Assemble(rs, line, line)
		out := map[string]any(rec)
		if *showUnmatched && len(unmatched) > 0 {
			out["_unmatched"] = unmatched
		}
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(stderr, "encode: %v\n", err)
			return 1
		}
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(stderr, "read stdin: %v\n", err)
		return 1
	}
	return 0
}
