package pipeline

import (
	"context"
	"sort"
	"sync"

	"partsetl/internal/extract"
	"partsetl/internal/listing"
)

// extracted pairs a listing with its record.
type extracted struct {
	Row       listing.Row
	Record    extract.Record
	Unmatched []string
}

// extractAll fans rows out to a fixed pool of extraction workers and
// collects the results.
//
// Extraction is a pure function of the shared immutable ruleset, so workers
// need no synchronization beyond the channels. Collection order is
// irrelevant (listing A never depends on listing B); results are sorted by
// source line afterwards only to keep logs and storage batches stable.
//
// Per-row errors (unknown category) go to onErr with the row's line number
// and never abort sibling rows. onErr runs on the collecting goroutine, so
// callers need no synchronization in the callback.
func extractAll(
	ctx context.Context,
	ex *extract.Extractor,
	category string,
	rows []listing.Row,
	workers int,
	onErr func(line int, err error),
) []extracted {
	if workers <= 0 {
		workers = 4
	}

	type outcome struct {
		res extracted
		err error
	}

	in := make(chan listing.Row)
	out := make(chan outcome, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for row := range in {
				rec, unmatched, err := ex.ExtractParts(category, row.Name, row.Spec)
				select {
				case out <- outcome{res: extracted{Row: row, Record: rec, Unmatched: unmatched}, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(in)
		for _, row := range rows {
			select {
			case in <- row:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]extracted, 0, len(rows))
	for o := range out {
		if o.err != nil {
			if onErr != nil {
				onErr(o.res.Row.Line, o.err)
			}
			continue
		}
		results = append(results, o.res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Row.Line < results[j].Row.Line })
	return results
}
