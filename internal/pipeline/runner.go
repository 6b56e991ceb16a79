package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	csvparser "partsetl/internal/parser/csv"

	"partsetl/internal/cleaner"
	"partsetl/internal/extract"
	"partsetl/internal/htmlsource"
	"partsetl/internal/listing"
	"partsetl/internal/metrics"
	"partsetl/internal/rules"
	"partsetl/internal/storage"
)

// Logger is the minimal logging interface used by the pipeline.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Runner executes a pipeline config end to end: rows in, records out.
type Runner struct {
	Logger Logger

	// NewRepository is a storage factory seam; nil means storage.New.
	NewRepository func(ctx context.Context, cfg storage.Config) (storage.Repository, error)

	// LoadRows is a source seam so unit tests can inject deterministic rows
	// without files; nil means the csv/html sources.
	LoadRows func(ctx context.Context, cs CategorySource) ([]listing.Row, error)
}

// NewDefaultRunner returns a Runner wired to the real sources and storage
// factory.
func NewDefaultRunner() *Runner {
	return &Runner{
		NewRepository: storage.New,
	}
}

func (r *Runner) logf() func(format string, v ...any) {
	if r.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return r.Logger.Printf
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Run processes every configured category. Ruleset compilation failures are
// fatal before any listing is touched; per-listing failures are counted and
// logged but never abort sibling listings. A failing category source is
// reported and the remaining categories still run; the first such error is
// returned at the end.
func (r *Runner) Run(ctx context.Context, cfg Config) error {
	logf := r.logf()

	for _, iss := range Validate(cfg) {
		if iss.Severity == SeverityError {
			return fmt.Errorf("invalid config: %s: %s", iss.Path, iss.Message)
		}
		logf("config warning: %s: %s", iss.Path, iss.Message)
	}

	// Fail fast: a malformed ruleset must surface before any listing runs.
	reg, err := rules.LoadFile(cfg.Rules)
	if err != nil {
		return err
	}
	ex := extract.New(reg)

	var cln *cleaner.Cleaner
	if cfg.CleanRules != "" {
		if cln, err = cleaner.LoadFile(cfg.CleanRules); err != nil {
			return err
		}
	}

	var prices map[int64]int64
	if cfg.PriceCSV != "" {
		if prices, err = LoadPriceMap(cfg.PriceCSV); err != nil {
			return err
		}
		logf("stage=price_map ok entries=%d", len(prices))
	}

	newRepo := r.NewRepository
	if newRepo == nil {
		newRepo = storage.New
	}
	repo, err := newRepo(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	var firstErr error
	for _, cs := range cfg.Categories {
		if err := r.runCategory(ctx, cfg, cs, ex, cln, prices, repo); err != nil {
			logf("category %s failed: %v", cs.Category, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("category %s: %w", cs.Category, err)
			}
		}
	}
	return firstErr
}

func (r *Runner) runCategory(
	ctx context.Context,
	cfg Config,
	cs CategorySource,
	ex *extract.Extractor,
	cln *cleaner.Cleaner,
	prices map[int64]int64,
	repo storage.Repository,
) error {
	logf := r.logf()
	start := time.Now()

	rows, err := r.loadRows(ctx, cs)
	if err != nil {
		return err
	}

	// Clean before extraction: overseas/used/server-grade listings never
	// reach the rule engine.
	kept := rows[:0:0]
	dropped := 0
	for _, row := range rows {
		if cln != nil {
			if drop, term := cln.Drop(cs.Category, row.Name); drop {
				dropped++
				logf("drop line=%d category=%s term=%q name=%q", row.Line, cs.Category, term, row.Name)
				continue
			}
		}
		kept = append(kept, row)
	}

	rejected := 0
	results := extractAll(ctx, ex, cs.Category, kept, cfg.Runtime.Workers, func(line int, err error) {
		rejected++
		logf("reject line=%d category=%s: %v", line, cs.Category, err)
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	unmatchedSegs := 0
	products := make([]storage.Product, 0, len(results))
	for _, e := range results {
		unmatchedSegs += len(e.Unmatched)
		products = append(products, buildProduct(cs.Category, e, prices))
	}

	batchSize := cfg.Runtime.BatchSize
	if batchSize <= 0 {
		batchSize = 256
	}
	var written int64
	for lo := 0; lo < len(products); lo += batchSize {
		hi := min(lo+batchSize, len(products))
		n, err := repo.UpsertProducts(ctx, products[lo:hi])
		if err != nil {
			return fmt.Errorf("upsert batch [%d:%d]: %w", lo, hi, err)
		}
		written += n
		metrics.IncCounter("parts_batches_total", 1, metrics.Labels{"category": cs.Category})
	}

	labels := metrics.Labels{"category": cs.Category}
	metrics.IncCounter("parts_listings_total", float64(len(results)), metrics.Labels{"kind": "extracted", "category": cs.Category})
	if dropped > 0 {
		metrics.IncCounter("parts_listings_total", float64(dropped), metrics.Labels{"kind": "dropped", "category": cs.Category})
	}
	if rejected > 0 {
		metrics.IncCounter("parts_listings_total", float64(rejected), metrics.Labels{"kind": "rejected", "category": cs.Category})
	}
	metrics.ObserveHistogram("parts_category_duration_seconds", time.Since(start).Seconds(), labels)

	logf("stage=category ok category=%s rows=%d dropped=%d rejected=%d written=%d unmatched_segments=%d duration=%s",
		cs.Category, len(rows), dropped, rejected, written, unmatchedSegs,
		time.Since(start).Truncate(time.Millisecond))
	return nil
}

// buildProduct converts one extraction result into its storage shape:
// identity fields at the top level, everything else under Spec. The parsed
// name wins over the raw listing name when a name rule matched.
func buildProduct(category string, e extracted, prices map[int64]int64) storage.Product {
	name := e.Row.Name
	if parsed, ok := e.Record.String("name"); ok && parsed != "" {
		name = parsed
	}

	spec := make(map[string]any, len(e.Record))
	for field, v := range e.Record {
		if field == "name" {
			continue
		}
		spec[field] = v
	}

	p := storage.Product{
		Category:   category,
		ID:         e.Row.ID,
		Name:       name,
		ImageURL:   e.Row.ImageURL,
		ProductURL: e.Row.ProductURL,
		Spec:       spec,
	}
	if price, ok := prices[e.Row.ID]; ok {
		p.Price = &price
		p.InStock = true
	}
	return p
}

// loadRows reads the raw listings for one category source.
func (r *Runner) loadRows(ctx context.Context, cs CategorySource) ([]listing.Row, error) {
	if r.LoadRows != nil {
		return r.LoadRows(ctx, cs)
	}

	switch cs.Kind {
	case "csv":
		f, err := os.Open(cs.CSV.Path)
		if err != nil {
			return nil, fmt.Errorf("open listings csv: %w", err)
		}
		defer f.Close()
		logf := r.logf()
		return csvparser.Collect(ctx, f, csvparser.Options{Encoding: cs.CSV.Encoding}, func(line int, err error) {
			logf("bad row line=%d category=%s: %v", line, cs.Category, err)
		})

	case "html":
		sel, err := htmlsource.LoadConfig(cs.HTML.Selectors)
		if err != nil {
			return nil, err
		}
		pages, err := htmlsource.ReadDir(cs.HTML.Dir)
		if err != nil {
			return nil, err
		}
		var rows []listing.Row
		for _, page := range pages {
			pageRows, err := htmlsource.ExtractListings(page.HTML, sel)
			if err != nil {
				return nil, fmt.Errorf("page %s: %w", page.Name, err)
			}
			// Renumber across pages so Line stays unique per category.
			for i := range pageRows {
				pageRows[i].Line = len(rows) + i + 1
			}
			rows = append(rows, pageRows...)
		}
		return rows, nil

	default:
		return nil, errors.New("unknown source kind " + cs.Kind)
	}
}
