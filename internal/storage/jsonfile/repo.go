// Package jsonfile writes extracted records as per-category JSON files
// (<Category>_parsed.json), the flat-file consumer format.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"partsetl/internal/storage"
)

// record is the on-disk shape: identity fields at the top level, extracted
// spec fields grouped under "spec".
type record struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	ImageURL   string         `json:"image_url"`
	Price      *int64         `json:"price"`
	InStock    bool           `json:"in_stock"`
	ProductURL string         `json:"product_url"`
	Spec       map[string]any `json:"spec"`
}

// Repo implements storage.Repository as JSON files under a directory
// (Config.DSN). State accumulates in memory and each category file is
// rewritten whole on every upsert, so re-runs stay idempotent.
type Repo struct {
	dir string

	mu   sync.Mutex
	byID map[string]map[int64]record // category -> product id -> record
}

func init() {
	storage.Register("jsonfile", New)
}

// New creates a jsonfile repository rooted at cfg.DSN.
func New(_ context.Context, cfg storage.Config) (storage.Repository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("jsonfile: output directory (dsn) is required")
	}
	return &Repo{dir: cfg.DSN, byID: map[string]map[int64]record{}}, nil
}

func (r *Repo) Close() {}

func (r *Repo) EnsureSchema(_ context.Context) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("jsonfile: create output dir: %w", err)
	}
	return nil
}

func (r *Repo) UpsertProducts(_ context.Context, products []storage.Product) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	touched := map[string]bool{}
	for _, p := range products {
		m := r.byID[p.Category]
		if m == nil {
			m = map[int64]record{}
			r.byID[p.Category] = m
		}
		m[p.ID] = record{
			ID:         p.ID,
			Name:       p.Name,
			ImageURL:   p.ImageURL,
			Price:      p.Price,
			InStock:    p.InStock,
			ProductURL: p.ProductURL,
			Spec:       p.Spec,
		}
		touched[p.Category] = true
	}

	for category := range touched {
		if err := r.writeCategory(category); err != nil {
			return 0, err
		}
	}
	return int64(len(products)), nil
}

// writeCategory rewrites one category file with records ordered by id.
func (r *Repo) writeCategory(category string) error {
	m := r.byID[category]
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	recs := make([]record, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, m[id])
	}

	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: marshal %s: %w", category, err)
	}
	path := filepath.Join(r.dir, category+"_parsed.json")
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("jsonfile: write %s: %w", path, err)
	}
	return nil
}
