// Package storage persists extracted product records behind a
// backend-agnostic Repository interface. Backends register themselves by
// kind; the pipeline selects one via config.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Product is one extracted record ready for persistence.
type Product struct {
	Category   string
	ID         int64
	Name       string
	ImageURL   string
	ProductURL string

	// Price is nil when the product is absent from the price map.
	Price   *int64
	InStock bool

	// Spec holds the extracted canonical fields; values are string or
	// []string, exactly as produced by extraction.
	Spec map[string]any
}

// Config selects and configures a backend.
type Config struct {
	// Kind is a registered backend kind: "sqlite", "postgres", "mssql",
	// "jsonfile".
	Kind string

	// DSN is backend-specific: a connection string for databases, an output
	// directory for jsonfile.
	DSN string
}

// Repository is the minimal persistence surface the pipeline needs.
//
// Implementations must make UpsertProducts idempotent: re-running a pipeline
// over the same input must not duplicate rows.
type Repository interface {
	// EnsureSchema creates tables (or directories) as needed. Idempotent.
	EnsureSchema(ctx context.Context) error

	// UpsertProducts inserts or replaces the given products, including their
	// spec fields. Returns the number of products written.
	UpsertProducts(ctx context.Context, products []Product) (int64, error)

	// Close releases backend resources. Call once at shutdown.
	Close()
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend factory under a kind. Backends call this
// from init(). Registering an empty kind, a nil factory, or a duplicate kind
// panics: backend selection must never be ambiguous.
func Register(kind string, f factory) {
	if kind == "" {
		panic("storage: Register with empty kind")
	}
	if f == nil {
		panic("storage: Register with nil factory")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic(fmt.Sprintf("storage: duplicate backend kind %q", kind))
	}
	factories[kind] = f
}

// New constructs the repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported backend kind %q", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds (unordered).
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
