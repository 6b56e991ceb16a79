// Package sqlite is the default embedded storage backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"partsetl/internal/storage"
)

// Repo implements storage.Repository for SQLite via modernc.org/sqlite
// (pure Go, no cgo).
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens (or creates) the SQLite database at cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

const schemaSQL = `
CREATE TABLE IF NOT EXISTS products (
	category    TEXT NOT NULL,
	product_id  INTEGER NOT NULL,
	name        TEXT NOT NULL,
	image_url   TEXT,
	product_url TEXT,
	price       INTEGER,
	in_stock    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (category, product_id)
);
CREATE TABLE IF NOT EXISTS product_specs (
	category   TEXT NOT NULL,
	product_id INTEGER NOT NULL,
	field      TEXT NOT NULL,
	ord        INTEGER NOT NULL,
	value      TEXT NOT NULL,
	PRIMARY KEY (category, product_id, field, ord)
);
`

func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("sqlite: create schema: %w", err)
	}
	return nil
}

// UpsertProducts writes products transactionally. The product row is
// upserted via ON CONFLICT DO UPDATE; spec rows are replaced wholesale,
// which keeps re-runs idempotent even when a ruleset stops emitting a field.
func (r *Repo) UpsertProducts(ctx context.Context, products []storage.Product) (int64, error) {
	if len(products) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const upsertSQL = `
INSERT INTO products (category, product_id, name, image_url, product_url, price, in_stock)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (category, product_id) DO UPDATE SET
	name = excluded.name,
	image_url = excluded.image_url,
	product_url = excluded.product_url,
	price = excluded.price,
	in_stock = excluded.in_stock`

	var n int64
	for _, p := range products {
		if _, err := tx.ExecContext(ctx, upsertSQL,
			p.Category, p.ID, p.Name, p.ImageURL, p.ProductURL, p.Price, p.InStock,
		); err != nil {
			return n, fmt.Errorf("sqlite: upsert product %d: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM product_specs WHERE category = ? AND product_id = ?`,
			p.Category, p.ID,
		); err != nil {
			return n, fmt.Errorf("sqlite: clear specs for %d: %w", p.ID, err)
		}
		for _, sr := range storage.SpecRows(p.Spec) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO product_specs (category, product_id, field, ord, value) VALUES (?, ?, ?, ?, ?)`,
				p.Category, p.ID, sr.Field, sr.Ord, sr.Value,
			); err != nil {
				return n, fmt.Errorf("sqlite: insert spec %s for %d: %w", sr.Field, p.ID, err)
			}
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
