// Package postgres is the Postgres storage backend, built on pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"partsetl/internal/storage"
)

// Repo implements storage.Repository for Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New creates a connection pool for cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

const schemaSQL = `
CREATE TABLE IF NOT EXISTS products (
	category    TEXT NOT NULL,
	product_id  BIGINT NOT NULL,
	name        TEXT NOT NULL,
	image_url   TEXT,
	product_url TEXT,
	price       BIGINT,
	in_stock    BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (category, product_id)
);
CREATE TABLE IF NOT EXISTS product_specs (
	category   TEXT NOT NULL,
	product_id BIGINT NOT NULL,
	field      TEXT NOT NULL,
	ord        INT NOT NULL,
	value      TEXT NOT NULL,
	PRIMARY KEY (category, product_id, field, ord)
);
`

func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: create schema: %w", err)
	}
	return nil
}

// UpsertProducts batches all statements for the slice into a single pgx
// batch inside one transaction: ON CONFLICT upsert per product, then a
// wholesale spec replace.
func (r *Repo) UpsertProducts(ctx context.Context, products []storage.Product) (int64, error) {
	if len(products) == 0 {
		return 0, nil
	}

	const upsertSQL = `
INSERT INTO products (category, product_id, name, image_url, product_url, price, in_stock)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (category, product_id) DO UPDATE SET
	name = EXCLUDED.name,
	image_url = EXCLUDED.image_url,
	product_url = EXCLUDED.product_url,
	price = EXCLUDED.price,
	in_stock = EXCLUDED.in_stock`

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(upsertSQL, p.Category, p.ID, p.Name, p.ImageURL, p.ProductURL, p.Price, p.InStock)
		batch.Queue(`DELETE FROM product_specs WHERE category = $1 AND product_id = $2`, p.Category, p.ID)
		for _, sr := range storage.SpecRows(p.Spec) {
			batch.Queue(
				`INSERT INTO product_specs (category, product_id, field, ord, value) VALUES ($1, $2, $3, $4, $5)`,
				p.Category, p.ID, sr.Field, sr.Ord, sr.Value,
			)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("postgres: batch statement %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int64(len(products)), nil
}
