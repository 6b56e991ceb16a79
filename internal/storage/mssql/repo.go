// Package mssql is the SQL Server storage backend.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"partsetl/internal/storage"
)

// Repo implements storage.Repository for Microsoft SQL Server via
// database/sql and the "sqlserver" driver.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New opens a SQL Server connection pool and validates connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}

	// Conservative defaults for bursty batch loads.
	db.SetMaxOpenConns(64)
	db.SetMaxIdleConns(64)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// SQL Server has no CREATE TABLE IF NOT EXISTS; guard with an object check.
const schemaSQL = `
IF OBJECT_ID('products', 'U') IS NULL
CREATE TABLE products (
	category    NVARCHAR(64) NOT NULL,
	product_id  BIGINT NOT NULL,
	name        NVARCHAR(512) NOT NULL,
	image_url   NVARCHAR(1024),
	product_url NVARCHAR(1024),
	price       BIGINT,
	in_stock    BIT NOT NULL DEFAULT 0,
	PRIMARY KEY (category, product_id)
);
IF OBJECT_ID('product_specs', 'U') IS NULL
CREATE TABLE product_specs (
	category   NVARCHAR(64) NOT NULL,
	product_id BIGINT NOT NULL,
	field      NVARCHAR(128) NOT NULL,
	ord        INT NOT NULL,
	value      NVARCHAR(1024) NOT NULL,
	PRIMARY KEY (category, product_id, field, ord)
);
`

func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("mssql: create schema: %w", err)
	}
	return nil
}

// UpsertProducts deletes and reinserts each product inside one transaction.
// Delete-then-insert is used instead of MERGE: it is idempotent, avoids
// MERGE's locking pitfalls, and the row counts here are small.
func (r *Repo) UpsertProducts(ctx context.Context, products []storage.Product) (int64, error) {
	if len(products) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int64
	for _, p := range products {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM product_specs WHERE category = @p1 AND product_id = @p2`,
			p.Category, p.ID,
		); err != nil {
			return n, fmt.Errorf("mssql: clear specs for %d: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM products WHERE category = @p1 AND product_id = @p2`,
			p.Category, p.ID,
		); err != nil {
			return n, fmt.Errorf("mssql: clear product %d: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (category, product_id, name, image_url, product_url, price, in_stock)
			 VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7)`,
			p.Category, p.ID, p.Name, p.ImageURL, p.ProductURL, p.Price, p.InStock,
		); err != nil {
			return n, fmt.Errorf("mssql: insert product %d: %w", p.ID, err)
		}
		for _, sr := range storage.SpecRows(p.Spec) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO product_specs (category, product_id, field, ord, value)
				 VALUES (@p1, @p2, @p3, @p4, @p5)`,
				p.Category, p.ID, sr.Field, sr.Ord, sr.Value,
			); err != nil {
				return n, fmt.Errorf("mssql: insert spec %s for %d: %w", sr.Field, p.ID, err)
			}
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
