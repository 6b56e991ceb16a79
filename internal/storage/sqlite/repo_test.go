package sqlite

import (
	"context"
	"testing"

	"partsetl/internal/storage"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()

	repo, err := New(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(repo.Close)

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return repo.(*Repo)
}

func price(v int64) *int64 { return &v }

// TestUpsertProductsRoundTrip writes a product twice with changed fields and
// verifies the second write replaces rather than duplicates, including a spec
// field the ruleset stopped emitting.
func TestUpsertProductsRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	first := storage.Product{
		Category: "CPU", ID: 101, Name: "인텔 코어 i9-14900K",
		ImageURL: "http://img/101.jpg", ProductURL: "http://prod/101",
		Price: price(698000), InStock: true,
		Spec: map[string]any{
			"socket":        "LGA1700",
			"pcie_versions": []string{"5.0", "4.0"},
			"tdp":           "125W",
		},
	}
	if n, err := repo.UpsertProducts(ctx, []storage.Product{first}); err != nil || n != 1 {
		t.Fatalf("first upsert: n=%d err=%v", n, err)
	}

	// Re-run with a price drop and without the tdp field.
	second := first
	second.Price = price(649000)
	second.Spec = map[string]any{
		"socket":        "LGA1700",
		"pcie_versions": []string{"5.0", "4.0"},
	}
	if n, err := repo.UpsertProducts(ctx, []storage.Product{second}); err != nil || n != 1 {
		t.Fatalf("second upsert: n=%d err=%v", n, err)
	}

	var count int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		t.Fatalf("count products: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 product row, got %d", count)
	}

	var gotPrice int64
	if err := repo.db.QueryRowContext(ctx,
		`SELECT price FROM products WHERE category = 'CPU' AND product_id = 101`,
	).Scan(&gotPrice); err != nil {
		t.Fatalf("read price: %v", err)
	}
	if gotPrice != 649000 {
		t.Fatalf("price: got %d", gotPrice)
	}

	// Spec rows were replaced wholesale: tdp is gone, the list kept order.
	rows, err := repo.db.QueryContext(ctx,
		`SELECT field, ord, value FROM product_specs WHERE product_id = 101 ORDER BY field, ord`,
	)
	if err != nil {
		t.Fatalf("read specs: %v", err)
	}
	defer rows.Close()

	type specRow struct {
		field string
		ord   int
		value string
	}
	var got []specRow
	for rows.Next() {
		var sr specRow
		if err := rows.Scan(&sr.field, &sr.ord, &sr.value); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, sr)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}

	want := []specRow{
		{"pcie_versions", 0, "5.0"},
		{"pcie_versions", 1, "4.0"},
		{"socket", 0, "LGA1700"},
	}
	if len(got) != len(want) {
		t.Fatalf("spec rows: got %#v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("spec row %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

// TestUpsertProductsNilPrice verifies out-of-stock products store a NULL
// price.
func TestUpsertProductsNilPrice(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	p := storage.Product{Category: "SSD", ID: 7, Name: "단종 모델", Spec: map[string]any{}}
	if _, err := repo.UpsertProducts(ctx, []storage.Product{p}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var priceIsNull bool
	if err := repo.db.QueryRowContext(ctx,
		`SELECT price IS NULL FROM products WHERE product_id = 7`,
	).Scan(&priceIsNull); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !priceIsNull {
		t.Fatalf("expected NULL price")
	}
}

func TestUpsertProductsEmptyBatch(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	if n, err := repo.UpsertProducts(context.Background(), nil); err != nil || n != 0 {
		t.Fatalf("empty batch: n=%d err=%v", n, err)
	}
}
