package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"partsetl/internal/storage"
)

func price(v int64) *int64 { return &v }

// TestUpsertProductsWritesCategoryFile verifies the on-disk shape: one
// <Category>_parsed.json per category, records ordered by id, spec grouped.
func TestUpsertProductsWritesCategoryFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo, err := New(context.Background(), storage.Config{Kind: "jsonfile", DSN: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer repo.Close()
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	products := []storage.Product{
		{
			Category: "CPU", ID: 102, Name: "AMD 라이젠7 9700X",
			Spec: map[string]any{"socket": "AM5"},
		},
		{
			Category: "CPU", ID: 101, Name: "인텔 코어 i9-14900K",
			Price: price(698000), InStock: true,
			Spec: map[string]any{"pcie_versions": []string{"5.0", "4.0"}},
		},
	}
	if n, err := repo.UpsertProducts(context.Background(), products); err != nil || n != 2 {
		t.Fatalf("upsert: n=%d err=%v", n, err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "CPU_parsed.json"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	var recs []map[string]any
	if err := json.Unmarshal(b, &recs); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	// Ordered by id regardless of upsert order.
	if recs[0]["id"].(float64) != 101 || recs[1]["id"].(float64) != 102 {
		t.Fatalf("id order: %v, %v", recs[0]["id"], recs[1]["id"])
	}
	if recs[0]["in_stock"] != true || recs[1]["in_stock"] != false {
		t.Fatalf("in_stock: %v, %v", recs[0]["in_stock"], recs[1]["in_stock"])
	}
	// Out-of-stock products keep an explicit null price.
	if v, present := recs[1]["price"]; !present || v != nil {
		t.Fatalf("price: present=%v value=%v", present, v)
	}

	spec := recs[0]["spec"].(map[string]any)
	if _, ok := spec["pcie_versions"]; !ok {
		t.Fatalf("spec: %#v", spec)
	}
}

// TestUpsertProductsIdempotent verifies a re-run replaces records instead of
// appending them.
func TestUpsertProductsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo, err := New(context.Background(), storage.Config{Kind: "jsonfile", DSN: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer repo.Close()
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	p := storage.Product{Category: "SSD", ID: 7, Name: "이전 이름", Spec: map[string]any{}}
	if _, err := repo.UpsertProducts(context.Background(), []storage.Product{p}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	p.Name = "새 이름"
	if _, err := repo.UpsertProducts(context.Background(), []storage.Product{p}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "SSD_parsed.json"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var recs []map[string]any
	if err := json.Unmarshal(b, &recs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(recs) != 1 || recs[0]["name"] != "새 이름" {
		t.Fatalf("records: %#v", recs)
	}
}

func TestNewRequiresDir(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), storage.Config{Kind: "jsonfile"}); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
