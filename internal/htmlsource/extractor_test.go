package htmlsource

import (
	"os"
	"path/filepath"
	"testing"
)

const pageHTML = `
<ul>
  <li class="prod_item">
    <div class="thumb_image"><img src="http://img/101.jpg"></div>
    <p class="prod_name"><a href="http://prod?pcode=101">인텔 코어
       i9-14900K</a></p>
    <div class="spec_list">인텔 / 8코어 / 16스레드</div>
    <a class="prod_link" href="http://prod?pcode=101">상품 보기</a>
  </li>
  <li class="prod_item">
    <p class="prod_name"><a href="http://prod?pcode=102">AMD 라이젠7 9700X</a></p>
    <div class="spec_list">AMD / 8코어</div>
    <a class="prod_link" href="http://prod?pcode=102">상품 보기</a>
  </li>
  <li class="prod_item">
    <p class="prod_name"><a></a></p>
  </li>
</ul>
`

func testConfig() *Config {
	return &Config{
		RecordSelector: "li.prod_item",
		ID:             Field{Selector: "a.prod_link", Attr: "href", Match: `pcode=(\d+)`},
		Name:           Field{Selector: "p.prod_name > a"},
		Spec:           Field{Selector: "div.spec_list"},
		ImageURL:       Field{Selector: "div.thumb_image img", Attr: "src"},
		ProductURL:     Field{Selector: "a.prod_link", Attr: "href"},
	}
}

// TestExtractListings covers attribute extraction, the regex filter, text
// whitespace collapsing, and skipping records without a usable name.
func TestExtractListings(t *testing.T) {
	t.Parallel()

	rows, err := ExtractListings(pageHTML, testConfig())
	if err != nil {
		t.Fatalf("ExtractListings: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %#v", len(rows), rows)
	}

	first := rows[0]
	if first.ID != 101 {
		t.Fatalf("id: %d", first.ID)
	}
	// Multi-line element text collapses to single spaces.
	if first.Name != "인텔 코어 i9-14900K" {
		t.Fatalf("name: %q", first.Name)
	}
	if first.Spec != "인텔 / 8코어 / 16스레드" {
		t.Fatalf("spec: %q", first.Spec)
	}
	if first.ImageURL != "http://img/101.jpg" || first.ProductURL != "http://prod?pcode=101" {
		t.Fatalf("urls: %q %q", first.ImageURL, first.ProductURL)
	}

	// Optional fields missing from the element stay empty.
	if rows[1].ImageURL != "" {
		t.Fatalf("image url should be empty: %q", rows[1].ImageURL)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, body string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		return p
	}

	if _, err := LoadConfig(write("ok.json", `{
		"record_selector": "li",
		"name": {"selector": "a"}
	}`)); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	if _, err := LoadConfig(write("no_record.json", `{"name": {"selector": "a"}}`)); err == nil {
		t.Fatalf("missing record_selector must fail")
	}

	if _, err := LoadConfig(write("bad_regex.json", `{
		"record_selector": "li",
		"name": {"selector": "a", "match": "(["}
	}`)); err == nil {
		t.Fatalf("invalid match regex must fail")
	}
}

// TestReadDir verifies only html files are read, in name order, so page_1,
// page_2, ... keep their crawl order.
func TestReadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, f := range []string{"page_2.html", "page_1.html", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("<html>"+f+"</html>"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	pages, err := ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(pages) != 2 || pages[0].Name != "page_1.html" || pages[1].Name != "page_2.html" {
		t.Fatalf("pages: %#v", pages)
	}
}
