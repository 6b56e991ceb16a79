package pipeline

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Job:   "test",
		Rules: "configs/rules.yaml",
		Categories: []CategorySource{
			{Category: "CPU", Kind: "csv", CSV: &CSVSource{Path: "cpu.csv"}},
			{Category: "SSD", Kind: "html", HTML: &HTMLSource{Dir: "pages", Selectors: "sel.json"}},
		},
		Storage: Storage{Kind: "sqlite", DSN: "parts.db"},
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(strings.NewReader(`{
		"job": "nightly",
		"rules": "configs/rules.yaml",
		"categories": [
			{"category": "CPU", "kind": "csv", "csv": {"path": "cpu.csv", "encoding": "euc-kr"}}
		],
		"storage": {"kind": "sqlite", "dsn": "parts.db"},
		"runtime": {"workers": 8, "batch_size": 100}
	}`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Job != "nightly" || cfg.Runtime.Workers != 8 || cfg.Categories[0].CSV.Encoding != "euc-kr" {
		t.Fatalf("config: %+v", cfg)
	}

	if _, err := LoadConfig(strings.NewReader("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}

// TestValidate verifies all findings come back in one pass and are addressed
// by config path.
func TestValidate(t *testing.T) {
	t.Parallel()

	if issues := Validate(validConfig()); len(issues) != 0 {
		t.Fatalf("valid config produced issues: %v", issues)
	}

	var cfg Config
	issues := Validate(cfg)

	byPath := map[string]Severity{}
	for _, iss := range issues {
		byPath[iss.Path] = iss.Severity
	}
	for _, path := range []string{"rules", "categories", "storage.kind", "storage.dsn"} {
		if byPath[path] != SeverityError {
			t.Fatalf("expected error at %q, got issues %v", path, issues)
		}
	}
	if byPath["job"] != SeverityWarning {
		t.Fatalf("empty job should warn: %v", issues)
	}
}

func TestValidateCategorySources(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Categories = []CategorySource{
		{Category: "", Kind: "csv", CSV: &CSVSource{Path: "x.csv"}},
		{Category: "CPU", Kind: "csv"},
		{Category: "SSD", Kind: "html", HTML: &HTMLSource{Dir: "pages"}},
		{Category: "HDD", Kind: "ftp"},
	}

	issues := Validate(cfg)
	wantPaths := []string{
		"categories[0].category",
		"categories[1].csv.path",
		"categories[2].html.selectors",
		"categories[3].kind",
	}
	for _, want := range wantPaths {
		found := false
		for _, iss := range issues {
			if iss.Path == want && iss.Severity == SeverityError {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected error at %q, got %v", want, issues)
		}
	}
}
