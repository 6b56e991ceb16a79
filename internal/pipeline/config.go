// Package pipeline wires sources, cleaning, extraction and storage into a
// batch run over one or more product categories.
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
)

// Config is the user-provided pipeline configuration (JSON).
type Config struct {
	Job string `json:"job"`

	// Rules is the path to the per-category ruleset YAML.
	Rules string `json:"rules"`

	// CleanRules is an optional path to the listing filter YAML.
	CleanRules string `json:"clean_rules,omitempty"`

	// PriceCSV is an optional path to an "ID,Price" CSV; matched products
	// get price + in_stock=true, everything else in_stock=false.
	PriceCSV string `json:"price_csv,omitempty"`

	Categories []CategorySource `json:"categories"`
	Storage    Storage          `json:"storage"`
	Runtime    Runtime          `json:"runtime"`
}

// CategorySource names one category and where its raw listings come from.
type CategorySource struct {
	Category string      `json:"category"`
	Kind     string      `json:"kind"` // "csv" | "html"
	CSV      *CSVSource  `json:"csv,omitempty"`
	HTML     *HTMLSource `json:"html,omitempty"`
}

// CSVSource reads listing rows from a vendor CSV export.
type CSVSource struct {
	Path string `json:"path"`

	// Encoding: "" / "utf-8", or "euc-kr" / "cp949" for legacy exports.
	Encoding string `json:"encoding,omitempty"`
}

// HTMLSource reads listing rows from saved product-list pages.
type HTMLSource struct {
	Dir       string `json:"dir"`
	Selectors string `json:"selectors"` // selector config JSON path
}

// Storage selects the output backend.
type Storage struct {
	Kind string `json:"kind"` // "sqlite" | "postgres" | "mssql" | "jsonfile"
	DSN  string `json:"dsn"`
}

// Runtime controls execution behavior.
type Runtime struct {
	// Workers is the number of concurrent extraction goroutines per
	// category. Defaults to 4.
	Workers int `json:"workers"`

	// BatchSize is the number of products per storage upsert. Defaults to
	// 256.
	BatchSize int `json:"batch_size"`
}

// LoadConfig decodes a pipeline config from r.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode pipeline config: %w", err)
	}
	return cfg, nil
}

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, addressed by its config path.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// Validate checks structural config problems. It returns findings rather
// than failing on the first one so users can fix a config in one pass;
// callers abort when any issue has SeverityError.
func Validate(cfg Config) []Issue {
	var issues []Issue
	errf := func(path, format string, v ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, v...)})
	}
	warnf := func(path, format string, v ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, v...)})
	}

	if cfg.Rules == "" {
		errf("rules", "ruleset path is required")
	}
	if len(cfg.Categories) == 0 {
		errf("categories", "at least one category source is required")
	}
	for i, cs := range cfg.Categories {
		path := fmt.Sprintf("categories[%d]", i)
		if cs.Category == "" {
			errf(path+".category", "category name is required")
		}
		switch cs.Kind {
		case "csv":
			if cs.CSV == nil || cs.CSV.Path == "" {
				errf(path+".csv.path", "csv source needs a path")
			}
		case "html":
			if cs.HTML == nil || cs.HTML.Dir == "" {
				errf(path+".html.dir", "html source needs a dir")
			}
			if cs.HTML == nil || cs.HTML.Selectors == "" {
				errf(path+".html.selectors", "html source needs a selector config")
			}
		default:
			errf(path+".kind", "unknown source kind %q (want csv or html)", cs.Kind)
		}
	}
	if cfg.Storage.Kind == "" {
		errf("storage.kind", "storage kind is required")
	}
	if cfg.Storage.DSN == "" {
		errf("storage.dsn", "storage dsn is required")
	}
	if cfg.Runtime.Workers < 0 {
		errf("runtime.workers", "workers must be >= 0")
	}
	if cfg.Runtime.BatchSize < 0 {
		errf("runtime.batch_size", "batch_size must be >= 0")
	}
	if cfg.Job == "" {
		warnf("job", "job name is empty; metrics will use the default job tag")
	}
	return issues
}
