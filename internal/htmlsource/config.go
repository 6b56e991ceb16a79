// Package htmlsource extracts raw listing rows from saved product-list HTML
// pages. Fetching those pages is the crawler's job; this package only reads
// files or stdin.
package htmlsource

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Field describes how to pull one listing column out of a record element.
type Field struct {
	// Selector is evaluated relative to the record element.
	Selector string `json:"selector"`

	// Attr extracts an attribute value; element text when empty.
	Attr string `json:"attr,omitempty"`

	// Match is an optional regex filter applied to the extracted value:
	// group 1 when the pattern has capture groups, the full match otherwise.
	// A non-matching filter drops the value.
	Match string `json:"match,omitempty"`
}

// Config describes how a product-list page maps onto listing rows.
type Config struct {
	// RecordSelector matches one element per product. Row order follows
	// DOM order.
	RecordSelector string `json:"record_selector"`

	ID         Field `json:"id"`
	Name       Field `json:"name"`
	Spec       Field `json:"spec"`
	ImageURL   Field `json:"image_url"`
	ProductURL Field `json:"product_url"`
}

// LoadConfig loads and validates a JSON selector config.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selector config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse selector config: %w", err)
	}
	if cfg.RecordSelector == "" {
		return nil, fmt.Errorf("selector config: record_selector is required")
	}
	if cfg.Name.Selector == "" {
		return nil, fmt.Errorf("selector config: name.selector is required")
	}
	for name, f := range map[string]Field{
		"id": cfg.ID, "name": cfg.Name, "spec": cfg.Spec,
		"image_url": cfg.ImageURL, "product_url": cfg.ProductURL,
	} {
		if f.Match == "" {
			continue
		}
		if _, err := regexp.Compile(f.Match); err != nil {
			return nil, fmt.Errorf("selector config: invalid match regex for %s: %w", name, err)
		}
	}
	return &cfg, nil
}
