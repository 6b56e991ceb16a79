package htmlsource

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Page is one saved product-list page.
type Page struct {
	Name string // file name, "" for stdin
	HTML string
}

// ReadInput reads HTML from path, or from stdin when path is empty.
func ReadInput(path string, stdin io.Reader) (Page, error) {
	if strings.TrimSpace(path) == "" {
		if stdin == nil {
			return Page{}, nil
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			return Page{}, fmt.Errorf("read stdin: %w", err)
		}
		return Page{HTML: string(b)}, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Page{}, fmt.Errorf("read html file: %w", err)
	}
	return Page{Name: filepath.Base(path), HTML: string(b)}, nil
}

// ReadDir reads every .html/.htm file directly under dir, sorted by file
// name so page order (page_1.html, page_2.html, ...) is stable.
func ReadDir(dir string) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read html dir: %w", err)
	}

	var pages []Page
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".html" && ext != ".htm" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read html file %s: %w", e.Name(), err)
		}
		pages = append(pages, Page{Name: e.Name(), HTML: string(b)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Name < pages[j].Name })
	return pages, nil
}
