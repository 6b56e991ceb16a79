package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadPriceMap reads an "ID,Price" CSV into a product-id keyed map. Rows
// with a missing or non-numeric price are skipped: the price crawler emits
// them for out-of-stock products, and absence from the map is exactly what
// marks a product in_stock=false downstream.
func LoadPriceMap(path string) (map[int64]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price csv: %w", err)
	}
	defer f.Close()
	return parsePriceMap(f)
}

func parsePriceMap(r io.Reader) (map[int64]int64, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read price csv header: %w", err)
	}
	idIx, priceIx := -1, -1
	for i, h := range hdr {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))) {
		case "id":
			idIx = i
		case "price":
			priceIx = i
		}
	}
	if idIx < 0 || priceIx < 0 {
		return nil, fmt.Errorf("price csv needs ID and Price columns")
	}

	prices := make(map[int64]int64)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return prices, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read price csv: %w", err)
		}
		if idIx >= len(rec) || priceIx >= len(rec) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rec[idIx]), 10, 64)
		if err != nil {
			continue
		}
		price, err := strconv.ParseInt(strings.TrimSpace(rec[priceIx]), 10, 64)
		if err != nil {
			continue
		}
		prices[id] = price
	}
}
