package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	columnName     = "name"
	columnCategory = "category"
	columnPrice    = "price"
	columnRating   = "rating"

	maxRating = 5.0
)

// Load reads the CSV catalog at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	products, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(products), nil
}

// Parse decodes a header-led CSV into products. Unparsable or out-of-domain price and rating
// values become 0.
func Parse(r io.Reader) ([]Product, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("catalog is empty: header row missing")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := indexColumns(header)
	for _, required := range []string{columnName, columnCategory} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("catalog header missing %q column", required)
		}
	}

	products := []Product{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isBlank(record) {
			continue
		}
		products = append(products, Product{
			Name:     field(record, cols, columnName),
			Category: field(record, cols, columnCategory),
			Price:    coerce(field(record, cols, columnPrice), 0, math.MaxFloat64),
			Rating:   coerce(field(record, cols, columnRating), 0, maxRating),
		})
	}
	return products, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func field(record []string, cols map[string]int, column string) string {
	idx, ok := cols[column]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func coerce(raw string, low, high float64) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < low || v > high {
		return 0
	}
	return v
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
