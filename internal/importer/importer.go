package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"labcommerce/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ItemWriter interface {
	Upsert(ctx context.Context, item domain.CatalogItem) (*domain.CatalogItem, error)
}

// CSVImporter reads lab-test catalog CSVs and upserts items by code.
//
// Expected headers: code,name,price,category with optional id and description.
// Rows without a code are skipped.
type CSVImporter struct {
	reader *csv.Reader
	items  ItemWriter
}

func NewCSVImporter(r io.Reader, items ItemWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, items: items}
}

var requiredHeaders = []string{"code", "name", "price", "category"}

// Run upserts every row and returns how many items were written.
// It stops at the first invalid row; rows before it stay imported.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return 0, fmt.Errorf("missing column %q", h)
		}
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		item, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if item == nil {
			continue
		}
		if _, err := i.items.Upsert(ctx, *item); err != nil {
			return imported, fmt.Errorf("upsert item %q: %w", item.Code, err)
		}
		imported++
	}
	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (*domain.CatalogItem, error) {
	code := pick(record, index, "code")
	if code == "" {
		return nil, nil
	}
	item := &domain.CatalogItem{
		ID:          pick(record, index, "id"),
		Code:        code,
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Category:    strings.ToLower(pick(record, index, "category")),
	}
	if item.Name == "" || item.Category == "" {
		return nil, fmt.Errorf("item %q: name and category are required", code)
	}
	if item.ID != "" {
		if _, err := uuid.Parse(item.ID); err != nil {
			return nil, fmt.Errorf("item %q: invalid id %q", code, item.ID)
		}
	}
	price, err := decimal.NewFromString(strings.TrimPrefix(pick(record, index, "price"), "$"))
	if err != nil {
		return nil, fmt.Errorf("item %q: invalid price: %w", code, err)
	}
	if price.IsNegative() || !price.Equal(price.Round(2)) {
		return nil, fmt.Errorf("item %q: price must be non-negative with at most two decimals", code)
	}
	item.Price = price
	return item, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
