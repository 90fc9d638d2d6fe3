// Package prewarm fills the catalog cache from a CSV plan so the first
// shoppers after a deploy or a flush do not pay for platform round trips.
package prewarm

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/shopify"
)

type Catalog interface {
	Get(ctx context.Context, handle string) (*domain.Product, error)
	Recommendations(ctx context.Context, productID string) ([]domain.Product, error)
	Warm(ctx context.Context, queries ...shopify.ProductsQuery) error
}

// Result counts what a plan warmed. Missing handles are unknown or hidden products.
type Result struct {
	Listings int
	Products int
	Missing  []string
}

// CSVPlan reads rows with the columns handle, sortKey, reverse and query.
// A row with a handle warms that product page; any other row warms a listing.
type CSVPlan struct {
	reader  *csv.Reader
	catalog Catalog
}

func NewCSVPlan(r io.Reader, catalog Catalog) *CSVPlan {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	csvr.TrimLeadingSpace = true
	return &CSVPlan{reader: csvr, catalog: catalog}
}

func (p *CSVPlan) Run(ctx context.Context) (Result, error) {
	var res Result
	headers, err := p.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	var listings []shopify.ProductsQuery
	for line := 2; ; line++ {
		record, err := p.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row %d: %w", line, err)
		}

		if handle := pick(record, index, "handle"); handle != "" {
			found, err := p.warmProduct(ctx, handle)
			if err != nil {
				return res, fmt.Errorf("row %d: %w", line, err)
			}
			if found {
				res.Products++
			} else {
				res.Missing = append(res.Missing, handle)
			}
			continue
		}

		q, err := parseListing(record, index)
		if err != nil {
			return res, fmt.Errorf("row %d: %w", line, err)
		}
		listings = append(listings, q)
	}

	if len(listings) > 0 {
		if err := p.catalog.Warm(ctx, listings...); err != nil {
			return res, fmt.Errorf("warm listings: %w", err)
		}
		res.Listings = len(listings)
	}
	return res, nil
}

func (p *CSVPlan) warmProduct(ctx context.Context, handle string) (bool, error) {
	product, err := p.catalog.Get(ctx, handle)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("product %q: %w", handle, err)
	}
	if _, err := p.catalog.Recommendations(ctx, product.ID); err != nil {
		return false, fmt.Errorf("recommendations for %q: %w", handle, err)
	}
	return true, nil
}

func parseListing(record []string, index map[string]int) (shopify.ProductsQuery, error) {
	q := shopify.ProductsQuery{
		SortKey: strings.ToUpper(pick(record, index, "sortKey")),
		Query:   pick(record, index, "query"),
	}
	if raw := pick(record, index, "reverse"); raw != "" {
		reverse, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("invalid reverse %q", raw)
		}
		q.Reverse = reverse
	}
	return q, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
