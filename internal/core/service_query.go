package core

import (
	"context"
	"slices"

	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/JonMunkholm/gridkit/internal/schema"
	"github.com/JonMunkholm/gridkit/internal/search"
)

// Paging limits for Query.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// QueryParams selects and orders stored records.
type QueryParams struct {
	Search   string   // Free-text term; empty matches everything
	Fields   []string // Restrict search to these keys; empty scans every value
	SortKey  string   // Must name a sortable field; empty keeps import order
	Desc     bool
	Page     int // 1-based
	PageSize int
}

// QueryResult is one page of records.
type QueryResult struct {
	Rows       []*record.Record `json:"rows"`
	TotalRows  int              `json:"totalRows"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
	SortKey    string           `json:"sortKey,omitempty"`
	Desc       bool             `json:"desc,omitempty"`
	Search     string           `json:"search,omitempty"`
}

// Query lists entity's stored records filtered by a search term and
// sorted by one sortable field.
func (s *Service) Query(ctx context.Context, entity string, p QueryParams) (*QueryResult, error) {
	sch, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	if p.SortKey != "" {
		f, ok := sch.Field(p.SortKey)
		if !ok || !f.Sortable {
			return nil, &schema.SchemaError{Key: p.SortKey, Reason: "field is not sortable"}
		}
	}
	for _, key := range p.Fields {
		if _, ok := sch.Field(key); !ok {
			return nil, &schema.SchemaError{Key: key, Reason: "no such field"}
		}
	}

	rows, err := s.store.List(ctx, entity)
	if err != nil {
		return nil, err
	}
	rows = search.Filter(rows, p.Search, search.Config{Fields: p.Fields})
	if p.SortKey != "" {
		slices.SortStableFunc(rows, s.comparator.Sorter(p.SortKey, p.Desc))
	}

	page, size := normalizePage(p.Page, p.PageSize)
	total := len(rows)
	start := total
	if page-1 <= total/size {
		start = min((page-1)*size, total)
	}
	end := min(start+size, total)

	return &QueryResult{
		Rows:       rows[start:end],
		TotalRows:  total,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
		SortKey:    p.SortKey,
		Desc:       p.Desc,
		Search:     p.Search,
	}, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}
