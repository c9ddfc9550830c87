// Package remote defines the paginated data source contract and an HTTP
// client and handler pair that carry it.
package remote

import (
	"context"
	"maps"

	"github.com/roach88/tablegrid/internal/table"
)

// DefaultPageSize is used when a request carries no page size.
const DefaultPageSize = 50

// MaxPageSize caps page sizes accepted from callers.
const MaxPageSize = 1000

// Request asks for one page of rows.
type Request struct {
	Page          int                 `json:"page"`
	PageSize      int                 `json:"page_size"`
	SortColumn    string              `json:"sort,omitempty"`
	SortDirection table.SortDirection `json:"dir,omitempty"`
	Filter        string              `json:"filter,omitempty"`

	// Filters are per-column contains filters, ANDed with Filter.
	Filters map[string]string `json:"filters,omitempty"`

	// Seq orders requests issued by one adapter; Token correlates a request
	// with its log lines and response.
	Seq   uint64 `json:"-"`
	Token string `json:"token,omitempty"`
}

// Normalize clamps page and page size and defaults the direction.
func (r Request) Normalize() Request {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
	if !r.SortDirection.Valid() {
		r.SortDirection = table.SortAsc
	}
	return r
}

// SameQuery reports whether r and o ask for the same rows, ignoring Seq and
// Token.
func (r Request) SameQuery(o Request) bool {
	return r.Page == o.Page &&
		r.PageSize == o.PageSize &&
		r.SortColumn == o.SortColumn &&
		r.SortDirection == o.SortDirection &&
		r.Filter == o.Filter &&
		maps.Equal(r.Filters, o.Filters)
}

// Offset is the zero-based index of the page's first row.
func (r Request) Offset() int {
	n := r.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Page is one page of rows and the total row count of the query.
type Page[R any] struct {
	Rows      []R   `json:"rows"`
	TotalRows int64 `json:"total_rows"`
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
}

// TotalPages is at least 1.
func (p Page[R]) TotalPages() int {
	if p.PageSize < 1 {
		return 1
	}
	n := int((p.TotalRows + int64(p.PageSize) - 1) / int64(p.PageSize))
	if n < 1 {
		return 1
	}
	return n
}

// Fetcher loads one page. Implementations must honor ctx cancellation.
type Fetcher[R any] interface {
	Fetch(ctx context.Context, req Request) (Page[R], error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc[R any] func(ctx context.Context, req Request) (Page[R], error)

// Fetch implements Fetcher.
func (f FetcherFunc[R]) Fetch(ctx context.Context, req Request) (Page[R], error) {
	return f(ctx, req)
}
