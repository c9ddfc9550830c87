package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/tablegrid/internal/table"
)

// Client fetches pages of one dataset from a server created by NewHandler.
// It implements Fetcher[table.Record].
type Client struct {
	BaseURL string
	Dataset string
	HTTP    *http.Client
}

// NewClient creates a client. A nil hc uses http.DefaultClient.
func NewClient(baseURL, dataset string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Dataset: dataset, HTTP: hc}
}

// URL returns the rows endpoint for req.
func (c *Client) URL(req Request) string {
	req = req.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("page_size", strconv.Itoa(req.PageSize))
	if req.SortColumn != "" {
		q.Set("sort", req.SortColumn)
		q.Set("dir", string(req.SortDirection))
	}
	if req.Filter != "" {
		q.Set("filter", req.Filter)
	}
	cols := make([]string, 0, len(req.Filters))
	for col := range req.Filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		q.Set("f."+col, req.Filters[col])
	}
	return fmt.Sprintf("%s/datasets/%s/rows?%s", c.BaseURL, url.PathEscape(c.Dataset), q.Encode())
}

// Fetch implements Fetcher. Numbers decode as json.Number so integer ids
// survive the round trip.
func (c *Client) Fetch(ctx context.Context, req Request) (Page[table.Record], error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(req), nil)
	if err != nil {
		return Page[table.Record]{}, fmt.Errorf("build request: %w", err)
	}
	if req.Token != "" {
		httpReq.Header.Set("X-Request-Token", req.Token)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Page[table.Record]{}, fmt.Errorf("fetch %s: %w", c.Dataset, err)
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	if resp.StatusCode != http.StatusOK {
		var e ErrorResponse
		_ = dec.Decode(&e)
		if resp.StatusCode == http.StatusNotFound {
			return Page[table.Record]{}, fmt.Errorf("fetch %s: %s: %w", c.Dataset, e.Error, ErrNotFound)
		}
		return Page[table.Record]{}, fmt.Errorf("fetch %s: status %d: %s", c.Dataset, resp.StatusCode, e.Error)
	}

	var page Page[table.Record]
	if err := dec.Decode(&page); err != nil {
		return Page[table.Record]{}, fmt.Errorf("decode page: %w", err)
	}
	if page.Rows == nil {
		page.Rows = []table.Record{}
	}
	return page, nil
}
