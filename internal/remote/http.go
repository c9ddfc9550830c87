package remote

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/tablegrid/internal/logging"
	"github.com/roach88/tablegrid/internal/table"
)

// ErrNotFound marks an unknown dataset. Sources wrap it so the handler can
// answer 404.
var ErrNotFound = errors.New("not found")

// Catalog resolves a dataset name to its fetcher.
type Catalog interface {
	Source(name string) Fetcher[table.Record]
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// pageResponse adds total_pages to a Page.
type pageResponse struct {
	Page[table.Record]
	TotalPages int `json:"total_pages"`
}

// NewHandler serves dataset pages:
//
//	GET /datasets/{name}/rows?page=&page_size=&sort=&dir=&filter=&f.<col>=
//	GET /healthz
func NewHandler(catalog Catalog) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/datasets/{name}/rows", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		req := ParseRequest(r)

		page, err := catalog.Source(name).Fetch(r.Context(), req)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pageResponse{Page: page, TotalPages: page.TotalPages()})
	})
	return r
}

// ParseRequest reads a Request from query parameters. Malformed numbers fall
// back to defaults and unknown directions to asc.
func ParseRequest(r *http.Request) Request {
	q := r.URL.Query()
	req := Request{
		Page:       parseIntParam(q.Get("page"), 1),
		PageSize:   parseIntParam(q.Get("page_size"), DefaultPageSize),
		SortColumn: strings.TrimSpace(q.Get("sort")),
		Filter:     q.Get("filter"),
		Token:      r.Header.Get("X-Request-Token"),
	}
	if strings.EqualFold(q.Get("dir"), string(table.SortDesc)) {
		req.SortDirection = table.SortDesc
	}
	for key, values := range q {
		col, ok := strings.CutPrefix(key, "f.")
		if !ok || col == "" || len(values) == 0 {
			continue
		}
		if req.Filters == nil {
			req.Filters = make(map[string]string)
		}
		req.Filters[col] = values[0]
	}
	return req.Normalize()
}

// parseIntParam parses a positive integer with a default value.
func parseIntParam(val string, defaultVal int) int {
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "FETCH_FAILED"
	if errors.Is(err, ErrNotFound) {
		status, code = http.StatusNotFound, "NOT_FOUND"
	}
	requestID := middleware.GetReqID(r.Context())
	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"status", status,
		"error", err.Error(),
		"code", code,
	)
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code, RequestID: requestID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
