// Package erptest runs an in-process fake of the ERP REST backend for tests.
package erptest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/gorilla/mux"
)

const sessionRejected = "Invalid or expired token"

type collection struct {
	payloadField string
	rows         []domain.Row
	nextID       int
}

type failure struct {
	status int
	body   string
}

// Backend is a fake ERP backend. Collections are keyed by their resource
// path segment, e.g. "invoice" for GET /invoice.
type Backend struct {
	Server *httptest.Server
	// Token, when set, must be presented as a bearer token.
	Token string

	mu          sync.Mutex
	collections map[string]*collection
	failures    map[string]failure
	queries     map[string][]url.Values
	hits        map[string]int
}

func New(t testing.TB) *Backend {
	b := &Backend{
		collections: make(map[string]*collection),
		failures:    make(map[string]failure),
		queries:     make(map[string][]url.Values),
		hits:        make(map[string]int),
	}

	r := mux.NewRouter()
	r.Use(b.auth)
	r.HandleFunc("/{resource}/delete/{id}", b.deleteRow).Methods(http.MethodDelete)
	r.HandleFunc("/{resource}/{id}", b.getRow).Methods(http.MethodGet)
	r.HandleFunc("/{resource}/{id}", b.updateRow).Methods(http.MethodPut)
	r.HandleFunc("/{resource}", b.list).Methods(http.MethodGet)
	r.HandleFunc("/{resource}", b.createRow).Methods(http.MethodPost)

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the backend base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Seed replaces a collection.
func (b *Backend) Seed(resource, payloadField string, rows []domain.Row) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := make([]domain.Row, len(rows))
	copy(copied, rows)
	b.collections[resource] = &collection{payloadField: payloadField, rows: copied, nextID: len(rows) + 1}
}

// Fail makes every request to resource answer with status and body.
func (b *Backend) Fail(resource string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[resource] = failure{status: status, body: body}
}

// Recover removes a failure set with Fail.
func (b *Backend) Recover(resource string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, resource)
}

// Queries returns the query strings of list requests made to resource.
func (b *Backend) Queries(resource string) []url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]url.Values(nil), b.queries[resource]...)
}

// LastQuery returns the most recent list query for resource.
func (b *Backend) LastQuery(resource string) url.Values {
	qs := b.Queries(resource)
	if len(qs) == 0 {
		return nil
	}
	return qs[len(qs)-1]
}

// Hits counts requests of any kind to resource.
func (b *Backend) Hits(resource string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[resource]
}

// Rows returns a copy of a collection.
func (b *Backend) Rows(resource string) []domain.Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[resource]
	if !ok {
		return nil
	}
	return append([]domain.Row(nil), c.rows...)
}

func (b *Backend) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Token != "" && r.Header.Get("Authorization") != "Bearer "+b.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": sessionRejected})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// begin records the request and reports a configured failure, if any.
func (b *Backend) begin(w http.ResponseWriter, r *http.Request) (string, bool) {
	resource := mux.Vars(r)["resource"]

	b.mu.Lock()
	b.hits[resource]++
	f, failing := b.failures[resource]
	b.mu.Unlock()

	if failing {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
		return resource, false
	}
	return resource, true
}

func (b *Backend) list(w http.ResponseWriter, r *http.Request) {
	resource, ok := b.begin(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()

	b.mu.Lock()
	b.queries[resource] = append(b.queries[resource], query)
	c, exists := b.collections[resource]
	var rows []domain.Row
	payloadField := "data"
	if exists {
		payloadField = c.payloadField
		rows = filterByDivision(c.rows, query)
	}
	b.mu.Unlock()

	total := len(rows)
	if page, limit := atoi(query.Get("page")), atoi(query.Get("limit")); page > 0 && limit > 0 {
		start := (page - 1) * limit
		if start > len(rows) {
			start = len(rows)
		}
		end := start + limit
		if end > len(rows) {
			end = len(rows)
		}
		rows = rows[start:end]
	}
	if rows == nil {
		rows = []domain.Row{}
	}

	writeJSON(w, http.StatusOK, map[string]any{payloadField: rows, "total": total})
}

func (b *Backend) getRow(w http.ResponseWriter, r *http.Request) {
	resource, ok := b.begin(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, exists := b.collections[resource]; exists {
		for _, row := range c.rows {
			if rowID(row) == id {
				writeJSON(w, http.StatusOK, map[string]any{"data": row})
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Record not found"})
}

func (b *Backend) createRow(w http.ResponseWriter, r *http.Request) {
	resource, ok := b.begin(w, r)
	if !ok {
		return
	}
	var row domain.Row
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, exists := b.collections[resource]
	if !exists {
		c = &collection{payloadField: "data", nextID: 1}
		b.collections[resource] = c
	}
	if rowID(row) == "" {
		row["id"] = strconv.Itoa(c.nextID)
	}
	c.nextID++
	c.rows = append(c.rows, row)
	writeJSON(w, http.StatusCreated, map[string]any{"data": row, "message": "Created successfully"})
}

func (b *Backend) updateRow(w http.ResponseWriter, r *http.Request) {
	resource, ok := b.begin(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	var patch domain.Row
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, exists := b.collections[resource]; exists {
		for i, row := range c.rows {
			if rowID(row) != id {
				continue
			}
			updated := domain.Row{}
			for k, v := range row {
				updated[k] = v
			}
			for k, v := range patch {
				updated[k] = v
			}
			c.rows[i] = updated
			writeJSON(w, http.StatusOK, map[string]any{"data": updated})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Record not found"})
}

func (b *Backend) deleteRow(w http.ResponseWriter, r *http.Request) {
	resource, ok := b.begin(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, exists := b.collections[resource]; exists {
		for i, row := range c.rows {
			if rowID(row) == id {
				c.rows = append(c.rows[:i:i], c.rows[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]any{"message": "Deleted successfully"})
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Record not found"})
}

func filterByDivision(rows []domain.Row, query url.Values) []domain.Row {
	division := query.Get("divisionId")
	if division == "" {
		return append([]domain.Row(nil), rows...)
	}
	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		if fmt.Sprint(row["divisionId"]) == division {
			out = append(out, row)
		}
	}
	return out
}

func rowID(row domain.Row) string {
	for _, key := range []string{"id", "_id"} {
		if v, ok := row[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
