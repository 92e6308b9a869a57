// backend-go/internal/domain/models.go
package domain

import (
	"strings"
	"time"
)

// Row is one backend record (invoice, order, credit note...). It is treated as
// an opaque mapping and never mutated in place.
type Row map[string]any

// Filter is the normalized, immutable output of the filter bar.
// A nil *Filter means "clear results".
type Filter struct {
	FromDate *time.Time        `json:"from_date,omitempty"`
	ToDate   *time.Time        `json:"to_date,omitempty"`
	EntityID string            `json:"entity_id,omitempty"`
	Search   string            `json:"search,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy so callers can never alter a submitted filter.
func (f *Filter) Clone() *Filter {
	if f == nil {
		return nil
	}
	c := *f
	if f.FromDate != nil {
		from := *f.FromDate
		c.FromDate = &from
	}
	if f.ToDate != nil {
		to := *f.ToDate
		c.ToDate = &to
	}
	if f.Extra != nil {
		c.Extra = make(map[string]string, len(f.Extra))
		for k, v := range f.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// AllEntities reports whether the filter is not scoped to a single entity.
func (f *Filter) AllEntities() bool {
	return f == nil || strings.TrimSpace(f.EntityID) == ""
}

// ColumnKind controls how a cell is formatted for display and export.
type ColumnKind string

const (
	ColumnText     ColumnKind = "text"
	ColumnCurrency ColumnKind = "currency"
	ColumnNumber   ColumnKind = "number"
	ColumnDate     ColumnKind = "date"
)

type Column struct {
	Header string     `json:"header"`
	Field  string     `json:"field"`
	Kind   ColumnKind `json:"kind"`
}

// PaginationStrategy selects where pages are cut.
type PaginationStrategy string

const (
	// PaginateClient fetches the whole collection once and slices it locally.
	// Only meant for small collections.
	PaginateClient PaginationStrategy = "client"
	// PaginateServer asks the backend for one page and reads its total count.
	PaginateServer PaginationStrategy = "server"
)

// ReportDefinition describes one list report: where it is fetched from, how
// its payload is named and which columns are shown and exported.
type ReportDefinition struct {
	Name              string             `json:"name"`
	Title             string             `json:"title"`
	Endpoint          string             `json:"endpoint"`
	PayloadField      string             `json:"payload_field"`
	KeyField          string             `json:"key_field"`
	TotalField        string             `json:"total_field,omitempty"`
	EntityParam       string             `json:"entity_param,omitempty"`
	DivisionScoped    bool               `json:"division_scoped"`
	RequireEntity     bool               `json:"require_entity"`
	DefaultWindowDays int                `json:"default_window_days"`
	Pagination        PaginationStrategy `json:"pagination"`
	Columns           []Column           `json:"columns"`

	// Entity actions. DetailPath and DeletePath contain an {id} placeholder.
	CreatePath string `json:"create_path,omitempty"`
	DetailPath string `json:"detail_path,omitempty"`
	DeletePath string `json:"delete_path,omitempty"`
}

// Headers returns the column headers in display order.
func (d ReportDefinition) Headers() []string {
	headers := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		headers[i] = col.Header
	}
	return headers
}

// Division is a tenant/business-unit partition.
type Division struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AllDivisionsID is the reserved division id that means "every division".
const AllDivisionsID = "1"

// Lookups are the option lists the filter bar offers.
type Lookups struct {
	Customers  []Row `json:"customers"`
	Warehouses []Row `json:"warehouses"`
	Divisions  []Row `json:"divisions"`
}

// Lookup reads a possibly nested field ("customer.name") from the row.
func (r Row) Lookup(path string) (any, bool) {
	if v, ok := r[path]; ok {
		return v, true
	}
	var current any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
