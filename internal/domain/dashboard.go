package domain

import "github.com/shopspring/decimal"

// PageState is the pagination state of a list page.
type PageState struct {
	AllItems     []Row `json:"-"`
	CurrentPage  int   `json:"current_page"`
	ItemsPerPage int   `json:"items_per_page"`
	TotalPages   int   `json:"total_pages"`
}

// ExportSpec is the flat, column-ordered shape handed to PDF/XLSX/CSV writers.
// It is rebuilt on every export and never persisted.
type ExportSpec struct {
	Title   string              `json:"title"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	// Kinds is aligned with Columns so spreadsheet writers can keep numbers numeric.
	Kinds []ColumnKind `json:"kinds,omitempty"`
}

// TableRow is one rendered row of a result table.
type TableRow struct {
	Key    string            `json:"key"`
	Cells  map[string]string `json:"cells"`
	Record Row               `json:"record"`
}

// ListResponse is the paginated response for a report list request.
type ListResponse struct {
	Report     string           `json:"report"`
	Columns    []Column         `json:"columns"`
	Items      []TableRow       `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
	GrandTotal *decimal.Decimal `json:"grand_total,omitempty"`
	Empty      bool             `json:"empty"`
	Message    string           `json:"message,omitempty"`
}

// MutationResult carries the refetched collection after an entity action.
type MutationResult struct {
	Action string        `json:"action"`
	ID     string        `json:"id,omitempty"`
	Entity Row           `json:"entity,omitempty"`
	List   *ListResponse `json:"list,omitempty"`
}
