package report

import (
	"fmt"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/export"
	"github.com/shopspring/decimal"
)

// Page is one slice of a result set ready to render.
type Page struct {
	Rows []domain.Row
	// Offset is the position of Rows[0] in the whole collection.
	Offset int
	Total  int
	State  domain.PageState
	// GrandTotal is summed by the caller over every item, not just Rows.
	GrandTotal *decimal.Decimal
}

type Table struct {
	def domain.ReportDefinition
}

func NewTable(def domain.ReportDefinition) Table {
	return Table{def: def}
}

// Render builds the list response for a page. Cells go through the same
// formatter as exports.
func (t Table) Render(p Page) *domain.ListResponse {
	resp := &domain.ListResponse{
		Report:     t.def.Name,
		Columns:    t.def.Columns,
		Items:      make([]domain.TableRow, 0, len(p.Rows)),
		Total:      p.Total,
		Page:       p.State.CurrentPage,
		PageSize:   p.State.ItemsPerPage,
		TotalPages: p.State.TotalPages,
		GrandTotal: p.GrandTotal,
	}

	for i, row := range p.Rows {
		cells := make(map[string]string, len(t.def.Columns))
		for _, col := range t.def.Columns {
			value, _ := row.Lookup(col.Field)
			cells[col.Header] = export.FormatCell(col, value)
		}
		resp.Items = append(resp.Items, domain.TableRow{
			Key:    RowKey(t.def, row, p.Offset+i),
			Cells:  cells,
			Record: row,
		})
	}

	if p.Total == 0 && len(resp.Items) == 0 {
		resp.Empty = true
		resp.Message = domain.NoDataMessage
	}
	return resp
}

// RowKey returns a stable key for a row: the report's key field, then id or
// _id, then the row's position in the collection.
func RowKey(def domain.ReportDefinition, row domain.Row, position int) string {
	fields := []string{def.KeyField, "id", "_id"}
	for _, field := range fields {
		if field == "" {
			continue
		}
		if v, ok := row.Lookup(field); ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("row-%d", position)
}

// GrandTotal sums field over rows. It returns nil when the report has no
// total column.
func GrandTotal(field string, rows []domain.Row) *decimal.Decimal {
	if field == "" {
		return nil
	}
	sum := decimal.Zero
	for _, row := range rows {
		v, ok := row.Lookup(field)
		if !ok {
			continue
		}
		if d, ok := export.ToDecimal(v); ok {
			sum = sum.Add(d)
		}
	}
	sum = sum.Round(2)
	return &sum
}
