// Package export flattens table rows into an ExportSpec and writes it as
// PDF, XLSX or CSV.
package export

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/filter"
)

// ErrEmptyTable is returned instead of producing an export without rows.
var ErrEmptyTable = errors.New("Table is Empty")

// Scope picks which rows are exported.
type Scope string

const (
	ScopePage Scope = "page"
	ScopeAll  Scope = "all"
)

// Writer renders an ExportSpec in one file format.
type Writer interface {
	Format() string
	ContentType() string
	Write(w io.Writer, spec domain.ExportSpec) error
}

// BuildSpec produces one flat record per row, keyed by column header, in
// column order. Zero rows fail with ErrEmptyTable.
func BuildSpec(title string, columns []domain.Column, rows []domain.Row) (domain.ExportSpec, error) {
	if len(rows) == 0 {
		return domain.ExportSpec{}, ErrEmptyTable
	}

	spec := domain.ExportSpec{
		Title:   title,
		Columns: make([]string, len(columns)),
		Kinds:   make([]domain.ColumnKind, len(columns)),
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for i, col := range columns {
		spec.Columns[i] = col.Header
		spec.Kinds[i] = col.Kind
	}

	for _, row := range rows {
		record := make(map[string]string, len(columns))
		for _, col := range columns {
			value, _ := row.Lookup(col.Field)
			record[col.Header] = FormatCell(col, value)
		}
		spec.Rows = append(spec.Rows, record)
	}
	return spec, nil
}

// Render builds the spec and hands it to w. The writer is never invoked for
// an empty table.
func Render(out io.Writer, w Writer, title string, columns []domain.Column, rows []domain.Row) error {
	spec, err := BuildSpec(title, columns, rows)
	if err != nil {
		return err
	}
	if err := w.Write(out, spec); err != nil {
		return fmt.Errorf("write %s export: %w", w.Format(), err)
	}
	return nil
}

// Options tune the writers WriterFor returns.
type Options struct {
	// PDFFont and PDFBoldFont are TrueType files used for PDF text.
	PDFFont     string
	PDFBoldFont string
}

// WriterFor returns the writer for a format name.
func WriterFor(format string, opts Options) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pdf":
		return PDFWriter{FontPath: opts.PDFFont, BoldFontPath: opts.PDFBoldFont}, nil
	case "xlsx":
		return XLSXWriter{}, nil
	case "csv":
		return CSVWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// FileName names an export after its report and date range,
// e.g. sales_2024-03-01_2024-03-07.xlsx.
func FileName(report string, f *domain.Filter, format string) string {
	from, to := "all", "all"
	if f != nil {
		if s := filter.FormatDate(f.FromDate); s != "" {
			from = s
		}
		if s := filter.FormatDate(f.ToDate); s != "" {
			to = s
		}
	}
	name := strings.Trim(unsafeName.ReplaceAllString(report, "-"), "-")
	if name == "" {
		name = "report"
	}
	return fmt.Sprintf("%s_%s_%s.%s", name, from, to, strings.ToLower(format))
}
