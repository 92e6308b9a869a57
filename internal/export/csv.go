package export

import (
	"encoding/csv"
	"io"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
)

type CSVWriter struct{}

func (CSVWriter) Format() string { return "csv" }

func (CSVWriter) ContentType() string { return "text/csv" }

func (CSVWriter) Write(out io.Writer, spec domain.ExportSpec) error {
	writer := csv.NewWriter(out)

	// Write header
	if err := writer.Write(spec.Columns); err != nil {
		return err
	}

	// Write data
	record := make([]string, len(spec.Columns))
	for _, row := range spec.Rows {
		for i, col := range spec.Columns {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
