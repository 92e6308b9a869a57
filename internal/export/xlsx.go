package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/xuri/excelize/v2"
)

type XLSXWriter struct{}

func (XLSXWriter) Format() string { return "xlsx" }

func (XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXWriter) Write(out io.Writer, spec domain.ExportSpec) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(spec.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, col := range spec.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range spec.Rows {
		for i, col := range spec.Columns {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, cellValue(spec, i, row[col])); err != nil {
				return err
			}
		}
	}

	return f.Write(out)
}

// cellValue keeps currency and number columns numeric in the sheet.
func cellValue(spec domain.ExportSpec, idx int, value string) any {
	if idx >= len(spec.Kinds) {
		return value
	}
	switch spec.Kinds[idx] {
	case domain.ColumnCurrency, domain.ColumnNumber:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return value
}

func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "Report"
	}
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}
