package export

import (
	"fmt"
	"io"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/phpdave11/gofpdf"
)

const (
	pdfRowHeight    = 6.0
	pdfHeaderHeight = 7.0
)

// PDFWriter draws text in the TrueType font at FontPath (BoldFontPath for the
// title and header, falling back to FontPath) so any Unicode text survives.
// Without a font it uses the core Helvetica font, which only covers cp1252.
type PDFWriter struct {
	FontPath     string
	BoldFontPath string
}

func (PDFWriter) Format() string { return "pdf" }

func (PDFWriter) ContentType() string { return "application/pdf" }

// Write lays the spec out as a bordered table, switching to landscape for
// wide reports and repeating the header row on every page.
func (w PDFWriter) Write(out io.Writer, spec domain.ExportSpec) error {
	orientation := "P"
	if len(spec.Columns) > 6 {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetTitle(spec.Title, w.FontPath != "")
	pdf.SetAutoPageBreak(false, 15)
	family, tr, err := w.fonts(pdf)
	if err != nil {
		return err
	}

	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	colW := (pageW - left - right) / float64(max(len(spec.Columns), 1))

	header := func() {
		pdf.SetFont(family, "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range spec.Columns {
			pdf.CellFormat(colW, pdfHeaderHeight, fit(pdf, tr(col), colW), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(family, "", 8)
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 14)
	pdf.CellFormat(0, 10, tr(spec.Title), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	header()

	for _, row := range spec.Rows {
		if pdf.GetY()+pdfRowHeight > pageH-bottom {
			pdf.AddPage()
			header()
		}
		for i, col := range spec.Columns {
			align := "L"
			if i < len(spec.Kinds) && (spec.Kinds[i] == domain.ColumnCurrency || spec.Kinds[i] == domain.ColumnNumber) {
				align = "R"
			}
			pdf.CellFormat(colW, pdfRowHeight, fit(pdf, tr(row[col]), colW), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(out)
}

func (w PDFWriter) fonts(pdf *gofpdf.Fpdf) (string, func(string) string, error) {
	if w.FontPath == "" {
		return "Helvetica", pdf.UnicodeTranslatorFromDescriptor(""), nil
	}

	bold := w.BoldFontPath
	if bold == "" {
		bold = w.FontPath
	}
	pdf.AddUTF8Font("body", "", w.FontPath)
	pdf.AddUTF8Font("body", "B", bold)
	if err := pdf.Error(); err != nil {
		return "", nil, fmt.Errorf("load pdf font: %w", err)
	}
	return "body", func(s string) string { return s }, nil
}

// fit truncates s with an ellipsis so it stays inside one cell.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
