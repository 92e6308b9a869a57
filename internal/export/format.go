package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// FormatCell renders a value for both on-screen tables and exports, so the
// two never disagree. Currency is rounded to 2 decimals.
func FormatCell(col domain.Column, value any) string {
	if value == nil {
		return ""
	}

	switch col.Kind {
	case domain.ColumnCurrency:
		if d, ok := ToDecimal(value); ok {
			return d.StringFixed(2)
		}
	case domain.ColumnNumber:
		if d, ok := ToDecimal(value); ok {
			return d.Round(2).String()
		}
	case domain.ColumnDate:
		if s, ok := value.(string); ok {
			return formatDate(s)
		}
	}

	switch v := value.(type) {
	case string:
		return v
	case float64:
		return decimal.NewFromFloat(v).String()
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}

// ToDecimal converts a JSON-decoded value to a decimal.
func ToDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(v, ",", "")))
		return d, err == nil
	case decimal.Decimal:
		return v, true
	default:
		return decimal.Zero, false
	}
}

func formatDate(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02")
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
