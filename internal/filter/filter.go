// Package filter turns raw filter-bar input into an immutable domain.Filter.
// Validation is local and happens before any request reaches the backend.
package filter

import (
	"strings"
	"time"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
)

const dateLayout = "2006-01-02"

// DefaultWindowDays is the default "last N days" window when a report does not set one.
const DefaultWindowDays = 7

// Input is the raw, untyped content of the filter bar.
type Input struct {
	FromDate string
	ToDate   string
	EntityID string
	Search   string
	Extra    map[string][]string
}

// Parse validates in against def and returns the normalized filter.
func Parse(def domain.ReportDefinition, in Input) (*domain.Filter, error) {
	from, err := parseDate("fromDate", in.FromDate)
	if err != nil {
		return nil, err
	}
	to, err := parseDate("toDate", in.ToDate)
	if err != nil {
		return nil, err
	}

	if from != nil && to != nil && from.After(*to) {
		return nil, &domain.ValidationError{Field: "fromDate", Message: "From date cannot be after To date"}
	}

	entityID := strings.TrimSpace(in.EntityID)
	if def.RequireEntity && entityID == "" {
		field := def.EntityParam
		if field == "" {
			field = "entityId"
		}
		return nil, &domain.ValidationError{Field: field, Message: "Please select " + field}
	}

	f := &domain.Filter{
		FromDate: from,
		ToDate:   to,
		EntityID: entityID,
		Search:   strings.TrimSpace(in.Search),
	}

	if extra := normalizeExtra(in.Extra); len(extra) > 0 {
		f.Extra = extra
	}

	return f, nil
}

// Defaults returns the filter a report page starts with: the last N days up to today.
// Reports with a negative window (master data lists) start unfiltered.
func Defaults(def domain.ReportDefinition, now time.Time) *domain.Filter {
	days := def.DefaultWindowDays
	if days < 0 {
		return &domain.Filter{}
	}
	if days == 0 {
		days = DefaultWindowDays
	}
	to := truncateDay(now)
	from := to.AddDate(0, 0, -days)
	return &domain.Filter{FromDate: &from, ToDate: &to}
}

// Reset clears the filter; a nil filter signals "clear results".
func Reset() *domain.Filter {
	return nil
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		d := truncateDay(t)
		return &d, nil
	}
	return nil, &domain.ValidationError{Field: field, Message: "Invalid date " + raw + ", expected YYYY-MM-DD"}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// normalizeExtra flattens comma-separated values, trims and de-duplicates them
// and drops keys left without a value. Both ?k=a&k=b and ?k=a,b are supported.
func normalizeExtra(extra map[string][]string) map[string]string {
	out := make(map[string]string, len(extra))
	for key, values := range extra {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}

		seen := make(map[string]struct{})
		flattened := make([]string, 0, len(values))
		for _, v := range values {
			for _, part := range strings.Split(v, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if _, ok := seen[part]; ok {
					continue
				}
				seen[part] = struct{}{}
				flattened = append(flattened, part)
			}
		}
		if len(flattened) == 0 {
			continue
		}
		out[key] = strings.Join(flattened, ",")
	}
	return out
}

// FormatDate renders a filter date the way the backend expects it.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
