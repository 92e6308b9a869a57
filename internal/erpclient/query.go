package erpclient

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/filter"
	"github.com/andresuchdata/erp-reports/backend-go/internal/session"
)

const (
	ParamFromDate         = "fromDate"
	ParamToDate           = "toDate"
	ParamSearch           = "search"
	ParamDivisionID       = "divisionId"
	ParamShowAllDivisions = "showAllDivisions"
	ParamPage             = "page"
	ParamLimit            = "limit"

	defaultEntityParam = "entityId"
)

// Paging asks the backend for one page (server-side pagination).
type Paging struct {
	Page  int
	Limit int
}

// BuildQuery maps a filter onto list-endpoint query parameters. A field that
// is present becomes a parameter; absent or empty fields are omitted entirely,
// because the backend filters on parameter presence.
func BuildQuery(def domain.ReportDefinition, f *domain.Filter, snap session.Snapshot, paging *Paging) url.Values {
	q := url.Values{}

	if f != nil {
		setIfPresent(q, ParamFromDate, filter.FormatDate(f.FromDate))
		setIfPresent(q, ParamToDate, filter.FormatDate(f.ToDate))

		entityParam := def.EntityParam
		if entityParam == "" {
			entityParam = defaultEntityParam
		}
		setIfPresent(q, entityParam, f.EntityID)
		setIfPresent(q, ParamSearch, f.Search)

		keys := make([]string, 0, len(f.Extra))
		for k := range f.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			setIfPresent(q, k, f.Extra[k])
		}
	}

	if def.DivisionScoped {
		ApplyDivision(q, snap)
	}

	if paging != nil && paging.Limit > 0 {
		page := paging.Page
		if page < 1 {
			page = 1
		}
		q.Set(ParamPage, strconv.Itoa(page))
		q.Set(ParamLimit, strconv.Itoa(paging.Limit))
	}

	return q
}

// ApplyDivision implements the three-way division contract:
// the sentinel "all" id sends showAllDivisions=true, any other selected
// division sends divisionId, and no selection sends neither.
func ApplyDivision(q url.Values, snap session.Snapshot) {
	q.Del(ParamDivisionID)
	q.Del(ParamShowAllDivisions)

	division := strings.TrimSpace(snap.DivisionID)
	switch {
	case division == "":
	case division == domain.AllDivisionsID:
		q.Set(ParamShowAllDivisions, "true")
	default:
		q.Set(ParamDivisionID, division)
	}
}

func setIfPresent(q url.Values, key, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	q.Set(key, value)
}
