package handlers

import (
	"strconv"
	"strings"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/filter"
	"github.com/andresuchdata/erp-reports/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

// SessionHeader carries the gateway session id on every report request.
const SessionHeader = "X-Session-ID"

// ExportRunHeader carries the recorded export run id on downloads.
const ExportRunHeader = "X-Export-Run-ID"

// Query keys consumed by the handlers. Anything else is passed to the
// backend as an extra filter parameter.
var reservedParams = map[string]struct{}{
	"fromDate":  {},
	"toDate":    {},
	"entityId":  {},
	"search":    {},
	"page":      {},
	"page_size": {},
	"per_page":  {},
	"reset":     {},
	"defaults":  {},
	"format":    {},
	"scope":     {},
	"limit":     {},
}

func sessionID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(SessionHeader))
}

// parseListQuery reads the filter bar and paging parameters of a list
// request. The report's own entity parameter (customerId, warehouseId)
// is accepted as an alias of entityId.
func parseListQuery(c *gin.Context, def domain.ReportDefinition) service.ListQuery {
	q := service.ListQuery{
		SessionID: sessionID(c),
		Report:    def.Name,
		Page:      parseNonNegativeInt(c.Query("page")),
	}

	q.PerPage = parseNonNegativeInt(c.Query("page_size"))
	if q.PerPage == 0 {
		q.PerPage = parseNonNegativeInt(c.Query("per_page"))
	}

	from, hasFrom := c.GetQuery("fromDate")
	to, hasTo := c.GetQuery("toDate")
	q.Input = filter.Input{
		FromDate: strings.TrimSpace(from),
		ToDate:   strings.TrimSpace(to),
		EntityID: strings.TrimSpace(c.Query("entityId")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if q.Input.EntityID == "" && def.EntityParam != "" {
		q.Input.EntityID = strings.TrimSpace(c.Query(def.EntityParam))
	}

	for key, values := range c.Request.URL.Query() {
		if _, ok := reservedParams[key]; ok || key == def.EntityParam {
			continue
		}
		if q.Input.Extra == nil {
			q.Input.Extra = make(map[string][]string)
		}
		q.Input.Extra[key] = values
	}

	q.Reset = parseBool(c.Query("reset"))
	// A first visit without dates gets the report's default window.
	q.Defaults = !hasFrom && !hasTo && !q.Reset
	if raw, ok := c.GetQuery("defaults"); ok {
		q.Defaults = q.Defaults && parseBool(raw)
	}
	return q
}

func parseBool(value string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && v
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if fallback <= 0 {
		fallback = 20
	}
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func parseNonNegativeInt(value string) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v >= 0 {
		return v
	}
	return 0
}
