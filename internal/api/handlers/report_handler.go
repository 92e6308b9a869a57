package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/andresuchdata/erp-reports/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	service *service.ReportService
}

func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// GetCatalog lists the reports the gateway serves.
func (h *ReportHandler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reports": h.service.Catalog()})
}

func (h *ReportHandler) GetList(c *gin.Context) {
	def, err := h.service.Definition(c.Param("report"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.service.List(c.Request.Context(), parseListQuery(c, def))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Export streams the rendered file as an attachment.
func (h *ReportHandler) Export(c *gin.Context) {
	def, err := h.service.Definition(c.Param("report"))
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.service.Export(c.Request.Context(), service.ExportQuery{
		ListQuery: parseListQuery(c, def),
		Format:    c.Query("format"),
		Scope:     c.Query("scope"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Header(ExportRunHeader, result.RunID)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *ReportHandler) GetRecentExports(c *gin.Context) {
	limit := parsePositiveIntWithDefault(c.Query("limit"), 20)

	runs, err := h.service.RecentExports(c.Request.Context(), c.Param("report"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exports": runs})
}

func (h *ReportHandler) GetLookups(c *gin.Context) {
	lookups, err := h.service.Lookups(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lookups)
}

func (h *ReportHandler) GetRow(c *gin.Context) {
	h.mutate(c, service.ActionView, false)
}

func (h *ReportHandler) CreateRow(c *gin.Context) {
	h.mutate(c, service.ActionCreate, true)
}

func (h *ReportHandler) UpdateRow(c *gin.Context) {
	h.mutate(c, service.ActionUpdate, true)
}

func (h *ReportHandler) DeleteRow(c *gin.Context) {
	h.mutate(c, service.ActionDelete, false)
}

func (h *ReportHandler) mutate(c *gin.Context, action string, withBody bool) {
	def, err := h.service.Definition(c.Param("report"))
	if err != nil {
		respondError(c, err)
		return
	}

	q := service.MutationQuery{
		ListQuery: parseListQuery(c, def),
		Action:    action,
		ID:        strings.TrimSpace(c.Param("id")),
	}
	// Without explicit filter parameters the page's last filter is refetched.
	q.Defaults = false

	if withBody {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
		q.Payload = payload
	}

	result, err := h.service.Mutate(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if action == service.ActionCreate {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}
