package handlers

import (
	"net/http"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	service *service.ReportService
}

func NewSessionHandler(service *service.ReportService) *SessionHandler {
	return &SessionHandler{service: service}
}

type openSessionRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type switchDivisionRequest struct {
	DivisionID   string `json:"divisionId"`
	DivisionName string `json:"divisionName"`
}

// Open starts a session from the backend tokens obtained at login.
func (h *SessionHandler) Open(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	snap, err := h.service.OpenSession(c.Request.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, snap)
}

func (h *SessionHandler) Current(c *gin.Context) {
	snap, err := h.service.CurrentSession(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *SessionHandler) SwitchDivision(c *gin.Context) {
	var req switchDivisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	snap, err := h.service.SwitchDivision(c.Request.Context(), sessionID(c), domain.Division{
		ID:   req.DivisionID,
		Name: req.DivisionName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), sessionID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
