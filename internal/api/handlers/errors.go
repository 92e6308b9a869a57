package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/export"
	"github.com/andresuchdata/erp-reports/backend-go/internal/fetcher"
	"github.com/andresuchdata/erp-reports/backend-go/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// respondError maps service errors onto HTTP statuses. Backend failures keep
// the backend's status and message; anything unexpected is a 500.
func respondError(c *gin.Context, err error) {
	var (
		vErr   *domain.ValidationError
		apiErr *domain.APIError
	)

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "field": vErr.Field})
	case errors.Is(err, domain.ErrUnknownReport):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotSupported):
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, export.ErrEmptyTable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": export.ErrEmptyTable.Error()})
	case errors.Is(err, fetcher.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": domain.UserMessage(err)})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.FallbackErrorMessage, "details": err.Error()})
	}
}
