// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/erp-reports/backend-go/internal/api/handlers"
	"github.com/andresuchdata/erp-reports/backend-go/internal/api/middleware"
	"github.com/andresuchdata/erp-reports/backend-go/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	ReportService *service.ReportService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.SessionHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", handlers.ExportRunHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.ReportService != nil {
		sessionHandler := handlers.NewSessionHandler(services.ReportService)
		sessionGroup := apiGroup.Group("/session")
		{
			sessionGroup.POST("", sessionHandler.Open)
			sessionGroup.GET("", sessionHandler.Current)
			sessionGroup.PUT("/division", sessionHandler.SwitchDivision)
			sessionGroup.DELETE("", sessionHandler.Logout)
		}

		reportHandler := handlers.NewReportHandler(services.ReportService)
		apiGroup.GET("/lookups", reportHandler.GetLookups)

		reportGroup := apiGroup.Group("/reports")
		{
			reportGroup.GET("", reportHandler.GetCatalog)
			reportGroup.GET("/:report", reportHandler.GetList)
			reportGroup.GET("/:report/export", reportHandler.Export)
			reportGroup.GET("/:report/exports", reportHandler.GetRecentExports)

			rowGroup := reportGroup.Group("/:report/rows")
			{
				rowGroup.POST("", reportHandler.CreateRow)
				rowGroup.GET("/:id", reportHandler.GetRow)
				rowGroup.PUT("/:id", reportHandler.UpdateRow)
				rowGroup.DELETE("/:id", reportHandler.DeleteRow)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
