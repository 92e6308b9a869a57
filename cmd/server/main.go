// backend-go/cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/erp-reports/backend-go/internal/api"
	"github.com/andresuchdata/erp-reports/backend-go/internal/cache"
	"github.com/andresuchdata/erp-reports/backend-go/internal/config"
	"github.com/andresuchdata/erp-reports/backend-go/internal/erpclient"
	"github.com/andresuchdata/erp-reports/backend-go/internal/repository"
	"github.com/andresuchdata/erp-reports/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/erp-reports/backend-go/internal/service"
	"github.com/andresuchdata/erp-reports/backend-go/internal/session"
	"github.com/andresuchdata/erp-reports/backend-go/internal/storage"
	"github.com/andresuchdata/erp-reports/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		logger.UseJSON(os.Stdout)
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Session store
	sessionStore := session.NewMemoryStore()
	if cfg.Session.Store == "redis" {
		redisClient, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to redis session store")
		}
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient, cfg.Session.KeyPrefix, cfg.Session.TTL())
	}
	sessions := session.NewManager(sessionStore, cfg.Session.LogoutDelay())
	defer sessions.Close()

	collections, err := cache.NewCollectionCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Collection cache unavailable, continuing without it")
		collections = cache.NewNoopCollectionCache()
	}

	// Export run log
	runs := repository.NewNoopExportRunRepository()
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		runs = postgres.NewExportRunRepository(db)
	}

	sink, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("sink", cfg.Storage.Sink).Msg("Failed to initialize export storage")
	}

	client := erpclient.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout(), nil)
	reportService := service.NewReportService(client, sessions, collections, runs, sink, cfg.Report)

	router := api.NewRouter(&api.Services{ReportService: reportService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("backend", cfg.Backend.BaseURL).
			Str("sink", cfg.Storage.Sink).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
