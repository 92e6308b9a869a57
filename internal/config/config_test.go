package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://localhost:5000/api", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.RequestTimeout())
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, 2*time.Second, cfg.Session.LogoutDelay())
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL())
	assert.Equal(t, 10, cfg.Report.DefaultPerPage)
	assert.Equal(t, 500, cfg.Report.MaxPerPage)
	assert.Equal(t, 7, cfg.Report.DefaultWindowDays)
	assert.Empty(t, cfg.Report.PDFFont)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "none", cfg.Storage.Sink)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ERP_BASE_URL", "https://erp.example.com/api/")
	v.Set("SESSION_STORE", "Redis")
	v.Set("STORAGE_SINK", "S3")
	v.Set("ERP_REQUEST_TIMEOUT_SECONDS", 0)
	v.Set("SESSION_LOGOUT_DELAY_SECONDS", -1)
	v.Set("REPORT_PDF_FONT", " /fonts/DejaVuSans.ttf ")

	cfg := fromViper(v)

	assert.Equal(t, "https://erp.example.com/api", cfg.Backend.BaseURL)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, "s3", cfg.Storage.Sink)
	assert.Equal(t, 30*time.Second, cfg.Backend.RequestTimeout())
	assert.Zero(t, cfg.Session.LogoutDelay())
	assert.Equal(t, "/fonts/DejaVuSans.ttf", cfg.Report.PDFFont)
}
