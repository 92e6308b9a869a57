// backend-go/internal/config/config.go
package config

import (
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Session  SessionConfig
	Report   ReportConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// BackendConfig points at the ERP REST backend the gateway fronts.
type BackendConfig struct {
	BaseURL               string
	RequestTimeoutSeconds int
}

type SessionConfig struct {
	Store              string // memory or redis
	KeyPrefix          string
	LogoutDelaySeconds int
	TTLHours           int
}

type ReportConfig struct {
	DefaultPerPage    int
	MaxPerPage        int
	DefaultWindowDays int

	// PDFFont is a TrueType file for PDF exports; empty uses the core
	// Helvetica font, which cannot draw text outside cp1252.
	PDFFont     string
	PDFBoldFont string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled              bool
	RedisURL             string
	RedisHost            string
	RedisPort            string
	RedisPassword        string
	RedisDB              int
	CollectionTTLSeconds int
}

type StorageConfig struct {
	Sink string // none, local, s3 or drive

	LocalDir string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	DriveCredentialsJSON string
	DriveFolderID        string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults(viper.GetViper())

		// Read from environment variables
		viper.AutomaticEnv()

		instance = fromViper(viper.GetViper())

		if instance.Storage.Sink == "local" {
			ensureDir(instance.Storage.LocalDir)
		}
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("ERP_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("ERP_REQUEST_TIMEOUT_SECONDS", 30)

	v.SetDefault("SESSION_STORE", "memory")
	v.SetDefault("SESSION_KEY_PREFIX", "session")
	v.SetDefault("SESSION_LOGOUT_DELAY_SECONDS", 2)
	v.SetDefault("SESSION_TTL_HOURS", 24)

	v.SetDefault("REPORT_DEFAULT_PER_PAGE", 10)
	v.SetDefault("REPORT_MAX_PER_PAGE", 500)
	v.SetDefault("REPORT_DEFAULT_WINDOW_DAYS", 7)
	v.SetDefault("REPORT_PDF_FONT", "")
	v.SetDefault("REPORT_PDF_BOLD_FONT", "")

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "erp_reports")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_COLLECTION_TTL_SECONDS", 60)

	v.SetDefault("STORAGE_SINK", "none")
	v.SetDefault("STORAGE_LOCAL_DIR", "./data/exports")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", true)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Backend: BackendConfig{
			BaseURL:               strings.TrimRight(v.GetString("ERP_BASE_URL"), "/"),
			RequestTimeoutSeconds: v.GetInt("ERP_REQUEST_TIMEOUT_SECONDS"),
		},
		Session: SessionConfig{
			Store:              strings.ToLower(v.GetString("SESSION_STORE")),
			KeyPrefix:          v.GetString("SESSION_KEY_PREFIX"),
			LogoutDelaySeconds: v.GetInt("SESSION_LOGOUT_DELAY_SECONDS"),
			TTLHours:           v.GetInt("SESSION_TTL_HOURS"),
		},
		Report: ReportConfig{
			DefaultPerPage:    v.GetInt("REPORT_DEFAULT_PER_PAGE"),
			MaxPerPage:        v.GetInt("REPORT_MAX_PER_PAGE"),
			DefaultWindowDays: v.GetInt("REPORT_DEFAULT_WINDOW_DAYS"),
			PDFFont:           strings.TrimSpace(v.GetString("REPORT_PDF_FONT")),
			PDFBoldFont:       strings.TrimSpace(v.GetString("REPORT_PDF_BOLD_FONT")),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("DB_ENABLED"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:              v.GetBool("CACHE_ENABLED"),
			RedisURL:             v.GetString("REDIS_URL"),
			RedisHost:            v.GetString("REDIS_HOST"),
			RedisPort:            v.GetString("REDIS_PORT"),
			RedisPassword:        v.GetString("REDIS_PASSWORD"),
			RedisDB:              v.GetInt("REDIS_DB"),
			CollectionTTLSeconds: v.GetInt("CACHE_COLLECTION_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Sink:                 strings.ToLower(v.GetString("STORAGE_SINK")),
			LocalDir:             v.GetString("STORAGE_LOCAL_DIR"),
			S3Endpoint:           v.GetString("S3_ENDPOINT"),
			S3AccessKey:          v.GetString("S3_ACCESS_KEY"),
			S3SecretKey:          v.GetString("S3_SECRET_KEY"),
			S3Bucket:             v.GetString("S3_BUCKET"),
			S3Region:             v.GetString("S3_REGION"),
			S3UseSSL:             v.GetBool("S3_USE_SSL"),
			DriveCredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			DriveFolderID:        v.GetString("GOOGLE_DRIVE_FOLDER_ID"),
		},
	}
}

// RequestTimeout returns the per-request deadline for backend calls.
func (c BackendConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c SessionConfig) LogoutDelay() time.Duration {
	if c.LogoutDelaySeconds < 0 {
		return 0
	}
	return time.Duration(c.LogoutDelaySeconds) * time.Second
}

func (c SessionConfig) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TTLHours) * time.Hour
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
