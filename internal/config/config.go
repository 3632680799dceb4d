package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session storage drivers.
const (
	StorageFile  = "file"
	StorageMongo = "mongo"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	API       APIConfig
	Session   SessionConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
}

// ServerConfig holds options of the local operator HTTP surface.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// APIConfig points at the billing REST API.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig selects where the session survives restarts.
type SessionConfig struct {
	Storage  string
	FilePath string
}

// SheetsConfig contains configuration required to export dashboards to Google Sheets.
// Export is disabled when CredentialsPath is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether dashboard export is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule         string
	StoreRefreshSchedule string
	Timezone             string
}

// MongoDBConfig holds settings for MongoDB. Mongo is disabled when URI is empty.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether a MongoDB connection is configured.
func (c MongoDBConfig) Enabled() bool {
	return c.URI != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	timeout, err := time.ParseDuration(getenvWithDefault("BILLING_API_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("BILLING_API_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		API: APIConfig{
			BaseURL: os.Getenv("BILLING_API_URL"),
			Timeout: timeout,
		},
		Session: SessionConfig{
			Storage:  strings.ToLower(getenvWithDefault("SESSION_STORAGE", StorageFile)),
			FilePath: getenvWithDefault("SESSION_FILE", ".billdesk/session.json"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Reporting: ReportingConfig{
			CronSchedule:         getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
			StoreRefreshSchedule: getenvWithDefault("STORE_REFRESH_SCHEDULE", "*/15 * * * *"),
			Timezone:             getenvWithDefault("TIMEZONE", "Asia/Kolkata"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "billdesk"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.API.BaseURL == "" {
		return errors.New("BILLING_API_URL must be provided")
	}
	if c.API.Timeout <= 0 {
		return errors.New("BILLING_API_TIMEOUT must be positive")
	}

	switch c.Session.Storage {
	case StorageFile:
		if c.Session.FilePath == "" {
			return errors.New("SESSION_FILE must be provided for file session storage")
		}
	case StorageMongo:
		if !c.MongoDB.Enabled() {
			return errors.New("MONGODB_URI must be provided for mongo session storage")
		}
	default:
		return fmt.Errorf("unsupported SESSION_STORAGE %q", c.Session.Storage)
	}

	if c.Sheets.Enabled() && c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided when sheets export is enabled")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
