// Package config defines the global configuration structure for the BloomWatch
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Struct Defaults (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup.
package config

import (
	"time"

	"bloomwatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the BloomWatch service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"bloomwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	Upstream UpstreamConfig
	Poller   PollerConfig
	Archive  ArchiveConfig
	Security SecurityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// Public URL for links in generated advisories (no trailing slash)
	APIExternalURL string        `envconfig:"API_EXTERNAL_URL" default:"http://localhost:8080"`
	ReadTimeout    time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// UpstreamConfig holds the external data-source endpoints and client tuning.
// All three upstreams are public APIs; only the satellite service takes a key.
type UpstreamConfig struct {
	WeatherBaseURL   string `envconfig:"OPEN_METEO_URL" default:"https://api.open-meteo.com/v1"`
	ArchiveBaseURL   string `envconfig:"OPEN_METEO_ARCHIVE_URL" default:"https://archive-api.open-meteo.com/v1"`
	LandCoverBaseURL string `envconfig:"LAND_COVER_URL" default:"https://services.terrascope.be/wms/v2"`
	SatelliteBaseURL string `envconfig:"SATELLITE_URL" default:""`

	SatelliteAPIKey SecretString  `envconfig:"SATELLITE_API_KEY"`
	RequestTimeout  time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`
	MaxRetries      int           `envconfig:"UPSTREAM_MAX_RETRIES" default:"2"`
}

// PollerConfig holds the scheduled polling cadence for monitored sites.
type PollerConfig struct {
	// CronSpec is a robfig/cron expression; the default runs hourly on the hour.
	CronSpec       string        `envconfig:"POLL_CRON" default:"0 * * * *"`
	SiteTimeout    time.Duration `envconfig:"POLL_SITE_TIMEOUT" default:"60s"`
	MaxConcurrency int           `envconfig:"POLL_MAX_CONCURRENCY" default:"4"`
}

// ArchiveConfig holds cold-storage export settings for analysis snapshots.
type ArchiveConfig struct {
	Dir           string        `envconfig:"ARCHIVE_DIR" default:"./archive"`
	RetentionDays int           `envconfig:"ARCHIVE_RETENTION_DAYS" default:"90"`
	BatchWindow   time.Duration `envconfig:"ARCHIVE_BATCH_WINDOW" default:"24h"`
}

// SecurityConfig holds admin access and CORS settings.
type SecurityConfig struct {
	AdminAPIKey        SecretString `envconfig:"ADMIN_API_KEY"`
	CorsAllowedOrigins []string     `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
