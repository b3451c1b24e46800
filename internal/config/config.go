// Package config provides centralized configuration management for the server.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Report   ReportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Auth     AuthConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 3000)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"3000"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StorageConfig selects where users, inputs, and the structure are kept.
type StorageConfig struct {
	// Driver is "file" (JSON documents on disk) or "postgres" (default: file)
	Driver string `env:"STORAGE_DRIVER" default:"file"`

	// Dir is the data directory for the file driver (default: data)
	Dir string `env:"STORAGE_DIR" envAlt:"DATA_DIR" default:"data"`
}

// DatabaseConfig holds database connection settings for the postgres driver.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string, required when STORAGE_DRIVER=postgres
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds structure import settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// TempDir is where uploads are staged before parsing (default: uploads)
	TempDir string `env:"UPLOAD_TEMP_DIR" default:"uploads"`

	// MaxConcurrent is the maximum number of parallel imports and renders (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a job slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// ReportConfig holds PDF generation settings.
type ReportConfig struct {
	// OutputDir is where generated PDFs are written (default: output)
	OutputDir string `env:"REPORT_OUTPUT_DIR" default:"output"`

	// Timezone is the IANA zone used for "Created:" timestamps (default: Local)
	Timezone string `env:"REPORT_TIMEZONE" default:"Local"`

	// FontPath is an optional TTF with wide glyph coverage; empty uses Helvetica
	FontPath string `env:"REPORT_FONT_PATH"`

	// Retention is how long generated PDFs are kept on disk (default: 24h)
	Retention time.Duration `env:"REPORT_RETENTION" default:"24h"`

	// CleanupInterval is how often old PDFs and sessions are purged (default: 1h)
	CleanupInterval time.Duration `env:"REPORT_CLEANUP_INTERVAL" default:"1h"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// LoginLimit is requests per minute for the login endpoint (default: 10)
	LoginLimit int `env:"RATE_LIMIT_LOGIN" default:"10"`

	// HeavyLimit is requests per minute for upload and PDF endpoints (default: 20)
	HeavyLimit int `env:"RATE_LIMIT_HEAVY" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// AuthConfig holds session and bootstrap account settings.
type AuthConfig struct {
	// SessionTTL is how long a login stays valid (default: 24h)
	SessionTTL time.Duration `env:"SESSION_TTL" default:"24h"`

	// CookieSecure sets the Secure flag on the session cookie (default: false)
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`

	// BootstrapPassword is the initial main_admin password on first start
	BootstrapPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD" default:"admin123"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Location resolves the report timezone.
func (c *ReportConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
