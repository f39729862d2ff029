// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Options  OptionsConfig
	Schema   SchemaConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing the response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty keeps imported records
	// in memory. Supports both DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" secret:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds bulk import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 20MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`

	// MaxConcurrent is the maximum number of parallel imports (default: 5)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single import operation (default: 5m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"5m"`

	// Commit stores accepted rows after each import (default: true)
	Commit bool `env:"IMPORT_COMMIT" default:"true"`
}

// OptionsConfig holds remote option fetch settings.
type OptionsConfig struct {
	// Timeout bounds one remote fetch (default: 10s)
	Timeout time.Duration `env:"OPTIONS_TIMEOUT" default:"10s"`

	// MaxBodyBytes caps a remote response body (default: 5MB)
	MaxBodyBytes int64 `env:"OPTIONS_MAX_BODY_BYTES" default:"5242880"`

	// Concurrency caps parallel fetches for one schema (default: 4)
	Concurrency int `env:"OPTIONS_CONCURRENCY" default:"4"`
}

// SchemaConfig locates entity definitions.
type SchemaConfig struct {
	// Dir holds one YAML schema per entity (default: schemas)
	Dir string `env:"SCHEMA_DIR" default:"schemas"`

	// PermissionsFile is the YAML role/action mapping; empty allows everything
	PermissionsFile string `env:"PERMISSIONS_FILE"`

	// Locale drives string collation when sorting (default: en)
	Locale string `env:"SORT_LOCALE" default:"en"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enforces X-API-Key on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS" secret:"true"`

	// APIKeyRoles binds keys to roles as comma-separated key=role pairs.
	// A mapped key always acts as its role; the role header is ignored.
	APIKeyRoles []string `env:"API_KEY_ROLES" secret:"true"`

	// RoleHeader names the request header carrying the caller's role.
	// It is honored only on connections from a trusted proxy (default: X-Role)
	RoleHeader string `env:"ROLE_HEADER" default:"X-Role"`

	// DefaultRole applies when neither a key role nor a trusted role header
	// is present (default: viewer)
	DefaultRole string `env:"DEFAULT_ROLE" default:"viewer"`
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

// KeyRoles parses APIKeyRoles into a key to role map.
func (c *SecurityConfig) KeyRoles() (map[string]string, error) {
	out := make(map[string]string, len(c.APIKeyRoles))
	for _, entry := range c.APIKeyRoles {
		key, role, ok := strings.Cut(entry, "=")
		key, role = strings.TrimSpace(key), strings.TrimSpace(role)
		if !ok || key == "" || role == "" {
			return nil, fmt.Errorf("API_KEY_ROLES entry must be key=role")
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("API_KEY_ROLES maps one key twice")
		}
		out[key] = role
	}
	return out, nil
}

// UsePostgres reports whether a database is configured.
func (c *DatabaseConfig) UsePostgres() bool {
	return c.URL != ""
}
