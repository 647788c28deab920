// Package config loads all service configuration from ROSTER_* environment
// variables and validates it before the process starts serving.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/roster/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Audit         AuditConfig
	Observability ObservabilityConfig

	// SeedFile optionally points to a YAML fixture applied after
	// migrations. Meant for development and demos.
	SeedFile string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds the SQL backend configuration
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite3"
	Driver string
	// URL is the postgres connection string or the sqlite file path
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds the rate limiter backend configuration
type RedisConfig struct {
	// Enabled gates the distributed rate limiter; when false the API
	// serves without rate limits.
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds token and OIDC settings
type AuthConfig struct {
	// TokenTTL bounds issued API tokens; zero issues non-expiring tokens
	TokenTTL time.Duration
	// ResolverCacheTTL bounds how long a revoked token keeps resolving
	ResolverCacheTTL time.Duration

	OIDCEnabled      bool
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Retention     time.Duration
	SweepSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("ROSTER_HOST", "0.0.0.0"),
			Port:            getEnv("ROSTER_PORT", "8080"),
			ReadTimeout:     getEnvDuration("ROSTER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("ROSTER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("ROSTER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("ROSTER_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("ROSTER_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("ROSTER_DB_DRIVER", "postgres"),
			URL:          getEnv("ROSTER_DB_URL", ""),
			MaxOpenConns: getEnvInt("ROSTER_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("ROSTER_DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("ROSTER_REDIS_ENABLED", false),
			Addr:     getEnv("ROSTER_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("ROSTER_REDIS_PASSWORD", ""),
			DB:       getEnvInt("ROSTER_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenTTL:         getEnvDuration("ROSTER_TOKEN_TTL", 0),
			ResolverCacheTTL: getEnvDuration("ROSTER_RESOLVER_CACHE_TTL", time.Minute),
			OIDCEnabled:      getEnvBool("ROSTER_OIDC_ENABLED", false),
			OIDCIssuer:       getEnv("ROSTER_OIDC_ISSUER", ""),
			OIDCClientID:     getEnv("ROSTER_OIDC_CLIENT_ID", ""),
			OIDCClientSecret: getEnv("ROSTER_OIDC_CLIENT_SECRET", ""),
			OIDCRedirectURL:  getEnv("ROSTER_OIDC_REDIRECT_URL", ""),
		},
		Audit: AuditConfig{
			Retention:     getEnvDuration("ROSTER_AUDIT_RETENTION", 90*24*time.Hour),
			SweepSchedule: getEnv("ROSTER_AUDIT_SWEEP_SCHEDULE", "0 3 * * *"),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(strings.ToLower(getEnv("ROSTER_LOG_LEVEL", "info"))),
			MetricsEnabled:     getEnvBool("ROSTER_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("ROSTER_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("ROSTER_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("ROSTER_OTEL_SERVICE_NAME", "roster"),
			OTelServiceVersion: getEnv("ROSTER_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("ROSTER_OTEL_INSECURE", true),
		},
		SeedFile: getEnv("ROSTER_SEED_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database URL is required for the postgres driver")
		}
	case "sqlite3":
		if c.Database.URL == "" {
			return fmt.Errorf("database file path is required for the sqlite3 driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Auth.OIDCEnabled {
		if c.Auth.OIDCIssuer == "" {
			return fmt.Errorf("OIDC issuer is required when OIDC is enabled")
		}
		if c.Auth.OIDCClientID == "" || c.Auth.OIDCClientSecret == "" {
			return fmt.Errorf("OIDC client credentials are required when OIDC is enabled")
		}
		if c.Auth.OIDCRedirectURL == "" {
			return fmt.Errorf("OIDC redirect URL is required when OIDC is enabled")
		}
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
