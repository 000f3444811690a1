package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	Auth      AuthConfig
	OAuth     OAuthConfig
	Upstream  UpstreamConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	URL string
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

type AuthConfig struct {
	RequireAPIKeys bool
	KeyHeader      string   // default: X-API-Key; Authorization: Bearer <key> is always accepted
	StaticKeys     []string // keys accepted without a database lookup
	AdminSecret    string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	SessionSecret      string
	SessionCookie      string
	SessionTTL         time.Duration
	SuccessRedirect    string
	SecureCookies      bool
}

// Enabled reports whether Google sign-in can be offered.
func (c OAuthConfig) Enabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

type UpstreamConfig struct {
	AdvisoryURLTemplate string // one %s, replaced by the uppercased country code
	GeoURLTemplate      string // one %s, replaced by the client IP (may be empty)
	Timeout             time.Duration
	UserAgent           string
}

type RateLimitConfig struct {
	RequestsPerMinute  int
	UsageFlushInterval time.Duration // how often per-key usage is copied to Postgres
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables with sensible defaults.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 4000),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Auth: AuthConfig{
			RequireAPIKeys: getEnvBool("AUTH_REQUIRE_API_KEYS", false),
			KeyHeader:      getEnv("AUTH_KEY_HEADER", "X-API-Key"),
			StaticKeys:     getEnvList("AUTH_STATIC_KEYS", []string{"dev-demo-api-key-123"}),
			AdminSecret:    getEnv("ADMIN_SECRET", ""),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			GoogleCallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:4000/auth/google/callback"),
			SessionSecret:      getEnv("SESSION_SECRET", "dev-session-secret-change-me"),
			SessionCookie:      getEnv("SESSION_COOKIE", "travelsafe_session"),
			SessionTTL:         getEnvDuration("SESSION_TTL", 24*time.Hour),
			SuccessRedirect:    getEnv("OAUTH_SUCCESS_REDIRECT", "/"),
			SecureCookies:      getEnvBool("SESSION_SECURE_COOKIES", false),
		},
		Upstream: UpstreamConfig{
			AdvisoryURLTemplate: getEnv("ADVISORY_URL_TEMPLATE", "https://data.international.gc.ca/travel-voyage/cta-ap-%s.json"),
			GeoURLTemplate:      getEnv("GEO_URL_TEMPLATE", "https://ipapi.co/%s/json/"),
			Timeout:             getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),
			UserAgent:           getEnv("UPSTREAM_USER_AGENT", "TravelSafe/1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvInt("RATE_LIMIT_RPM", 60),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:4000"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if strings.Count(c.Upstream.AdvisoryURLTemplate, "%s") != 1 {
		return fmt.Errorf("advisory URL template must contain exactly one %%s: %q", c.Upstream.AdvisoryURLTemplate)
	}
	if strings.Count(c.Upstream.GeoURLTemplate, "%s") != 1 {
		return fmt.Errorf("geo URL template must contain exactly one %%s: %q", c.Upstream.GeoURLTemplate)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.OAuth.Enabled() && c.OAuth.SessionSecret == "" {
		return fmt.Errorf("session secret is required when Google sign-in is enabled")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
