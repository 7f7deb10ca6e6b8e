// Package config handles loading and validating runtime configuration for the court booking API.
// Configuration values (like the database connection and API port) are read from environment
// variables rather than being hardcoded, so the same binary runs in dev and production with
// only the environment changed.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	// godotenv reads a .env file and loads its key=value pairs into the process environment.
	"github.com/joho/godotenv"
	// envconfig decodes environment variables into a tagged struct, applying defaults.
	"github.com/kelseyhightower/envconfig"
)

// Auth modes accepted by AUTH_MODE.
const (
	// AuthModeHeader trusts the X-Role request header as-is.
	AuthModeHeader = "header"
	// AuthModeToken requires a signed bearer token whose role claim is checked.
	AuthModeToken = "token"
)

// Config holds all runtime configuration values for the application.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`
	Env  string `envconfig:"ENV" default:"development"`

	// DatabaseURL wins when set; otherwise the DSN is assembled from the DB_* parts.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      int    `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName      string `envconfig:"DB_NAME" default:"court_booking"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`

	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"file://migrations"`

	AuthMode  string        `envconfig:"AUTH_MODE" default:"header"`
	JWTSecret string        `envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// Timezone decides what "today" means when rejecting past-dated bookings.
	Timezone string `envconfig:"TIMEZONE" default:"UTC"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load reads configuration from the environment (after an optional .env file) and validates it.
func Load() (*Config, error) {
	// A missing .env is fine: real environment variables are set by the deployment platform.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the server cannot run with.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeHeader:
	case AuthModeToken:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when AUTH_MODE=token")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeHeader, AuthModeToken, c.AuthMode)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	return nil
}

// DSN returns the database connection string to use.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Location returns the booking timezone. Validate has already checked the name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// AllowedOrigins returns CORS_ORIGINS in the comma-separated form Fiber's cors middleware expects.
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ",")
}
