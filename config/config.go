package config

import (
	"os"
	"strings"
	"time"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Identity provider, allowlist and demo configuration
//   - database.go: Database and Redis configuration
//   - http.go: HTTP server and cookie configuration
//   - session.go: Client state storage and idle eviction
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth      AuthConfig
	Allowlist AllowlistConfig `envPrefix:"ALLOWLIST_"`

	// Academic data API
	DataAPI DataAPIConfig `envPrefix:"DATA_API_"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Session state configuration
	Session SessionConfig `envPrefix:"SESSION_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Allowlist.Sanitize()
	c.DataAPI.Sanitize()
	c.Session.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// NeedsDB reports whether any configured component reads from Postgres.
func (c *AppConfig) NeedsDB() bool {
	return c.Allowlist.Backend == AllowlistBackendPostgres
}

// NeedsRedis reports whether any configured component reads from Redis.
func (c *AppConfig) NeedsRedis() bool {
	return c.Session.Store == SessionStoreRedis
}

// DataAPIConfig points the academic data handlers at the remote data service.
// An empty URL serves built-in sample data instead.
type DataAPIConfig struct {
	URL        string        `env:"URL"`
	Timeout    time.Duration `env:"TIMEOUT"     envDefault:"15s"`
	RetryLimit int           `env:"RETRY_LIMIT" envDefault:"2"`
}

// Sanitize applies guardrails to data API configuration values.
func (d *DataAPIConfig) Sanitize() {
	d.URL = strings.TrimSpace(d.URL)
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}
	if d.RetryLimit < 0 {
		d.RetryLimit = 0
	}
}
