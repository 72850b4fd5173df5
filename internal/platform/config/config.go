// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct. Outside production a local .env file is loaded first through
'joho/godotenv'; real environment variables always win.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Verification Modes

// VerifyMode selects how access tokens are verified.
type VerifyMode string

const (
	// VerifyRemote asks the identity provider for every token (GET /user).
	VerifyRemote VerifyMode = "remote"
	// VerifySecret checks HS256 tokens locally with SUPABASE_JWT_SECRET.
	VerifySecret VerifyMode = "secret"
	// VerifyJWKS checks asymmetric tokens against the provider's JWKS endpoint.
	VerifyJWKS VerifyMode = "jwks"
)

// # Configuration Schema

// Config holds all runtime configuration for the Mulita API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value store (Redis) for login counters and reset throttling
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Identity provider (Supabase GoTrue)
	SupabaseURL       string     `env:"SUPABASE_URL,required,notEmpty"`
	SupabaseAnonKey   string     `env:"SUPABASE_ANON_KEY,required,notEmpty"`
	SupabaseJWTSecret string     `env:"SUPABASE_JWT_SECRET"`
	VerifyMode        VerifyMode `env:"AUTH_VERIFY_MODE" envDefault:"remote"`

	// Auth policy
	UpstreamTimeout  time.Duration `env:"AUTH_UPSTREAM_TIMEOUT"   envDefault:"5s"`
	LoginMaxAttempts int           `env:"AUTH_LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginCooldown    time.Duration `env:"AUTH_LOGIN_COOLDOWN"     envDefault:"15m"`
	ResetCooldown    time.Duration `env:"AUTH_RESET_COOLDOWN"     envDefault:"1m"`
	ResetRedirectURL string        `env:"PASSWORD_RESET_REDIRECT_URL"`

	// Cross-Origin Resource Sharing (comma-separated)
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// .env is a development convenience; a missing file is not an error.
	if !strings.EqualFold(os.Getenv("ENVIRONMENT"), "production") {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to read .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.VerifyMode {
	case VerifyRemote, VerifyJWKS:
	case VerifySecret:
		if c.SupabaseJWTSecret == "" {
			return errors.New("config: SUPABASE_JWT_SECRET is required when AUTH_VERIFY_MODE=secret")
		}
	default:
		return fmt.Errorf("config: unknown AUTH_VERIFY_MODE %q", c.VerifyMode)
	}

	if c.UpstreamTimeout <= 0 {
		return errors.New("config: AUTH_UPSTREAM_TIMEOUT must be positive")
	}
	if c.LoginMaxAttempts <= 0 {
		return errors.New("config: AUTH_LOGIN_MAX_ATTEMPTS must be positive")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
// Session cookies are marked Secure only in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the CORS allow-list parsed from EXTRA_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// AuthBaseURL is the GoTrue REST root derived from SUPABASE_URL.
func (c *Config) AuthBaseURL() string {
	return strings.TrimRight(c.SupabaseURL, "/") + "/auth/v1"
}
