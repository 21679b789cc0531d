// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`
	Env  string `envconfig:"ENV" default:"development"`

	// When DatabaseURL is set the server runs against Postgres, otherwise
	// it falls back to the SQLite file at SQLitePath.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/chat.db"`

	// Timezone used to render message timestamps. Pinned per deployment,
	// never per client.
	Timezone string `envconfig:"CHAT_TIMEZONE" default:"Asia/Dhaka"`

	UploadDir string `envconfig:"UPLOAD_DIR" default:"./uploads"`

	JWTSecret string `envconfig:"JWT_SECRET"`
	JWTIssuer string `envconfig:"JWT_ISS" default:"nowrin-ashikur-chat"`
}

// Load reads configuration from environment variables. In development it
// loads from a .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET environment variable is not set")
	}
	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required in production")
	}

	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("config: invalid CHAT_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return &cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Location resolves the deployment display timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
