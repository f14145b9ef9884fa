package config

import (
	"log/slog"
	"os"
	"time"
)

const (
	defaultAppEnv     = "development"
	defaultDBPath     = "./hvac.db"
	defaultPort       = "8080"
	defaultSessionTTL = 12 * time.Hour
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv        string
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	SessionTTL    time.Duration
	DBPath        string
	Port          string
	LogLevel      string
}

// IsDev reports whether the app runs in local development, where migrations
// and seed data are applied on startup.
func (c Config) IsDev() bool {
	return c.AppEnv == "" || c.AppEnv == defaultAppEnv || c.AppEnv == "dev"
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: a missing .env is fine, production injects real env vars.
	_ = loadDotEnv(".env")

	cfg := Config{
		AppEnv:        os.Getenv("APP_ENV"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    defaultSessionTTL,
		DBPath:        os.Getenv("DB_PATH"),
		Port:          os.Getenv("PORT"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
	}

	if cfg.AppEnv == "" {
		cfg.AppEnv = defaultAppEnv
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			slog.Warn("ignoring invalid SESSION_TTL", "value", raw, "default", defaultSessionTTL)
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if cfg.AdminEmail == "" {
		slog.Warn("ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		slog.Warn("ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		slog.Warn("SESSION_SECRET is not set, admin sessions are disabled")
	}

	return cfg
}
