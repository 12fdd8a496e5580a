// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package config builds the single Config value the server runs with.
//
// Load layers three sources (later wins): built-in defaults, an optional
// YAML file (CONFIG_PATH or ./config.yaml), and environment variables.
// main calls Load exactly once and hands *Config (or one of its sections)
// to each collaborator; nothing else in the tree reads the environment.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//	client := tmdb.NewClient(&cfg.TMDB)
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Site      SiteConfig      `koanf:"site"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	TMDB      TMDBConfig      `koanf:"tmdb"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Events    EventsConfig    `koanf:"events"`
	WatchRoom WatchRoomConfig `koanf:"watch_room"`
	Audit     AuditConfig     `koanf:"audit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// Environment is development, production or test. NODE_ENV and
	// ENVIRONMENT both map here; set only one of them.
	Environment string `koanf:"environment"`
}

// SiteConfig holds public-facing URL settings used by robots.txt and the sitemap.
type SiteConfig struct {
	BaseURL string `koanf:"base_url"`
}

// DatabaseConfig configures DuckDB.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// SecurityConfig holds authentication, session and HTTP hardening settings.
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// SessionStore is "memory" or "badger".
	SessionStore     string `koanf:"session_store"`
	SessionStorePath string `koanf:"session_store_path"`
	CookieSecure     bool   `koanf:"cookie_secure"`

	// AdminEmails register with the admin role.
	AdminEmails []string `koanf:"admin_emails"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// TMDBConfig configures the metadata proxy.
type TMDBConfig struct {
	APIKey       string        `koanf:"api_key"`
	BaseURL      string        `koanf:"base_url"`
	ImageBaseURL string        `koanf:"image_base_url"`
	Timeout      time.Duration `koanf:"timeout"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// TelemetryConfig configures the error reporting side channel.
type TelemetryConfig struct {
	SentryDSN    string        `koanf:"sentry_dsn"`
	SampleRate   float64       `koanf:"sample_rate"`
	FlushTimeout time.Duration `koanf:"flush_timeout"`
}

// EventsConfig selects the room event transport. An empty NATSURL keeps
// events in-process.
type EventsConfig struct {
	NATSURL       string        `koanf:"nats_url"`
	Topic         string        `koanf:"topic"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`

	// EmbeddedNATS starts an in-process NATS server when NATSURL is empty,
	// so a single node exercises the same transport as a cluster.
	EmbeddedNATS bool   `koanf:"embedded_nats"`
	EmbeddedHost string `koanf:"embedded_host"`
	EmbeddedPort int    `koanf:"embedded_port"`
}

// WatchRoomConfig bounds the watch room subsystem.
type WatchRoomConfig struct {
	DefaultHistoryLimit int     `koanf:"default_history_limit"`
	MaxHistoryLimit     int     `koanf:"max_history_limit"`
	MaxMessageLength    int     `koanf:"max_message_length"`
	ChatRatePerSecond   float64 `koanf:"chat_rate_per_second"`
	ChatBurst           int     `koanf:"chat_burst"`
}

// AuditConfig configures the security audit trail.
type AuditConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Retention   time.Duration `koanf:"retention"`
	BufferSize  int           `koanf:"buffer_size"`
	LogToStdout bool          `koanf:"log_to_stdout"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads the layered configuration and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Addr returns host:port for http.Server.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (s *SecurityConfig) IsAdminEmail(email string) bool {
	for _, e := range s.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

// Configured reports whether a TMDB API key is present.
func (t *TMDBConfig) Configured() bool {
	return t.APIKey != ""
}
