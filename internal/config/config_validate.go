// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// minJWTSecretLength applies in production only.
const minJWTSecretLength = 32

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSite,
		c.validateDatabase,
		c.validateSecurity,
		c.validateTMDB,
		c.validateTelemetry,
		c.validateWatchRoom,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	switch strings.ToLower(c.Server.Environment) {
	case "", "development", "dev", "production", "prod", "test":
		return nil
	default:
		return fmt.Errorf("NODE_ENV must be one of: development, production, test (got %q)", c.Server.Environment)
	}
}

func (c *Config) validateSite() error {
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL (got %q)", c.Site.BaseURL)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.IsProduction() && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters when NODE_ENV=production", minJWTSecretLength)
	}
	switch c.Security.SessionStore {
	case "memory":
	case "badger":
		if c.Security.SessionStorePath == "" {
			return fmt.Errorf("SESSION_STORE_PATH is required when SESSION_STORE=badger")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be one of: memory, badger")
	}
	if c.Security.SessionTimeout < time.Minute {
		return fmt.Errorf("SESSION_TIMEOUT must be at least 1m")
	}
	if c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* is not allowed when NODE_ENV=production; list explicit origins")
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, o := range c.Security.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports a wildcard origin outside production.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

func (c *Config) validateTMDB() error {
	if c.TMDB.Timeout <= 0 {
		return fmt.Errorf("TMDB_TIMEOUT must be positive")
	}
	if _, err := url.ParseRequestURI(c.TMDB.BaseURL); err != nil {
		return fmt.Errorf("TMDB_BASE_URL is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateTelemetry() error {
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("SENTRY_SAMPLE_RATE must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateWatchRoom() error {
	w := c.WatchRoom
	if w.DefaultHistoryLimit < 1 || w.DefaultHistoryLimit > w.MaxHistoryLimit {
		return fmt.Errorf("CHAT_HISTORY_LIMIT must be between 1 and %d", w.MaxHistoryLimit)
	}
	if w.MaxMessageLength < 1 {
		return fmt.Errorf("watch_room.max_message_length must be positive")
	}
	if w.ChatRatePerSecond <= 0 || w.ChatBurst < 1 {
		return fmt.Errorf("CHAT_RATE_LIMIT and watch_room.chat_burst must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, disabled")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
}
