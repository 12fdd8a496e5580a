// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reelsync/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Site: SiteConfig{
			BaseURL: "http://localhost:3000",
		},
		Database: DatabaseConfig{
			Path:      "/data/reelsync.duckdb",
			MaxMemory: "1GB",
		},
		Security: SecurityConfig{
			SessionTimeout:   7 * 24 * time.Hour,
			SessionStore:     "badger",
			SessionStorePath: "/data/sessions",
			CookieSecure:     true,
			AdminEmails:      []string{},
			CORSOrigins:      []string{"http://localhost:3000"},
			RateLimitReqs:    100,
			RateLimitWindow:  time.Minute,
		},
		TMDB: TMDBConfig{
			BaseURL:      "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p",
			Timeout:      10 * time.Second,
			CacheTTL:     5 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			SampleRate:   1.0,
			FlushTimeout: 2 * time.Second,
		},
		Events: EventsConfig{
			Topic:         "watchroom.events",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			EmbeddedHost:  "127.0.0.1",
			EmbeddedPort:  4222,
		},
		WatchRoom: WatchRoomConfig{
			DefaultHistoryLimit: 50,
			MaxHistoryLimit:     200,
			MaxMessageLength:    2000,
			ChatRatePerSecond:   5,
			ChatBurst:           10,
		},
		Audit: AuditConfig{
			Enabled:    true,
			Retention:  90 * 24 * time.Hour,
			BufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads defaults, then the optional YAML file, then the
// environment, and validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.admin_emails",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(raw, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				values = append(values, p)
			}
		}
		if err := k.Set(path, values); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Variables not listed are ignored.
var envMappings = map[string]string{
	"node_env":     "server.environment",
	"environment":  "server.environment",
	"http_host":    "server.host",
	"http_port":    "server.port",
	"port":         "server.port",
	"http_timeout": "server.timeout",

	"public_base_url": "site.base_url",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"session_store":       "security.session_store",
	"session_store_path":  "security.session_store_path",
	"cookie_secure":       "security.cookie_secure",
	"admin_emails":        "security.admin_emails",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"rate_limit_disabled": "security.rate_limit_disabled",

	"next_public_tmdb_api_key": "tmdb.api_key",
	"tmdb_api_key":             "tmdb.api_key",
	"tmdb_base_url":            "tmdb.base_url",
	"tmdb_timeout":             "tmdb.timeout",
	"tmdb_cache_ttl":           "tmdb.cache_ttl",

	"sentry_dsn":         "telemetry.sentry_dsn",
	"sentry_sample_rate": "telemetry.sample_rate",

	"nats_url":           "events.nats_url",
	"events_topic":       "events.topic",
	"nats_embedded":      "events.embedded_nats",
	"nats_embedded_port": "events.embedded_port",

	"audit_enabled":       "audit.enabled",
	"audit_retention":     "audit.retention",
	"audit_log_to_stdout": "audit.log_to_stdout",

	"chat_history_limit": "watch_room.default_history_limit",
	"chat_rate_limit":    "watch_room.chat_rate_per_second",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc returns "" for unmapped keys so koanf drops them.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
