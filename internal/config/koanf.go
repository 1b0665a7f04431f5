// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

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

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/plantingsites/config.yaml",
	"/etc/plantingsites/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the configuration used when nothing overrides it.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "plantingsites.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Geometry: GeometryConfig{
			PlotSizeMeters:        30,
			ToleranceSquareMeters: 1,
		},
		Seasons: SeasonsConfig{
			MinDays:         28,
			MaxDays:         365,
			MaxDaysInFuture: 365,
		},
		Events: EventsConfig{
			Backend:                 "gochannel",
			TopicPrefix:             "plantingsites",
			BufferSize:              64,
			NATSURL:                 "nats://127.0.0.1:4222",
			NATSMaxReconnects:       -1,
			NATSReconnectWait:       2 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          10 * time.Second,
		},
		Authz: AuthzConfig{
			CacheEnabled: true,
			CacheTTL:     5 * time.Minute,
		},
	}
}

// Load reads configuration from defaults, then the YAML file at path (or
// the first of CONFIG_PATH and DefaultConfigPaths that exists when path is
// empty), then mapped environment variables, and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
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

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Geometry
	"plot_size_meters":                "geometry.plot_size_meters",
	"containment_tolerance_sq_meters": "geometry.tolerance_square_meters",

	// Seasons
	"season_min_days":           "seasons.min_days",
	"season_max_days":           "seasons.max_days",
	"season_max_days_in_future": "seasons.max_days_in_future",

	// Events
	"events_backend":           "events.backend",
	"events_topic_prefix":      "events.topic_prefix",
	"events_buffer_size":       "events.buffer_size",
	"nats_url":                 "events.nats_url",
	"nats_max_reconnects":      "events.nats_max_reconnects",
	"nats_reconnect_wait":      "events.nats_reconnect_wait",
	"events_breaker_threshold": "events.breaker_failure_threshold",
	"events_breaker_timeout":   "events.breaker_timeout",

	// Authorization
	"casbin_model_path":    "authz.model_path",
	"casbin_policy_path":   "authz.policy_path",
	"casbin_cache_enabled": "authz.cache_enabled",
	"casbin_cache_ttl":     "authz.cache_ttl",

	// Country detection
	"country_boundaries_path": "country.boundaries_path",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - PLOT_SIZE_METERS -> geometry.plot_size_meters
//   - NATS_URL -> events.nats_url
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
