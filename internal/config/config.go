// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package config

import "time"

// Config holds every configuration section. It is immutable after Load and
// safe for concurrent reads.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Geometry GeometryConfig `koanf:"geometry"`
	Seasons  SeasonsConfig  `koanf:"seasons"`
	Events   EventsConfig   `koanf:"events"`
	Authz    AuthzConfig    `koanf:"authz"`
	Country  CountryConfig  `koanf:"country"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`       // ":memory:" for a throwaway database
	MaxMemory string `koanf:"max_memory"` // e.g. "1GB"
	Threads   int    `koanf:"threads"`    // 0 = use NumCPU
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console. Console is for humans at a terminal.
	Format string `koanf:"format"`

	// Caller adds file:line to every entry.
	Caller bool `koanf:"caller"`
}

// GeometryConfig holds monitoring layout constants.
type GeometryConfig struct {
	// PlotSizeMeters is the edge length of a monitoring plot. Clusters are
	// two plots on a side.
	PlotSizeMeters int `koanf:"plot_size_meters"`

	// ToleranceSquareMeters is how much area a child boundary may stick out
	// of its parent, and how much an edit must change an area before it
	// counts as changed.
	ToleranceSquareMeters float64 `koanf:"tolerance_square_meters"`
}

// SeasonsConfig bounds planting seasons.
type SeasonsConfig struct {
	MinDays         int `koanf:"min_days"`
	MaxDays         int `koanf:"max_days"`
	MaxDaysInFuture int `koanf:"max_days_in_future"`
}

// EventsConfig selects the event publishing backend.
type EventsConfig struct {
	Backend     string `koanf:"backend"` // gochannel or nats
	TopicPrefix string `koanf:"topic_prefix"`
	BufferSize  int64  `koanf:"buffer_size"`

	NATSURL           string        `koanf:"nats_url"`
	NATSMaxReconnects int           `koanf:"nats_max_reconnects"` // -1 = forever
	NATSReconnectWait time.Duration `koanf:"nats_reconnect_wait"`

	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
}

// AuthzConfig holds Casbin settings. Empty paths use the embedded model
// and policy.
type AuthzConfig struct {
	ModelPath    string        `koanf:"model_path"`
	PolicyPath   string        `koanf:"policy_path"`
	CacheEnabled bool          `koanf:"cache_enabled"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// CountryConfig locates country outlines. Detection is off when
// BoundariesPath is empty.
type CountryConfig struct {
	BoundariesPath string `koanf:"boundaries_path"`
}
