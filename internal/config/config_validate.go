// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package config

import (
	"fmt"
	"strings"
)

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateGeometry(); err != nil {
		return err
	}
	if err := c.validateSeasons(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateAuthz()
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateGeometry() error {
	if c.Geometry.PlotSizeMeters <= 0 {
		return fmt.Errorf("PLOT_SIZE_METERS must be positive, got %d", c.Geometry.PlotSizeMeters)
	}
	if c.Geometry.ToleranceSquareMeters < 0 {
		return fmt.Errorf("CONTAINMENT_TOLERANCE_SQ_METERS must not be negative, got %v", c.Geometry.ToleranceSquareMeters)
	}
	return nil
}

func (c *Config) validateSeasons() error {
	s := c.Seasons
	if s.MinDays <= 0 {
		return fmt.Errorf("SEASON_MIN_DAYS must be positive, got %d", s.MinDays)
	}
	if s.MaxDays < s.MinDays {
		return fmt.Errorf("SEASON_MAX_DAYS (%d) must be at least SEASON_MIN_DAYS (%d)", s.MaxDays, s.MinDays)
	}
	if s.MaxDaysInFuture < 0 {
		return fmt.Errorf("SEASON_MAX_DAYS_IN_FUTURE must not be negative, got %d", s.MaxDaysInFuture)
	}
	return nil
}

func (c *Config) validateEvents() error {
	e := c.Events
	switch e.Backend {
	case "gochannel":
	case "nats":
		if e.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when EVENTS_BACKEND=nats")
		}
		if !strings.HasPrefix(e.NATSURL, "nats://") && !strings.HasPrefix(e.NATSURL, "tls://") {
			return fmt.Errorf("NATS_URL must use nats:// or tls://, got %q", e.NATSURL)
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be gochannel or nats, got %q", e.Backend)
	}
	if e.BufferSize < 0 {
		return fmt.Errorf("EVENTS_BUFFER_SIZE must not be negative, got %d", e.BufferSize)
	}
	if e.BreakerFailureThreshold == 0 {
		return fmt.Errorf("EVENTS_BREAKER_THRESHOLD must be positive")
	}
	return nil
}

func (c *Config) validateAuthz() error {
	if c.Authz.CacheEnabled && c.Authz.CacheTTL <= 0 {
		return fmt.Errorf("CASBIN_CACHE_TTL must be positive when caching is enabled, got %v", c.Authz.CacheTTL)
	}
	return nil
}
