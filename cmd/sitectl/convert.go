// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package main

import (
	"github.com/tomtom215/plantingsites/internal/authz"
	"github.com/tomtom215/plantingsites/internal/config"
	"github.com/tomtom215/plantingsites/internal/events"
	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/store"
)

func loggingConfig(cfg *config.Config) logging.Config {
	out := logging.DefaultConfig()
	out.Level = cfg.Logging.Level
	out.Format = cfg.Logging.Format
	out.Caller = cfg.Logging.Caller
	return out
}

func storeConfig(cfg *config.Config) store.DuckDBConfig {
	return store.DuckDBConfig{
		Path:      cfg.Database.Path,
		MaxMemory: cfg.Database.MaxMemory,
		Threads:   cfg.Database.Threads,
	}
}

func eventsConfig(cfg *config.Config) events.Config {
	out := events.DefaultConfig()
	out.Backend = cfg.Events.Backend
	out.TopicPrefix = cfg.Events.TopicPrefix
	out.BufferSize = cfg.Events.BufferSize
	out.NATS.URL = cfg.Events.NATSURL
	out.NATS.MaxReconnects = cfg.Events.NATSMaxReconnects
	out.NATS.ReconnectWait = cfg.Events.NATSReconnectWait
	out.CircuitBreaker.FailureThreshold = cfg.Events.BreakerFailureThreshold
	out.CircuitBreaker.Timeout = cfg.Events.BreakerTimeout
	return out
}

func enforcerConfig(cfg *config.Config) *authz.EnforcerConfig {
	return &authz.EnforcerConfig{
		ModelPath:    cfg.Authz.ModelPath,
		PolicyPath:   cfg.Authz.PolicyPath,
		CacheEnabled: cfg.Authz.CacheEnabled,
		CacheTTL:     cfg.Authz.CacheTTL,
	}
}

func rules(cfg *config.Config) model.Rules {
	return model.Rules{
		PlotSizeMeters:        cfg.Geometry.PlotSizeMeters,
		ToleranceSquareMeters: cfg.Geometry.ToleranceSquareMeters,
	}
}

func seasonRules(cfg *config.Config) model.SeasonRules {
	return model.SeasonRules{
		MinDays:         cfg.Seasons.MinDays,
		MaxDays:         cfg.Seasons.MaxDays,
		MaxDaysInFuture: cfg.Seasons.MaxDaysInFuture,
	}
}
