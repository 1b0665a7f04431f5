// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package events

import (
	"fmt"
	"time"
)

// Backends accepted by New.
const (
	BackendGoChannel = "gochannel"
	BackendNATS      = "nats"
)

// Config selects and tunes the publishing backend.
type Config struct {
	Backend        string
	TopicPrefix    string
	BufferSize     int64 // gochannel output buffer per subscriber
	NATS           NATSConfig
	CircuitBreaker CircuitBreakerConfig
}

// NATSConfig holds connection settings for the nats backend.
type NATSConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool
}

// CircuitBreakerConfig holds circuit breaker settings for publishes.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Requests allowed in half-open state
	Interval         time.Duration // Closed-state counter reset interval
	Timeout          time.Duration // Open-state duration before half-open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultConfig returns an in-process configuration with the
// "plantingsites" topic prefix.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendGoChannel,
		TopicPrefix:    "plantingsites",
		BufferSize:     64,
		NATS:           DefaultNATSConfig("nats://127.0.0.1:4222"),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
}

// DefaultNATSConfig returns reconnect settings that retry forever.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:              url,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
	}
}

// DefaultCircuitBreakerConfig returns the publish circuit breaker defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "events-publisher",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// Validate checks the configuration for the selected backend.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendGoChannel:
		if c.BufferSize < 0 {
			return fmt.Errorf("events buffer size must not be negative, got %d", c.BufferSize)
		}
	case BackendNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("events backend nats requires a URL")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.CircuitBreaker.FailureThreshold == 0 {
		return fmt.Errorf("circuit breaker failure threshold must be positive")
	}
	return nil
}
