// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

// Package logging is the zerolog-based structured logging layer shared by
// every planting sites package.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("path", cfg.Database.Path).Msg("Opened database")
//	logging.Error().Err(err).Msg("Migration failed")
//
// Component loggers tag every entry with the package that wrote it:
//
//	log := logging.WithComponent("reconcile")
//
// # Context
//
// A correlation ID and the site being worked on travel in the context and
// are added to every entry written through Ctx:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	ctx = logging.ContextWithSite(ctx, int64(siteID))
//	logging.Ctx(ctx).Info().Msg("Applied planting site edit")
//	// {"level":"info","correlation_id":"1f0c2a9b","site_id":12,"message":"Applied planting site edit"}
//
// A logger stored with ContextWithLogger replaces the global logger for
// that context.
//
// # Watermill
//
// NewWatermillLogger adapts a zerolog logger to watermill.LoggerAdapter so
// pub/sub internals log through the same pipeline.
//
// # Output
//
// JSON is the default. Console output is for a developer's terminal. Field
// names are fixed: time, level, message, error, caller.
//
// Always end a chain with Msg or Send; an unterminated event is dropped.
package logging
