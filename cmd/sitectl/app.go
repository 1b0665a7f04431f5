// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/tomtom215/plantingsites/internal/authz"
	"github.com/tomtom215/plantingsites/internal/config"
	"github.com/tomtom215/plantingsites/internal/country"
	"github.com/tomtom215/plantingsites/internal/events"
	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/sites"
	"github.com/tomtom215/plantingsites/internal/store"
)

// app holds the wired service and everything that must be closed after the
// command runs.
type app struct {
	svc           *sites.Service
	schemaVersion func(context.Context) (int, error)
	out           io.Writer
	closers       []func() error
}

// openApp opens the store, the event bus, the enforcer and the optional
// country detector described by cfg.
func openApp(ctx context.Context, cfg *config.Config, out io.Writer) (a *app, err error) {
	a = &app{out: out}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	db, err := store.OpenDuckDB(ctx, storeConfig(cfg))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	a.schemaVersion = db.SchemaVersion

	bus, err := events.New(eventsConfig(cfg), logging.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	a.closers = append(a.closers, bus.Close)

	enforcer, err := authz.NewEnforcer(enforcerConfig(cfg))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { enforcer.Close(); return nil })

	opts := []sites.Option{
		sites.WithPublisher(bus),
		sites.WithRules(rules(cfg)),
		sites.WithSeasonRules(seasonRules(cfg)),
	}
	if path := cfg.Country.BoundariesPath; path != "" {
		detector, err := country.LoadFile(path)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("path", path).Int("countries", detector.Len()).Msg("Country boundaries loaded")
		opts = append(opts, sites.WithCountryDetector(detector))
	}

	a.svc = sites.New(db, authz.NewCasbinAuthorizer(enforcer), opts...)
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}

// operator is the principal every sitectl command runs as.
var operator = &authz.Principal{Subject: "sitectl", GlobalRole: authz.RoleAdmin}

func (a *app) dispatch(ctx context.Context, name string, args []string, stderr io.Writer) error {
	ctx = authz.WithPrincipal(logging.ContextWithNewCorrelationID(ctx), operator)

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "sitectl: unknown command %q\n", name)
		return errUsage
	}
	return cmd(ctx, a, args, stderr)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
