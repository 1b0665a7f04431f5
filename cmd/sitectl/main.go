// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // Site time zones must resolve on hosts without zoneinfo

	"github.com/tomtom215/plantingsites/internal/config"
	"github.com/tomtom215/plantingsites/internal/logging"
)

// errUsage is returned for bad command lines; the message has already been
// printed.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "sitectl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("sitectl", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "path to config.yaml")
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: sitectl [-config path] <migrate|create|edit|delete|report|history> [flags]")
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logCfg := loggingConfig(cfg)
	logCfg.Output = stderr
	logging.Init(logCfg)

	a, err := openApp(ctx, cfg, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	return a.dispatch(ctx, global.Arg(0), global.Args()[1:], stderr)
}
