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
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/plantingsites/internal/edit"
	"github.com/tomtom215/plantingsites/internal/events"
	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/reconcile"
)

type command func(ctx context.Context, a *app, args []string, stderr io.Writer) error

var commands = map[string]command{
	"migrate": runMigrate,
	"create":  runCreate,
	"edit":    runEdit,
	"delete":  runDelete,
	"report":  runReport,
	"history": runHistory,
}

// editOutput is what create and edit print for an applied edit.
type editOutput struct {
	SiteID           model.SiteID        `json:"site_id"`
	HistoryID        model.SiteHistoryID `json:"history_id,omitempty"`
	NoOp             bool                `json:"no_op"`
	CountryCode      string              `json:"country_code,omitempty"`
	Summary          edit.Summary        `json:"summary"`
	NewlyAvailable   []model.PlotID      `json:"newly_available,omitempty"`
	NewlyUnavailable []model.PlotID      `json:"newly_unavailable,omitempty"`
}

func newEditOutput(res *reconcile.Result) editOutput {
	return editOutput{
		SiteID:           res.Site.ID,
		HistoryID:        res.HistoryID,
		NoOp:             res.NoOp,
		CountryCode:      res.Site.CountryCode,
		Summary:          res.Summary,
		NewlyAvailable:   res.NewlyAvailable,
		NewlyUnavailable: res.NewlyUnavailable,
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("sitectl "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return errUsage
	}
	return nil
}

func requireSite(fs *flag.FlagSet, id int64) error {
	if id <= 0 {
		fmt.Fprintln(fs.Output(), "-site is required")
		fs.Usage()
		return errUsage
	}
	return nil
}

// committed turns a publish failure after a committed write into a warning.
// The write cannot be undone and the event is not retried.
func committed(ctx context.Context, err error) error {
	var perr *events.PublishError
	if errors.As(err, &perr) {
		logging.Ctx(ctx).Warn().Err(perr.Err).Str("topic", perr.Topic).Msg("Change committed but not announced")
		return nil
	}
	return err
}

func openDocument(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return f, nil
}

func runMigrate(ctx context.Context, a *app, args []string, stderr io.Writer) error {
	fs := newFlagSet("migrate", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	// Opening the store already applied pending migrations.
	version, err := a.schemaVersion(ctx)
	if err != nil {
		return err
	}
	return a.print(map[string]int{"schema_version": version})
}

func runCreate(ctx context.Context, a *app, args []string, stderr io.Writer) error {
	fs := newFlagSet("create", stderr)
	path := fs.String("f", "", "site document (- for stdin)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *path == "" {
		fmt.Fprintln(stderr, "-f is required")
		return errUsage
	}

	r, err := openDocument(*path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	doc, err := decodeSiteDocument(r)
	if err != nil {
		return err
	}
	req, err := doc.createRequest()
	if err != nil {
		return err
	}

	res, err := a.svc.CreateSite(ctx, req)
	if err = committed(ctx, err); err != nil {
		return err
	}
	return a.print(newEditOutput(res))
}

func runEdit(ctx context.Context, a *app, args []string, stderr io.Writer) error {
	fs := newFlagSet("edit", stderr)
	siteID := fs.Int64("site", 0, "site ID")
	path := fs.String("f", "", "desired layout document (- for stdin)")
	apply := fs.Bool("apply", false, "write the edit instead of previewing it")
	force := fs.String("force-incomplete", "", "comma-separated subzone IDs whose completion is cleared if they grow")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireSite(fs, *siteID); err != nil {
		return err
	}
	if *path == "" {
		fmt.Fprintln(stderr, "-f is required")
		return errUsage
	}
	forceIDs, err := parseSubzoneIDs(*force)
	if err != nil {
		fmt.Fprintf(stderr, "-force-incomplete: %v\n", err)
		return errUsage
	}

	r, err := openDocument(*path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	doc, err := decodeSiteDocument(r)
	if err != nil {
		return err
	}
	layout, err := doc.layout()
	if err != nil {
		return err
	}

	id := model.SiteID(*siteID)
	if !*apply {
		e, err := a.svc.PreviewEdit(ctx, id, layout)
		if err != nil {
			return err
		}
		return a.print(struct {
			NoOp    bool           `json:"no_op"`
			Summary edit.Summary   `json:"summary"`
			Edit    *edit.SiteEdit `json:"edit"`
		}{e.IsNoOp(), e.Summarize(), e})
	}

	res, err := a.svc.EditSite(ctx, id, layout, forceIDs)
	if err = committed(ctx, err); err != nil {
		return err
	}
	return a.print(newEditOutput(res))
}

func parseSubzoneIDs(s string) ([]model.SubzoneID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []model.SubzoneID
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid subzone ID %q", part)
		}
		ids = append(ids, model.SubzoneID(n))
	}
	return ids, nil
}

func runDelete(ctx context.Context, a *app, args []string, stderr io.Writer) error {
	fs := newFlagSet("delete", stderr)
	siteID := fs.Int64("site", 0, "site ID")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireSite(fs, *siteID); err != nil {
		return err
	}
	if err := committed(ctx, a.svc.DeleteSite(ctx, model.SiteID(*siteID))); err != nil {
		return err
	}
	return a.print(map[string]int64{"deleted_site_id": *siteID})
}

func runReport(ctx context.Context, a *app, args []string, stderr io.Writer) error {
	fs := newFlagSet("report", stderr)
	siteID := fs.Int64("site", 0, "site ID")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireSite(fs, *siteID); err != nil {
		return err
	}
	totals, err := a.svc.CountReportedPlants(ctx, model.SiteID(*siteID))
	if err != nil {
		return err
	}
	return a.print(totals)
}

func runHistory(ctx context.Context, a *app, args []string, stderr io.Writer) error {
	fs := newFlagSet("history", stderr)
	siteID := fs.Int64("site", 0, "site ID")
	historyID := fs.Int64("id", 0, "print this history")
	at := fs.String("at", "", "print the history current at this RFC 3339 instant")
	depth := fs.String("depth", "plot", "site, zone, subzone or plot")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireSite(fs, *siteID); err != nil {
		return err
	}
	d, ok := model.ParseDepth(*depth)
	if !ok {
		fmt.Fprintf(stderr, "-depth: unknown depth %q\n", *depth)
		return errUsage
	}

	id := model.SiteID(*siteID)
	switch {
	case *historyID != 0 && *at != "":
		fmt.Fprintln(stderr, "-id and -at are mutually exclusive")
		return errUsage
	case *historyID != 0:
		site, err := a.svc.FetchSiteHistory(ctx, id, model.SiteHistoryID(*historyID), d)
		if err != nil {
			return err
		}
		return a.print(site)
	case *at != "":
		when, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fmt.Fprintf(stderr, "-at: %v\n", err)
			return errUsage
		}
		site, err := a.svc.FetchSiteAsOf(ctx, id, when, d)
		if err != nil {
			return err
		}
		return a.print(site)
	default:
		histories, err := a.svc.ListSiteHistories(ctx, id)
		if err != nil {
			return err
		}
		return a.print(histories)
	}
}
