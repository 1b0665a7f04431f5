// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/tomtom215/plantingsites/internal/clock"
	"github.com/tomtom215/plantingsites/internal/edit"
	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/metrics"
	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/store"
)

// ErrNoEdit is returned when Apply is called without an edit or without the
// existing site the edit was calculated from.
var ErrNoEdit = errors.New("reconcile: edit has no existing site")

// CountryDetector maps a site boundary to an ISO 3166-1 alpha-2 code, or ""
// when the boundary is not inside any known country.
type CountryDetector interface {
	DetectCountry(boundary orb.MultiPolygon, frame *geometry.Frame) string
}

// Result is the outcome of one applied edit.
type Result struct {
	Site             *model.Site // Post-edit tree at plot depth
	Edit             *edit.SiteEdit
	Summary          edit.Summary
	HistoryID        model.SiteHistoryID // Zero for no-op edits
	NoOp             bool
	NewlyAvailable   []model.PlotID // Created plots and plots put back in service
	NewlyUnavailable []model.PlotID
}

// Option configures an Applier.
type Option func(*Applier)

// WithClock sets the clock used to stamp history and modification times.
func WithClock(c clock.Clock) Option {
	return func(a *Applier) { a.clock = c }
}

// WithCountryDetector enables country detection on boundary changes.
func WithCountryDetector(d CountryDetector) Option {
	return func(a *Applier) { a.country = d }
}

// Applier writes allocated edits to the store.
type Applier struct {
	rules   model.Rules
	clock   clock.Clock
	country CountryDetector
	logger  zerolog.Logger
}

// NewApplier creates an applier using the system clock and no country
// detection unless overridden.
func NewApplier(rules model.Rules, opts ...Option) *Applier {
	a := &Applier{
		rules:  rules,
		clock:  clock.System{},
		logger: logging.WithComponent("reconcile"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply writes e through tx. The edit must already be allocated; Apply does
// not place clusters itself. Subzones in forceIncomplete whose area grew
// have their planting-completed time cleared.
//
// On error the caller must roll tx back; nothing Apply wrote is meant to
// survive a failure.
func (a *Applier) Apply(ctx context.Context, tx store.Tx, e *edit.SiteEdit, forceIncomplete map[model.SubzoneID]bool) (res *Result, err error) {
	if e == nil || e.Existing == nil || e.Desired == nil {
		return nil, ErrNoEdit
	}

	start := time.Now()
	defer func() {
		metrics.RecordEdit(time.Since(start), outcomeOf(res), err)
	}()

	log := logging.Ctx(logging.ContextWithLogger(ctx, a.logger))
	if e.IsNoOp() {
		log.Debug().Int64("site_id", int64(e.Existing.ID)).Msg("Edit changes nothing, skipping")
		return &Result{Site: e.Existing, Edit: e, Summary: e.Summarize(), NoOp: true}, nil
	}

	now := a.clock.Now()
	siteID := e.Existing.ID
	b := &builder{
		e:     e,
		rules: a.rules,
		now:   now,
		force: forceIncomplete,
		nextNumber: func() (int64, error) {
			return tx.NextPlotNumber(ctx, siteID)
		},
	}
	next, err := b.build()
	if err != nil {
		return nil, err
	}
	if a.country != nil && len(next.Boundary) > 0 {
		if code := a.country.DetectCountry(next.Boundary, next.Frame()); code != "" {
			next.CountryCode = code
		}
	}
	if err := model.Validate(next, a.rules); err != nil {
		return nil, err
	}

	if err := a.persistTree(ctx, tx, e, next); err != nil {
		return nil, err
	}
	historyID, err := tx.InsertHistory(ctx, model.NewHistorySnapshot(next, now))
	if err != nil {
		return nil, fmt.Errorf("failed to record site history: %w", err)
	}
	next.HistoryID = &historyID
	if err := tx.UpdateSite(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to update planting site: %w", err)
	}

	res = &Result{
		Site:      next,
		Edit:      e,
		Summary:   e.Summarize(),
		HistoryID: historyID,
	}
	res.NewlyAvailable, res.NewlyUnavailable = availabilityChanges(e.Existing, next)

	plots := len(next.ExteriorPlots)
	subzones := 0
	for _, z := range next.Zones {
		subzones += len(z.Subzones)
		for _, sz := range z.Subzones {
			plots += len(sz.Plots)
		}
	}
	log.Info().
		Int64("site_id", int64(siteID)).
		Int64("history_id", int64(historyID)).
		Int("zones", len(next.Zones)).
		Int("subzones", subzones).
		Int("plots", plots).
		Int("clusters_placed", res.Summary.ClustersPlaced).
		Int("plots_unavailable", len(res.NewlyUnavailable)).
		Msg("Applied planting site edit")
	return res, nil
}

// persistTree writes zones, subzones and plots of next, assigning IDs to new
// rows, then removes deleted zones and subzones. Plots are moved before the
// deletes so nothing is detached that should stay attached.
func (a *Applier) persistTree(ctx context.Context, tx store.Tx, e *edit.SiteEdit, next *model.Site) error {
	siteID := next.ID

	for i := range next.Zones {
		z := &next.Zones[i]
		if z.ID == 0 {
			id, err := tx.InsertZone(ctx, siteID, z)
			if err != nil {
				return fmt.Errorf("failed to create zone %q: %w", z.Name, err)
			}
			z.ID = id
		} else if err := tx.UpdateZone(ctx, z); err != nil {
			return fmt.Errorf("failed to update zone %q: %w", z.Name, err)
		}

		for j := range z.Subzones {
			sz := &z.Subzones[j]
			if sz.ID == 0 {
				id, err := tx.InsertSubzone(ctx, z.ID, sz)
				if err != nil {
					return fmt.Errorf("failed to create subzone %q: %w", sz.FullName, err)
				}
				sz.ID = id
			} else if err := tx.UpdateSubzone(ctx, sz); err != nil {
				return fmt.Errorf("failed to update subzone %q: %w", sz.FullName, err)
			}
			for k := range sz.Plots {
				id := sz.ID
				sz.Plots[k].SubzoneID = &id
			}
		}
	}

	before := make(map[model.PlotID]*model.Plot)
	for _, ref := range e.Existing.AllPlots() {
		before[ref.Plot.ID] = ref.Plot
	}
	for _, ref := range next.AllPlots() {
		p := ref.Plot
		if p.ID == 0 {
			id, err := tx.InsertPlot(ctx, siteID, p)
			if err != nil {
				return fmt.Errorf("failed to create plot %d: %w", p.Number, err)
			}
			p.ID = id
			continue
		}
		if old, ok := before[p.ID]; ok && samePlot(old, p) {
			continue
		}
		if err := tx.UpdatePlot(ctx, p); err != nil {
			return fmt.Errorf("failed to update plot %d: %w", p.Number, err)
		}
	}

	for _, ze := range e.ZoneEdits {
		if ze.Kind == edit.Deleted {
			if err := tx.DeleteZone(ctx, ze.Existing.ID); err != nil {
				return fmt.Errorf("failed to delete zone %q: %w", ze.Name, err)
			}
			continue
		}
		for _, se := range ze.SubzoneEdits {
			if se.Kind != edit.Deleted {
				continue
			}
			if err := tx.DeleteSubzone(ctx, se.Existing.ID); err != nil {
				return fmt.Errorf("failed to delete subzone %q: %w", se.Existing.FullName, err)
			}
		}
	}
	return nil
}

func samePlot(a, b *model.Plot) bool {
	return a.Number == b.Number &&
		a.IsAvailable == b.IsAvailable &&
		a.SizeMeters == b.SizeMeters &&
		a.IsAdHoc == b.IsAdHoc &&
		a.Boundary.Equal(b.Boundary) &&
		equalInt(a.PermanentCluster, b.PermanentCluster) &&
		equalInt(a.PermanentClusterSubplot, b.PermanentClusterSubplot) &&
		equalSubzone(a.SubzoneID, b.SubzoneID)
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalSubzone(a, b *model.SubzoneID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// availabilityChanges compares plot availability before and after an edit.
// Plots that did not exist before count as newly available.
func availabilityChanges(before, after *model.Site) (available, unavailable []model.PlotID) {
	was := make(map[model.PlotID]bool)
	for _, ref := range before.AllPlots() {
		was[ref.Plot.ID] = ref.Plot.IsAvailable
	}
	for _, ref := range after.AllPlots() {
		p := ref.Plot
		prev, existed := was[p.ID]
		switch {
		case p.IsAvailable && (!existed || !prev):
			available = append(available, p.ID)
		case !p.IsAvailable && existed && prev:
			unavailable = append(unavailable, p.ID)
		}
	}
	sort.Slice(available, func(i, j int) bool { return available[i] < available[j] })
	sort.Slice(unavailable, func(i, j int) bool { return unavailable[i] < unavailable[j] })
	return available, unavailable
}

func outcomeOf(res *Result) metrics.EditOutcome {
	if res == nil {
		return metrics.EditOutcome{}
	}
	return metrics.EditOutcome{
		NoOp:             res.NoOp,
		ClustersPlaced:   res.Summary.ClustersPlaced,
		ClusterPlots:     4 * res.Summary.ClustersPlaced,
		PlotsUnavailable: len(res.NewlyUnavailable),
	}
}
