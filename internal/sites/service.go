// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package sites

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/plantingsites/internal/authz"
	"github.com/tomtom215/plantingsites/internal/clock"
	"github.com/tomtom215/plantingsites/internal/cluster"
	"github.com/tomtom215/plantingsites/internal/edit"
	"github.com/tomtom215/plantingsites/internal/events"
	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/reconcile"
	"github.com/tomtom215/plantingsites/internal/store"
)

const siteEntity = "planting site"

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes SiteEdited and SiteDeleted events after commit.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithRandom sets the source used to place and renumber clusters.
func WithRandom(r cluster.Random) Option {
	return func(s *Service) { s.rng = r }
}

// WithRules overrides the plot size and containment tolerance.
func WithRules(r model.Rules) Option {
	return func(s *Service) { s.rules = r }
}

// WithSeasonRules overrides planting season limits.
func WithSeasonRules(r model.SeasonRules) Option {
	return func(s *Service) { s.seasonRules = r }
}

// WithCountryDetector sets the country code of sites whose boundary changes.
func WithCountryDetector(d reconcile.CountryDetector) Option {
	return func(s *Service) { s.country = d }
}

// Service manages planting sites.
type Service struct {
	store       store.Store
	authz       authz.Authorizer
	publisher   events.Publisher
	clock       clock.Clock
	rng         cluster.Random
	rules       model.Rules
	seasonRules model.SeasonRules
	country     reconcile.CountryDetector
	applier     *reconcile.Applier
	logger      zerolog.Logger
}

// New creates a service. Without WithPublisher no events are sent.
func New(st store.Store, az authz.Authorizer, opts ...Option) *Service {
	s := &Service{
		store:       st,
		authz:       az,
		clock:       clock.System{},
		rng:         cluster.GlobalRandom{},
		rules:       model.DefaultRules(),
		seasonRules: model.DefaultSeasonRules(),
		logger:      logging.WithComponent("sites"),
	}
	for _, opt := range opts {
		opt(s)
	}

	applierOpts := []reconcile.Option{reconcile.WithClock(s.clock)}
	if s.country != nil {
		applierOpts = append(applierOpts, reconcile.WithCountryDetector(s.country))
	}
	s.applier = reconcile.NewApplier(s.rules, applierOpts...)
	return s
}

// logCtx returns a context whose logger is the service's component logger,
// tagged with siteID when it is known.
func (s *Service) logCtx(ctx context.Context, siteID model.SiteID) context.Context {
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	ctx = logging.ContextWithLogger(ctx, s.logger)
	if siteID != 0 {
		ctx = logging.ContextWithSite(ctx, int64(siteID))
	}
	return ctx
}

// readableSite fetches a site the caller may read. Sites in organizations
// the caller cannot see are reported as not found. Only the site row is
// read until the check passes.
func (s *Service) readableSite(ctx context.Context, tx store.Tx, id model.SiteID, depth model.Depth) (*model.Site, error) {
	site, err := tx.FetchSite(ctx, id, model.DepthSite)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanReadSite(ctx, site.OrganizationID) {
		return nil, model.NotFound(siteEntity, id)
	}
	return deepen(ctx, tx, site, depth)
}

// writableSite is readableSite followed by a capability check, both made
// against the site row before the rest of the tree is loaded.
func (s *Service) writableSite(ctx context.Context, tx store.Tx, id model.SiteID, depth model.Depth, action string, allowed func(context.Context, model.OrganizationID) bool) (*model.Site, error) {
	site, err := s.readableSite(ctx, tx, id, model.DepthSite)
	if err != nil {
		return nil, err
	}
	if !allowed(ctx, site.OrganizationID) {
		return nil, &model.NotAuthorizedError{Action: action, Entity: siteEntity, ID: int64(id)}
	}
	return deepen(ctx, tx, site, depth)
}

func deepen(ctx context.Context, tx store.Tx, site *model.Site, depth model.Depth) (*model.Site, error) {
	if depth == model.DepthSite {
		return site, nil
	}
	return tx.FetchSite(ctx, site.ID, depth)
}

// calculate validates desired and turns it into an allocated edit of existing.
func (s *Service) calculate(ctx context.Context, tx store.Tx, existing, desired *model.Site) (*edit.SiteEdit, error) {
	if err := model.Validate(desired, s.rules); err != nil {
		return nil, err
	}
	planted, err := tx.PlantedSubzoneIDs(ctx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read planted subzones: %w", err)
	}
	e, err := edit.Calculate(existing, desired, planted, s.rules)
	if err != nil {
		return nil, err
	}
	if err := cluster.NewAllocator(s.rules, s.rng).Allocate(e); err != nil {
		return nil, fmt.Errorf("failed to allocate clusters: %w", err)
	}
	return e, nil
}

// publishEdited sends SiteEdited for an applied edit. Failures are logged and
// returned as *events.PublishError; the edit stays committed.
func (s *Service) publishEdited(ctx context.Context, res *reconcile.Result) error {
	if s.publisher == nil || res == nil || res.NoOp {
		return nil
	}
	ev := events.NewSiteEdited(res.Site, res.HistoryID, res.Summary, res.NewlyAvailable, res.NewlyUnavailable, s.clock.Now())
	return publishFailure(ctx, events.TopicSiteEdited, ev.EventID, s.publisher.PublishSiteEdited(ctx, ev))
}

func (s *Service) publishDeleted(ctx context.Context, site *model.Site) error {
	if s.publisher == nil {
		return nil
	}
	ev := events.NewSiteDeleted(site.ID, site.OrganizationID, s.clock.Now())
	return publishFailure(ctx, events.TopicSiteDeleted, ev.EventID, s.publisher.PublishSiteDeleted(ctx, ev))
}

func publishFailure(ctx context.Context, topic, eventID string, err error) error {
	if err == nil {
		return nil
	}
	var perr *events.PublishError
	if !errors.As(err, &perr) {
		perr = &events.PublishError{Topic: topic, EventID: eventID, Err: err}
	}
	logging.Ctx(ctx).Warn().
		Err(perr.Err).
		Str("topic", perr.Topic).
		Str("event_id", perr.EventID).
		Msg("Event not published after commit")
	return perr
}
