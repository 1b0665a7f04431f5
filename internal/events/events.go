// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package events

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/plantingsites/internal/edit"
	"github.com/tomtom215/plantingsites/internal/model"
)

// Topic suffixes. The bus prepends its configured prefix.
const (
	TopicSiteEdited  = "site.edited"
	TopicSiteDeleted = "site.deleted"
)

// Metadata keys set on every published message.
const (
	MetadataEventType     = "event_type"
	MetadataSiteID        = "site_id"
	MetadataCorrelationID = "correlation_id"
)

// SiteEdited describes one applied, non-empty edit.
type SiteEdited struct {
	EventID          string               `json:"event_id"`
	OccurredAt       time.Time            `json:"occurred_at"`
	SiteID           model.SiteID         `json:"site_id"`
	OrganizationID   model.OrganizationID `json:"organization_id"`
	HistoryID        model.SiteHistoryID  `json:"history_id"`
	Site             *model.Site          `json:"site"`
	Summary          edit.Summary         `json:"summary"`
	NewlyAvailable   []model.PlotID       `json:"newly_available_plot_ids"`
	NewlyUnavailable []model.PlotID       `json:"newly_unavailable_plot_ids"`
}

// NewSiteEdited builds a SiteEdited event with a fresh event ID.
func NewSiteEdited(site *model.Site, historyID model.SiteHistoryID, summary edit.Summary, available, unavailable []model.PlotID, at time.Time) *SiteEdited {
	ev := &SiteEdited{
		EventID:          uuid.New().String(),
		OccurredAt:       at.UTC(),
		HistoryID:        historyID,
		Site:             site,
		Summary:          summary,
		NewlyAvailable:   available,
		NewlyUnavailable: unavailable,
	}
	if site != nil {
		ev.SiteID = site.ID
		ev.OrganizationID = site.OrganizationID
	}
	return ev
}

// Validate checks the fields every consumer relies on.
func (e *SiteEdited) Validate() error {
	if e.EventID == "" {
		return errors.New("event_id is required")
	}
	if e.SiteID <= 0 {
		return errors.New("site_id is required")
	}
	if e.HistoryID <= 0 {
		return errors.New("history_id is required")
	}
	if e.Site == nil {
		return errors.New("site is required")
	}
	if e.Site.ID != e.SiteID {
		return errors.New("site does not match site_id")
	}
	if e.OccurredAt.IsZero() {
		return errors.New("occurred_at is required")
	}
	return nil
}

// SiteDeleted describes a deleted site.
type SiteDeleted struct {
	EventID        string               `json:"event_id"`
	OccurredAt     time.Time            `json:"occurred_at"`
	SiteID         model.SiteID         `json:"site_id"`
	OrganizationID model.OrganizationID `json:"organization_id"`
}

// NewSiteDeleted builds a SiteDeleted event with a fresh event ID.
func NewSiteDeleted(siteID model.SiteID, orgID model.OrganizationID, at time.Time) *SiteDeleted {
	return &SiteDeleted{
		EventID:        uuid.New().String(),
		OccurredAt:     at.UTC(),
		SiteID:         siteID,
		OrganizationID: orgID,
	}
}

// Validate checks the fields every consumer relies on.
func (e *SiteDeleted) Validate() error {
	if e.EventID == "" {
		return errors.New("event_id is required")
	}
	if e.SiteID <= 0 {
		return errors.New("site_id is required")
	}
	if e.OccurredAt.IsZero() {
		return errors.New("occurred_at is required")
	}
	return nil
}
