// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package events

import (
	"context"
	"sync"
)

// RecordingPublisher keeps published events in memory. When Err is set
// every publish fails with it and nothing is recorded.
type RecordingPublisher struct {
	Err error

	mu      sync.Mutex
	edited  []*SiteEdited
	deleted []*SiteDeleted
}

var _ Publisher = (*RecordingPublisher)(nil)

// PublishSiteEdited records ev.
func (r *RecordingPublisher) PublishSiteEdited(_ context.Context, ev *SiteEdited) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return &PublishError{Topic: TopicSiteEdited, EventID: ev.EventID, Err: r.Err}
	}
	r.edited = append(r.edited, ev)
	return nil
}

// PublishSiteDeleted records ev.
func (r *RecordingPublisher) PublishSiteDeleted(_ context.Context, ev *SiteDeleted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return &PublishError{Topic: TopicSiteDeleted, EventID: ev.EventID, Err: r.Err}
	}
	r.deleted = append(r.deleted, ev)
	return nil
}

// Close does nothing.
func (r *RecordingPublisher) Close() error { return nil }

// Edited returns a copy of the recorded SiteEdited events.
func (r *RecordingPublisher) Edited() []*SiteEdited {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*SiteEdited(nil), r.edited...)
}

// Deleted returns a copy of the recorded SiteDeleted events.
func (r *RecordingPublisher) Deleted() []*SiteDeleted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*SiteDeleted(nil), r.deleted...)
}
