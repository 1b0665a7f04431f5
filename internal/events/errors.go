// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package events

import (
	"errors"
	"fmt"
)

// ErrNATSNotEnabled is returned when the nats backend is configured in a
// binary built without the nats tag.
var ErrNATSNotEnabled = errors.New("NATS event publishing not enabled (build with -tags nats)")

// ErrPublisherClosed is returned by publishes after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrUnknownBackend is returned for an events backend other than gochannel or nats.
var ErrUnknownBackend = errors.New("unknown events backend")

// PublishError reports an event that could not be published. The change it
// describes has already been committed, so callers treat it as non-fatal.
type PublishError struct {
	Topic   string
	EventID string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish event %s to %s: %v", e.EventID, e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
