// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

/*
Package events publishes planting site domain events.

Two events leave the core, each published once after its transaction
commits:

  - SiteEdited on <prefix>.site.edited, carrying the updated site tree, the
    edit summary and the plots whose availability changed
  - SiteDeleted on <prefix>.site.deleted

Publishing goes through Watermill. The default backend is an in-process
gochannel pub/sub; building with -tags=nats enables a NATS JetStream
publisher. Every publish runs behind a gobreaker circuit breaker so a dead
broker fails fast instead of stalling edits.

Delivery is at-least-once from the caller's side: a failed publish is
returned as a *PublishError and never retried here. The edit it describes is
already committed.

Consumers decode messages with DecodeSiteEdited and DecodeSiteDeleted:

	bus, sub, err := events.NewInProcess(cfg, logger)
	msgs, err := sub.Subscribe(ctx, bus.Topic(events.TopicSiteEdited))
	for msg := range msgs {
		ev, err := events.DecodeSiteEdited(msg)
		...
		msg.Ack()
	}
*/
package events
