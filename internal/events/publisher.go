// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/metrics"
)

// Publisher is the event-publishing collaborator of the site service.
type Publisher interface {
	PublishSiteEdited(ctx context.Context, ev *SiteEdited) error
	PublishSiteDeleted(ctx context.Context, ev *SiteDeleted) error
	Close() error
}

// Bus publishes events to a Watermill publisher behind a circuit breaker.
type Bus struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	prefix         string
	mu             sync.RWMutex
	closed         bool
}

var _ Publisher = (*Bus)(nil)

// NewBus wraps pub. A nil breaker publishes without protection.
func NewBus(pub message.Publisher, prefix string, cb *gobreaker.CircuitBreaker[interface{}]) *Bus {
	return &Bus{publisher: pub, circuitBreaker: cb, prefix: prefix}
}

// New creates a bus for cfg.Backend. The in-process backend has no
// subscribers; use NewInProcess when the caller wants to consume events.
func New(cfg Config, logger zerolog.Logger) (*Bus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	wlogger := logging.NewWatermillLogger(logger.With().Str("component", "events").Logger())

	switch cfg.Backend {
	case BackendNATS:
		pub, err := newNATSPublisher(cfg.NATS, wlogger)
		if err != nil {
			return nil, err
		}
		return NewBus(pub, cfg.TopicPrefix, NewCircuitBreaker(cfg.CircuitBreaker)), nil
	default:
		bus, _ := newInProcess(cfg, wlogger)
		return bus, nil
	}
}

// NewInProcess creates a gochannel-backed bus and returns the matching
// subscriber. Closing the bus closes the subscriber.
func NewInProcess(cfg Config, logger zerolog.Logger) (*Bus, message.Subscriber, error) {
	cfg.Backend = BackendGoChannel
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	bus, sub := newInProcess(cfg, logging.NewWatermillLogger(logger.With().Str("component", "events").Logger()))
	return bus, sub, nil
}

func newInProcess(cfg Config, logger watermill.LoggerAdapter) (*Bus, message.Subscriber) {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, logger)
	return NewBus(ch, cfg.TopicPrefix, NewCircuitBreaker(cfg.CircuitBreaker)), ch
}

// Topic returns the full topic name for a suffix such as TopicSiteEdited.
func (b *Bus) Topic(suffix string) string {
	if b.prefix == "" {
		return suffix
	}
	return b.prefix + "." + suffix
}

// PublishSiteEdited serializes and publishes ev.
func (b *Bus) PublishSiteEdited(ctx context.Context, ev *SiteEdited) error {
	topic := b.Topic(TopicSiteEdited)
	data, err := marshal(ev)
	if err != nil {
		return &PublishError{Topic: topic, EventID: ev.EventID, Err: err}
	}
	msg := newMessage(ctx, ev.EventID, TopicSiteEdited, data)
	msg.Metadata.Set(MetadataSiteID, strconv.FormatInt(int64(ev.SiteID), 10))
	return b.publish(ctx, topic, msg)
}

// PublishSiteDeleted serializes and publishes ev.
func (b *Bus) PublishSiteDeleted(ctx context.Context, ev *SiteDeleted) error {
	topic := b.Topic(TopicSiteDeleted)
	data, err := marshal(ev)
	if err != nil {
		return &PublishError{Topic: topic, EventID: ev.EventID, Err: err}
	}
	msg := newMessage(ctx, ev.EventID, TopicSiteDeleted, data)
	msg.Metadata.Set(MetadataSiteID, strconv.FormatInt(int64(ev.SiteID), 10))
	return b.publish(ctx, topic, msg)
}

func newMessage(ctx context.Context, id, eventType string, data []byte) *message.Message {
	msg := message.NewMessage(id, data)
	msg.Metadata.Set(MetadataEventType, eventType)
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		msg.Metadata.Set(MetadataCorrelationID, cid)
	}
	msg.SetContext(ctx)
	return msg
}

func (b *Bus) publish(ctx context.Context, topic string, msg *message.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return &PublishError{Topic: topic, EventID: msg.UUID, Err: ErrPublisherClosed}
	}
	b.mu.RUnlock()

	var err error
	if b.circuitBreaker != nil {
		_, err = b.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, b.publisher.Publish(topic, msg)
		})
	} else {
		err = b.publisher.Publish(topic, msg)
	}

	outcome := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
	case err != nil:
		outcome = "failure"
	}
	metrics.RecordEventPublish(topic, outcome)

	if err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("topic", topic).
			Str("event_id", msg.UUID).
			Msg("Failed to publish event")
		return &PublishError{Topic: topic, EventID: msg.UUID, Err: err}
	}
	logging.Ctx(ctx).Debug().Str("topic", topic).Str("event_id", msg.UUID).Msg("Published event")
	return nil
}

// Close shuts the underlying publisher down. It is safe to call twice.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}
