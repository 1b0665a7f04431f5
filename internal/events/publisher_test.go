// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/plantingsites/internal/edit"
	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/metrics"
	"github.com/tomtom215/plantingsites/internal/model"
)

func newTestBus(t *testing.T) (*Bus, message.Subscriber) {
	t.Helper()
	bus, sub, err := NewInProcess(DefaultConfig(), logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewInProcess: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus, sub
}

func receive(t *testing.T, msgs <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-msgs:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestBus_Topic(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil, "plantingsites", nil)
	if got := bus.Topic(TopicSiteEdited); got != "plantingsites.site.edited" {
		t.Errorf("expected plantingsites.site.edited, got %s", got)
	}
	bare := NewBus(nil, "", nil)
	if got := bare.Topic(TopicSiteDeleted); got != "site.deleted" {
		t.Errorf("expected site.deleted, got %s", got)
	}
}

func TestBus_PublishSiteEdited(t *testing.T) {
	bus, sub := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := sub.Subscribe(ctx, bus.Topic(TopicSiteEdited))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	site := testSite()
	site.Zones = []model.Zone{{ID: 1, Name: "North"}}
	ev := NewSiteEdited(site, 11, edit.Summary{ClustersPlaced: 1}, []model.PlotID{21, 22, 23, 24}, []model.PlotID{4}, eventTime)

	pubCtx := logging.ContextWithCorrelationID(ctx, "abcd1234")
	if err := bus.PublishSiteEdited(pubCtx, ev); err != nil {
		t.Fatalf("PublishSiteEdited: %v", err)
	}

	msg := receive(t, msgs)
	if msg.UUID != ev.EventID {
		t.Errorf("expected message UUID %s, got %s", ev.EventID, msg.UUID)
	}
	if got := msg.Metadata.Get(MetadataEventType); got != TopicSiteEdited {
		t.Errorf("expected event type %s, got %s", TopicSiteEdited, got)
	}
	if got := msg.Metadata.Get(MetadataSiteID); got != "7" {
		t.Errorf("expected site_id 7, got %s", got)
	}
	if got := msg.Metadata.Get(MetadataCorrelationID); got != "abcd1234" {
		t.Errorf("expected correlation id abcd1234, got %s", got)
	}

	decoded, err := DecodeSiteEdited(msg)
	if err != nil {
		t.Fatalf("DecodeSiteEdited: %v", err)
	}
	if decoded.HistoryID != 11 || decoded.Site == nil || len(decoded.Site.Zones) != 1 {
		t.Errorf("expected history 11 with one zone, got %+v", decoded)
	}
	if len(decoded.NewlyAvailable) != 4 || len(decoded.NewlyUnavailable) != 1 {
		t.Errorf("expected 4 available and 1 unavailable plot, got %v and %v", decoded.NewlyAvailable, decoded.NewlyUnavailable)
	}
}

func TestBus_PublishSiteDeleted(t *testing.T) {
	bus, sub := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := sub.Subscribe(ctx, bus.Topic(TopicSiteDeleted))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	before := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(bus.Topic(TopicSiteDeleted), "success"))
	if err := bus.PublishSiteDeleted(ctx, NewSiteDeleted(7, 3, eventTime)); err != nil {
		t.Fatalf("PublishSiteDeleted: %v", err)
	}

	decoded, err := DecodeSiteDeleted(receive(t, msgs))
	if err != nil {
		t.Fatalf("DecodeSiteDeleted: %v", err)
	}
	if decoded.SiteID != 7 || decoded.OrganizationID != 3 {
		t.Errorf("expected site 7 of organization 3, got %+v", decoded)
	}
	after := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(bus.Topic(TopicSiteDeleted), "success"))
	if after-before != 1 {
		t.Errorf("expected one successful publish recorded, got %v", after-before)
	}
}

func TestBus_InvalidEvent(t *testing.T) {
	bus, _ := newTestBus(t)

	err := bus.PublishSiteDeleted(context.Background(), &SiteDeleted{EventID: "x"})
	var pubErr *PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected *PublishError, got %v", err)
	}
}

func TestBus_Closed(t *testing.T) {
	bus, _ := newTestBus(t)
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("expected second Close to be a no-op, got %v", err)
	}

	err := bus.PublishSiteDeleted(context.Background(), NewSiteDeleted(7, 3, eventTime))
	if !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("expected ErrPublisherClosed, got %v", err)
	}
}

// failingPublisher fails every publish and counts the attempts.
type failingPublisher struct {
	mu    sync.Mutex
	calls int
}

func (f *failingPublisher) Publish(string, ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("broker unreachable")
}

func (f *failingPublisher) Close() error { return nil }

func TestBus_CircuitBreakerOpens(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	cfg.Name = "events-test-breaker"
	cfg.FailureThreshold = 3
	cfg.Timeout = time.Minute

	pub := &failingPublisher{}
	bus := NewBus(pub, "test", NewCircuitBreaker(cfg))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := bus.PublishSiteDeleted(ctx, NewSiteDeleted(7, 3, eventTime))
		var pubErr *PublishError
		if !errors.As(err, &pubErr) {
			t.Fatalf("attempt %d: expected *PublishError, got %v", i, err)
		}
	}

	err := bus.PublishSiteDeleted(ctx, NewSiteDeleted(7, 3, eventTime))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected open breaker, got %v", err)
	}
	if pub.calls != 3 {
		t.Errorf("expected 3 calls to reach the broker, got %d", pub.calls)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues(cfg.Name)); got != 2 {
		t.Errorf("expected open state gauge 2, got %v", got)
	}
}

func TestRecordingPublisher(t *testing.T) {
	t.Parallel()

	rec := &RecordingPublisher{}
	ctx := context.Background()
	if err := rec.PublishSiteEdited(ctx, NewSiteEdited(testSite(), 1, edit.Summary{}, nil, nil, eventTime)); err != nil {
		t.Fatalf("PublishSiteEdited: %v", err)
	}
	if err := rec.PublishSiteDeleted(ctx, NewSiteDeleted(7, 3, eventTime)); err != nil {
		t.Fatalf("PublishSiteDeleted: %v", err)
	}
	if len(rec.Edited()) != 1 || len(rec.Deleted()) != 1 {
		t.Errorf("expected one event of each kind, got %d and %d", len(rec.Edited()), len(rec.Deleted()))
	}

	rec.Err = errors.New("down")
	err := rec.PublishSiteDeleted(ctx, NewSiteDeleted(7, 3, eventTime))
	if !errors.Is(err, rec.Err) {
		t.Errorf("expected wrapped failure, got %v", err)
	}
	if len(rec.Deleted()) != 1 {
		t.Errorf("expected failed publish not to be recorded")
	}
}
