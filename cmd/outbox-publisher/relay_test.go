package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox/payloads"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox/registry"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/pubsub"
)

const testTopic = "request-events"

func TestDrainHoldsBackAggregateAfterFailure(t *testing.T) {
	stuck, other := uuid.New(), uuid.New()
	first := requestEvent(t, stuck, 0)
	second := requestEvent(t, stuck, 0)
	third := requestEvent(t, other, 0)

	store := &fakeStore{events: []models.OutboxEvent{first, second, third}}
	send := &fakeSender{fail: map[uuid.UUID]error{stuck: errors.New("unavailable")}}
	relay := newTestRelay(t, store, send, 5)

	claimed, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, claimed)

	require.Equal(t, []uuid.UUID{first.ID}, store.failed)
	require.Equal(t, []uuid.UUID{third.ID}, store.published)
	require.Empty(t, store.parked)
	require.Len(t, send.sent, 2, "second row of the stuck aggregate must not be published")

	msg := send.sent[1]
	require.Equal(t, other.String(), msg.OrderingKey)
	require.Equal(t, string(enums.EventRequestCreated), msg.Attributes["event_type"])
	require.Equal(t, "1", msg.Attributes["version"])
}

func TestDrainParksUnresolvableRows(t *testing.T) {
	bad := requestEvent(t, uuid.New(), 0)
	bad.Payload = json.RawMessage(`{"version":1,"eventId":"x","data":null}`)

	store := &fakeStore{events: []models.OutboxEvent{bad}}
	send := &fakeSender{}
	relay := newTestRelay(t, store, send, 5)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{bad.ID}, store.parked)
	require.Equal(t, 5, store.parkedAt)
	require.Empty(t, send.sent)
}

func TestDrainParksAtMaxAttempts(t *testing.T) {
	aggregate := uuid.New()
	event := requestEvent(t, aggregate, 2)

	store := &fakeStore{events: []models.OutboxEvent{event}}
	send := &fakeSender{fail: map[uuid.UUID]error{aggregate: errors.New("deadline exceeded")}}
	relay := newTestRelay(t, store, send, 3)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Empty(t, store.failed)
	require.Equal(t, []uuid.UUID{event.ID}, store.parked)
}

func TestDrainParksNonRetryablePublishErrors(t *testing.T) {
	aggregate := uuid.New()
	event := requestEvent(t, aggregate, 0)

	store := &fakeStore{events: []models.OutboxEvent{event}}
	send := &fakeSender{fail: map[uuid.UUID]error{
		aggregate: registry.NewNonRetryableError(errors.New("topic deleted")),
	}}
	relay := newTestRelay(t, store, send, 10)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{event.ID}, store.parked)
}

func TestDrainRollsBackWhenRowUpdateFails(t *testing.T) {
	store := &fakeStore{
		events:     []models.OutboxEvent{requestEvent(t, uuid.New(), 0)},
		publishErr: errors.New("connection reset"),
	}
	relay := newTestRelay(t, store, &fakeSender{}, 5)

	_, err := relay.drain(context.Background())
	require.ErrorContains(t, err, "mark published")
}

func TestRunStopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	relay := newTestRelay(t, store, &fakeSender{}, 5)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := relay.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, store.fetches, 1)
}

func TestRunFailsFastWhenSenderUnreachable(t *testing.T) {
	relay := newTestRelay(t, &fakeStore{}, &fakeSender{pingErr: errors.New("no route")}, 5)
	err := relay.Run(context.Background())
	require.ErrorContains(t, err, "pubsub ping")
}

func TestNewRelayReportsEveryMissingDependency(t *testing.T) {
	_, err := NewRelay(RelayParams{})
	require.ErrorContains(t, err, "logger is required")
	require.ErrorContains(t, err, "pubsub sender is required")
}

func newTestRelay(t *testing.T, store *fakeStore, send *fakeSender, maxAttempts int) *Relay {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{RequestEventsTopic: testTopic})
	require.NoError(t, err)
	relay, err := NewRelay(RelayParams{
		Logger:   logger.Nop(),
		DB:       fakeDB{},
		Store:    store,
		Registry: reg,
		Sender:   send,
		Config: config.OutboxConfig{
			BatchSize:      10,
			PollIntervalMS: 5,
			MaxAttempts:    maxAttempts,
		},
	})
	require.NoError(t, err)
	return relay
}

func requestEvent(t *testing.T, aggregate uuid.UUID, attempts int) models.OutboxEvent {
	t.Helper()
	data, err := json.Marshal(payloads.RequestEvent{
		RequestID: aggregate,
		UserID:    uuid.New(),
		Status:    enums.RequestStatusPending,
		Quantity:  2,
	})
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventRequestCreated,
		AggregateType: enums.AggregateItemRequest,
		AggregateID:   aggregate,
		Payload:       envelope,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().Add(-time.Second),
	}
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type fakeStore struct {
	events     []models.OutboxEvent
	published  []uuid.UUID
	failed     []uuid.UUID
	parked     []uuid.UUID
	parkedAt   int
	fetches    int
	publishErr error
}

func (f *fakeStore) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	f.fetches++
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, attempts int) error {
	f.parked = append(f.parked, id)
	f.parkedAt = attempts
	return nil
}

type fakeSender struct {
	mu      sync.Mutex
	fail    map[uuid.UUID]error
	sent    []pubsub.Message
	pingErr error
}

func (f *fakeSender) Ping(context.Context) error { return f.pingErr }

func (f *fakeSender) Publish(_ context.Context, topic string, msg pubsub.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic != testTopic {
		return "", errors.New("unexpected topic " + topic)
	}
	f.sent = append(f.sent, msg)
	if err := f.fail[uuid.MustParse(msg.OrderingKey)]; err != nil {
		return "", err
	}
	return "server-" + msg.Attributes["event_id"], nil
}
