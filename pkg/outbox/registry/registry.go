package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is published and how its data is
// decoded.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	MaxVersion    int
	decode        func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row that passed every check and is safe to
// publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks rows that will never publish no matter how often
// they are retried.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// describe builds a descriptor whose data decodes into a fresh *T.
func describe[T any](event enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     event,
		AggregateType: aggregate,
		Topic:         topic,
		MaxVersion:    outbox.EnvelopeVersion,
		decode: func(raw json.RawMessage) (any, error) {
			v := new(T)
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// EventRegistry is the closed set of events the relay knows how to ship.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := cfg.RequestEventsTopic
	if topic == "" {
		return nil, errors.New("request events topic is required")
	}

	descriptors := []EventDescriptor{
		describe[payloads.RequestEvent](enums.EventRequestCreated, enums.AggregateItemRequest, topic),
		describe[payloads.RequestEvent](enums.EventRequestUpdated, enums.AggregateItemRequest, topic),
		describe[payloads.RequestEvent](enums.EventRequestStatusChanged, enums.AggregateItemRequest, topic),
		describe[payloads.RequestEvent](enums.EventRequestDeleted, enums.AggregateItemRequest, topic),
		describe[payloads.StockAdjustedEvent](enums.EventStockAdjusted, enums.AggregateInventoryItem, topic),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		reg.entries[d.EventType] = d
	}
	return reg, nil
}

// Resolve checks a row against its descriptor and decodes the typed data.
// Every failure is non-retryable since the row itself is bad.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	if env.Version < 1 || env.Version > desc.MaxVersion {
		return nil, nonRetryable("%s envelope version %d not supported", event.EventType, env.Version)
	}

	payload, err := desc.decode(env.Data)
	if err != nil {
		return nil, nonRetryable("decode %s data: %v", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
