package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/metrics"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox/registry"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/pubsub"
)

const (
	defaultPublishTimeout = 15 * time.Second
	maxIdleBackoff        = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond

	parkNonRetryable = "non_retryable"
	parkMaxAttempts  = "max_attempts"
)

type database interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type sender interface {
	Ping(context.Context) error
	Publish(ctx context.Context, topic string, msg pubsub.Message) (string, error)
}

type RelayParams struct {
	Logger   *logger.Logger
	DB       database
	Store    eventStore
	Registry resolver
	Sender   sender
	Metrics  *metrics.OutboxMetrics
	Config   config.OutboxConfig
}

// Relay drains outbox_events to Pub/Sub. Rows are claimed with SKIP LOCKED
// inside one transaction per batch, so several relays can run side by side.
type Relay struct {
	logg           *logger.Logger
	db             database
	store          eventStore
	registry       resolver
	sender         sender
	metrics        *metrics.OutboxMetrics
	batchSize      int
	maxAttempts    int
	poll           time.Duration
	publishTimeout time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	var err error
	if p.Logger == nil {
		err = multierr.Append(err, errors.New("logger is required"))
	}
	if p.DB == nil {
		err = multierr.Append(err, errors.New("database is required"))
	}
	if p.Store == nil {
		err = multierr.Append(err, errors.New("outbox store is required"))
	}
	if p.Registry == nil {
		err = multierr.Append(err, errors.New("event registry is required"))
	}
	if p.Sender == nil {
		err = multierr.Append(err, errors.New("pubsub sender is required"))
	}
	if err != nil {
		return nil, err
	}

	r := &Relay{
		logg:           p.Logger,
		db:             p.DB,
		store:          p.Store,
		registry:       p.Registry,
		sender:         p.Sender,
		metrics:        p.Metrics,
		batchSize:      p.Config.BatchSize,
		maxAttempts:    p.Config.MaxAttempts,
		poll:           time.Duration(p.Config.PollIntervalMS) * time.Millisecond,
		publishTimeout: defaultPublishTimeout,
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 10
	}
	if r.poll <= 0 {
		r.poll = 500 * time.Millisecond
	}
	return r, nil
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// the next one. Failed batches back off exponentially up to maxIdleBackoff.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := r.sender.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}

	idle := retry.WithJitter(jitterWindow, retry.NewConstant(r.poll))
	failing := r.failureBackoff()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		claimed, err := r.drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait, _ = failing.Next()
		case claimed >= r.batchSize:
			failing = r.failureBackoff()
			continue
		default:
			failing = r.failureBackoff()
			wait, _ = idle.Next()
		}

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *Relay) failureBackoff() retry.Backoff {
	return retry.WithJitter(jitterWindow, retry.WithCappedDuration(maxIdleBackoff, retry.NewExponential(r.poll)))
}

// drain handles one batch and reports how many rows it claimed. Once a
// publish for an aggregate fails, its later rows in the batch are left
// untouched so subscribers never see them out of order.
func (r *Relay) drain(ctx context.Context) (int, error) {
	claimed := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(events)

		held := make(map[uuid.UUID]struct{})
		for _, event := range events {
			if _, ok := held[event.AggregateID]; ok {
				continue
			}
			outcome, err := r.deliver(ctx, tx, event)
			if err != nil {
				return err
			}
			if outcome == metrics.DeliveryRetry {
				held[event.AggregateID] = struct{}{}
			}
			r.metrics.ObserveDelivery(string(event.EventType), outcome, event.CreatedAt)
		}
		return nil
	})
	return claimed, err
}

// deliver publishes one row and records the result on it. The returned
// error is reserved for failures to update the row itself.
func (r *Relay) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (string, error) {
	ctx = r.logg.WithFields(ctx, eventFields(event))

	resolved, err := r.registry.Resolve(event)
	if err != nil {
		return r.park(ctx, tx, event, parkNonRetryable, err)
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"topic":    resolved.Descriptor.Topic,
		"event_id": resolved.Envelope.EventID,
	})

	pubCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	serverID, err := r.sender.Publish(pubCtx, resolved.Descriptor.Topic, pubsub.Message{
		Data:        event.Payload,
		Attributes:  attributes(event, resolved),
		OrderingKey: event.AggregateID.String(),
	})
	cancel()

	var nonRetryable registry.NonRetryableError
	switch {
	case err == nil:
		if err := r.store.MarkPublishedTx(tx, event.ID); err != nil {
			return "", fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		r.logg.Info(r.logg.WithField(ctx, "message_id", serverID), "outbox event published")
		return metrics.DeliveryPublished, nil
	case errors.As(err, &nonRetryable):
		return r.park(ctx, tx, event, parkNonRetryable, err)
	case event.AttemptCount+1 >= r.maxAttempts:
		return r.park(ctx, tx, event, parkMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err))
	}

	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error":         err.Error(),
		"attempt_count": event.AttemptCount + 1,
	}), "outbox publish failed, will retry")
	if err := r.store.MarkFailedTx(tx, event.ID, err); err != nil {
		return "", fmt.Errorf("mark failed %s: %w", event.ID, err)
	}
	return metrics.DeliveryRetry, nil
}

// park pins the row at the attempt ceiling so it is never claimed again.
// The row keeps its payload and last error for inspection.
func (r *Relay) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason string, cause error) (string, error) {
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"park_reason": reason,
		"error":       cause.Error(),
	}), "outbox event parked")
	if err := r.store.MarkTerminalTx(tx, event.ID, cause, r.maxAttempts); err != nil {
		return "", fmt.Errorf("park %s: %w", event.ID, err)
	}
	return metrics.DeliveryParked, nil
}

func attributes(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]string {
	return map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"version":        strconv.Itoa(resolved.Envelope.Version),
		"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

func eventFields(event models.OutboxEvent) map[string]any {
	return map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
