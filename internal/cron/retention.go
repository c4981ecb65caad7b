package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
)

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	defaultOutboxRetention       = 30 * 24 * time.Hour
)

type pruneFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// retentionJob deletes rows older than now-retention in one transaction.
type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	prune     pruneFunc
	retention time.Duration
	now       func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, db txRunner, prune pruneFunc, retention, fallback time.Duration) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("%s: logger required", name)
	}
	if db == nil {
		return nil, fmt.Errorf("%s: db runner required", name)
	}
	if retention <= 0 {
		retention = fallback
	}
	return &retentionJob{
		name:      name,
		logg:      logg,
		db:        db,
		prune:     prune,
		retention: retention,
		now:       time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = j.prune(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return fmt.Errorf("prune before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "retention sweep complete")
	return nil
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository interface {
		DeleteReadOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

// NewNotificationCleanupJob removes read notifications past the retention
// window. Unread ones are never touched.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return newRetentionJob("notification-cleanup", params.Logger, params.DB,
		params.Repository.DeleteReadOlderThan, params.Retention, defaultNotificationRetention)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository interface {
		DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

// NewOutboxRetentionJob removes published outbox rows. Pending and dead
// rows stay until an operator looks at them.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return newRetentionJob("outbox-retention", params.Logger, params.DB,
		params.Repository.DeletePublishedBefore, params.Retention, defaultOutboxRetention)
}
