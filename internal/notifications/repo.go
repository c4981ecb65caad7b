package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/pagination"
)

// Repository persists notifications. Every read and write except retention is
// scoped to the owning user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, scope readScope, at time.Time) (int64, error)
	Owns(ctx context.Context, userID, notificationID uuid.UUID) (bool, error)
	DeleteReadOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type listQuery struct {
	UserID     uuid.UUID
	Limit      int
	After      *pagination.Cursor
	UnreadOnly bool
}

// readScope selects unread notifications of UserID. An empty IDs selects all
// of them.
type readScope struct {
	UserID uuid.UUID
	IDs    []uuid.UUID
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func ownedBy(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

func unread(db *gorm.DB) *gorm.DB {
	return db.Where("read_at IS NULL")
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) model(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{})
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *gormRepository) List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error) {
	query := r.model(ctx).Scopes(ownedBy(q.UserID))
	if q.UnreadOnly {
		query = query.Scopes(unread)
	}
	if q.After != nil {
		cond, args := q.After.Predicate()
		query = query.Where(cond, args...)
	}

	var rows []models.Notification
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, q.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *gormRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.model(ctx).Scopes(ownedBy(userID), unread).Count(&n).Error
	return n, err
}

// MarkRead stamps read_at on the unread rows in scope and returns how many
// changed. Rows that were already read keep their original timestamp.
func (r *gormRepository) MarkRead(ctx context.Context, scope readScope, at time.Time) (int64, error) {
	query := r.model(ctx).Scopes(ownedBy(scope.UserID), unread)
	if len(scope.IDs) > 0 {
		query = query.Where("id IN ?", scope.IDs)
	}
	res := query.UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) Owns(ctx context.Context, userID, notificationID uuid.UUID) (bool, error) {
	err := r.model(ctx).Scopes(ownedBy(userID)).
		Where("id = ?", notificationID).
		Select("id").
		Take(&models.Notification{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// DeleteReadOlderThan prunes notifications read before cutoff. Unread rows
// are kept whatever their age.
func (r *gormRepository) DeleteReadOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	res := conn.WithContext(ctx).
		Where("read_at IS NOT NULL").
		Where("read_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
