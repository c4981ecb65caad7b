package comments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
)

// CommentView is a comment joined with its author's display name.
type CommentView struct {
	ID         uuid.UUID `gorm:"column:id" json:"id"`
	RequestID  uuid.UUID `gorm:"column:request_id" json:"request_id"`
	UserID     uuid.UUID `gorm:"column:user_id" json:"user_id"`
	AuthorName string    `gorm:"column:author_name" json:"author_name"`
	Content    string    `gorm:"column:content" json:"content"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

// Repository exposes persistence helpers for request comments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]CommentView, error)
	Create(ctx context.Context, comment *models.RequestComment) error
	FindRequest(ctx context.Context, requestID uuid.UUID) (*models.ItemRequest, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a comments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]CommentView, error) {
	var rows []CommentView
	err := r.db.WithContext(ctx).
		Table("request_comments AS c").
		Select("c.id, c.request_id, c.user_id, COALESCE(u.name, '') AS author_name, c.content, c.created_at").
		Joins("LEFT JOIN users u ON u.id = c.user_id").
		Where("c.request_id = ?", requestID).
		Order("c.created_at ASC, c.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) Create(ctx context.Context, comment *models.RequestComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *repositoryImpl) FindRequest(ctx context.Context, requestID uuid.UUID) (*models.ItemRequest, error) {
	var request models.ItemRequest
	if err := r.db.WithContext(ctx).Where("id = ?", requestID).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}
