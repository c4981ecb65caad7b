package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/internal/notifications"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
)

const maxCommentLength = 2000

// Service manages discussion threads on item requests.
type Service interface {
	List(ctx context.Context, actor Actor, requestID uuid.UUID) ([]CommentView, error)
	Create(ctx context.Context, actor Actor, requestID uuid.UUID, content string) (*CommentView, error)
}

// Actor identifies the commenter.
type Actor struct {
	UserID uuid.UUID
	Name   string
	Role   enums.UserRole
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo          Repository
	db            txRunner
	notifications notifications.Repository
}

// NewService wires comment dependencies.
func NewService(repo Repository, db txRunner, notificationRepo notifications.Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "comments repository required")
	}
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if notificationRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, db: db, notifications: notificationRepo}, nil
}

func (s *service) List(ctx context.Context, actor Actor, requestID uuid.UUID) ([]CommentView, error) {
	if _, err := s.visibleRequest(ctx, s.repo, actor, requestID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}
	return rows, nil
}

// Create stores the comment. A comment on someone else's request notifies
// the request owner in the same transaction.
func (s *service) Create(ctx context.Context, actor Actor, requestID uuid.UUID, content string) (*CommentView, error) {
	body := strings.TrimSpace(content)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}
	if len(body) > maxCommentLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("content must be at most %d characters", maxCommentLength))
	}

	var view *CommentView
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		request, err := s.visibleRequest(ctx, txRepo, actor, requestID)
		if err != nil {
			return err
		}

		comment := &models.RequestComment{
			RequestID: requestID,
			UserID:    actor.UserID,
			Content:   body,
		}
		if err := txRepo.Create(ctx, comment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create comment")
		}

		if request.UserID != actor.UserID {
			err := s.notifications.WithTx(tx).Create(ctx, &models.Notification{
				UserID:    request.UserID,
				Type:      enums.NotificationTypeRequestComment,
				Title:     "New comment",
				Message:   fmt.Sprintf("%s commented on %q.", authorLabel(actor), request.Title),
				RequestID: &request.ID,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create comment notification")
			}
		}

		view = &CommentView{
			ID:         comment.ID,
			RequestID:  comment.RequestID,
			UserID:     comment.UserID,
			AuthorName: actor.Name,
			Content:    comment.Content,
			CreatedAt:  comment.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) visibleRequest(ctx context.Context, repo Repository, actor Actor, requestID uuid.UUID) (*models.ItemRequest, error) {
	request, err := repo.FindRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item request")
	}
	if request.UserID != actor.UserID && !actor.Role.CanDecide() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another user")
	}
	return request, nil
}

func authorLabel(actor Actor) string {
	if name := strings.TrimSpace(actor.Name); name != "" {
		return name
	}
	return "Someone"
}
