package requests

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/internal/notifications"
	"github.com/gudangmitra/gudang-mitra-backend/internal/reservation"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/metrics"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/pagination"
)

// Service runs every item request write through the reservation ledger so
// the request row, the stock buckets, the outbox event and any notification
// commit together.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateInput) (*RequestDTO, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateInput) (*RequestDTO, error)
	Approve(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error)
	Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*RequestDTO, error)
	Fulfill(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error)
	List(ctx context.Context, actor Actor, params ListParams) (*RequestListResult, error)
}

// Actor identifies who is acting on a request.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) owns(request *models.ItemRequest) bool {
	return request != nil && request.UserID == a.UserID
}

// CreateInput holds the validated payload for a new request.
type CreateInput struct {
	Title           string
	Description     *string
	CategoryID      *uuid.UUID
	Priority        enums.RequestPriority
	Quantity        int
	InventoryItemID *uuid.UUID
}

// UpdateInput carries optional changes. UnlinkItem clears the inventory
// link and wins over InventoryItemID.
type UpdateInput struct {
	Title           *string
	Description     *string
	CategoryID      *uuid.UUID
	Priority        *enums.RequestPriority
	Quantity        *int
	InventoryItemID *uuid.UUID
	UnlinkItem      bool
	Status          *enums.RequestStatus
	RejectionReason *string
}

// ListParams filters the request listing.
type ListParams struct {
	UserID     *uuid.UUID
	Status     *enums.RequestStatus
	Priority   *enums.RequestPriority
	Pagination pagination.Params
}

type ledger interface {
	Apply(ctx context.Context, tx *gorm.DB, t reservation.Transition) ([]reservation.Delta, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the transition handler dependencies.
type ServiceParams struct {
	Repo          Repository
	DB            txRunner
	Ledger        ledger
	Outbox        outboxEmitter
	Notifications notifications.Repository
	Metrics       *metrics.ReservationMetrics
	Logger        *logger.Logger
	Retry         config.ReservationConfig
}

type service struct {
	repo          Repository
	db            txRunner
	ledger        ledger
	outbox        outboxEmitter
	notifications notifications.Repository
	metrics       *metrics.ReservationMetrics
	logg          *logger.Logger
	retry         config.ReservationConfig
	now           func() time.Time
}

// NewService constructs the request transition handler.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "request repository required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reservation ledger required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	retryCfg := params.Retry
	if retryCfg.MaxAttempts < 1 {
		retryCfg.MaxAttempts = 1
	}
	if retryCfg.BaseBackoff <= 0 {
		retryCfg.BaseBackoff = 25 * time.Millisecond
	}
	return &service{
		repo:          params.Repo,
		db:            params.DB,
		ledger:        params.Ledger,
		outbox:        params.Outbox,
		notifications: params.Notifications,
		metrics:       params.Metrics,
		logg:          params.Logger,
		retry:         retryCfg,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !actor.Role.CanDecide() && !actor.owns(request) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another user")
	}
	return newRequestDTO(request, nil), nil
}

func (s *service) List(ctx context.Context, actor Actor, params ListParams) (*RequestListResult, error) {
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := listRequestsParams{
		UserID:   params.UserID,
		Status:   params.Status,
		Priority: params.Priority,
		Limit:    params.Pagination.Limit,
		Cursor:   cursor,
	}
	if !actor.Role.CanDecide() {
		own := actor.UserID
		query.UserID = &own
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list item requests")
	}

	result := &RequestListResult{Items: make([]RequestDTO, 0, len(rows))}
	for i := range rows {
		result.Items = append(result.Items, *newRequestDTO(&rows[i], nil))
	}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item request not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item request")
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

var _ txRunner = (*db.Client)(nil)
