package requests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/pagination"
)

// Repository exposes persistence helpers for item requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ItemRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ItemRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ItemRequest, error)
	Save(ctx context.Context, request *models.ItemRequest) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params listRequestsParams) ([]models.ItemRequest, *pagination.Cursor, error)
	CategoryExists(ctx context.Context, id uuid.UUID) (bool, error)
	FindReservationDrift(ctx context.Context) ([]ReservationDrift, error)
}

// ReservationDrift is an inventory item whose reserved bucket disagrees with
// the sum of its open requests.
type ReservationDrift struct {
	InventoryItemID uuid.UUID `gorm:"column:inventory_item_id"`
	ReservedQty     int       `gorm:"column:reserved_qty"`
	ExpectedQty     int       `gorm:"column:expected_qty"`
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an item request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listRequestsParams struct {
	UserID   *uuid.UUID
	Status   *enums.RequestStatus
	Priority *enums.RequestPriority
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, request *models.ItemRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.ItemRequest, error) {
	var request models.ItemRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ItemRequest, error) {
	var request models.ItemRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) Save(ctx context.Context, request *models.ItemRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ItemRequest{}).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listRequestsParams) ([]models.ItemRequest, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.ItemRequest{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Priority != nil {
		query = query.Where("priority = ?", *params.Priority)
	}
	if params.Cursor != nil {
		cond, args := params.Cursor.Predicate()
		query = query.Where(cond, args...)
	}

	var rows []models.ItemRequest
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	page, next := pagination.Trim(rows, params.Limit, func(row models.ItemRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindReservationDrift compares every item's reserved_qty with the quantity
// held by its pending and approved requests.
func (r *repositoryImpl) FindReservationDrift(ctx context.Context) ([]ReservationDrift, error) {
	var rows []ReservationDrift
	err := r.db.WithContext(ctx).Raw(`
		SELECT i.id AS inventory_item_id,
		       i.reserved_qty AS reserved_qty,
		       COALESCE(SUM(r.quantity), 0) AS expected_qty
		FROM inventory_items i
		LEFT JOIN item_requests r
		       ON r.inventory_item_id = i.id
		      AND r.status IN (?, ?)
		GROUP BY i.id, i.reserved_qty
		HAVING i.reserved_qty <> COALESCE(SUM(r.quantity), 0)
		ORDER BY i.id`,
		enums.RequestStatusPending, enums.RequestStatusApproved,
	).Scan(&rows).Error
	return rows, err
}
