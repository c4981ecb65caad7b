package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/db"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox/payloads"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/pagination"
)

const defaultUnit = "pcs"

// Service exposes the inventory catalog. Quantities only move through
// AdjustStock and the reservation ledger.
type Service interface {
	List(ctx context.Context, params ListParams) (*ItemListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	Create(ctx context.Context, actor Actor, input CreateItemInput) (*ItemDTO, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	AdjustStock(ctx context.Context, actor Actor, id uuid.UUID, input AdjustStockInput) (*ItemDTO, error)
}

// Actor identifies the caller of a catalog mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ListParams filters and pages the catalog.
type ListParams struct {
	CategoryID *uuid.UUID
	Search     string
	Pagination pagination.Params
}

// CreateItemInput holds the validated payload to create an item.
type CreateItemInput struct {
	Name        string
	Description *string
	CategoryID  *uuid.UUID
	SKU         *string
	Unit        string
	UnitPrice   decimal.Decimal
	InitialQty  int
}

// UpdateItemInput carries optional descriptive changes.
type UpdateItemInput struct {
	Name        *string
	Description *string
	CategoryID  *uuid.UUID
	SKU         *string
	Unit        *string
	UnitPrice   *decimal.Decimal
}

// AdjustStockInput is a manual correction of the available bucket.
type AdjustStockInput struct {
	Delta  int
	Reason string
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     Repository
	dbClient *db.Client
	outbox   outboxEmitter
}

// NewService constructs the inventory catalog service.
func NewService(repo Repository, dbClient *db.Client, emitter outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if dbClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	return &service{repo: repo, dbClient: dbClient, outbox: emitter}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ItemListResult, error) {
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	items, next, err := s.repo.List(ctx, listItemsParams{
		CategoryID: params.CategoryID,
		Search:     params.Search,
		Limit:      params.Pagination.Limit,
		Cursor:     cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}

	result := &ItemListResult{Items: make([]ItemDTO, 0, len(items))}
	for i := range items {
		result.Items = append(result.Items, newItemDTO(&items[i]))
	}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	dto := newItemDTO(item)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateItemInput) (*ItemDTO, error) {
	if !actor.Role.CanDecide() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins and managers manage inventory")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.InitialQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial quantity cannot be negative")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = defaultUnit
	}

	item := &models.InventoryItem{
		Name:         name,
		Description:  trimmedPtr(input.Description),
		CategoryID:   input.CategoryID,
		SKU:          trimmedPtr(input.SKU),
		Unit:         unit,
		UnitPrice:    input.UnitPrice,
		AvailableQty: input.InitialQty,
		ReservedQty:  0,
	}

	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory item")
	}
	dto := newItemDTO(item)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	if !actor.Role.CanDecide() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins and managers manage inventory")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = trimmedPtr(input.Description)
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *input.CategoryID
	}
	if input.SKU != nil {
		updates["sku"] = trimmedPtr(input.SKU)
	}
	if input.Unit != nil {
		unit := strings.TrimSpace(*input.Unit)
		if unit == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cannot be empty")
		}
		updates["unit"] = unit
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		updates["unit_price"] = *input.UnitPrice
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, mapLoadError(err)
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already in use")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
		}
	}
	return s.Get(ctx, id)
}

func (s *service) AdjustStock(ctx context.Context, actor Actor, id uuid.UUID, input AdjustStockInput) (*ItemDTO, error) {
	if !actor.Role.CanDecide() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins and managers adjust stock")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}

	var adjusted *models.InventoryItem
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, err := txRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapLoadError(err)
		}
		if item.AvailableQty+input.Delta < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "adjustment would make available stock negative").
				WithDetails(map[string]any{
					"available_qty": item.AvailableQty,
					"delta":         input.Delta,
				})
		}

		ok, err := txRepo.AdjustAvailable(ctx, id, input.Delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "inventory changed concurrently, retry the request")
		}
		item.AvailableQty += input.Delta

		event := outbox.DomainEvent{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.StockAdjustedEvent{
				InventoryItemID: item.ID,
				Delta:           input.Delta,
				AvailableQty:    item.AvailableQty,
				ReservedQty:     item.ReservedQty,
				Reason:          reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock adjusted event")
		}
		adjusted = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := newItemDTO(adjusted)
	return &dto, nil
}

func (s *service) ensureCategory(ctx context.Context, id uuid.UUID) error {
	exists, err := s.repo.CategoryExists(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("category %s does not exist", id))
	}
	return nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
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
