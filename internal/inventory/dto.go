package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
)

// ItemDTO is the inventory item payload returned to clients.
type ItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description,omitempty"`
	CategoryID   *uuid.UUID      `json:"category_id,omitempty"`
	SKU          *string         `json:"sku,omitempty"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	AvailableQty int             `json:"available_qty"`
	ReservedQty  int             `json:"reserved_qty"`
	TotalQty     int             `json:"total_qty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ItemListResult wraps a page of items and the cursor for the next page.
type ItemListResult struct {
	Items      []ItemDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

func newItemDTO(item *models.InventoryItem) ItemDTO {
	return ItemDTO{
		ID:           item.ID,
		Name:         item.Name,
		Description:  item.Description,
		CategoryID:   item.CategoryID,
		SKU:          item.SKU,
		Unit:         item.Unit,
		UnitPrice:    item.UnitPrice,
		AvailableQty: item.AvailableQty,
		ReservedQty:  item.ReservedQty,
		TotalQty:     item.TotalQty(),
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}
