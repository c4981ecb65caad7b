package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryItem is a stock keeping unit split into available and reserved
// buckets. Their sum is the physical stock on hand.
type InventoryItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name         string          `gorm:"column:name;not null"`
	Description  *string         `gorm:"column:description"`
	CategoryID   *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	SKU          *string         `gorm:"column:sku;uniqueIndex"`
	Unit         string          `gorm:"column:unit;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	AvailableQty int             `gorm:"column:available_qty;not null;default:0"`
	ReservedQty  int             `gorm:"column:reserved_qty;not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalQty is the physical stock regardless of reservations.
func (i InventoryItem) TotalQty() int {
	return i.AvailableQty + i.ReservedQty
}

func (i *InventoryItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
