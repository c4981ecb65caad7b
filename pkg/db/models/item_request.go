package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
)

// ItemRequest is a user's ask for a quantity of an inventory item. While it is
// linked and pending or approved, Quantity units of the item sit in the
// reserved bucket.
type ItemRequest struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Title           string                `gorm:"column:title;not null"`
	Description     *string               `gorm:"column:description"`
	CategoryID      *uuid.UUID            `gorm:"column:category_id;type:uuid"`
	Priority        enums.RequestPriority `gorm:"column:priority;type:request_priority;not null"`
	Status          enums.RequestStatus   `gorm:"column:status;type:request_status;not null"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	Quantity        int                   `gorm:"column:quantity;not null"`
	InventoryItemID *uuid.UUID            `gorm:"column:inventory_item_id;type:uuid"`
	ApprovedAt      *time.Time            `gorm:"column:approved_at"`
	ApprovedBy      *uuid.UUID            `gorm:"column:approved_by;type:uuid"`
	RejectedAt      *time.Time            `gorm:"column:rejected_at"`
	RejectedBy      *uuid.UUID            `gorm:"column:rejected_by;type:uuid"`
	RejectionReason *string               `gorm:"column:rejection_reason"`
	FulfillmentDate *time.Time            `gorm:"column:fulfillment_date"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (ItemRequest) TableName() string {
	return "item_requests"
}

func (r *ItemRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
