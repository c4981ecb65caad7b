package requests

import (
	"time"

	"github.com/google/uuid"

	"github.com/gudangmitra/gudang-mitra-backend/internal/reservation"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
)

// RequestDTO is the item request payload returned to clients.
type RequestDTO struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	CategoryID      *uuid.UUID `json:"category_id,omitempty"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	UserID          uuid.UUID  `json:"user_id"`
	Quantity        int        `json:"quantity"`
	InventoryItemID *uuid.UUID `json:"inventory_item_id,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      *uuid.UUID `json:"approved_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      *uuid.UUID `json:"rejected_by,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	FulfillmentDate *time.Time `json:"fulfillment_date,omitempty"`
	StockChanges    []DeltaDTO `json:"stock_changes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DeltaDTO reports a stock movement applied by the last write.
type DeltaDTO struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	AvailableDelta  int       `json:"available_delta"`
	ReservedDelta   int       `json:"reserved_delta"`
}

// RequestListResult wraps a page of requests and the cursor for the next page.
type RequestListResult struct {
	Items      []RequestDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func newRequestDTO(request *models.ItemRequest, deltas []reservation.Delta) *RequestDTO {
	dto := &RequestDTO{
		ID:              request.ID,
		Title:           request.Title,
		Description:     request.Description,
		CategoryID:      request.CategoryID,
		Priority:        string(request.Priority),
		Status:          string(request.Status),
		UserID:          request.UserID,
		Quantity:        request.Quantity,
		InventoryItemID: request.InventoryItemID,
		ApprovedAt:      request.ApprovedAt,
		ApprovedBy:      request.ApprovedBy,
		RejectedAt:      request.RejectedAt,
		RejectedBy:      request.RejectedBy,
		RejectionReason: request.RejectionReason,
		FulfillmentDate: request.FulfillmentDate,
		CreatedAt:       request.CreatedAt,
		UpdatedAt:       request.UpdatedAt,
	}
	for _, d := range deltas {
		dto.StockChanges = append(dto.StockChanges, DeltaDTO{
			InventoryItemID: d.InventoryItemID,
			AvailableDelta:  d.AvailableDelta,
			ReservedDelta:   d.ReservedDelta,
		})
	}
	return dto
}
