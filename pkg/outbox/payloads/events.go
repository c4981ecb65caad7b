package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
)

// StockDelta mirrors one applied inventory change.
type StockDelta struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	AvailableDelta  int       `json:"available_delta"`
	ReservedDelta   int       `json:"reserved_delta"`
}

// RequestEvent is emitted for every item request write. Deltas lists the
// stock movements committed alongside it.
type RequestEvent struct {
	RequestID       uuid.UUID           `json:"request_id"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          enums.RequestStatus `json:"status"`
	PreviousStatus  enums.RequestStatus `json:"previous_status,omitempty"`
	Quantity        int                 `json:"quantity"`
	InventoryItemID *uuid.UUID          `json:"inventory_item_id,omitempty"`
	Deltas          []StockDelta        `json:"deltas,omitempty"`
	OccurredAt      time.Time           `json:"occurred_at"`
}

// StockAdjustedEvent records a manual correction of available stock.
type StockAdjustedEvent struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Delta           int       `json:"delta"`
	AvailableQty    int       `json:"available_qty"`
	ReservedQty     int       `json:"reserved_qty"`
	Reason          string    `json:"reason"`
}
