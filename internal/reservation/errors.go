package reservation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
)

// ErrConcurrencyConflict means a conditional stock update matched no row,
// so another writer changed the item between lock and write.
var ErrConcurrencyConflict = errors.New("reservation: inventory row changed concurrently")

// InsufficientStockError is returned when a reservation asks for more units
// than are available.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: available %d, requested %d", e.ItemID, e.Available, e.Requested)
}

// NotFoundError names a missing entity.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// UnsupportedTransitionError rejects status moves the ledger has no rule for,
// such as leaving a settled status.
type UnsupportedTransitionError struct {
	From   enums.RequestStatus
	To     enums.RequestStatus
	Reason string
}

func (e *UnsupportedTransitionError) Error() string {
	from, to := string(e.From), string(e.To)
	if from == "" {
		from = "none"
	}
	if to == "" {
		to = "none"
	}
	return fmt.Sprintf("unsupported request transition %s -> %s: %s", from, to, e.Reason)
}

// UnderflowError means a release or consume would take more units out of the
// reserved bucket than it holds. It signals drift between requests and stock.
type UnderflowError struct {
	ItemID    uuid.UUID
	Reserved  int
	Requested int
}

func (e *UnderflowError) Error() string {
	return fmt.Sprintf("reserved stock underflow for item %s: reserved %d, releasing %d", e.ItemID, e.Reserved, e.Requested)
}

// InvalidQuantityError rejects non-positive request quantities.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("request quantity must be at least 1, got %d", e.Quantity)
}

const entityInventoryItem = "inventory_item"
