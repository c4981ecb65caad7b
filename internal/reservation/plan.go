package reservation

import (
	"github.com/google/uuid"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
)

// Plan decides the stock deltas for a request transition. levels must hold
// the current state of every id in t.ItemIDs(). Plan either returns the full
// batch of deltas or an error and no deltas. It never touches storage.
func Plan(t Transition, levels map[uuid.UUID]StockLevel) ([]Delta, error) {
	prev, next := t.Previous, t.Next

	if next != nil && next.Quantity < 1 {
		return nil, &InvalidQuantityError{Quantity: next.Quantity}
	}

	switch {
	case prev == nil && next == nil:
		return nil, nil
	case prev == nil:
		return planCreate(next, levels)
	case next == nil:
		return planDelete(prev, levels)
	case prev.Status.IsSettled():
		return nil, checkSettledUnchanged(prev, next)
	case next.Status.IsSettled():
		return planSettle(prev, next, levels)
	default:
		return planOpenUpdate(prev, next, levels)
	}
}

func planCreate(next *Snapshot, levels map[uuid.UUID]StockLevel) ([]Delta, error) {
	if next.Status != enums.RequestStatusPending {
		return nil, &UnsupportedTransitionError{To: next.Status, Reason: "requests start as pending"}
	}
	if !next.linked() {
		return nil, nil
	}
	d, err := reserve(levels, next.itemID(), next.Quantity)
	if err != nil {
		return nil, err
	}
	return []Delta{d}, nil
}

func planDelete(prev *Snapshot, levels map[uuid.UUID]StockLevel) ([]Delta, error) {
	if !prev.holds() {
		return nil, nil
	}
	d, err := release(levels, prev.itemID(), prev.Quantity)
	if err != nil {
		return nil, err
	}
	return []Delta{d}, nil
}

// checkSettledUnchanged allows re-applying a settled status and nothing else.
func checkSettledUnchanged(prev, next *Snapshot) error {
	if next.Status != prev.Status {
		return &UnsupportedTransitionError{From: prev.Status, To: next.Status, Reason: "settled requests cannot change status"}
	}
	if next.Quantity != prev.Quantity || next.itemID() != prev.itemID() {
		return &UnsupportedTransitionError{From: prev.Status, To: next.Status, Reason: "settled requests cannot change quantity or item"}
	}
	return nil
}

func planSettle(prev, next *Snapshot, levels map[uuid.UUID]StockLevel) ([]Delta, error) {
	if next.Quantity != prev.Quantity || next.itemID() != prev.itemID() {
		return nil, &UnsupportedTransitionError{From: prev.Status, To: next.Status, Reason: "quantity and item cannot change while settling"}
	}
	if !prev.linked() {
		return nil, nil
	}

	var (
		d   Delta
		err error
	)
	switch next.Status {
	case enums.RequestStatusFulfilled:
		d, err = consume(levels, prev.itemID(), prev.Quantity)
	case enums.RequestStatusRejected:
		d, err = release(levels, prev.itemID(), prev.Quantity)
	default:
		return nil, &UnsupportedTransitionError{From: prev.Status, To: next.Status, Reason: "unknown settled status"}
	}
	if err != nil {
		return nil, err
	}
	return []Delta{d}, nil
}

func planOpenUpdate(prev, next *Snapshot, levels map[uuid.UUID]StockLevel) ([]Delta, error) {
	if !next.Status.HoldsReservation() {
		return nil, &UnsupportedTransitionError{From: prev.Status, To: next.Status, Reason: "unknown target status"}
	}

	if prev.itemID() == next.itemID() {
		if !next.linked() {
			return nil, nil
		}
		return resize(levels, next.itemID(), next.Quantity-prev.Quantity)
	}

	// Reassignment: validate both legs before returning either.
	deltas := make([]Delta, 0, 2)
	if prev.linked() {
		d, err := release(levels, prev.itemID(), prev.Quantity)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}
	if next.linked() {
		d, err := reserve(levels, next.itemID(), next.Quantity)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}
	return deltas, nil
}

func resize(levels map[uuid.UUID]StockLevel, id uuid.UUID, diff int) ([]Delta, error) {
	var (
		d   Delta
		err error
	)
	switch {
	case diff > 0:
		d, err = reserve(levels, id, diff)
	case diff < 0:
		d, err = release(levels, id, -diff)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []Delta{d}, nil
}

func level(levels map[uuid.UUID]StockLevel, id uuid.UUID) (StockLevel, error) {
	l, ok := levels[id]
	if !ok {
		return StockLevel{}, &NotFoundError{Entity: entityInventoryItem, ID: id}
	}
	return l, nil
}

func reserve(levels map[uuid.UUID]StockLevel, id uuid.UUID, qty int) (Delta, error) {
	l, err := level(levels, id)
	if err != nil {
		return Delta{}, err
	}
	if l.Available < qty {
		return Delta{}, &InsufficientStockError{ItemID: id, Available: l.Available, Requested: qty}
	}
	return Delta{InventoryItemID: id, AvailableDelta: -qty, ReservedDelta: qty}, nil
}

func release(levels map[uuid.UUID]StockLevel, id uuid.UUID, qty int) (Delta, error) {
	l, err := level(levels, id)
	if err != nil {
		return Delta{}, err
	}
	if l.Reserved < qty {
		return Delta{}, &UnderflowError{ItemID: id, Reserved: l.Reserved, Requested: qty}
	}
	return Delta{InventoryItemID: id, AvailableDelta: qty, ReservedDelta: -qty}, nil
}

// consume hands reserved units out of the warehouse; available is untouched.
func consume(levels map[uuid.UUID]StockLevel, id uuid.UUID, qty int) (Delta, error) {
	l, err := level(levels, id)
	if err != nil {
		return Delta{}, err
	}
	if l.Reserved < qty {
		return Delta{}, &UnderflowError{ItemID: id, Reserved: l.Reserved, Requested: qty}
	}
	return Delta{InventoryItemID: id, ReservedDelta: -qty}, nil
}
