package reservation

import (
	"sort"

	"github.com/google/uuid"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
)

// Snapshot is the part of an item request the ledger cares about.
type Snapshot struct {
	Status          enums.RequestStatus
	Quantity        int
	InventoryItemID *uuid.UUID
}

func (s *Snapshot) linked() bool {
	return s != nil && s.InventoryItemID != nil && *s.InventoryItemID != uuid.Nil
}

func (s *Snapshot) holds() bool {
	return s.linked() && s.Status.HoldsReservation()
}

func (s *Snapshot) itemID() uuid.UUID {
	if !s.linked() {
		return uuid.Nil
	}
	return *s.InventoryItemID
}

// Transition describes a request before and after a write. Previous is nil
// for creations and Next is nil for deletions.
type Transition struct {
	Previous *Snapshot
	Next     *Snapshot
}

// ItemIDs returns the distinct inventory items the transition touches, sorted
// so every caller locks rows in the same order.
func (t Transition) ItemIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, 2)
	ids := make([]uuid.UUID, 0, 2)
	for _, snap := range []*Snapshot{t.Previous, t.Next} {
		if !snap.linked() {
			continue
		}
		id := *snap.InventoryItemID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}

// StockLevel is the freshly read state of one inventory row.
type StockLevel struct {
	Available int
	Reserved  int
}

// Delta is a signed change to one inventory row. Positive AvailableDelta
// returns units to the shelf; positive ReservedDelta holds them for a request.
type Delta struct {
	InventoryItemID uuid.UUID `json:"inventoryItemId"`
	AvailableDelta  int       `json:"availableDelta"`
	ReservedDelta   int       `json:"reservedDelta"`
}

// Apply returns the level after the delta.
func (l StockLevel) Apply(d Delta) StockLevel {
	return StockLevel{
		Available: l.Available + d.AvailableDelta,
		Reserved:  l.Reserved + d.ReservedDelta,
	}
}
