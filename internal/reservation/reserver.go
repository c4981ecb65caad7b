package reservation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gateway is the storage surface the reserver needs. Both calls run on the
// caller's transaction.
type Gateway interface {
	// LockItems reads the stock levels of ids under a row lock. Missing ids
	// are simply absent from the result.
	LockItems(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]StockLevel, error)
	// ApplyDeltas writes every delta or returns an error. A delta that no
	// longer fits the row must surface as ErrConcurrencyConflict.
	ApplyDeltas(ctx context.Context, tx *gorm.DB, deltas []Delta) error
}

// Reserver applies ledger decisions to storage.
type Reserver struct {
	gateway Gateway
}

func NewReserver(gateway Gateway) (*Reserver, error) {
	if gateway == nil {
		return nil, errors.New("reservation gateway required")
	}
	return &Reserver{gateway: gateway}, nil
}

// Apply locks the touched inventory rows, plans the transition against their
// fresh levels and writes the resulting deltas. It must run inside tx so a
// failure anywhere later in the caller's work rolls the stock back too.
func (r *Reserver) Apply(ctx context.Context, tx *gorm.DB, t Transition) ([]Delta, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}

	levels := map[uuid.UUID]StockLevel{}
	if ids := t.ItemIDs(); len(ids) > 0 {
		locked, err := r.gateway.LockItems(ctx, tx, ids)
		if err != nil {
			return nil, err
		}
		levels = locked
	}

	deltas, err := Plan(t, levels)
	if err != nil {
		return nil, err
	}
	if len(deltas) == 0 {
		return nil, nil
	}

	if err := r.gateway.ApplyDeltas(ctx, tx, deltas); err != nil {
		return nil, err
	}
	return deltas, nil
}
