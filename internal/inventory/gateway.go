package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gudangmitra/gudang-mitra-backend/internal/reservation"
	dbpkg "github.com/gudangmitra/gudang-mitra-backend/pkg/db"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
)

// StockGateway reads and writes the available/reserved buckets of inventory
// rows on behalf of the reservation ledger.
type StockGateway struct{}

// NewStockGateway returns the gorm backed gateway.
func NewStockGateway() *StockGateway {
	return &StockGateway{}
}

var _ reservation.Gateway = (*StockGateway)(nil)

type stockRow struct {
	ID           uuid.UUID `gorm:"column:id"`
	AvailableQty int       `gorm:"column:available_qty"`
	ReservedQty  int       `gorm:"column:reserved_qty"`
}

// LockItems issues SELECT ... FOR UPDATE over ids ordered by id. SQLite has no
// row locks; its single writer gives the same exclusion.
func (g *StockGateway) LockItems(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]reservation.StockLevel, error) {
	levels := make(map[uuid.UUID]reservation.StockLevel, len(ids))
	if len(ids) == 0 {
		return levels, nil
	}

	var rows []stockRow
	err := tx.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Select("id", "available_qty", "reserved_qty").
		Where("id IN ?", ids).
		Order("id").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("lock inventory items: %w", err)
	}

	for _, row := range rows {
		levels[row.ID] = reservation.StockLevel{Available: row.AvailableQty, Reserved: row.ReservedQty}
	}
	return levels, nil
}

// ApplyDeltas writes each delta with a guarded UPDATE. A guard that matches no
// row means the levels moved since they were locked.
func (g *StockGateway) ApplyDeltas(ctx context.Context, tx *gorm.DB, deltas []reservation.Delta) error {
	for _, d := range deltas {
		res := tx.WithContext(ctx).
			Model(&models.InventoryItem{}).
			Where("id = ? AND available_qty + ? >= 0 AND reserved_qty + ? >= 0", d.InventoryItemID, d.AvailableDelta, d.ReservedDelta).
			Updates(map[string]any{
				"available_qty": gorm.Expr("available_qty + ?", d.AvailableDelta),
				"reserved_qty":  gorm.Expr("reserved_qty + ?", d.ReservedDelta),
			})
		if res.Error != nil {
			if dbpkg.IsCheckViolation(res.Error) {
				return reservation.ErrConcurrencyConflict
			}
			return fmt.Errorf("apply stock delta to %s: %w", d.InventoryItemID, res.Error)
		}
		if res.RowsAffected == 0 {
			return reservation.ErrConcurrencyConflict
		}
	}
	return nil
}
