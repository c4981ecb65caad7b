package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/db"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/dbtest"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/pagination"
)

var manager = Actor{UserID: uuid.New(), Role: enums.UserRoleManager}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	emitter := outbox.NewService(outbox.NewRepository(conn), logger.Nop())
	svc, err := NewService(NewRepository(conn), db.FromConn(conn), emitter)
	require.NoError(t, err)
	return svc, conn
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestCreateDefaultsUnitAndStartsUnreserved(t *testing.T) {
	svc, _ := newTestService(t)

	item, err := svc.Create(context.Background(), manager, CreateItemInput{
		Name:       "  Pulpen Hitam ",
		UnitPrice:  decimal.RequireFromString("2500.00"),
		InitialQty: 40,
	})
	require.NoError(t, err)
	require.Equal(t, "Pulpen Hitam", item.Name)
	require.Equal(t, "pcs", item.Unit)
	require.Equal(t, 40, item.AvailableQty)
	require.Equal(t, 0, item.ReservedQty)
	require.Equal(t, 40, item.TotalQty)
}

func TestCreateRejectsRegularUsers(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), Actor{UserID: uuid.New(), Role: enums.UserRoleUser}, CreateItemInput{Name: "x"})
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestCreateRejectsUnknownCategory(t *testing.T) {
	svc, _ := newTestService(t)
	categoryID := uuid.New()
	_, err := svc.Create(context.Background(), manager, CreateItemInput{Name: "x", CategoryID: &categoryID})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCreateDuplicateSKU(t *testing.T) {
	svc, _ := newTestService(t)
	sku := "ATK-001"
	_, err := svc.Create(context.Background(), manager, CreateItemInput{Name: "a", SKU: &sku})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), manager, CreateItemInput{Name: "b", SKU: &sku})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestGetMissingItem(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestUpdateNeverTouchesQuantities(t *testing.T) {
	svc, conn := newTestService(t)
	created, err := svc.Create(context.Background(), manager, CreateItemInput{Name: "Map", InitialQty: 7})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.InventoryItem{}).Where("id = ?", created.ID).
		Updates(map[string]any{"available_qty": 5, "reserved_qty": 2}).Error)

	name := "Map Plastik"
	price := decimal.RequireFromString("1200")
	updated, err := svc.Update(context.Background(), manager, created.ID, UpdateItemInput{Name: &name, UnitPrice: &price})
	require.NoError(t, err)
	require.Equal(t, "Map Plastik", updated.Name)
	require.True(t, price.Equal(updated.UnitPrice))
	require.Equal(t, 5, updated.AvailableQty)
	require.Equal(t, 2, updated.ReservedQty)
}

func TestAdjustStock(t *testing.T) {
	svc, conn := newTestService(t)
	created, err := svc.Create(context.Background(), manager, CreateItemInput{Name: "Tinta", InitialQty: 3})
	require.NoError(t, err)

	t.Run("increase", func(t *testing.T) {
		item, err := svc.AdjustStock(context.Background(), manager, created.ID, AdjustStockInput{Delta: 5, Reason: "restock"})
		require.NoError(t, err)
		require.Equal(t, 8, item.AvailableQty)

		var count int64
		require.NoError(t, conn.Model(&models.OutboxEvent{}).
			Where("event_type = ? AND aggregate_id = ?", enums.EventStockAdjusted, created.ID).
			Count(&count).Error)
		require.EqualValues(t, 1, count)
	})

	t.Run("belowZero", func(t *testing.T) {
		_, err := svc.AdjustStock(context.Background(), manager, created.ID, AdjustStockInput{Delta: -9, Reason: "broken"})
		require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

		item, err := svc.Get(context.Background(), created.ID)
		require.NoError(t, err)
		require.Equal(t, 8, item.AvailableQty)
	})

	t.Run("missingReason", func(t *testing.T) {
		_, err := svc.AdjustStock(context.Background(), manager, created.ID, AdjustStockInput{Delta: 1})
		require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})

	t.Run("missingItem", func(t *testing.T) {
		_, err := svc.AdjustStock(context.Background(), manager, uuid.New(), AdjustStockInput{Delta: 1, Reason: "x"})
		require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	})
}

func TestListFiltersAndPages(t *testing.T) {
	svc, conn := newTestService(t)
	category := &models.Category{Name: "ATK"}
	require.NoError(t, conn.Create(category).Error)

	for _, name := range []string{"Stapler", "Staples", "Lakban"} {
		_, err := svc.Create(context.Background(), manager, CreateItemInput{Name: name, CategoryID: &category.ID})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), manager, CreateItemInput{Name: "Kursi"})
	require.NoError(t, err)

	byCategory, err := svc.List(context.Background(), ListParams{CategoryID: &category.ID})
	require.NoError(t, err)
	require.Len(t, byCategory.Items, 3)

	bySearch, err := svc.List(context.Background(), ListParams{Search: "stap"})
	require.NoError(t, err)
	require.Len(t, bySearch.Items, 2)

	first, err := svc.List(context.Background(), ListParams{Pagination: pagination.Params{Limit: 3}})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.NotEmpty(t, first.NextCursor)

	_, err = svc.List(context.Background(), ListParams{Pagination: pagination.Params{Cursor: "%%%"}})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
