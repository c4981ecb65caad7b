package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gudangmitra/gudang-mitra-backend/internal/inventory"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
)

type stubInventoryService struct {
	inventory.Service

	listParams  inventory.ListParams
	createInput inventory.CreateItemInput
	updateInput inventory.UpdateItemInput
	adjustInput inventory.AdjustStockInput
}

func (s *stubInventoryService) List(ctx context.Context, params inventory.ListParams) (*inventory.ItemListResult, error) {
	s.listParams = params
	return &inventory.ItemListResult{Items: []inventory.ItemDTO{}}, nil
}

func (s *stubInventoryService) Create(ctx context.Context, actor inventory.Actor, input inventory.CreateItemInput) (*inventory.ItemDTO, error) {
	s.createInput = input
	return &inventory.ItemDTO{ID: uuid.New(), Name: input.Name, AvailableQty: input.InitialQty}, nil
}

func (s *stubInventoryService) Update(ctx context.Context, actor inventory.Actor, id uuid.UUID, input inventory.UpdateItemInput) (*inventory.ItemDTO, error) {
	s.updateInput = input
	return &inventory.ItemDTO{ID: id}, nil
}

func (s *stubInventoryService) AdjustStock(ctx context.Context, actor inventory.Actor, id uuid.UUID, input inventory.AdjustStockInput) (*inventory.ItemDTO, error) {
	s.adjustInput = input
	return &inventory.ItemDTO{ID: id}, nil
}

func TestListInventoryParsesQuery(t *testing.T) {
	svc := &stubInventoryService{}
	categoryID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory?search=%20paper%20&category_id="+categoryID.String(), nil)
	req = withActor(req, uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	ListInventory(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "paper", svc.listParams.Search)
	require.NotNil(t, svc.listParams.CategoryID)
	require.Equal(t, categoryID, *svc.listParams.CategoryID)
}

func TestCreateInventoryItemParsesDecimalPrice(t *testing.T) {
	svc := &stubInventoryService{}
	body := `{"name":"Stapler","unit_price":"12500.50","initial_qty":7}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory", bytes.NewBufferString(body))
	req = withActor(req, uuid.New(), enums.UserRoleAdmin)
	rec := httptest.NewRecorder()
	CreateInventoryItem(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, decimal.RequireFromString("12500.50").Equal(svc.createInput.UnitPrice))
	require.Equal(t, 7, svc.createInput.InitialQty)
}

func TestUpdateInventoryItemRejectsQuantityFields(t *testing.T) {
	svc := &stubInventoryService{}
	id := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/inventory/"+id.String(), bytes.NewBufferString(`{"available_qty":100}`))
	req = withActor(req, uuid.New(), enums.UserRoleAdmin)
	req = addRouteParam(req, "itemId", id.String())
	rec := httptest.NewRecorder()
	UpdateInventoryItem(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdjustInventoryStockRequiresNonZeroDelta(t *testing.T) {
	svc := &stubInventoryService{}
	id := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/"+id.String()+"/adjust", bytes.NewBufferString(`{"delta":0,"reason":"count"}`))
	req = withActor(req, uuid.New(), enums.UserRoleManager)
	req = addRouteParam(req, "itemId", id.String())
	rec := httptest.NewRecorder()
	AdjustInventoryStock(svc, testLogger())(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/inventory/"+id.String()+"/adjust", bytes.NewBufferString(`{"delta":-2,"reason":"damaged"}`))
	req = withActor(req, uuid.New(), enums.UserRoleManager)
	req = addRouteParam(req, "itemId", id.String())
	rec = httptest.NewRecorder()
	AdjustInventoryStock(svc, testLogger())(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, -2, svc.adjustInput.Delta)
	require.Equal(t, "damaged", svc.adjustInput.Reason)
}
