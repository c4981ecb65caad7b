package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gudangmitra/gudang-mitra-backend/api/responses"
	"github.com/gudangmitra/gudang-mitra-backend/api/validators"
	"github.com/gudangmitra/gudang-mitra-backend/internal/inventory"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
)

const maxSearchLength = 100

type createItemRequest struct {
	Name        string          `json:"name" validate:"required,notblank,max=255"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	SKU         *string         `json:"sku" validate:"omitempty,max=64"`
	Unit        string          `json:"unit" validate:"omitempty,max=32"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	InitialQty  int             `json:"initial_qty" validate:"gte=0"`
}

type updateItemRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=255"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	CategoryID  *uuid.UUID       `json:"category_id"`
	SKU         *string          `json:"sku" validate:"omitempty,max=64"`
	Unit        *string          `json:"unit" validate:"omitempty,max=32"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

type adjustStockRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

// ListInventory pages the catalog, optionally filtered by category and a name search.
func ListInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}

		categoryID, err := validators.ParseQueryUUID(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), inventory.ListParams{
			CategoryID: categoryID,
			Search:     validators.SanitizeString(r.URL.Query().Get("search"), maxSearchLength),
			Pagination: page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CreateInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), inventory.Actor{UserID: userID, Role: role}, inventory.CreateItemInput{
			Name:        body.Name,
			Description: body.Description,
			CategoryID:  body.CategoryID,
			SKU:         body.SKU,
			Unit:        body.Unit,
			UnitPrice:   body.UnitPrice,
			InitialQty:  body.InitialQty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// UpdateInventoryItem patches descriptive fields. Quantities are not accepted here.
func UpdateInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), inventory.Actor{UserID: userID, Role: role}, id, inventory.UpdateItemInput{
			Name:        body.Name,
			Description: body.Description,
			CategoryID:  body.CategoryID,
			SKU:         body.SKU,
			Unit:        body.Unit,
			UnitPrice:   body.UnitPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func AdjustInventoryStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AdjustStock(r.Context(), inventory.Actor{UserID: userID, Role: role}, id, inventory.AdjustStockInput{
			Delta:  body.Delta,
			Reason: body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
