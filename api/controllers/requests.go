package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gudangmitra/gudang-mitra-backend/api/responses"
	"github.com/gudangmitra/gudang-mitra-backend/api/validators"
	"github.com/gudangmitra/gudang-mitra-backend/internal/requests"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
)

type createRequestRequest struct {
	Title           string     `json:"title" validate:"required,notblank,max=255"`
	Description     *string    `json:"description" validate:"omitempty,max=2000"`
	CategoryID      *uuid.UUID `json:"category_id"`
	Priority        string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Quantity        int        `json:"quantity" validate:"required,gte=1"`
	InventoryItemID *uuid.UUID `json:"inventory_item_id"`
}

type updateRequestRequest struct {
	Title           *string    `json:"title" validate:"omitempty,max=255"`
	Description     *string    `json:"description" validate:"omitempty,max=2000"`
	CategoryID      *uuid.UUID `json:"category_id"`
	Priority        *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Quantity        *int       `json:"quantity" validate:"omitempty,gte=1"`
	InventoryItemID *uuid.UUID `json:"inventory_item_id"`
	UnlinkItem      bool       `json:"unlink_item"`
	Status          *string    `json:"status" validate:"omitempty,oneof=pending approved rejected fulfilled"`
	RejectionReason *string    `json:"rejection_reason" validate:"omitempty,max=1000"`
}

type rejectRequestRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// ListRequests pages item requests. Plain users only ever see their own.
func ListRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("requests service"))
			return
		}
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parseRequestFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), requests.Actor{UserID: userID, Role: role}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseRequestFilters(r *http.Request) (requests.ListParams, error) {
	var params requests.ListParams

	owner, err := validators.ParseQueryUUID(r, "user_id")
	if err != nil {
		return params, err
	}
	params.UserID = owner

	if params.Status, err = validators.ParseQueryEnum(r, "status", enums.ParseRequestStatus); err != nil {
		return params, err
	}
	if params.Priority, err = validators.ParseQueryEnum(r, "priority", enums.ParseRequestPriority); err != nil {
		return params, err
	}

	page, err := validators.ParsePagination(r)
	if err != nil {
		return params, err
	}
	params.Pagination = page
	return params, nil
}

func CreateRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("requests service"))
			return
		}
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRequestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), requests.Actor{UserID: userID, Role: role}, requests.CreateInput{
			Title:           body.Title,
			Description:     body.Description,
			CategoryID:      body.CategoryID,
			Priority:        enums.RequestPriority(body.Priority),
			Quantity:        body.Quantity,
			InventoryItemID: body.InventoryItemID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func GetRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("requests service"))
			return
		}
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Get(r.Context(), requests.Actor{UserID: userID, Role: role}, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UpdateRequest applies a partial update. A status field is routed through
// the same transition rules as the dedicated decision endpoints.
func UpdateRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("requests service"))
			return
		}
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateRequestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := requests.UpdateInput{
			Title:           body.Title,
			Description:     body.Description,
			CategoryID:      body.CategoryID,
			Quantity:        body.Quantity,
			InventoryItemID: body.InventoryItemID,
			UnlinkItem:      body.UnlinkItem,
			RejectionReason: body.RejectionReason,
		}
		if body.Priority != nil {
			priority := enums.RequestPriority(*body.Priority)
			input.Priority = &priority
		}
		if body.Status != nil {
			status := enums.RequestStatus(*body.Status)
			input.Status = &status
		}

		result, err := svc.Update(r.Context(), requests.Actor{UserID: userID, Role: role}, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func DeleteRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("requests service"))
			return
		}
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), requests.Actor{UserID: userID, Role: role}, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func ApproveRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return decisionHandler(svc, logg, func(r *http.Request, actor requests.Actor, id uuid.UUID) (*requests.RequestDTO, error) {
		return svc.Approve(r.Context(), actor, id)
	})
}

func FulfillRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return decisionHandler(svc, logg, func(r *http.Request, actor requests.Actor, id uuid.UUID) (*requests.RequestDTO, error) {
		return svc.Fulfill(r.Context(), actor, id)
	})
}

// RejectRequest accepts an optional {"reason": "..."} body.
func RejectRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return decisionHandler(svc, logg, func(r *http.Request, actor requests.Actor, id uuid.UUID) (*requests.RequestDTO, error) {
		var body rejectRequestRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Reject(r.Context(), actor, id, body.Reason)
	})
}

func decisionHandler(svc requests.Service, logg *logger.Logger, decide func(*http.Request, requests.Actor, uuid.UUID) (*requests.RequestDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("requests service"))
			return
		}
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := decide(r, requests.Actor{UserID: userID, Role: role}, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
