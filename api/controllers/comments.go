package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/gudangmitra/gudang-mitra-backend/api/responses"
	"github.com/gudangmitra/gudang-mitra-backend/api/validators"
	"github.com/gudangmitra/gudang-mitra-backend/internal/comments"
	"github.com/gudangmitra/gudang-mitra-backend/internal/users"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
)

type profileLookup interface {
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type createCommentRequest struct {
	Content string `json:"content" validate:"required,notblank,max=2000"`
}

func ListRequestComments(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("comments service"))
			return
		}
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), comments.Actor{UserID: userID, Role: role}, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// CreateRequestComment posts to a request thread. The author name shown in
// the owner's notification comes from the profile lookup when available.
func CreateRequestComment(svc comments.Service, profiles profileLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("comments service"))
			return
		}
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createCommentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := comments.Actor{UserID: userID, Role: role}
		if profiles != nil {
			if profile, err := profiles.Me(r.Context(), userID); err == nil && profile != nil {
				actor.Name = profile.Name
			} else if err != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "comments.author_lookup_failed")
			}
		}

		comment, err := svc.Create(r.Context(), actor, requestID, body.Content)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, comment)
	}
}
