package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gudangmitra/gudang-mitra-backend/api/middleware"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
)

func actorFromRequest(r *http.Request) (uuid.UUID, enums.UserRole, error) {
	userID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, role, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}
