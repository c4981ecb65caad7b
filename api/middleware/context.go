package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
)

// Actor is the authenticated caller as established by Auth.
type Actor struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	SessionID string
}

type actorKey struct{}

// WithActor stores actor on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorValue returns the full actor, session id included. ok is false when
// no actor was stored or its role is not a known role.
func ActorValue(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return Actor{}, false
	}
	return actor, true
}

// ActorFromContext is ActorValue for callers that only need who and as what.
func ActorFromContext(ctx context.Context) (uuid.UUID, enums.UserRole, bool) {
	actor, ok := ActorValue(ctx)
	return actor.UserID, actor.Role, ok
}
