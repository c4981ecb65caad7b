package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gudangmitra/gudang-mitra-backend/api/responses"
	pkgAuth "github.com/gudangmitra/gudang-mitra-backend/pkg/auth"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/auth/session"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
)

// BearerToken reads the Authorization header. The Bearer scheme is matched
// case-insensitively and may be left out entirely.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token := header
	if scheme, rest, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "bearer") {
		token = strings.TrimSpace(rest)
	} else if strings.EqualFold(header, "bearer") {
		token = ""
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}

type authenticator struct {
	cfg      config.JWTConfig
	sessions session.AccessSessionChecker
}

// actor resolves the caller behind r. A verified token is not enough on its
// own: its jti must still name a live session so logout takes effect before
// the token expires.
func (a authenticator) actor(ctx context.Context, r *http.Request) (Actor, error) {
	token, err := BearerToken(r)
	if err != nil {
		return Actor{}, err
	}
	claims, err := pkgAuth.ParseAccessToken(a.cfg, token)
	if err != nil {
		return Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if a.sessions != nil {
		live, err := a.sessions.HasSession(ctx, claims.ID)
		if err != nil {
			return Actor{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role, SessionID: claims.ID}, nil
}

// Auth admits requests carrying a valid access token for a live session and
// puts the caller on the request context.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	a := authenticator{cfg: cfg, sessions: sessions}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor, err := a.actor(ctx, r)
			if err != nil {
				if pkgerrors.CodeOf(err) == pkgerrors.CodeUnauthorized {
					w.Header().Set("WWW-Authenticate", `Bearer realm="gudang-mitra"`)
				}
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithActor(ctx, actor)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, actor.UserID.String()), string(actor.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
