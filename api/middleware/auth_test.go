package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/auth"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/auth/session"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "gudang-test", ExpirationMinutes: 60}

type sessionsStub struct {
	live map[string]bool
	err  error
}

func (s sessionsStub) HasSession(_ context.Context, accessID string) (bool, error) {
	return s.live[accessID], s.err
}

func signedToken(t *testing.T, userID uuid.UUID, role enums.UserRole) (string, string) {
	t.Helper()
	jti := session.NewAccessID()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role, JTI: jti})
	require.NoError(t, err)
	return token, jti
}

func TestAuthRejections(t *testing.T) {
	token, jti := signedToken(t, uuid.New(), enums.UserRoleUser)
	expired, err := auth.MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser, JTI: jti})
	require.NoError(t, err)

	cases := map[string]struct {
		header   string
		sessions sessionsStub
		want     int
	}{
		"missing header":  {want: http.StatusUnauthorized},
		"garbage token":   {header: "Bearer invalid", sessions: sessionsStub{live: map[string]bool{jti: true}}, want: http.StatusUnauthorized},
		"expired token":   {header: "Bearer " + expired, sessions: sessionsStub{live: map[string]bool{jti: true}}, want: http.StatusUnauthorized},
		"revoked session": {header: "Bearer " + token, sessions: sessionsStub{}, want: http.StatusUnauthorized},
		"redis down":      {header: "Bearer " + token, sessions: sessionsStub{err: errors.New("redis down")}, want: http.StatusServiceUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			Auth(testJWT, tc.sessions, nil)(okHandler()).ServeHTTP(rec, req)

			require.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusUnauthorized {
				require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}
}

func TestAuthPutsActorOnContext(t *testing.T) {
	userID := uuid.New()
	token, jti := signedToken(t, userID, enums.UserRoleManager)

	var got Actor
	handler := Auth(testJWT, sessionsStub{live: map[string]bool{jti: true}}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorValue(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, Actor{UserID: userID, Role: enums.UserRoleManager, SessionID: jti}, got)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.UserRoleAdmin, enums.UserRoleManager)(okHandler())

	for role, want := range map[enums.UserRole]int{
		enums.UserRoleAdmin:   http.StatusOK,
		enums.UserRoleManager: http.StatusOK,
		enums.UserRoleUser:    http.StatusForbidden,
		"":                    http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithActor(req.Context(), Actor{UserID: uuid.New(), Role: role}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code, "role %q", role)
	}
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"BEARER abc":   "abc",
		"abc":          "abc",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		got, err := BearerToken(req)
		require.NoError(t, err, header)
		require.Equal(t, want, got, header)
	}

	for _, header := range []string{"", "Bearer ", "bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		_, err := BearerToken(req)
		require.Error(t, err, header)
	}
}
