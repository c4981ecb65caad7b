package controllers

import (
	"bytes"
	"context"
	"encoding/json"
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

type stubSessionTokenManager struct {
	revoked      string
	rotatedFrom  string
	rotatedWith  string
	nextAccessID string
	nextRefresh  string
	rotateErr    error
	revokeErr    error
}

func (s *stubSessionTokenManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	s.rotatedFrom = oldAccessID
	s.rotatedWith = provided
	return s.nextAccessID, s.nextRefresh, s.rotateErr
}

func (s *stubSessionTokenManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = accessID
	return s.revokeErr
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "gudang-mitra", ExpirationMinutes: 10}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.UserRole, issuedAt time.Time) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(cfg, issuedAt, auth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    accessID,
	})
	require.NoError(t, err)
	return token, accessID
}

func sessionRequest(path, token, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthLogoutRevokesSession(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{}
	token, jti := mintTestToken(t, cfg, enums.UserRoleUser, time.Now())

	rec := httptest.NewRecorder()
	AuthLogout(manager, cfg, nil).ServeHTTP(rec, sessionRequest("/logout", token, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, jti, manager.revoked)
}

func TestAuthLogoutAcceptsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{}
	token, jti := mintTestToken(t, cfg, enums.UserRoleManager, time.Now().Add(-time.Hour))

	rec := httptest.NewRecorder()
	AuthLogout(manager, cfg, nil).ServeHTTP(rec, sessionRequest("/logout", token, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, jti, manager.revoked)
}

func TestAuthLogoutRejectsMissingOrForeignToken(t *testing.T) {
	cfg := testJWTConfig()
	foreign, _ := mintTestToken(t, config.JWTConfig{Secret: "other", Issuer: "gudang-mitra", ExpirationMinutes: 10}, enums.UserRoleUser, time.Now())

	for name, token := range map[string]string{"missing": "", "foreign": foreign} {
		t.Run(name, func(t *testing.T) {
			manager := &stubSessionTokenManager{}
			rec := httptest.NewRecorder()
			AuthLogout(manager, cfg, nil).ServeHTTP(rec, sessionRequest("/logout", token, ""))

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Empty(t, manager.revoked)
		})
	}
}

func TestAuthRefreshIssuesNewPair(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{nextAccessID: "new-jti", nextRefresh: "new-refresh"}
	token, jti := mintTestToken(t, cfg, enums.UserRoleManager, time.Now())

	rec := httptest.NewRecorder()
	AuthRefresh(manager, cfg, nil).ServeHTTP(rec, sessionRequest("/refresh", token, `{"refresh_token":"old-refresh"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, jti, manager.rotatedFrom)
	require.Equal(t, "old-refresh", manager.rotatedWith)

	var envelope struct {
		Data refreshResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, "new-refresh", envelope.Data.RefreshToken)
	require.Equal(t, 600, envelope.Data.ExpiresIn)

	claims, err := auth.ParseAccessToken(cfg, envelope.Data.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "new-jti", claims.ID)
	require.Equal(t, enums.UserRoleManager, claims.Role)
}

func TestAuthRefreshErrors(t *testing.T) {
	cfg := testJWTConfig()

	cases := []struct {
		name      string
		body      string
		rotateErr error
		status    int
	}{
		{name: "invalid refresh token", body: `{"refresh_token":"stale"}`, rotateErr: session.ErrInvalidRefreshToken, status: http.StatusUnauthorized},
		{name: "store unavailable", body: `{"refresh_token":"stale"}`, rotateErr: errors.New("redis down"), status: http.StatusServiceUnavailable},
		{name: "missing refresh token", body: `{}`, status: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			manager := &stubSessionTokenManager{rotateErr: tc.rotateErr}
			token, _ := mintTestToken(t, cfg, enums.UserRoleUser, time.Now())

			rec := httptest.NewRecorder()
			AuthRefresh(manager, cfg, nil).ServeHTTP(rec, sessionRequest("/refresh", token, tc.body))

			require.Equal(t, tc.status, rec.Code)
		})
	}
}
