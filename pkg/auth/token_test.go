package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "gudang-mitra",
		ExpirationMinutes: minutes,
	}
}

func mint(t *testing.T, cfg config.JWTConfig, now time.Time, role enums.UserRole) string {
	t.Helper()
	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return token
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: userID,
		Role:   enums.UserRoleManager,
		JTI:    "session-1",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, userID.String(), claims.Subject)
	require.Equal(t, enums.UserRoleManager, claims.Role)
	require.Equal(t, "session-1", claims.ID)
	require.Equal(t, cfg.Issuer, claims.Issuer)
	require.WithinDuration(t, now.Add(cfg.AccessTTL()), claims.ExpiresAt.Time, time.Second)
}

func TestParseAccessTokenRejects(t *testing.T) {
	cfg := testJWTConfig(10)
	token := mint(t, cfg, time.Now(), enums.UserRoleUser)

	otherIssuer := cfg
	otherIssuer.Issuer = "someone-else"
	otherSecret := cfg
	otherSecret.Secret = "rotated"

	cases := map[string]struct {
		cfg   config.JWTConfig
		token string
	}{
		"tampered signature": {cfg: cfg, token: token + "x"},
		"wrong issuer":       {cfg: otherIssuer, token: token},
		"wrong secret":       {cfg: otherSecret, token: token},
		"garbage":            {cfg: cfg, token: "not-a-jwt"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(tc.cfg, tc.token)
			require.Error(t, err)
		})
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token := mint(t, cfg, time.Now().Add(-time.Hour), enums.UserRoleAdmin)

	_, err := ParseAccessToken(cfg, token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, enums.UserRoleAdmin, claims.Role)
}

func TestParseAccessTokenAllowExpiredChecksIssuer(t *testing.T) {
	cfg := testJWTConfig(15)
	token := mint(t, cfg, time.Now().Add(-time.Hour), enums.UserRoleUser)

	other := cfg
	other.Issuer = "someone-else"
	_, err := ParseAccessTokenAllowExpired(other, token)
	require.True(t, errors.Is(err, ErrInvalidClaims), "got %v", err)
}

func TestParseAccessTokenUnknownRole(t *testing.T) {
	cfg := testJWTConfig(10)
	claims := AccessTokenClaims{
		UserID: uuid.New(),
		Role:   enums.UserRole("superuser"),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.ErrorIs(t, err, ErrInvalidClaims)
}

func TestMintAccessTokenValidation(t *testing.T) {
	cfg := testJWTConfig(5)
	noSecret := cfg
	noSecret.Secret = ""
	noTTL := cfg
	noTTL.ExpirationMinutes = 0

	cases := map[string]struct {
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		"invalid role":   {cfg: cfg, payload: AccessTokenPayload{UserID: uuid.New()}},
		"missing user":   {cfg: cfg, payload: AccessTokenPayload{Role: enums.UserRoleUser}},
		"missing secret": {cfg: noSecret, payload: AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser}},
		"zero ttl":       {cfg: noTTL, payload: AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := MintAccessToken(tc.cfg, time.Now(), tc.payload)
			require.Error(t, err)
		})
	}
}
