package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gudangmitra/gudang-mitra-backend/internal/auth"
	"github.com/gudangmitra/gudang-mitra-backend/internal/categories"
	"github.com/gudangmitra/gudang-mitra-backend/internal/comments"
	"github.com/gudangmitra/gudang-mitra-backend/internal/inventory"
	"github.com/gudangmitra/gudang-mitra-backend/internal/notifications"
	"github.com/gudangmitra/gudang-mitra-backend/internal/requests"
	"github.com/gudangmitra/gudang-mitra-backend/internal/users"
	pkgAuth "github.com/gudangmitra/gudang-mitra-backend/pkg/auth"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/auth/session"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "token"}, nil
}

func (stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID, Name: "Test"}, nil
}

type stubAdminUsersService struct{ auth.AdminUsersService }

func (stubAdminUsersService) CreateUser(ctx context.Context, role enums.UserRole, req auth.CreateUserRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: uuid.New(), Email: req.Email}, nil
}

type stubCategoriesService struct{ categories.Service }

func (stubCategoriesService) List(ctx context.Context) ([]models.Category, error) {
	return []models.Category{}, nil
}

type stubInventoryService struct{ inventory.Service }

func (stubInventoryService) List(ctx context.Context, params inventory.ListParams) (*inventory.ItemListResult, error) {
	return &inventory.ItemListResult{Items: []inventory.ItemDTO{}}, nil
}

type stubRequestsService struct{ requests.Service }

func (stubRequestsService) List(ctx context.Context, actor requests.Actor, params requests.ListParams) (*requests.RequestListResult, error) {
	return &requests.RequestListResult{Items: []requests.RequestDTO{}}, nil
}

func (stubRequestsService) Approve(ctx context.Context, actor requests.Actor, id uuid.UUID) (*requests.RequestDTO, error) {
	return &requests.RequestDTO{ID: id, Status: string(enums.RequestStatusApproved)}, nil
}

type stubCommentsService struct{ comments.Service }

type stubNotificationsService struct{ notifications.Service }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
			SessionTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config, gatherer prometheus.Gatherer) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil,
		gatherer,
		stubSessionManager{},
		stubAuthService{},
		stubAdminUsersService{},
		stubCategoriesService{},
		stubInventoryService{},
		stubRequestsService{},
		stubCommentsService{},
		stubNotificationsService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	if resp := serve(router, http.MethodGet, "/health/live", ""); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/health/ready", ""); resp.Code != http.StatusOK {
		t.Fatalf("expected ready 200 got %d", resp.Code)
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewReservationMetrics(reg).IncRetry("approve")
	router := newTestRouter(testConfig(), reg)

	resp := serve(router, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	resp := serve(router, http.MethodGet, "/api/v1/requests", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestAuthenticatedUserCanListRequestsAndInventory(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)
	token := buildToken(t, cfg, enums.UserRoleUser)

	for _, path := range []string{"/api/v1/requests", "/api/v1/inventory", "/api/v1/categories", "/api/v1/users/me"} {
		if resp := serve(router, http.MethodGet, path, token); resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestDecisionRoutesRequireDecider(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)
	path := "/api/v1/requests/" + uuid.NewString() + "/approve"

	resp := serve(router, http.MethodPost, path, buildToken(t, cfg, enums.UserRoleUser))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user got %d", resp.Code)
	}

	resp = serve(router, http.MethodPost, path, buildToken(t, cfg, enums.UserRoleManager))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)

	resp := serve(router, http.MethodPost, "/api/v1/admin/users", buildToken(t, cfg, enums.UserRoleManager))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager got %d", resp.Code)
	}
}

func TestInventoryMutationsRequireDecider(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)

	resp := serve(router, http.MethodPost, "/api/v1/inventory/"+uuid.NewString()+"/adjust", buildToken(t, cfg, enums.UserRoleUser))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user got %d", resp.Code)
	}
}

func TestLoginRouteIsPublic(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@b.co","password":"pw"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
