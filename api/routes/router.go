package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gudangmitra/gudang-mitra-backend/api/controllers"
	"github.com/gudangmitra/gudang-mitra-backend/api/middleware"
	"github.com/gudangmitra/gudang-mitra-backend/internal/auth"
	"github.com/gudangmitra/gudang-mitra-backend/internal/categories"
	"github.com/gudangmitra/gudang-mitra-backend/internal/comments"
	"github.com/gudangmitra/gudang-mitra-backend/internal/inventory"
	"github.com/gudangmitra/gudang-mitra-backend/internal/notifications"
	"github.com/gudangmitra/gudang-mitra-backend/internal/requests"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/auth/session"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// cacheStore is the slice of the redis client the HTTP layer needs.
type cacheStore interface {
	middleware.IdempotencyStore
	middleware.RateLimitStore
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache cacheStore,
	gatherer prometheus.Gatherer,
	sessionManager sessionManager,
	authService auth.Service,
	adminUsersService auth.AdminUsersService,
	categoriesService categories.Service,
	inventoryService inventory.Service,
	requestsService requests.Service,
	commentsService comments.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	if cfg.App.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	var (
		rateStore        middleware.RateLimitStore
		idempotencyStore middleware.IdempotencyStore
		readiness        = map[string]controllers.Pinger{"db": dbP}
	)
	if cache != nil {
		rateStore = cache
		idempotencyStore = cache
		readiness["redis"] = cache
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
	})

	deciders := []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleManager}
	// keyed writes need an Idempotency-Key; stock moving ones keep it longer
	keyed := middleware.Idempotency(idempotencyStore, cfg.Idempotency.TTL, logg)
	stockKeyed := middleware.Idempotency(idempotencyStore, max(cfg.Idempotency.TTL, middleware.CriticalIdempotencyTTL), logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))

		r.Get("/users/me", controllers.AuthMe(authService, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.With(keyed).Post("/users", controllers.AdminCreateUser(adminUsersService, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(categoriesService, logg))
			r.With(middleware.RequireRole(logg, deciders...), keyed).Post("/", controllers.CreateCategory(categoriesService, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleAdmin)).Delete("/{categoryId}", controllers.DeleteCategory(categoriesService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.ListInventory(inventoryService, logg))
			r.Get("/{itemId}", controllers.GetInventoryItem(inventoryService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, deciders...))
				r.With(keyed).Post("/", controllers.CreateInventoryItem(inventoryService, logg))
				r.Patch("/{itemId}", controllers.UpdateInventoryItem(inventoryService, logg))
				r.With(stockKeyed).Post("/{itemId}/adjust", controllers.AdjustInventoryStock(inventoryService, logg))
			})
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", controllers.ListRequests(requestsService, logg))
			r.With(stockKeyed).Post("/", controllers.CreateRequest(requestsService, logg))
			r.Route("/{requestId}", func(r chi.Router) {
				r.Get("/", controllers.GetRequest(requestsService, logg))
				r.Patch("/", controllers.UpdateRequest(requestsService, logg))
				r.Delete("/", controllers.DeleteRequest(requestsService, logg))
				r.Get("/comments", controllers.ListRequestComments(commentsService, logg))
				r.With(keyed).Post("/comments", controllers.CreateRequestComment(commentsService, authService, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, deciders...))
					r.With(stockKeyed).Post("/approve", controllers.ApproveRequest(requestsService, logg))
					r.With(stockKeyed).Post("/reject", controllers.RejectRequest(requestsService, logg))
					r.With(stockKeyed).Post("/fulfill", controllers.FulfillRequest(requestsService, logg))
				})
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.With(keyed).Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.With(keyed).Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
