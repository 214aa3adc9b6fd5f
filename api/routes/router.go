package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gelatokw/scoops-backend/api/controllers"
	"github.com/gelatokw/scoops-backend/api/middleware"
	addresssvc "github.com/gelatokw/scoops-backend/internal/address"
	"github.com/gelatokw/scoops-backend/internal/auth"
	cartsvc "github.com/gelatokw/scoops-backend/internal/cart"
	catalogsvc "github.com/gelatokw/scoops-backend/internal/catalog"
	checkoutsvc "github.com/gelatokw/scoops-backend/internal/checkout"
	favoritesvc "github.com/gelatokw/scoops-backend/internal/favorites"
	ordersvc "github.com/gelatokw/scoops-backend/internal/orders"
	zonesvc "github.com/gelatokw/scoops-backend/internal/zones"
	"github.com/gelatokw/scoops-backend/pkg/auth/session"
	"github.com/gelatokw/scoops-backend/pkg/config"
	"github.com/gelatokw/scoops-backend/pkg/db"
	"github.com/gelatokw/scoops-backend/pkg/logger"
	"github.com/gelatokw/scoops-backend/pkg/metrics"
	"github.com/gelatokw/scoops-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services bundles everything the router mounts.
type Services struct {
	Auth      auth.Service
	Register  auth.RegisterService
	Catalog   catalogsvc.Service
	Cart      cartsvc.Service
	Checkout  checkoutsvc.Service
	Orders    ordersvc.Service
	Admin     ordersvc.AdminService
	Addresses addresssvc.Service
	Favorites favoritesvc.Service
	Zones     zonesvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions sessionManager,
	svcs Services,
	httpMetrics *metrics.HTTPMetrics,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Metrics(httpMetrics),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Browsing the menu needs no account.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/flavors", controllers.CatalogFlavors(svcs.Catalog, logg))
		r.Get("/flavors/{flavorIdOrSlug}", controllers.CatalogFlavorDetail(svcs.Catalog, logg))
		r.Get("/containers", controllers.CatalogContainers(svcs.Catalog, logg))
		r.Get("/toppings", controllers.CatalogToppings(svcs.Catalog, logg))
		r.Get("/items", controllers.CatalogItems(svcs.Catalog, logg))
	})
	r.Get("/api/v1/zones", controllers.ZoneList(svcs.Zones, logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Register, svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(cfg.JWT, svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/me", controllers.AuthMe(svcs.Auth, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svcs.Cart, logg))
			r.Delete("/", controllers.CartClear(svcs.Cart, logg))
			r.Post("/lines", controllers.CartAddLine(svcs.Cart, logg))
			r.Patch("/lines/{lineKey}", controllers.CartUpdateLine(svcs.Cart, logg))
			r.Delete("/lines/{lineKey}", controllers.CartRemoveLine(svcs.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutState(svcs.Checkout, logg))
			r.Post("/address", controllers.CheckoutAddress(svcs.Checkout, logg))
			r.Post("/delivery", controllers.CheckoutDelivery(svcs.Checkout, logg))
			r.Post("/submit", controllers.CheckoutSubmit(svcs.Checkout, logg))
			r.Delete("/", controllers.CheckoutAbandon(svcs.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(svcs.Orders, logg))
			r.Post("/{orderId}/refund", controllers.OrderRequestRefund(svcs.Orders, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(svcs.Addresses, logg))
			r.Post("/", controllers.AddressCreate(svcs.Addresses, logg))
			r.Put("/{addressId}", controllers.AddressUpdate(svcs.Addresses, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(svcs.Addresses, logg))
			r.Post("/{addressId}/default", controllers.AddressSetDefault(svcs.Addresses, logg))
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", controllers.FavoriteList(svcs.Favorites, logg))
			r.Post("/", controllers.FavoriteAdd(svcs.Favorites, logg))
			r.Delete("/{flavorId}", controllers.FavoriteRemove(svcs.Favorites, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrderList(svcs.Admin, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(svcs.Admin, logg))
				r.Post("/{orderId}/status", controllers.AdminOrderSetStatus(svcs.Admin, logg))
			})
			r.Route("/refunds", func(r chi.Router) {
				r.Get("/", controllers.AdminRefundList(svcs.Admin, logg))
				r.Post("/{refundId}/review", controllers.AdminRefundReview(svcs.Admin, logg))
			})
			r.Route("/zones", func(r chi.Router) {
				r.Get("/", controllers.AdminZoneList(svcs.Zones, logg))
				r.Post("/", controllers.AdminZoneCreate(svcs.Zones, logg))
				r.Put("/{zoneId}", controllers.AdminZoneUpdate(svcs.Zones, logg))
			})
		})
	})

	return r
}
