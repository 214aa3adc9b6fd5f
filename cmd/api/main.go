package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gelatokw/scoops-backend/api/routes"
	"github.com/gelatokw/scoops-backend/internal/address"
	"github.com/gelatokw/scoops-backend/internal/auth"
	"github.com/gelatokw/scoops-backend/internal/cart"
	"github.com/gelatokw/scoops-backend/internal/catalog"
	"github.com/gelatokw/scoops-backend/internal/checkout"
	"github.com/gelatokw/scoops-backend/internal/favorites"
	"github.com/gelatokw/scoops-backend/internal/orders"
	"github.com/gelatokw/scoops-backend/internal/pricing"
	"github.com/gelatokw/scoops-backend/internal/users"
	"github.com/gelatokw/scoops-backend/internal/zones"
	"github.com/gelatokw/scoops-backend/pkg/auth/session"
	"github.com/gelatokw/scoops-backend/pkg/commerce"
	"github.com/gelatokw/scoops-backend/pkg/config"
	"github.com/gelatokw/scoops-backend/pkg/db"
	"github.com/gelatokw/scoops-backend/pkg/logger"
	"github.com/gelatokw/scoops-backend/pkg/metrics"
	"github.com/gelatokw/scoops-backend/pkg/migrate"
	"github.com/gelatokw/scoops-backend/pkg/outbox"
	"github.com/gelatokw/scoops-backend/pkg/redis"
	"github.com/gelatokw/scoops-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	// The commerce client is optional: without credentials the catalog
	// serves house flavors only.
	var commerceClient *commerce.Client
	if cfg.Commerce.APIToken != "" {
		commerceClient, err = commerce.NewClient(
			cfg.Commerce.BaseURL,
			cfg.Commerce.APIToken,
			commerce.WithHTTPClient(&http.Client{Timeout: cfg.Commerce.Timeout}),
		)
		if err != nil {
			logg.Error(context.Background(), "failed to create commerce client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "commerce credentials missing, packaged items disabled")
	}

	catalogParams := catalog.ServiceParams{Repo: catalogRepo, Logger: logg}
	composerParams := pricing.ComposerParams{Catalog: catalogRepo, Pricing: cfg.Pricing}
	if commerceClient != nil {
		catalogParams.Commerce = commerceClient
		composerParams.Commerce = commerceClient
	}

	catalogService, err := catalog.NewService(catalogParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	composer, err := pricing.NewComposer(composerParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing composer", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:     cartRepo,
		Tx:       dbClient,
		Composer: composer,
		Outbox:   outboxService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	zonesService, err := zones.NewService(zones.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create zones service", err)
		os.Exit(1)
	}

	stateStore, err := checkout.NewStateStore(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout state store", err)
		os.Exit(1)
	}

	// Square is optional too: without it card checkouts are refused and
	// cash on delivery keeps working.
	var squareClient *square.Client
	if cfg.Square.AccessToken != "" {
		squareClient, err = square.NewClient(context.Background(), cfg.Square, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create square client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "square credentials missing, card payments disabled")
	}

	checkoutParams := checkout.ServiceParams{
		States:   stateStore,
		Zones:    zonesService,
		CartRepo: cartRepo,
		Catalog:  catalogRepo,
		Orders:   ordersRepo,
		Fee:      composer,
		Tx:       dbClient,
		Outbox:   outboxService,
		Logger:   logg,
	}
	if squareClient != nil {
		checkoutParams.Payments = squareClient
	}

	checkoutService, err := checkout.NewService(checkoutParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:   ordersRepo,
		Tx:     dbClient,
		Outbox: outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	adminOrdersService, err := orders.NewAdminService(orders.AdminServiceParams{
		Repo:   ordersRepo,
		Tx:     dbClient,
		Outbox: outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin orders service", err)
		os.Exit(1)
	}

	addressService, err := address.NewService(address.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create address service", err)
		os.Exit(1)
	}

	favoritesService, err := favorites.NewService(favorites.NewRepository(dbClient.DB()), catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create favorites service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
		Auth:      authService,
		Register:  registerService,
		Catalog:   catalogService,
		Cart:      cartService,
		Checkout:  checkoutService,
		Orders:    ordersService,
		Admin:     adminOrdersService,
		Addresses: addressService,
		Favorites: favoritesService,
		Zones:     zonesService,
	}, httpMetrics, registry)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
