package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/alexandria-backend/api/routes"
	"github.com/angelmondragon/alexandria-backend/internal/cart"
	"github.com/angelmondragon/alexandria-backend/internal/catalog"
	"github.com/angelmondragon/alexandria-backend/internal/checkout"
	"github.com/angelmondragon/alexandria-backend/internal/newsletter"
	"github.com/angelmondragon/alexandria-backend/internal/orders"
	"github.com/angelmondragon/alexandria-backend/internal/reviews"
	stripewebhook "github.com/angelmondragon/alexandria-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/alexandria-backend/pkg/config"
	"github.com/angelmondragon/alexandria-backend/pkg/db"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"github.com/angelmondragon/alexandria-backend/pkg/metrics"
	"github.com/angelmondragon/alexandria-backend/pkg/migrate"
	"github.com/angelmondragon/alexandria-backend/pkg/redis"
	"github.com/angelmondragon/alexandria-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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
	redisClient = redisClient.WithSessionTTL(cfg.Checkout.SessionTTL)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe client", err)
		os.Exit(1)
	}
	gateway, err := stripe.NewPaymentGateway(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize payment gateway", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := buildServices(cfg, logg, dbClient, redisClient, gateway, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	deps.StripeClient = stripeClient

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
	logg.Info(ctx, "api server stopped")
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	gateway checkout.PaymentGateway,
	registry *prometheus.Registry,
) (routes.Dependencies, error) {
	conn := dbClient.DB()

	catalogService, err := catalog.NewService(catalog.NewRepository(conn), logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Store:  redisClient,
		Books:  catalogService,
		KeyFor: redisClient.CartKey,
		Logger: logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	currency, err := enums.ParseCurrency(cfg.Checkout.Currency)
	if err != nil {
		return routes.Dependencies{}, err
	}
	pricing := orders.Pricing{
		TaxRate:  cfg.Checkout.TaxRateDecimal(),
		Shipping: cfg.Checkout.ShippingFlatDecimal(),
		Currency: currency,
	}
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(conn),
		DB:      dbClient,
		History: orders.NewHistoryStore(redisClient, redisClient.OrderHistoryKey, logg),
		Pricing: pricing,
		Logger:  logg,
		Metrics: metrics.NewOrderMetrics(registry),
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Carts:    cartService,
		Orders:   orderService,
		Payments: gateway,
		Pricing:  pricing,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	webhookService, err := stripewebhook.NewService(checkoutService, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	guard, err := stripewebhook.NewEventGuard(redisClient, cfg.Checkout.WebhookDedupeTTL)
	if err != nil {
		return routes.Dependencies{}, err
	}

	reviewRepo := reviews.NewRepository(conn)
	reviewService, err := reviews.NewService(reviewRepo, reviewRepo, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	newsletterService, err := newsletter.NewService(newsletter.NewRepository(conn), logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:            dbClient,
		Redis:         redisClient,
		Catalog:       catalogService,
		Cart:          cartService,
		Orders:        orderService,
		Checkout:      checkoutService,
		Reviews:       reviewService,
		Newsletter:    newsletterService,
		StripeWebhook: webhookService,
		WebhookGuard:  guard,
		Registry:      registry,
		HTTPMetrics:   metrics.NewHTTPMetrics(registry),
	}, nil
}
