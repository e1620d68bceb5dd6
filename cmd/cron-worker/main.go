package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/alexandria-backend/internal/cron"
	"github.com/angelmondragon/alexandria-backend/internal/orders"
	"github.com/angelmondragon/alexandria-backend/pkg/config"
	"github.com/angelmondragon/alexandria-backend/pkg/db"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"github.com/angelmondragon/alexandria-backend/pkg/metrics"
	"github.com/angelmondragon/alexandria-backend/pkg/migrate"
	"github.com/angelmondragon/alexandria-backend/pkg/redis"
	"github.com/angelmondragon/alexandria-backend/pkg/stripe"
)

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	service, err := buildService(cfg, logg, dbClient, redisClient, gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
		"once":     *once,
	})

	if *once {
		logg.Info(ctx, "running cron jobs once")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron run failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, gateway *stripe.PaymentGateway) (*cron.Service, error) {
	currency, err := enums.ParseCurrency(cfg.Checkout.Currency)
	if err != nil {
		return nil, err
	}

	repo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:    repo,
		DB:      dbClient,
		History: orders.NewHistoryStore(redisClient, redisClient.OrderHistoryKey, logg),
		Pricing: orders.Pricing{
			TaxRate:  cfg.Checkout.TaxRateDecimal(),
			Shipping: cfg.Checkout.ShippingFlatDecimal(),
			Currency: currency,
		},
		Logger:  logg,
		Metrics: metrics.NewOrderMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return nil, err
	}

	expiry, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger:     logg,
		Pending:    repo,
		Orders:     orderService,
		Payments:   gateway,
		PendingTTL: cfg.Checkout.PendingOrderTTL,
	})
	if err != nil {
		return nil, err
	}

	registry, err := cron.NewRegistry(expiry)
	if err != nil {
		return nil, err
	}

	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
}
