package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/haggleport/haggleport-backend/api/routes"
	"github.com/haggleport/haggleport-backend/internal/checkout"
	"github.com/haggleport/haggleport-backend/internal/inventory"
	"github.com/haggleport/haggleport-backend/internal/notifications"
	"github.com/haggleport/haggleport-backend/internal/onboarding"
	"github.com/haggleport/haggleport-backend/internal/orders"
	"github.com/haggleport/haggleport-backend/internal/pricing"
	"github.com/haggleport/haggleport-backend/internal/webhooks"
	"github.com/haggleport/haggleport-backend/pkg/config"
	"github.com/haggleport/haggleport-backend/pkg/db"
	"github.com/haggleport/haggleport-backend/pkg/logger"
	"github.com/haggleport/haggleport-backend/pkg/metrics"
	"github.com/haggleport/haggleport-backend/pkg/migrate"
	"github.com/haggleport/haggleport-backend/pkg/pubsub"
	"github.com/haggleport/haggleport-backend/pkg/redis"
	"github.com/haggleport/haggleport-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	var notifier orders.Notifier
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
		notifier = notifications.NewOrderPublisher(pubsubClient.OrderEventsPublisher(), logg)
	} else {
		logg.Warn(ctx, "gcp project id not set, order event notifications disabled")
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	onboardingRepo := onboarding.NewRepository(dbClient.DB())

	stateMachine, err := orders.NewStateMachine(orders.StateMachineParams{
		Repo:      ordersRepo,
		Tx:        dbClient,
		Inventory: inventory.NewReconciler(dbClient.DB()),
		Notifier:  notifier,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order state machine", err)
		os.Exit(1)
	}

	priceResolver, err := pricing.NewResolver(pricing.ResolverParams{
		Repo:   pricing.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create price resolver", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Repo:     checkout.NewRepository(dbClient.DB()),
		Orders:   ordersRepo,
		Pricing:  priceResolver,
		Sessions: stripeClient.API().V1CheckoutSessions,
		Config:   cfg.Checkout,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:   ordersRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	onboardingService, err := onboarding.NewService(onboarding.ServiceParams{
		Repo:     onboardingRepo,
		Accounts: stripeClient.API().V1Accounts,
		Files:    stripeClient.API().V1Files,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create onboarding service", err)
		os.Exit(1)
	}

	webhookService, err := webhooks.NewService(webhooks.ServiceParams{
		Machine:  stateMachine,
		Accounts: onboardingRepo,
		Guard:    webhooks.NewGuard(redisClient),
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Stripe:     stripeClient,
			Checkout:   checkoutService,
			Orders:     ordersService,
			Onboarding: onboardingService,
			Webhooks:   webhookService,
			Registry:   registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
