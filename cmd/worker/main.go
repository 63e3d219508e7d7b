package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mnabil10/fasket-backend/api"
	"github.com/Mnabil10/fasket-backend/api/handlers"
	"github.com/Mnabil10/fasket-backend/internal/alerts"
	"github.com/Mnabil10/fasket-backend/internal/balances"
	"github.com/Mnabil10/fasket-backend/internal/commission"
	"github.com/Mnabil10/fasket-backend/internal/cron"
	"github.com/Mnabil10/fasket-backend/internal/ledger"
	"github.com/Mnabil10/fasket-backend/internal/orders"
	"github.com/Mnabil10/fasket-backend/internal/payouts"
	"github.com/Mnabil10/fasket-backend/internal/settlement"
	"github.com/Mnabil10/fasket-backend/internal/subscriptions"
	"github.com/Mnabil10/fasket-backend/pkg/bigquery"
	"github.com/Mnabil10/fasket-backend/pkg/config"
	"github.com/Mnabil10/fasket-backend/pkg/db"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
	"github.com/Mnabil10/fasket-backend/pkg/instance"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
	"github.com/Mnabil10/fasket-backend/pkg/metrics"
	"github.com/Mnabil10/fasket-backend/pkg/migrate"
	"github.com/Mnabil10/fasket-backend/pkg/pubsub"
	"github.com/Mnabil10/fasket-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "settlement-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "settlement-worker",
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

	healthChecks := []handlers.HealthCheck{
		{Name: "database", Ping: dbClient.Ping},
		{Name: "redis", Ping: redisClient.Ping},
	}

	var alertSender alerts.Sender
	if cfg.FeatureFlags.AlertsEnabled && cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer pubsubClient.Close()
		healthChecks = append(healthChecks, handlers.HealthCheck{Name: "pubsub", Ping: pubsubClient.Ping})
		alertSender = &alerts.PubSubSender{Publisher: pubsubClient.AlertsPublisher()}
	}

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	gormDB := dbClient.DB()
	commissionRepo := commission.NewRepository(gormDB)
	resolver, err := commission.NewResolver(commissionRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission resolver", err)
		os.Exit(1)
	}

	balancesRepo := balances.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB)
	subscriptionsRepo := subscriptions.NewRepository(gormDB)

	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		Repo:            settlement.NewRepository(gormDB),
		Orders:          orders.NewRepository(gormDB),
		Subscriptions:   subscriptionsRepo,
		Resolver:        resolver,
		Balances:        balancesRepo,
		Ledger:          ledgerRepo,
		Tx:              dbClient,
		Logger:          logg,
		Metrics:         settlementMetrics,
		DefaultCurrency: enums.Currency(cfg.Settlement.DefaultCurrency),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	payoutsSvc, err := payouts.NewService(payouts.ServiceParams{
		Repo:            payouts.NewRepository(gormDB),
		Balances:        balancesRepo,
		Ledger:          ledgerRepo,
		Resolver:        resolver,
		Subscriptions:   subscriptionsRepo,
		Holds:           settlementSvc,
		Alerts:          alerts.NewService(alertSender, logg),
		Tx:              dbClient,
		Logger:          logg,
		Metrics:         settlementMetrics,
		DefaultCurrency: enums.Currency(cfg.Settlement.DefaultCurrency),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	ledgerSvc, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()

	holdJob, err := cron.NewHoldReleaseJob(cron.HoldReleaseJobParams{Logger: logg, Settlement: settlementSvc})
	if err != nil {
		logg.Error(context.Background(), "failed to create hold release job", err)
		os.Exit(1)
	}
	registry.Register(holdJob)

	payoutsJob, err := cron.NewScheduledPayoutsJob(cron.ScheduledPayoutsJobParams{Logger: logg, Payouts: payoutsSvc})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduled payouts job", err)
		os.Exit(1)
	}
	registry.Register(payoutsJob)

	if cfg.FeatureFlags.AnalyticsExport {
		bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap bigquery", err)
			os.Exit(1)
		}
		defer bqClient.Close()
		healthChecks = append(healthChecks, handlers.HealthCheck{Name: "bigquery", Ping: bqClient.Ping})

		exporter, err := ledger.NewExporter(ledger.ExporterParams{
			Repo:      ledgerRepo,
			Sink:      bqClient,
			Cursors:   redisClient,
			Logger:    logg,
			BatchSize: cfg.Settlement.ExportBatchSize,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create ledger exporter", err)
			os.Exit(1)
		}
		analyticsJob, err := cron.NewLedgerAnalyticsJob(cron.LedgerAnalyticsJobParams{Logger: logg, Exporter: exporter})
		if err != nil {
			logg.Error(context.Background(), "failed to create ledger analytics job", err)
			os.Exit(1)
		}
		registry.Register(analyticsJob)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cfg.Service.Kind), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	cronSvc, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Settlement.CronInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	handler := api.NewHandler(api.HandlerParams{
		Config:       cfg,
		Logger:       logg,
		Settlement:   settlementSvc,
		Payouts:      payoutsSvc,
		Ledger:       ledgerSvc,
		LedgerRepo:   ledgerRepo,
		Balances:     balancesRepo,
		Commission:   commissionRepo,
		HealthChecks: healthChecks,
	})

	service, err := NewService(ServiceParams{
		Config:  cfg,
		Logger:  logg,
		Handler: handler,
		Cron:    cronSvc,
		Checks:  healthChecks,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting settlement worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "settlement worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "settlement worker shutting down gracefully")
}
