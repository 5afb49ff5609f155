package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/oem-ev-warranty/parts-service/internal/api/handlers"
	"github.com/oem-ev-warranty/parts-service/internal/application"
	"github.com/oem-ev-warranty/parts-service/internal/config"
	"github.com/oem-ev-warranty/parts-service/internal/infrastructure/notification"
	"github.com/oem-ev-warranty/parts-service/internal/infrastructure/persistence"
	"github.com/oem-ev-warranty/parts-service/internal/infrastructure/projections"
	"github.com/oem-ev-warranty/parts-service/internal/infrastructure/vehicle"
	"github.com/oem-ev-warranty/parts-service/internal/scheduler"
	"github.com/oem-ev-warranty/parts-service/pkg/database"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/metrics"
	"github.com/oem-ev-warranty/parts-service/pkg/mongodb"
	"github.com/oem-ev-warranty/parts-service/pkg/tracing"
)

var envFile = flag.String("env", "", "optional .env file loaded before the process environment")

func main() {
	flag.Parse()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), signalCh); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, signalCh <-chan os.Signal) error {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LoggingConfig())
	logger.SetDefault()
	logger.Info("Starting parts-service API", "addr", cfg.ServerAddr)

	tracerProvider, err := tracing.Initialize(ctx, cfg.Tracing)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	m := metrics.New(metrics.DefaultConfig(config.ServiceName))

	policy, err := cfg.LoadPolicy()
	if err != nil {
		return fmt.Errorf("load role policy: %w", err)
	}

	db, err := openDatabase(cfg, m, logger)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	uow := persistence.NewUnitOfWork(db, cfg.TxTimeout, m, logger)

	readModel, projector, closeMongo, err := setupProjections(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeMongo()

	notifier, closeNotifier := setupNotifier(cfg, m, logger)
	defer closeNotifier()

	compatibility := setupCompatibility(cfg, m, logger)

	reservations := application.NewReservationService(uow, compatibility, notifier, m, logger)
	transfers := application.NewTransferService(uow, policy, notifier, projector, m, logger)
	reconciler := application.NewReconciliationService(uow, m, logger)

	queries := application.NewTransferQueryService(uow, readModel, logger)

	if cfg.ReconcileCron != "" {
		sched := scheduler.New(cfg.ReconcileCron, reconciler, logger)
		if err := sched.Start(); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				logger.WithError(err).Warn("Scheduler did not stop cleanly")
			}
		}()
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		ServiceName:   config.ServiceName,
		Logger:        logger,
		Metrics:       m,
		EnableTracing: cfg.Tracing.Enabled,
		Ready: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
		Reservations: reservations,
		Transfers:    transfers,
		Queries:      queries,
		Reconciler:   reconciler,
	})

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func openDatabase(cfg *config.Config, m *metrics.Metrics, logger *logging.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Instrument(db, m, logger); err != nil {
		return nil, fmt.Errorf("instrument database: %w", err)
	}
	if err := persistence.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("Database ready", "driver", cfg.Database.Driver)
	return db, nil
}

// setupProjections connects the Mongo read model. A failure to connect
// degrades listing to the relational store instead of stopping the service.
func setupProjections(ctx context.Context, cfg *config.Config, logger *logging.Logger) (application.TransferRequestReadModel, application.TransferRequestProjector, func(), error) {
	noop := func() {}
	if !cfg.ProjectionsEnabled {
		return nil, nil, noop, nil
	}

	client, err := mongodb.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		logger.WithError(err).Warn("MongoDB unavailable, listing falls back to the relational store")
		return nil, nil, noop, nil
	}
	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Close(closeCtx)
	}

	repo, err := projections.NewMongoTransferRequestProjectionRepository(ctx, client.Database())
	if err != nil {
		closeFn()
		return nil, nil, noop, fmt.Errorf("init projection repository: %w", err)
	}

	logger.Info("Transfer request projection enabled", "database", cfg.MongoDB.Database)
	return repo, projections.NewTransferRequestProjector(repo, logger), closeFn, nil
}

func setupNotifier(cfg *config.Config, m *metrics.Metrics, logger *logging.Logger) (application.Notifier, func()) {
	if !cfg.NotificationsEnabled {
		return notification.NewLogNotifier(logger), func() {}
	}

	n := notification.NewKafkaNotifierFromConfig(cfg.Kafka, cfg.NotificationTopic, m, logger)
	logger.Info("Kafka notifications enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.NotificationTopic)
	return n, func() {
		if err := n.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close notification producer")
		}
	}
}

func setupCompatibility(cfg *config.Config, m *metrics.Metrics, logger *logging.Logger) application.CompatibilityChecker {
	if cfg.VehicleServiceURL == "" {
		logger.Warn("VEHICLE_SERVICE_URL not set, every component type is treated as compatible")
		return vehicle.NewPermissiveTable()
	}
	return vehicle.NewClient(vehicle.ClientConfig{
		BaseURL: cfg.VehicleServiceURL,
		Timeout: cfg.VehicleServiceTimeout,
	}, m, logger)
}
