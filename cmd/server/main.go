package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/quotevault/histprice-service/internal/adapters/http"
	"github.com/quotevault/histprice-service/internal/adapters/postgres"
	"github.com/quotevault/histprice-service/internal/adapters/source"
	"github.com/quotevault/histprice-service/internal/artifact"
	"github.com/quotevault/histprice-service/internal/config"
	"github.com/quotevault/histprice-service/internal/domain"
	"github.com/quotevault/histprice-service/internal/parser"
	"github.com/quotevault/histprice-service/internal/services"
	"github.com/quotevault/histprice-service/internal/worker"
)

func main() {
	// Initialize logger
	logger := initLogger()
	slog.SetDefault(logger)

	logger.Info("starting historical price service")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build and start application
	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	// Start application components
	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start application", "error", err)
		os.Exit(1)
	}

	// Wait for shutdown signal
	waitForShutdown(ctx, cancel, app, logger)
}

func initLogger() *slog.Logger {
	logLevel := os.Getenv("LOG_LEVEL")
	logFormat := os.Getenv("LOG_FORMAT")

	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// Application holds all components
type Application struct {
	db         *postgres.DB
	httpServer *httpAdapter.Server
	loops      []*worker.Loop
	fatalCh    chan error
	logger     *slog.Logger
}

func buildApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("building application")

	// 1. Infrastructure Layer - Database
	db, err := postgres.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	// 2. Infrastructure Layer - Repositories
	symbolRepo := postgres.NewSymbolRepository(db)
	priceRepo := postgres.NewPriceRepository(db, cfg.Loader.MaxBoundParams)

	// 3. Infrastructure Layer - Artifact Store
	store, err := artifact.NewStore(cfg.Artifacts, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	// 4. Infrastructure Layer - Source Client
	sourceClient := source.NewClient(
		source.WithBaseURL(cfg.Source.BaseURL),
		source.WithTimeout(cfg.Source.Timeout),
		source.WithRetry(cfg.Source.MaxRetries, cfg.Source.RetryBackoff),
		source.WithRateLimitBackoff(cfg.Source.RateLimitBackoff),
		source.WithRequestRate(cfg.Source.RequestsPerSecond),
		source.WithLogger(logger),
	)

	// 5. Service Layer
	trackingService := services.NewTrackingService(symbolRepo, logger)

	retrievalService := services.NewRetrievalService(
		symbolRepo,
		sourceClient,
		store,
		logger,
	)

	processorService := services.NewProcessorService(
		store,
		parser.New(logger),
		priceRepo,
		symbolRepo,
		cfg.Processor.DeadletterRetryCap,
		logger,
	)

	// 6. Transport Layer - HTTP Server
	httpServer := httpAdapter.NewServer(
		cfg.Server,
		trackingService,
		priceRepo,
		sourceClient,
		logger,
	)

	// 7. Background Workers
	integrityFatal := func(err error) bool { return errors.Is(err, domain.ErrIntegrity) }

	loops := []*worker.Loop{
		worker.NewLoop("retrieve", retrievalService.RetrieveAll, cfg.Workers.RetrieveInterval, nil, logger),
		worker.NewLoop("process", processorService.Sweep, cfg.Workers.ProcessInterval, integrityFatal, logger),
		worker.NewLoop("requeue", processorService.RequeueDeadletters, cfg.Workers.RequeueInterval, nil, logger),
	}

	logger.Info("application built successfully")

	return &Application{
		db:         db,
		httpServer: httpServer,
		loops:      loops,
		fatalCh:    make(chan error, len(loops)),
		logger:     logger,
	}, nil
}

func (a *Application) Start(ctx context.Context) error {
	a.logger.Info("starting application components")

	// Start worker loops in background
	for _, loop := range a.loops {
		go func() {
			if err := loop.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.fatalCh <- err
			}
		}()
	}

	// Start HTTP server in background (will block until shutdown)
	go func() {
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http server error", "error", err)
		}
	}()

	a.logger.Info("application started",
		"http_addr", a.httpServer.Addr(),
	)

	return nil
}

func (a *Application) Shutdown() {
	a.logger.Info("shutting down application")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop worker loops first
	for _, loop := range a.loops {
		if err := loop.Stop(); err != nil {
			a.logger.Error("failed to stop worker loop", "error", err)
		}
	}

	// Stop HTTP server
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("failed to shutdown http server", "error", err)
	}

	// Close database connection
	a.db.Close()

	a.logger.Info("application shutdown complete")
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, app *Application, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
		app.Shutdown()
	case err := <-app.fatalCh:
		logger.Error("worker loop failed fatally", "error", err)
		cancel()
		app.Shutdown()
		os.Exit(1)
	case <-ctx.Done():
		app.Shutdown()
	}
}
