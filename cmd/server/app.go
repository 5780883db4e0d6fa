package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/nats-io/nats.go"

	"github.com/planvox/planvox-api/internal/config"
	"github.com/planvox/planvox-api/internal/events"
	"github.com/planvox/planvox-api/internal/keylock"
	"github.com/planvox/planvox-api/internal/platform/natsstore"
	"github.com/planvox/planvox-api/internal/platform/postgres"
	"github.com/planvox/planvox-api/internal/platform/speechhttp"
	"github.com/planvox/planvox-api/internal/queue"
	"github.com/planvox/planvox-api/internal/service"
	"github.com/planvox/planvox-api/internal/service/auth"
	"github.com/planvox/planvox-api/internal/speech"
	"github.com/planvox/planvox-api/internal/store"
	"github.com/planvox/planvox-api/internal/worker"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	schemeStore store.SchemeStore
	taskStore   store.SpeechTaskStore

	// Service interfaces
	jwtService      auth.JWTService
	schemeService   service.SchemeService
	batchService    service.BatchService
	documentService service.DocumentService

	// Event system and completion aggregation
	eventEmitter events.EventEmitter
	aggregator   *service.Aggregator

	// Queue plumbing
	enqueuer    *queue.Enqueuer
	inspector   *queue.Inspector
	queueServer *asynq.Server
	queueMux    *asynq.ServeMux

	// Object storage
	natsConn   *nats.Conn
	audioStore *natsstore.AudioStore
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize JWT service
	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Initialize stores
	app.schemeStore = postgres.NewPostgresSchemeStore(db, logger)
	app.taskStore = postgres.NewPostgresSpeechTaskStore(db, logger)

	// Create repository adapters over the stores
	schemeRepo := service.NewSchemeRepositoryAdapter(app.schemeStore, db)
	taskRepo := service.NewTaskRepositoryAdapter(app.taskStore, db)

	// One keyed lock serializes document writers and batch mutations per scheme.
	locks := keylock.NewKeyedLock()

	// Initialize queue client and inspector
	redisOpt := queue.RedisOpt(cfg.Queue)
	app.enqueuer = queue.NewEnqueuer(redisOpt, cfg.Queue, logger)
	app.inspector = queue.NewInspector(redisOpt, logger)

	// Initialize event emitter
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	// Initialize scheme service
	app.schemeService, err = service.NewSchemeService(schemeRepo, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheme service: %w", err)
	}

	// Initialize batch service
	app.batchService, err = service.NewBatchService(
		schemeRepo,
		taskRepo,
		app.enqueuer,
		app.inspector,
		locks,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch service: %w", err)
	}

	// Initialize document service
	app.documentService, err = service.NewDocumentService(schemeRepo, locks, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create document service: %w", err)
	}

	// Initialize the completion aggregator and register it for task events
	app.aggregator, err = service.NewAggregator(schemeRepo, taskRepo, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}
	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(app.aggregator)
	} else {
		return nil, fmt.Errorf("unexpected event emitter type, cannot register aggregator")
	}

	// Connect the object store for synthesized audio
	app.natsConn, err = nats.Connect(cfg.Storage.NATSURL, nats.Name("planvox-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Storage.NATSURL, err)
	}
	js, err := app.natsConn.JetStream()
	if err != nil {
		app.natsConn.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}
	app.audioStore, err = natsstore.New(js, cfg.Storage.Bucket, logger)
	if err != nil {
		app.natsConn.Close()
		return nil, fmt.Errorf("failed to initialize audio store: %w", err)
	}
	logger.Info("Audio object store initialized", "bucket", cfg.Storage.Bucket)

	// Create the speech provider registry with the configured HTTP provider
	registry := speech.NewRegistry(cfg.Speech.ProviderName)
	synthesizer, err := speechhttp.NewHTTPSynthesizer(logger, cfg.Speech)
	if err != nil {
		app.natsConn.Close()
		return nil, fmt.Errorf("failed to initialize speech provider: %w", err)
	}
	registry.Register(synthesizer)

	// Set up the queue server and the generation worker
	if err := setupQueueServer(app, redisOpt, registry); err != nil {
		app.natsConn.Close()
		return nil, fmt.Errorf("failed to setup queue server: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupQueueServer builds the asynq server, the generation handler, and the
// failure recorder that turns exhausted retries into terminal task failures.
func setupQueueServer(app *application, redisOpt asynq.RedisClientOpt, registry *speech.Registry) error {
	gate := queue.NewRateGate(app.config.Queue.RateLimit, app.config.Queue.RateWindow)

	handler, err := worker.NewGenerationHandler(
		app.taskStore,
		app.documentService,
		registry,
		app.audioStore,
		gate,
		app.eventEmitter,
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create generation handler: %w", err)
	}

	recorder, err := worker.NewFailureRecorder(app.taskStore, app.eventEmitter, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create failure recorder: %w", err)
	}

	app.queueServer = queue.NewServer(redisOpt, app.config.Queue, app.logger, recorder)

	mux := asynq.NewServeMux()
	mux.Handle(queue.TypeSpeechGenerate, handler)
	app.queueMux = mux

	return nil
}

// Run starts the queue worker, the reconciliation sweeper, and the HTTP
// server, then blocks until shutdown. Cleanup runs before it returns.
func (app *application) Run(ctx context.Context) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	// Background sweep heals schemes whose completion events were missed.
	go app.aggregator.Run(runCtx, app.config.Queue.ReconcileInterval)

	if err := app.queueServer.Start(app.queueMux); err != nil {
		return fmt.Errorf("failed to start queue server: %w", err)
	}
	app.logger.Info("Queue worker started",
		"concurrency", app.config.Queue.Concurrency,
		"rate_limit", app.config.Queue.RateLimit)

	// Set up router using the application dependencies
	router := app.setupRouter()

	// Start the HTTP server
	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources. Workers stop
// first so nothing touches a closed connection.
func (app *application) cleanup() {
	if app.queueServer != nil {
		app.queueServer.Shutdown()
	}

	if app.enqueuer != nil {
		if err := app.enqueuer.Close(); err != nil {
			app.logger.Error("Error closing queue client", "error", err)
		}
	}
	if app.inspector != nil {
		if err := app.inspector.Close(); err != nil {
			app.logger.Error("Error closing queue inspector", "error", err)
		}
	}

	if app.natsConn != nil {
		app.natsConn.Close()
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
