package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/languagesgo/stickerforge/internal/cache"
	"github.com/languagesgo/stickerforge/internal/config"
	"github.com/languagesgo/stickerforge/internal/events"
	"github.com/languagesgo/stickerforge/internal/platform/gemini"
	"github.com/languagesgo/stickerforge/internal/platform/postgres"
	"github.com/languagesgo/stickerforge/internal/queue"
	"github.com/languagesgo/stickerforge/internal/service"
	"github.com/languagesgo/stickerforge/internal/service/auth"
	"github.com/languagesgo/stickerforge/internal/storage"
	"github.com/languagesgo/stickerforge/internal/store"
)

// application holds all initialized components and their dependencies.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Store interfaces
	cardStore store.CardStore
	jobStore  store.JobStore

	// Job status cache, nil when Redis is not configured
	statuses cache.Cache

	// Service interfaces
	tokenVerifier auth.TokenVerifier
	cardService   service.CardService

	// Event system
	eventEmitter events.EventEmitter

	// Sticker generation pipeline
	objects      storage.ObjectStore
	generator    *gemini.StickerGenerator
	stickerQueue *queue.StickerQueue
}

// newApplication creates an application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger and
// database connection that must be established before initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.tokenVerifier, err = auth.NewTokenVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.jobStore = postgres.NewPostgresJobStore(db, logger)

	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis cache: %w", err)
		}
		app.statuses = redisCache
		logger.Info("Job status cache enabled")
	} else {
		logger.Info("No Redis URL configured, job status caching disabled")
	}

	app.objects, err = storage.NewSupabaseStore(cfg.Storage, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sticker storage: %w", err)
	}

	app.generator, err = gemini.NewStickerGenerator(
		ctx,
		logger.With("component", "sticker_generator"),
		cfg.LLM,
		app.objects,
		storage.NewKeyGenerator(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sticker generator: %w", err)
	}
	logger.Info("Sticker generator initialized", "model", cfg.LLM.ModelName)

	app.stickerQueue, err = queue.New(
		app.cardStore,
		app.jobStore,
		app.generator,
		app.statuses,
		logger,
		queue.Config{
			BatchSize:       cfg.Queue.BatchSize,
			InterBatchDelay: cfg.Queue.InterBatchDelay,
			JobTimeout:      cfg.Queue.JobTimeout,
			SnapshotTTL:     cfg.Redis.StatusTTL,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sticker queue: %w", err)
	}

	// New cards flow into the queue through the event system so the card
	// service does not depend on the queue directly.
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(queue.NewStickerEventHandler(app.cardStore, app.stickerQueue, logger))
	} else {
		return nil, fmt.Errorf("unexpected event emitter type, cannot register sticker handler")
	}

	cardRepoAdapter := service.NewCardRepositoryAdapter(app.cardStore, app.db)
	app.cardService, err = service.NewCardService(cardRepoAdapter, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create card service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run recovers interrupted jobs, starts the queue and serves HTTP until
// shutdown.
func (app *application) Run(ctx context.Context) error {
	if err := app.stickerQueue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sticker queue: %w", err)
	}

	router := app.setupRouter()
	return app.startHTTPServer(ctx, router)
}

// cleanup releases application resources during shutdown.
func (app *application) cleanup() {
	app.logger.Info("Stopping sticker queue...")
	app.stickerQueue.Stop()
}
