package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lasprendas/tryon-api/internal/api"
	"github.com/lasprendas/tryon-api/internal/config"
	"github.com/lasprendas/tryon-api/internal/events"
	"github.com/lasprendas/tryon-api/internal/media"
	"github.com/lasprendas/tryon-api/internal/platform/gemini"
	"github.com/lasprendas/tryon-api/internal/platform/postgres"
	"github.com/lasprendas/tryon-api/internal/platform/s3"
	"github.com/lasprendas/tryon-api/internal/service"
	"github.com/lasprendas/tryon-api/internal/task"
)

// application bundles the long-lived components so startup, routing and
// shutdown can share them.
type application struct {
	config     *config.Config
	logger     *slog.Logger
	db         *sql.DB
	handler    *api.TryOnHandler
	runner     *task.TaskRunner
	schedulers []*task.SyncScheduler
}

// newApplication builds the full dependency graph: database and migrations,
// object storage, generation clients, stores, the task subsystem, and the
// submission service with its HTTP handler.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		return nil, err
	}

	objects, err := s3.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	composer, err := gemini.NewComposer(ctx, logger, cfg.Gemini)
	if err != nil {
		return nil, fmt.Errorf("failed to create composer: %w", err)
	}

	analyzer, err := gemini.NewAnalyzer(ctx, logger, cfg.Gemini)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	garmentStore := postgres.NewPostgresGarmentStore(db, logger)
	sessionStore := postgres.NewPostgresSessionStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db)
	recurringStore := postgres.NewPostgresRecurringJobStore(db)

	normalizer := media.NewNormalizer()

	// Task factories create new tasks on the submission path and rebuild
	// recovered rows back into executable tasks.
	tryOnFactory := task.NewTryOnTaskFactory(sessionStore, objects, normalizer, composer, analyzer, logger)
	analyzeGarmentFactory := task.NewAnalyzeGarmentTaskFactory(garmentStore, objects, analyzer, logger)
	analyzeSessionFactory := task.NewAnalyzeSessionTaskFactory(sessionStore, objects, analyzer, logger)

	runnerConfig := task.DefaultTaskRunnerConfig()
	runnerConfig.WorkerCount = cfg.Worker.Concurrency
	runnerConfig.QueueSize = cfg.Worker.QueueSize

	registry := task.NewRegistry()
	runner := task.NewTaskRunner(taskStore, registry, runnerConfig, logger)

	syncGarmentsFactory := task.NewSyncGarmentsTaskFactory(garmentStore, analyzeGarmentFactory, runner, logger)
	syncSessionsFactory := task.NewSyncSessionsTaskFactory(sessionStore, analyzeSessionFactory, runner, logger)

	registry.Register(task.TaskTypeTryOn, tryOnFactory)
	registry.Register(task.TaskTypeAnalyzeGarment, analyzeGarmentFactory)
	registry.Register(task.TaskTypeAnalyzeSession, analyzeSessionFactory)
	registry.Register(task.TaskTypeSyncGarments, syncGarmentsFactory)
	registry.Register(task.TaskTypeSyncSessions, syncSessionsFactory)

	syncInterval := time.Duration(cfg.Worker.SyncIntervalMinutes) * time.Minute
	garmentScheduler, err := task.NewSyncScheduler(
		task.TaskTypeSyncGarments, syncInterval, recurringStore, syncGarmentsFactory, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create garment sync scheduler: %w", err)
	}
	sessionScheduler, err := task.NewSyncScheduler(
		task.TaskTypeSyncSessions, syncInterval, recurringStore, syncSessionsFactory, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session sync scheduler: %w", err)
	}

	// Submission-path enqueues go through the event emitter so the service
	// layer stays decoupled from task construction.
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(tryOnFactory, runner, logger))

	admission, err := service.NewAdmissionController(runner, cfg.Worker.AdmissionThreshold, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create admission controller: %w", err)
	}

	tryOnService, err := service.NewTryOnService(
		service.NewDBTxRunner(db),
		garmentStore,
		sessionStore,
		objects,
		admission,
		emitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create try-on service: %w", err)
	}

	return &application{
		config:     cfg,
		logger:     logger,
		db:         db,
		handler:    api.NewTryOnHandler(tryOnService, logger),
		runner:     runner,
		schedulers: []*task.SyncScheduler{garmentScheduler, sessionScheduler},
	}, nil
}

// start brings up the background machinery and then serves HTTP until a
// shutdown signal arrives.
func (app *application) start(ctx context.Context) error {
	// Start also requeues tasks left pending or processing by a previous run.
	if err := app.runner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	for _, scheduler := range app.schedulers {
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sync scheduler: %w", err)
		}
	}

	return app.serveHTTP(ctx, app.setupRouter())
}

// cleanup stops background processing and releases shared resources.
// Called after the HTTP server has drained.
func (app *application) cleanup() {
	for _, scheduler := range app.schedulers {
		scheduler.Stop()
	}

	app.runner.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
}
