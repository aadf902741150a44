package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskflow-api/internal/bulk"
	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsNamespace prefixes every exported Prometheus metric.
const metricsNamespace = "taskflow"

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	cache      cache.Store
	closeCache func() error

	userStore store.UserStore
	taskStore store.TaskStore

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	userService      service.UserService
	taskService      service.TaskService

	eventEmitter *events.InMemoryEventEmitter
	registry     *bulk.Registry
	bulkEngine   *bulk.Engine
	registerer   prometheus.Registerer
}

// appOption customises newApplication, mainly for tests.
type appOption func(*application)

// withCacheStore skips the Redis connection and uses store instead.
func withCacheStore(store cache.Store) appOption {
	return func(app *application) {
		app.cache = store
		app.closeCache = func() error { return nil }
	}
}

// withRegisterer registers metrics somewhere other than the default registry.
func withRegisterer(reg prometheus.Registerer) appOption {
	return func(app *application) { app.registerer = reg }
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	opts ...appOption,
) (*application, error) {
	app := &application{
		config:     cfg,
		logger:     logger,
		db:         db,
		registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(app)
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)
	app.passwordVerifier = auth.NewBcryptVerifier()

	if app.cache == nil {
		app.cache, app.closeCache = setupCacheStore(ctx, cfg.Redis, logger)
	}

	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	// Every task mutation, single or bulk, reaches the cache through this emitter.
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(cache.NewInvalidator(app.cache, logger),
		events.TypeTasksChanged, events.TypeBulkOperationFinished, events.TypeUndoApplied)

	loader := cache.NewLoader(app.cache, cfg.Redis.DefaultTTL, logger)

	app.userService = service.NewUserService(app.userStore, app.passwordVerifier, loader, db, logger)
	app.taskService, err = service.NewTaskService(app.taskStore, db, loader, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	metrics, err := bulk.NewMetrics(metricsNamespace, app.registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register bulk metrics: %w", err)
	}

	app.registry = bulk.NewRegistry(app.cache, bulk.RegistryOptions{
		MaxOperations: cfg.Bulk.MaxTrackedOperations,
		StatusTTL:     cfg.Bulk.StatusTTL,
		UndoStackSize: cfg.Bulk.UndoStackSize,
	}, logger)
	templates := bulk.NewTemplateStore(app.cache, cfg.Bulk.TemplateTTL, logger)

	app.bulkEngine = bulk.NewEngine(
		service.NewTaskTransactor(db, app.taskStore),
		app.registry,
		templates,
		app.eventEmitter,
		metrics,
		logger,
	)

	logger.Info("Application initialized successfully",
		"max_tracked_operations", cfg.Bulk.MaxTrackedOperations,
		"status_ttl", cfg.Bulk.StatusTTL.String())
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	start := time.Now()

	if app.closeCache != nil {
		if err := app.closeCache(); err != nil {
			app.logger.Error("Error closing cache connection", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application resources released",
		"tracked_operations", app.registry.Tracked(),
		"duration_ms", time.Since(start).Milliseconds())
}
