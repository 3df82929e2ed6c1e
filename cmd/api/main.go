package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripforms_backend/internal/audit"
	"tripforms_backend/internal/auth"
	"tripforms_backend/internal/captures"
	"tripforms_backend/internal/clients"
	"tripforms_backend/internal/dashboard"
	"tripforms_backend/internal/email"
	"tripforms_backend/internal/events"
	"tripforms_backend/internal/exports"
	"tripforms_backend/internal/fields"
	"tripforms_backend/internal/forms"
	apphttp "tripforms_backend/internal/http"
	"tripforms_backend/internal/http/router"
	"tripforms_backend/internal/proposals"
	"tripforms_backend/internal/scheduler"
	"tripforms_backend/internal/storage"
	syncmod "tripforms_backend/internal/sync"
	syncrepo "tripforms_backend/internal/sync/repository"
	"tripforms_backend/internal/uploads"
	"tripforms_backend/platform/config"
	"tripforms_backend/platform/db"
	"tripforms_backend/platform/logger"
	"tripforms_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	catalog, err := fields.Load()
	if err != nil {
		log.Error("failed to load field catalog", "error", err)
		panic("failed to load field catalog: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage for passenger profile photos (MinIO, optional)
	var photoStore *storage.Client
	if cfg.IsMinIOEnabled() {
		photoStore, err = storage.New(cfg)
		if err != nil {
			log.Error("failed to initialize storage client", "error", err)
			panic("failed to initialize storage client: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure profile photo bucket", 5, 2*time.Second, func() error {
			return photoStore.EnsureBucketExists(ctx, cfg.GetMinioBucketProfilePhotos())
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketProfilePhotos())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		log.Info("storage client initialized", "profilePhotoBucket", cfg.GetMinioBucketProfilePhotos())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; profile photo uploads disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	authModule := auth.NewModule(pool, cfg, eventBus, log, val)
	if err := authModule.Service().EnsureMaster(ctx, cfg.GetBootstrapMasterEmail(), cfg.GetBootstrapMasterPassword()); err != nil {
		log.Error("failed to bootstrap master account", "error", err)
		panic("failed to bootstrap master account: " + err.Error())
	}

	syncModule := syncmod.NewModule(pool, cfg, eventBus, log)
	orders := syncrepo.New(pool)

	fieldsModule := fields.NewModule(catalog)
	formsModule := forms.NewModule(pool, catalog, eventBus, log)
	capturesModule := captures.NewModule(pool, orders, formsModule.Service(), authModule.Service(), sender, cfg, eventBus, log)

	// Clients may only open forms for proposals dispatched to them.
	// Wired here to break the forms/captures construction cycle.
	formsModule.Service().SetAccessChecker(capturesModule.Service())

	proposalsModule := proposals.NewModule(pool, orders, catalog, log)
	dashboardModule := dashboard.NewModule(pool, log)
	clientsModule := clients.NewModule(pool, authModule.Service(), sender, cfg, eventBus, log)
	exportsModule := exports.NewModule(proposalsModule.Service(), log)
	uploadsModule := uploads.NewModule(photoStore, cfg.GetMinioBucketProfilePhotos(), log)

	auditModule := audit.NewModule(pool, log)
	auditModule.RegisterHandlers(eventBus)

	// Embedded background worker: scheduled sheet syncs and the deadline
	// sweep. Skipped when redis is not configured; the manual sync
	// endpoint still works.
	startBackground(ctx, cfg, syncModule.Runner(), formsModule.Service(), log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			fieldsModule,
			syncModule,
			formsModule,
			capturesModule,
			proposalsModule,
			dashboardModule,
			clientsModule,
			exportsModule,
			uploadsModule,
			auditModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func startBackground(ctx context.Context, cfg *config.Config, runner scheduler.SyncRunner, expirer scheduler.FormExpirer, log *logger.Logger) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; scheduled sync disabled")
		return
	}

	worker, err := scheduler.NewWorker(cfg, runner, expirer, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		return
	}
	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		return
	}

	go worker.Run(ctx)
	go func() {
		if err := periodic.Run(); err != nil {
			log.Error("periodic scheduler stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		periodic.Shutdown()
	}()
	log.Info("background scheduler started", "interval", cfg.GetSyncInterval().String())
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
