// The syncworker binary runs the scheduled sheet sync and deadline
// sweep standalone, for deployments that keep background work out of
// the API process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tripforms_backend/internal/events"
	"tripforms_backend/internal/fields"
	"tripforms_backend/internal/forms"
	"tripforms_backend/internal/scheduler"
	syncmod "tripforms_backend/internal/sync"
	"tripforms_backend/platform/config"
	"tripforms_backend/platform/db"
	"tripforms_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the sync worker")
	}

	log := logger.New(cfg.Env)
	log.Info("starting sync worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	catalog, err := fields.Load()
	if err != nil {
		log.Error("failed to load field catalog", "error", err)
		panic("failed to load field catalog: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	syncModule := syncmod.NewModule(pool, cfg, eventBus, log)
	formsModule := forms.NewModule(pool, catalog, eventBus, log)

	worker, err := scheduler.NewWorker(cfg, syncModule.Runner(), formsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}
	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}

	go func() {
		if err := periodic.Run(); err != nil {
			log.Error("periodic scheduler stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		periodic.Shutdown()
	}()

	log.Info("sync worker running", "interval", cfg.GetSyncInterval().String())
	worker.Run(ctx)
	log.Info("sync worker stopped")
}
