package scheduler

import (
	"context"
	"fmt"

	syncrepo "tripforms_backend/internal/sync/repository"
	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/config"
	"tripforms_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// SyncRunner is the sync module's entry point as seen by the worker.
type SyncRunner interface {
	Run(ctx context.Context, trigger string) (syncrepo.SyncLog, error)
}

// FormExpirer sweeps overdue form instances.
type FormExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// Worker consumes queued tasks.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	runner  SyncRunner
	expirer FormExpirer
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner SyncRunner, expirer FormExpirer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		runner:  runner,
		expirer: expirer,
		log:     log,
	}

	mux.HandleFunc(TaskSyncSheetsRun, w.handleSyncSheetsRun)
	mux.HandleFunc(TaskFormsExpireSweep, w.handleFormsExpireSweep)

	return w, nil
}

func (w *Worker) handleSyncSheetsRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSyncSheetsRunPayload(task)
	if err != nil {
		return err
	}

	trigger := payload.Trigger
	if trigger == "" {
		trigger = "SCHEDULED"
	}

	_, err = w.runner.Run(ctx, trigger)
	if apperr.GetCode(err) == apperr.CodeSyncAlreadyRunning {
		// A run is in flight; the next tick will catch up.
		w.log.Warn("sync task skipped, run already in progress")
		return nil
	}
	return err
}

func (w *Worker) handleFormsExpireSweep(ctx context.Context, task *asynq.Task) error {
	count, err := w.expirer.ExpireOverdue(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		w.log.Info("expired overdue form instances", "count", count)
	}
	return nil
}

// Run serves the queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
