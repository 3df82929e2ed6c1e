package scheduler

import (
	"fmt"
	"time"

	"tripforms_backend/platform/config"
	"tripforms_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic registers the recurring tasks with asynq's scheduler. It
// runs alongside the worker in the same process.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// PeriodicConfig combines the settings the periodic scheduler needs.
type PeriodicConfig interface {
	config.SchedulerConfig
	config.SyncConfig
}

func NewPeriodic(cfg PeriodicConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	interval := cfg.GetSyncInterval()
	if interval < time.Minute {
		interval = 5 * time.Minute
	}

	syncTask, err := NewSyncSheetsRunTask(SyncSheetsRunPayload{Trigger: "SCHEDULED"})
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(
		fmt.Sprintf("@every %s", interval),
		syncTask,
		asynq.Queue(queue),
	); err != nil {
		return nil, err
	}

	// The deadline sweep runs hourly; deadlines are date-granular.
	if _, err := scheduler.Register(
		"@every 1h",
		NewFormsExpireSweepTask(),
		asynq.Queue(queue),
	); err != nil {
		return nil, err
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run starts the periodic scheduler and blocks until shutdown.
func (p *Periodic) Run() error {
	return p.scheduler.Run()
}

// Shutdown stops the scheduler.
func (p *Periodic) Shutdown() {
	p.scheduler.Shutdown()
}
