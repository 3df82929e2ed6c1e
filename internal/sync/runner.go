package sync

import (
	"context"
	"sync"
	"time"

	"tripforms_backend/internal/events"
	"tripforms_backend/internal/sync/repository"
	"tripforms_backend/internal/sync/sheets"
	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/config"
	"tripforms_backend/platform/logger"
)

// Sync triggers.
const (
	TriggerManual    = "MANUAL"
	TriggerScheduled = "SCHEDULED"
)

// runGuard serializes sync runs in-process. A run that outlives the
// staleness window is assumed crashed and its claim is force-cleared,
// so one wedged run cannot block syncing forever.
type runGuard struct {
	mu        sync.Mutex
	running   bool
	startedAt time.Time
}

func (g *runGuard) tryAcquire(staleAfter time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		if staleAfter <= 0 || time.Since(g.startedAt) < staleAfter {
			return false
		}
	}
	g.running = true
	g.startedAt = time.Now()
	return true
}

func (g *runGuard) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = false
}

// Runner orchestrates a full sync run: fetch, map, reconcile, and the
// run log bracketing it all.
type Runner struct {
	fetcher    sheets.Fetcher
	reconciler *Reconciler
	store      repository.Store
	cfg        config.SyncConfig
	bus        events.Bus
	log        *logger.Logger
	guard      runGuard
}

func NewRunner(fetcher sheets.Fetcher, reconciler *Reconciler, store repository.Store, cfg config.SyncConfig, bus events.Bus, log *logger.Logger) *Runner {
	return &Runner{
		fetcher:    fetcher,
		reconciler: reconciler,
		store:      store,
		cfg:        cfg,
		bus:        bus,
		log:        log,
	}
}

// Run executes one sync pass. Returns the finalized run log. A second
// concurrent call gets a conflict error without touching the sheet.
func (r *Runner) Run(ctx context.Context, trigger string) (repository.SyncLog, error) {
	if !r.guard.tryAcquire(r.cfg.GetSyncStaleAfter()) {
		return repository.SyncLog{}, apperr.Conflict("a sync run is already in progress").
			WithCode(apperr.CodeSyncAlreadyRunning)
	}
	defer r.guard.release()

	syncLog, err := r.store.CreateSyncLog(ctx, trigger)
	if err != nil {
		return repository.SyncLog{}, err
	}

	r.log.SyncEvent("sync_started", 0, 0, 0, 0)
	r.bus.Publish(ctx, events.SyncStarted{
		BaseEvent: events.NewBaseEvent(),
		SyncLogID: syncLog.ID,
		Trigger:   trigger,
	})

	outcome, runErr := r.execute(ctx)
	status := statusFor(outcome, runErr)

	if err := r.store.FinalizeSyncLog(ctx, syncLog.ID, status, outcome.Counts, outcome.RowErrors); err != nil {
		r.log.DatabaseError("finalize sync log", err)
	}

	if runErr != nil {
		r.log.Error("sync run failed", "syncLogId", syncLog.ID, "error", runErr)
		r.bus.Publish(ctx, events.SyncFailed{
			BaseEvent: events.NewBaseEvent(),
			SyncLogID: syncLog.ID,
			Reason:    runErr.Error(),
		})
		return r.finalized(syncLog, status, outcome), runErr
	}

	r.log.SyncEvent("sync_finished",
		outcome.Counts.Read, outcome.Counts.Upserted, outcome.Counts.Skipped, outcome.Counts.Errored)
	r.bus.Publish(ctx, events.SyncCompleted{
		BaseEvent:    events.NewBaseEvent(),
		SyncLogID:    syncLog.ID,
		Status:       status,
		RowsRead:     outcome.Counts.Read,
		RowsUpserted: outcome.Counts.Upserted,
		RowsSkipped:  outcome.Counts.Skipped,
		RowsErrored:  outcome.Counts.Errored,
	})

	return r.finalized(syncLog, status, outcome), nil
}

func (r *Runner) execute(ctx context.Context) (Outcome, error) {
	grid, err := r.fetcher.FetchRows(ctx)
	if err != nil {
		return Outcome{}, err
	}

	mapped, err := sheets.MapRows(grid)
	if err != nil {
		return Outcome{}, err
	}

	return r.reconciler.Reconcile(ctx, mapped)
}

// statusFor derives the final run status: ERROR when the run aborted,
// PARTIAL when the fetch succeeded but some rows failed, SUCCESS
// otherwise.
func statusFor(outcome Outcome, runErr error) string {
	switch {
	case runErr != nil:
		return repository.StatusError
	case outcome.Counts.Errored > 0:
		return repository.StatusPartial
	default:
		return repository.StatusSuccess
	}
}

func (r *Runner) finalized(syncLog repository.SyncLog, status string, outcome Outcome) repository.SyncLog {
	now := time.Now()
	syncLog.Status = status
	syncLog.RowsRead = outcome.Counts.Read
	syncLog.RowsUpserted = outcome.Counts.Upserted
	syncLog.RowsSkipped = outcome.Counts.Skipped
	syncLog.RowsErrored = outcome.Counts.Errored
	syncLog.Errors = outcome.RowErrors
	syncLog.FinishedAt = &now
	return syncLog
}

// Logs returns the most recent run logs.
func (r *Runner) Logs(ctx context.Context, limit int) ([]repository.SyncLog, error) {
	return r.store.ListSyncLogs(ctx, limit)
}
