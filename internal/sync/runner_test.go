package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripforms_backend/internal/sync/repository"
	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/logger"

	"tripforms_backend/internal/events"

	"github.com/google/uuid"
)

type fakeSyncConfig struct {
	interval   time.Duration
	staleAfter time.Duration
}

func (c fakeSyncConfig) GetSyncInterval() time.Duration   { return c.interval }
func (c fakeSyncConfig) GetSyncStaleAfter() time.Duration { return c.staleAfter }

type fakeFetcher struct {
	grid    [][]string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) FetchRows(_ context.Context) ([][]string, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.grid, nil
}

func newRunner(store *fakeStore, fetcher *fakeFetcher, staleAfter time.Duration) *Runner {
	log := logger.New("test")
	return NewRunner(fetcher, NewReconciler(store, log), store, fakeSyncConfig{staleAfter: staleAfter}, events.NewInMemoryBus(log), log)
}

func confirmedGrid() [][]string {
	return [][]string{
		{"PROPOSAL", "#", "STATUS", "CLIENT", "EMAIL", "PAX"},
		{"20250601", "1", "CONFIRMED", "Ana Souza", "ana@example.com", "2"},
		{"20250601", "2", "CONFIRMED", "Ana Souza", "ana@example.com", "3"},
	}
}

func TestRunFinalizesSuccessfulPass(t *testing.T) {
	store := newFakeStore()
	runner := newRunner(store, &fakeFetcher{grid: confirmedGrid()}, 0)

	syncLog, err := runner.Run(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if syncLog.Status != repository.StatusSuccess {
		t.Fatalf("expected status %q, got %q", repository.StatusSuccess, syncLog.Status)
	}
	if syncLog.RowsRead != 2 || syncLog.RowsUpserted != 2 {
		t.Fatalf("expected 2 read and 2 upserted, got read=%d upserted=%d", syncLog.RowsRead, syncLog.RowsUpserted)
	}
	if syncLog.FinishedAt == nil {
		t.Fatalf("expected a finish timestamp")
	}
	if got := store.finalStat[uuid.Nil.String()]; got != repository.StatusSuccess {
		t.Fatalf("expected run log finalized as %q, got %q", repository.StatusSuccess, got)
	}
}

func TestRunReportsPartialWhenRowsFail(t *testing.T) {
	grid := confirmedGrid()
	grid = append(grid, []string{"20250602", "abc", "CONFIRMED", "Bruno Lima", "bruno@example.com", "1"})

	store := newFakeStore()
	runner := newRunner(store, &fakeFetcher{grid: grid}, 0)

	syncLog, err := runner.Run(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("row errors must not fail the run: %v", err)
	}
	if syncLog.Status != repository.StatusPartial {
		t.Fatalf("expected status %q, got %q", repository.StatusPartial, syncLog.Status)
	}
	if syncLog.RowsErrored != 1 {
		t.Fatalf("expected 1 errored row, got %d", syncLog.RowsErrored)
	}
	if len(syncLog.Errors) != 1 {
		t.Fatalf("expected the row error on the log, got %v", syncLog.Errors)
	}
}

func TestRunFinalizesErrorWhenFetchFails(t *testing.T) {
	store := newFakeStore()
	runner := newRunner(store, &fakeFetcher{err: errors.New("sheets api unavailable")}, 0)

	_, err := runner.Run(context.Background(), TriggerManual)
	if err == nil {
		t.Fatalf("expected fetch failure to surface")
	}
	if got := store.finalStat[uuid.Nil.String()]; got != repository.StatusError {
		t.Fatalf("expected run log finalized as %q, got %q", repository.StatusError, got)
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{
		grid:    confirmedGrid(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	runner := newRunner(store, fetcher, time.Hour)

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), TriggerScheduled)
		done <- err
	}()

	<-fetcher.started
	_, err := runner.Run(context.Background(), TriggerManual)
	if apperr.GetCode(err) != apperr.CodeSyncAlreadyRunning {
		t.Fatalf("expected %s, got %v", apperr.CodeSyncAlreadyRunning, err)
	}
	if len(store.syncLogs) != 1 {
		t.Fatalf("the rejected run must not create a run log, got %d", len(store.syncLogs))
	}

	close(fetcher.release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestRunGuardClearsStaleClaims(t *testing.T) {
	var guard runGuard
	if !guard.tryAcquire(10 * time.Millisecond) {
		t.Fatalf("expected first acquire to succeed")
	}
	if guard.tryAcquire(time.Hour) {
		t.Fatalf("expected second acquire to fail while running")
	}

	guard.startedAt = time.Now().Add(-time.Minute)
	if !guard.tryAcquire(10 * time.Millisecond) {
		t.Fatalf("expected acquire to force-clear a stale claim")
	}

	guard.release()
	if !guard.tryAcquire(0) {
		t.Fatalf("expected acquire after release")
	}
	if guard.tryAcquire(0) {
		t.Fatalf("staleAfter=0 must never force-clear a running claim")
	}
}
