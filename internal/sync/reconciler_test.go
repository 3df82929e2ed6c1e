package sync

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"tripforms_backend/internal/sync/repository"
	"tripforms_backend/internal/sync/sheets"
	"tripforms_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	hashes    map[repository.OrderKey]string
	upserted  []repository.SalesOrder
	upsertErr map[repository.OrderKey]error

	hashesErr error

	syncLogs  []repository.SyncLog
	createErr error
	finalized map[string]repository.Counts
	finalStat map[string]string
	finalErrs map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hashes:    map[repository.OrderKey]string{},
		upsertErr: map[repository.OrderKey]error{},
		finalized: map[string]repository.Counts{},
		finalStat: map[string]string{},
		finalErrs: map[string][]string{},
	}
}

func (s *fakeStore) GetHashesByKeys(_ context.Context, keys []repository.OrderKey) (map[repository.OrderKey]string, error) {
	if s.hashesErr != nil {
		return nil, s.hashesErr
	}
	out := make(map[repository.OrderKey]string, len(keys))
	for _, key := range keys {
		if hash, ok := s.hashes[key]; ok {
			out[key] = hash
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertOrder(_ context.Context, order repository.SalesOrder) error {
	key := repository.OrderKey{ProposalID: order.ProposalID, LineNumber: order.LineNumber}
	if err := s.upsertErr[key]; err != nil {
		return err
	}
	s.upserted = append(s.upserted, order)
	s.hashes[key] = order.RawHash
	return nil
}

func (s *fakeStore) ListOrdersByProposal(_ context.Context, proposalID string) ([]repository.SalesOrder, error) {
	var orders []repository.SalesOrder
	for _, o := range s.upserted {
		if o.ProposalID == proposalID {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (s *fakeStore) CreateSyncLog(_ context.Context, trigger string) (repository.SyncLog, error) {
	if s.createErr != nil {
		return repository.SyncLog{}, s.createErr
	}
	log := repository.SyncLog{Status: repository.StatusRunning, Trigger: trigger}
	s.syncLogs = append(s.syncLogs, log)
	return log, nil
}

func (s *fakeStore) FinalizeSyncLog(_ context.Context, id uuid.UUID, status string, counts repository.Counts, errs []string) error {
	key := id.String()
	s.finalized[key] = counts
	s.finalStat[key] = status
	s.finalErrs[key] = errs
	return nil
}

func (s *fakeStore) ListSyncLogs(_ context.Context, _ int) ([]repository.SyncLog, error) {
	return s.syncLogs, nil
}

var _ repository.Store = (*fakeStore)(nil)

func sheetRow(proposal string, line int, pax int) sheets.OrderRow {
	return sheets.OrderRow{
		Raw: map[string]string{
			"PROPOSAL":      proposal,
			"#":             strconv.Itoa(line),
			"STATUS":        "CONFIRMED",
			"CLIENT":        "Ana Souza",
			"EMAIL":         "ana@example.com",
			"GAME":          "BRA x ARG",
			"HOTEL":         "Hilton",
			"ROOM TYPE":     "Double",
			"NUMBER OF PAX": strconv.Itoa(pax),
			"NOTES":         "",
		},
		ProposalID:  proposal,
		LineNumber:  line,
		Status:      "CONFIRMED",
		ClientName:  "Ana Souza",
		ClientEmail: "ana@example.com",
		GameDetails: "BRA x ARG",
		Hotel:       "Hilton",
		RoomType:    "Double",
		Rooms:       1,
		Pax:         pax,
	}
}

func TestReconcileUpsertsNewRowsAndSkipsUnchangedOnes(t *testing.T) {
	store := newFakeStore()
	rec := NewReconciler(store, logger.New("test"))

	mapped := sheets.MapResult{
		Rows: []sheets.OrderRow{sheetRow("20250601", 1, 2), sheetRow("20250601", 2, 3)},
	}

	first, err := rec.Reconcile(context.Background(), mapped)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if first.Counts.Upserted != 2 || first.Counts.Skipped != 0 {
		t.Fatalf("expected 2 upserted on first pass, got %+v", first.Counts)
	}

	second, err := rec.Reconcile(context.Background(), mapped)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if second.Counts.Upserted != 0 {
		t.Fatalf("second pass must not upsert unchanged rows, got %d", second.Counts.Upserted)
	}
	if second.Counts.Skipped != 2 {
		t.Fatalf("expected 2 skipped on second pass, got %d", second.Counts.Skipped)
	}
	if len(store.upserted) != 2 {
		t.Fatalf("expected 2 stored rows total, got %d", len(store.upserted))
	}
}

func TestReconcileDetectsContentChanges(t *testing.T) {
	store := newFakeStore()
	rec := NewReconciler(store, logger.New("test"))

	mapped := sheets.MapResult{Rows: []sheets.OrderRow{sheetRow("20250601", 1, 2)}}
	if _, err := rec.Reconcile(context.Background(), mapped); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	changed := sheetRow("20250601", 1, 2)
	changed.Hotel = "Copacabana Palace"
	changed.Raw["HOTEL"] = "Copacabana Palace"
	outcome, err := rec.Reconcile(context.Background(), sheets.MapResult{Rows: []sheets.OrderRow{changed}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if outcome.Counts.Upserted != 1 {
		t.Fatalf("expected changed row to be upserted, got %+v", outcome.Counts)
	}
	if got := store.upserted[len(store.upserted)-1].Hotel; got != "Copacabana Palace" {
		t.Fatalf("expected updated hotel stored, got %q", got)
	}
}

func TestReconcileDetectsUnmappedColumnChanges(t *testing.T) {
	store := newFakeStore()
	rec := NewReconciler(store, logger.New("test"))

	if _, err := rec.Reconcile(context.Background(), sheets.MapResult{Rows: []sheets.OrderRow{sheetRow("20250601", 1, 2)}}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	// NOTES never maps to a sales order field, but an edit there must
	// still refresh the stored row.
	changed := sheetRow("20250601", 1, 2)
	changed.Raw["NOTES"] = "upgraded to suite"
	outcome, err := rec.Reconcile(context.Background(), sheets.MapResult{Rows: []sheets.OrderRow{changed}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if outcome.Counts.Upserted != 1 {
		t.Fatalf("expected unmapped change to be upserted, got %+v", outcome.Counts)
	}
	if got := store.upserted[len(store.upserted)-1].RawData["NOTES"]; got != "upgraded to suite" {
		t.Fatalf("expected the raw row stored, got %q", got)
	}
}

func TestReconcileAbsorbsPerRowUpsertFailures(t *testing.T) {
	store := newFakeStore()
	store.upsertErr[repository.OrderKey{ProposalID: "20250601", LineNumber: 1}] = errors.New("duplicate key")
	rec := NewReconciler(store, logger.New("test"))

	mapped := sheets.MapResult{
		Rows: []sheets.OrderRow{sheetRow("20250601", 1, 2), sheetRow("20250602", 1, 3)},
	}

	outcome, err := rec.Reconcile(context.Background(), mapped)
	if err != nil {
		t.Fatalf("a failing row must not abort the pass: %v", err)
	}
	if outcome.Counts.Upserted != 1 || outcome.Counts.Errored != 1 {
		t.Fatalf("expected 1 upserted and 1 errored, got %+v", outcome.Counts)
	}
	if len(outcome.RowErrors) != 1 {
		t.Fatalf("expected 1 row error, got %v", outcome.RowErrors)
	}
	if !strings.Contains(outcome.RowErrors[0], "proposal 20250601 line 1") {
		t.Fatalf("row error must name the failing line, got %q", outcome.RowErrors[0])
	}
}

func TestReconcileCountsMapErrorsAndSkips(t *testing.T) {
	store := newFakeStore()
	rec := NewReconciler(store, logger.New("test"))

	mapped := sheets.MapResult{
		Rows:    []sheets.OrderRow{sheetRow("20250601", 1, 2)},
		Skipped: 3,
		Errors:  []sheets.RowError{{SheetRow: 5, Reason: "invalid line number \"x\""}},
	}

	outcome, err := rec.Reconcile(context.Background(), mapped)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if outcome.Counts.Read != 5 {
		t.Fatalf("read count must include mapped, skipped and errored rows, got %d", outcome.Counts.Read)
	}
	if outcome.Counts.Skipped != 3 || outcome.Counts.Errored != 1 {
		t.Fatalf("expected skipped=3 errored=1, got %+v", outcome.Counts)
	}
	if !strings.Contains(outcome.RowErrors[0], "row 5:") {
		t.Fatalf("map error must carry the sheet row, got %q", outcome.RowErrors[0])
	}
}

func TestReconcileFailsWhenHashPrefetchFails(t *testing.T) {
	store := newFakeStore()
	store.hashesErr = errors.New("connection refused")
	rec := NewReconciler(store, logger.New("test"))

	mapped := sheets.MapResult{Rows: []sheets.OrderRow{sheetRow("20250601", 1, 2)}}
	if _, err := rec.Reconcile(context.Background(), mapped); err == nil {
		t.Fatalf("expected error when storage is unreachable")
	}
}

func TestRawHashIsStableAndCellSensitive(t *testing.T) {
	base := sheetRow("20250601", 1, 2)
	if RawHash(base.Raw) != RawHash(base.Raw) {
		t.Fatalf("hash must be deterministic")
	}

	changed := sheetRow("20250601", 1, 2)
	changed.Raw["SELLER"] = "Rafael"
	if RawHash(base.Raw) == RawHash(changed.Raw) {
		t.Fatalf("hash must change when any cell changes")
	}

	if RawHash(nil) != RawHash(map[string]string{}) {
		t.Fatalf("a nil raw map must hash like an empty one")
	}
}
