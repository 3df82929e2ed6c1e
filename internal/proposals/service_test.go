package proposals

import (
	"context"
	"fmt"
	"testing"

	"tripforms_backend/internal/fields"
	syncrepo "tripforms_backend/internal/sync/repository"
	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/logger"
)

type fakeSummaryStore struct {
	summaries []Summary
	matrix    map[string][]MatrixRow

	lastFilter ListFilter
}

func (s *fakeSummaryStore) ListSummaries(_ context.Context, filter ListFilter) ([]Summary, error) {
	s.lastFilter = filter
	out := s.summaries
	if filter.Limit > 0 {
		start := filter.Offset
		if start > len(out) {
			start = len(out)
		}
		end := start + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

func (s *fakeSummaryStore) CountSummaries(_ context.Context, _ ListFilter) (int, error) {
	return len(s.summaries), nil
}

func (s *fakeSummaryStore) GetSummary(_ context.Context, proposalID string) (Summary, bool, error) {
	for _, summary := range s.summaries {
		if summary.ProposalID == proposalID {
			return summary, true, nil
		}
	}
	return Summary{}, false, nil
}

func (s *fakeSummaryStore) ListMatrixRows(_ context.Context, proposalID string) ([]MatrixRow, error) {
	return s.matrix[proposalID], nil
}

func (s *fakeSummaryStore) GetFilterOptions(_ context.Context) (FilterOptions, error) {
	return FilterOptions{Games: []string{"BRA x ARG"}}, nil
}

var _ Store = (*fakeSummaryStore)(nil)

type fakeOrderReader struct {
	orders map[string][]syncrepo.SalesOrder
}

func (f *fakeOrderReader) ListOrdersByProposal(_ context.Context, proposalID string) ([]syncrepo.SalesOrder, error) {
	return f.orders[proposalID], nil
}

func newProposalsService(t *testing.T, store *fakeSummaryStore, orders *fakeOrderReader) *Service {
	t.Helper()
	catalog, err := fields.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if orders == nil {
		orders = &fakeOrderReader{}
	}
	return NewService(store, orders, catalog, logger.New("test"))
}

func TestListDefaultsToNotDispatched(t *testing.T) {
	store := &fakeSummaryStore{summaries: []Summary{
		{ProposalID: "20250601", CaptureStatus: ""},
		{ProposalID: "20250602", CaptureStatus: "IN_PROGRESS", FilledSlots: 1, TotalSlots: 4},
	}}
	svc := newProposalsService(t, store, nil)

	result, err := svc.List(context.Background(), ListQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.Items[0].CaptureStatus != StatusNotDispatched {
		t.Fatalf("expected %s for undispatched proposal, got %q", StatusNotDispatched, result.Items[0].CaptureStatus)
	}
	if result.Items[1].ProgressPercent != 25 {
		t.Fatalf("expected 25%%, got %d", result.Items[1].ProgressPercent)
	}
}

func TestListFastPathPagesInTheStore(t *testing.T) {
	store := &fakeSummaryStore{}
	for i := 0; i < 30; i++ {
		store.summaries = append(store.summaries, Summary{ProposalID: fmt.Sprintf("2025%04d", i)})
	}
	svc := newProposalsService(t, store, nil)

	result, err := svc.List(context.Background(), ListQuery{Page: 2, PageSize: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if store.lastFilter.Limit != 10 || store.lastFilter.Offset != 10 {
		t.Fatalf("expected the store to page, got limit=%d offset=%d", store.lastFilter.Limit, store.lastFilter.Offset)
	}
	if len(result.Items) != 10 || result.Total != 30 {
		t.Fatalf("expected 10 of 30, got %d of %d", len(result.Items), result.Total)
	}
	if result.Items[0].ProposalID != "20250010" {
		t.Fatalf("expected page 2 to start at 20250010, got %s", result.Items[0].ProposalID)
	}
}

func TestListCaptureStatusFilterRunsInMemory(t *testing.T) {
	store := &fakeSummaryStore{summaries: []Summary{
		{ProposalID: "20250601", CaptureStatus: ""},
		{ProposalID: "20250602", CaptureStatus: "COMPLETED", FilledSlots: 2, TotalSlots: 2},
		{ProposalID: "20250603", CaptureStatus: ""},
	}}
	svc := newProposalsService(t, store, nil)

	result, err := svc.List(context.Background(), ListQuery{CaptureStatus: "not_dispatched"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if store.lastFilter.Limit != 0 {
		t.Fatalf("status filter must materialize the full set, got limit=%d", store.lastFilter.Limit)
	}
	if result.Total != 2 || len(result.Items) != 2 {
		t.Fatalf("expected 2 undispatched proposals, got total=%d items=%d", result.Total, len(result.Items))
	}
	for _, item := range result.Items {
		if item.CaptureStatus != StatusNotDispatched {
			t.Fatalf("unexpected status %q", item.CaptureStatus)
		}
	}
}

func TestDetailJoinsOrderLines(t *testing.T) {
	store := &fakeSummaryStore{summaries: []Summary{{ProposalID: "20250601", ClientName: "Ana Souza"}}}
	orders := &fakeOrderReader{orders: map[string][]syncrepo.SalesOrder{
		"20250601": {
			{LineNumber: 1, Hotel: "Hilton", Pax: 2},
			{LineNumber: 2, GameDetails: "BRA x ARG", Pax: 1},
		},
	}}
	svc := newProposalsService(t, store, orders)

	detail, err := svc.Detail(context.Background(), "20250601")
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if len(detail.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(detail.Lines))
	}
	if detail.Lines[0].LineNumber != 1 || detail.Lines[0].Hotel != "Hilton" {
		t.Fatalf("unexpected first line %+v", detail.Lines[0])
	}

	if _, err := svc.Detail(context.Background(), "99999999"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMatrixCarriesCatalogColumnsAndEmptyAnswerMaps(t *testing.T) {
	store := &fakeSummaryStore{
		summaries: []Summary{{ProposalID: "20250601"}},
		matrix: map[string][]MatrixRow{
			"20250601": {
				{SlotIndex: 0, RoomLabel: "DOUBLE 1 | 2026-06-14 | Hilton", SlotStatus: "EMPTY", Answers: nil},
				{SlotIndex: 1, RoomLabel: "DOUBLE 1 | 2026-06-14 | Hilton", SlotStatus: "FILLED", Answers: map[string]string{"full_name": "Ana Souza"}},
			},
		},
	}
	svc := newProposalsService(t, store, nil)

	matrix, err := svc.Matrix(context.Background(), "20250601")
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	if len(matrix.Columns) != 17 {
		t.Fatalf("expected 17 catalog columns, got %d", len(matrix.Columns))
	}
	if matrix.Rows[0].Answers == nil || len(matrix.Rows[0].Answers) != 0 {
		t.Fatalf("empty slots must get an empty answer map, got %v", matrix.Rows[0].Answers)
	}
	if matrix.Rows[1].Answers["full_name"] != "Ana Souza" {
		t.Fatalf("expected answers preserved, got %v", matrix.Rows[1].Answers)
	}
}

func TestProgressPercentRounds(t *testing.T) {
	cases := []struct {
		filled, total, want int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{1, 8, 13},
	}
	for _, tc := range cases {
		if got := progressPercent(tc.filled, tc.total); got != tc.want {
			t.Fatalf("progressPercent(%d, %d) = %d, want %d", tc.filled, tc.total, got, tc.want)
		}
	}
}

func TestNormalizePageClampsBounds(t *testing.T) {
	if page, size := normalizePage(0, 0); page != 1 || size != defaultPageSize {
		t.Fatalf("expected defaults, got page=%d size=%d", page, size)
	}
	if _, size := normalizePage(1, 1000); size != maxPageSize {
		t.Fatalf("expected size clamped to %d, got %d", maxPageSize, size)
	}
}
