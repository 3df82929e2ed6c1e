package dashboard

import (
	"context"
	"math"

	formsrepo "tripforms_backend/internal/forms/repository"
	"tripforms_backend/internal/proposals"
	"tripforms_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Stats is the staff dashboard payload. StatusCounts covers every
// bucket including NOT_DISPATCHED, so the counts always sum to
// TotalProposals.
type Stats struct {
	TotalProposals  int            `json:"totalProposals"`
	StatusCounts    map[string]int `json:"statusCounts"`
	TotalSlots      int            `json:"totalSlots"`
	FilledSlots     int            `json:"filledSlots"`
	ProgressPercent int            `json:"progressPercent"`
}

// Service computes the dashboard stats.
type Service struct {
	store Store
	log   *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Stats runs the three aggregate queries in parallel and merges them.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var (
		byStatus  map[string]int
		proposals int
		slots     SlotTotals
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = s.store.CountInstancesByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		proposals, err = s.store.CountProposals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		slots, err = s.store.SumSlots(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	return merge(byStatus, proposals, slots), nil
}

func merge(byStatus map[string]int, totalProposals int, slots SlotTotals) Stats {
	counts := map[string]int{
		formsrepo.StatusAwaitingFill: byStatus[formsrepo.StatusAwaitingFill],
		formsrepo.StatusInProgress:   byStatus[formsrepo.StatusInProgress],
		formsrepo.StatusCompleted:    byStatus[formsrepo.StatusCompleted],
		formsrepo.StatusExpired:      byStatus[formsrepo.StatusExpired],
	}

	dispatched := 0
	for _, count := range byStatus {
		dispatched += count
	}
	notDispatched := totalProposals - dispatched
	if notDispatched < 0 {
		notDispatched = 0
	}
	counts[proposals.StatusNotDispatched] = notDispatched

	percent := 0
	if slots.Total > 0 {
		percent = int(math.Round(float64(slots.Filled) / float64(slots.Total) * 100))
	}

	return Stats{
		TotalProposals:  totalProposals,
		StatusCounts:    counts,
		TotalSlots:      slots.Total,
		FilledSlots:     slots.Filled,
		ProgressPercent: percent,
	}
}
