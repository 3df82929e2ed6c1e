// Package dashboard aggregates capture progress across all proposals
// into the staff landing-page stats.
package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SlotTotals sums slots over every form instance.
type SlotTotals struct {
	Total  int
	Filled int
}

// Store is the stats query port.
type Store interface {
	CountInstancesByStatus(ctx context.Context) (map[string]int, error)
	CountProposals(ctx context.Context) (int, error)
	SumSlots(ctx context.Context) (SlotTotals, error)
}

// Repository is the pgx-backed Store implementation.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CountInstancesByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*) FROM form_instances GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *Repository) CountProposals(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(DISTINCT proposal_id) FROM sales_orders
	`).Scan(&count)
	return count, err
}

func (r *Repository) SumSlots(ctx context.Context) (SlotTotals, error) {
	var totals SlotTotals
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(sum(total_slots), 0), COALESCE(sum(filled_slots), 0)
		FROM form_instances
	`).Scan(&totals.Total, &totals.Filled)
	return totals, err
}

var _ Store = (*Repository)(nil)
