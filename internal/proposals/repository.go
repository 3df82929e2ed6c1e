// Package proposals serves the staff-facing read model: proposal
// listings, detail, the passenger data matrix and filter options. It
// reads across the sync, forms and captures tables without owning any
// of them.
package proposals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Summary is one proposal aggregated to a single row. Header fields
// come from the proposal's first order line, slot counters from the
// form instance when one exists.
type Summary struct {
	ProposalID       string
	Status           string
	ClientName       string
	ClientEmail      string
	GameDetails      string
	Hotel            string
	Seller           string
	CheckIn          string
	CheckOut         string
	LineCount        int
	TotalPax         int
	CaptureStatus    string
	FilledSlots      int
	TotalSlots       int
	Deadline         *time.Time
	DispatchCount    int
	LastDispatchedAt *time.Time
}

// ListFilter narrows the listing. Empty fields match everything.
// Limit <= 0 disables pagination and returns the full set.
type ListFilter struct {
	Game   string
	Hotel  string
	Seller string
	Search string
	Limit  int
	Offset int
}

// MatrixRow is one passenger slot with its recorded answers.
type MatrixRow struct {
	SlotID     uuid.UUID
	SlotIndex  int
	RoomLabel  string
	SlotStatus string
	Answers    map[string]string
	UpdatedBy  *uuid.UUID
	UpdatedAt  time.Time
}

// FilterOptions lists the distinct values available for the listing
// filters.
type FilterOptions struct {
	Games   []string `json:"games"`
	Hotels  []string `json:"hotels"`
	Sellers []string `json:"sellers"`
}

// Store is the read-model query port.
type Store interface {
	ListSummaries(ctx context.Context, filter ListFilter) ([]Summary, error)
	CountSummaries(ctx context.Context, filter ListFilter) (int, error)
	GetSummary(ctx context.Context, proposalID string) (Summary, bool, error)
	ListMatrixRows(ctx context.Context, proposalID string) ([]MatrixRow, error)
	GetFilterOptions(ctx context.Context) (FilterOptions, error)
}

// firsts picks each proposal's first line for the header fields, agg
// sums the rest.
const summaryCTE = `
	WITH firsts AS (
		SELECT DISTINCT ON (proposal_id)
			proposal_id, status, client_name, client_email, game_details,
			hotel, seller, check_in, check_out
		FROM sales_orders
		ORDER BY proposal_id, line_number
	), agg AS (
		SELECT proposal_id, count(*) AS line_count, COALESCE(sum(pax), 0) AS total_pax
		FROM sales_orders
		GROUP BY proposal_id
	), acc AS (
		SELECT proposal_id, sum(dispatch_count) AS dispatch_count, max(last_dispatched_at) AS last_dispatched_at
		FROM client_proposal_access
		GROUP BY proposal_id
	)
`

const summarySelect = `
	SELECT
		f.proposal_id, f.status, f.client_name, f.client_email, f.game_details,
		f.hotel, f.seller, f.check_in, f.check_out,
		a.line_count, a.total_pax,
		COALESCE(fi.status, ''), COALESCE(fi.filled_slots, 0), COALESCE(fi.total_slots, 0), fi.deadline,
		COALESCE(acc.dispatch_count, 0), acc.last_dispatched_at
	FROM firsts f
	JOIN agg a ON a.proposal_id = f.proposal_id
	LEFT JOIN form_instances fi ON fi.proposal_id = f.proposal_id
	LEFT JOIN acc ON acc.proposal_id = f.proposal_id
`

const summaryFilter = `
	WHERE ($1 = '' OR f.game_details ILIKE '%' || $1 || '%')
	  AND ($2 = '' OR f.hotel ILIKE '%' || $2 || '%')
	  AND ($3 = '' OR f.seller ILIKE '%' || $3 || '%')
	  AND ($4 = ''
		OR f.proposal_id ILIKE '%' || $4 || '%'
		OR f.client_name ILIKE '%' || $4 || '%'
		OR f.client_email ILIKE '%' || $4 || '%')
`

// Repository is the pgx-backed Store implementation.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSummary(scan func(dest ...any) error) (Summary, error) {
	var s Summary
	err := scan(
		&s.ProposalID, &s.Status, &s.ClientName, &s.ClientEmail, &s.GameDetails,
		&s.Hotel, &s.Seller, &s.CheckIn, &s.CheckOut,
		&s.LineCount, &s.TotalPax,
		&s.CaptureStatus, &s.FilledSlots, &s.TotalSlots, &s.Deadline,
		&s.DispatchCount, &s.LastDispatchedAt,
	)
	return s, err
}

func (r *Repository) ListSummaries(ctx context.Context, filter ListFilter) ([]Summary, error) {
	query := summaryCTE + summarySelect + summaryFilter + ` ORDER BY f.proposal_id DESC`
	args := []any{filter.Game, filter.Hotel, filter.Seller, filter.Search}
	if filter.Limit > 0 {
		query += ` LIMIT $5 OFFSET $6`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		s, err := scanSummary(rows.Scan)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *Repository) CountSummaries(ctx context.Context, filter ListFilter) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		summaryCTE+`SELECT count(*) FROM firsts f`+summaryFilter,
		filter.Game, filter.Hotel, filter.Seller, filter.Search,
	).Scan(&count)
	return count, err
}

func (r *Repository) GetSummary(ctx context.Context, proposalID string) (Summary, bool, error) {
	rows, err := r.pool.Query(ctx,
		summaryCTE+summarySelect+` WHERE f.proposal_id = $1`,
		proposalID)
	if err != nil {
		return Summary{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return Summary{}, false, rows.Err()
	}
	s, err := scanSummary(rows.Scan)
	if err != nil {
		return Summary{}, false, err
	}
	return s, true, rows.Err()
}

func (r *Repository) ListMatrixRows(ctx context.Context, proposalID string) ([]MatrixRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ps.id, ps.slot_index, ps.room_label, ps.status,
			COALESCE(fr.answers, '{}'::jsonb), fr.updated_by, ps.updated_at
		FROM passenger_slots ps
		JOIN form_instances fi ON fi.id = ps.form_instance_id
		LEFT JOIN form_responses fr ON fr.slot_id = ps.id
		WHERE fi.proposal_id = $1
		ORDER BY ps.room_label, ps.slot_index
	`, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matrix []MatrixRow
	for rows.Next() {
		var row MatrixRow
		if err := rows.Scan(
			&row.SlotID, &row.SlotIndex, &row.RoomLabel, &row.SlotStatus,
			&row.Answers, &row.UpdatedBy, &row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		matrix = append(matrix, row)
	}
	return matrix, rows.Err()
}

func (r *Repository) GetFilterOptions(ctx context.Context) (FilterOptions, error) {
	var options FilterOptions
	for _, q := range []struct {
		column string
		dest   *[]string
	}{
		{"game_details", &options.Games},
		{"hotel", &options.Hotels},
		{"seller", &options.Sellers},
	} {
		rows, err := r.pool.Query(ctx, `
			SELECT DISTINCT `+q.column+` FROM sales_orders
			WHERE `+q.column+` <> ''
			ORDER BY `+q.column,
		)
		if err != nil {
			return FilterOptions{}, err
		}
		for rows.Next() {
			var value string
			if err := rows.Scan(&value); err != nil {
				rows.Close()
				return FilterOptions{}, err
			}
			*q.dest = append(*q.dest, value)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return FilterOptions{}, err
		}
	}
	return options, nil
}

var _ Store = (*Repository)(nil)
