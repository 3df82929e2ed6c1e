package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the pgx-backed Store implementation.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetHashesByKeys(ctx context.Context, keys []OrderKey) (map[OrderKey]string, error) {
	if len(keys) == 0 {
		return map[OrderKey]string{}, nil
	}

	proposals := make([]string, len(keys))
	lines := make([]int, len(keys))
	for i, key := range keys {
		proposals[i] = key.ProposalID
		lines[i] = key.LineNumber
	}

	// unnest pairs the two arrays positionally, so one round trip
	// covers the whole batch.
	rows, err := r.pool.Query(ctx, `
		SELECT so.proposal_id, so.line_number, so.raw_hash
		FROM sales_orders so
		JOIN unnest($1::text[], $2::int[]) AS k(proposal_id, line_number)
		  ON so.proposal_id = k.proposal_id AND so.line_number = k.line_number
	`, proposals, lines)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := make(map[OrderKey]string, len(keys))
	for rows.Next() {
		var key OrderKey
		var hash string
		if err := rows.Scan(&key.ProposalID, &key.LineNumber, &hash); err != nil {
			return nil, err
		}
		hashes[key] = hash
	}
	return hashes, rows.Err()
}

func (r *Repository) UpsertOrder(ctx context.Context, order SalesOrder) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sales_orders (
			proposal_id, line_number, status, client_name, client_email,
			game_details, hotel, room_type, rooms, pax,
			check_in, check_out, ticket_category, seller, raw_data, raw_hash, synced_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now())
		ON CONFLICT (proposal_id, line_number) DO UPDATE SET
			status = EXCLUDED.status,
			client_name = EXCLUDED.client_name,
			client_email = EXCLUDED.client_email,
			game_details = EXCLUDED.game_details,
			hotel = EXCLUDED.hotel,
			room_type = EXCLUDED.room_type,
			rooms = EXCLUDED.rooms,
			pax = EXCLUDED.pax,
			check_in = EXCLUDED.check_in,
			check_out = EXCLUDED.check_out,
			ticket_category = EXCLUDED.ticket_category,
			seller = EXCLUDED.seller,
			raw_data = EXCLUDED.raw_data,
			raw_hash = EXCLUDED.raw_hash,
			synced_at = now(),
			updated_at = now()
	`,
		order.ProposalID, order.LineNumber, order.Status, order.ClientName, order.ClientEmail,
		order.GameDetails, order.Hotel, order.RoomType, order.Rooms, order.Pax,
		order.CheckIn, order.CheckOut, order.TicketCategory, order.Seller, order.RawData, order.RawHash,
	)
	return err
}

func (r *Repository) ListOrdersByProposal(ctx context.Context, proposalID string) ([]SalesOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, proposal_id, line_number, status, client_name, client_email,
			game_details, hotel, room_type, rooms, pax,
			check_in, check_out, ticket_category, seller, raw_data, raw_hash,
			synced_at, created_at, updated_at
		FROM sales_orders
		WHERE proposal_id = $1
		ORDER BY line_number
	`, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []SalesOrder
	for rows.Next() {
		var o SalesOrder
		if err := rows.Scan(
			&o.ID, &o.ProposalID, &o.LineNumber, &o.Status, &o.ClientName, &o.ClientEmail,
			&o.GameDetails, &o.Hotel, &o.RoomType, &o.Rooms, &o.Pax,
			&o.CheckIn, &o.CheckOut, &o.TicketCategory, &o.Seller, &o.RawData, &o.RawHash,
			&o.SyncedAt, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *Repository) CreateSyncLog(ctx context.Context, trigger string) (SyncLog, error) {
	var log SyncLog
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sync_logs (status, trigger)
		VALUES ($1, $2)
		RETURNING id, status, trigger, rows_read, rows_upserted, rows_skipped, rows_errored, errors, started_at, finished_at
	`, StatusRunning, trigger).Scan(
		&log.ID, &log.Status, &log.Trigger,
		&log.RowsRead, &log.RowsUpserted, &log.RowsSkipped, &log.RowsErrored,
		&log.Errors, &log.StartedAt, &log.FinishedAt,
	)
	return log, err
}

func (r *Repository) FinalizeSyncLog(ctx context.Context, id uuid.UUID, status string, counts Counts, errs []string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sync_logs SET
			status = $2,
			rows_read = $3,
			rows_upserted = $4,
			rows_skipped = $5,
			rows_errored = $6,
			errors = $7,
			finished_at = now()
		WHERE id = $1
	`, id, status, counts.Read, counts.Upserted, counts.Skipped, counts.Errored, errs)
	return err
}

func (r *Repository) ListSyncLogs(ctx context.Context, limit int) ([]SyncLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, status, trigger, rows_read, rows_upserted, rows_skipped, rows_errored, errors, started_at, finished_at
		FROM sync_logs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []SyncLog
	for rows.Next() {
		var log SyncLog
		if err := rows.Scan(
			&log.ID, &log.Status, &log.Trigger,
			&log.RowsRead, &log.RowsUpserted, &log.RowsSkipped, &log.RowsErrored,
			&log.Errors, &log.StartedAt, &log.FinishedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

var _ Store = (*Repository)(nil)
