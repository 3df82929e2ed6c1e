package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

const instanceColumns = `id, proposal_id, status, total_slots, filled_slots, deadline, dispatched_at, created_at, updated_at`

// Repository is the pgx-backed Store implementation.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanInstance(row pgx.Row) (FormInstance, error) {
	var inst FormInstance
	err := row.Scan(
		&inst.ID,
		&inst.ProposalID,
		&inst.Status,
		&inst.TotalSlots,
		&inst.FilledSlots,
		&inst.Deadline,
		&inst.DispatchedAt,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return FormInstance{}, ErrNotFound
	}
	return inst, err
}

func (r *Repository) CreateInstanceWithSlots(ctx context.Context, instance FormInstance, slots []PassengerSlot) (FormInstance, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return FormInstance{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	created, err := scanInstance(tx.QueryRow(ctx, `
		INSERT INTO form_instances (proposal_id, status, total_slots, filled_slots, deadline, dispatched_at)
		VALUES ($1, $2, $3, 0, $4, now())
		RETURNING `+instanceColumns,
		instance.ProposalID, StatusAwaitingFill, len(slots), instance.Deadline))
	if err != nil {
		return FormInstance{}, err
	}

	for _, slot := range slots {
		if _, err = tx.Exec(ctx, `
			INSERT INTO passenger_slots (form_instance_id, slot_index, room_label, status)
			VALUES ($1, $2, $3, $4)
		`, created.ID, slot.SlotIndex, slot.RoomLabel, SlotEmpty); err != nil {
			return FormInstance{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return FormInstance{}, err
	}
	return created, nil
}

func (r *Repository) GetInstanceByProposal(ctx context.Context, proposalID string) (FormInstance, error) {
	return scanInstance(r.pool.QueryRow(ctx, `
		SELECT `+instanceColumns+` FROM form_instances WHERE proposal_id = $1
	`, proposalID))
}

func (r *Repository) GetInstanceByID(ctx context.Context, instanceID uuid.UUID) (FormInstance, error) {
	return scanInstance(r.pool.QueryRow(ctx, `
		SELECT `+instanceColumns+` FROM form_instances WHERE id = $1
	`, instanceID))
}

func (r *Repository) UpdateInstanceProgress(ctx context.Context, instanceID uuid.UUID, filled int, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE form_instances SET filled_slots = $2, status = $3, updated_at = now()
		WHERE id = $1
	`, instanceID, filled, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateInstanceDispatch(ctx context.Context, instanceID uuid.UUID, deadline *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE form_instances SET deadline = $2, dispatched_at = now(), updated_at = now()
		WHERE id = $1
	`, instanceID, deadline)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireOverdue flips every overdue, unfinished instance to EXPIRED
// and reports how many changed.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE form_instances SET status = $2, updated_at = now()
		WHERE deadline IS NOT NULL
		  AND deadline < $1
		  AND status NOT IN ($3, $2)
	`, now, StatusExpired, StatusCompleted)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) ListSlots(ctx context.Context, instanceID uuid.UUID) ([]PassengerSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, form_instance_id, slot_index, room_label, status, created_at, updated_at
		FROM passenger_slots
		WHERE form_instance_id = $1
		ORDER BY room_label, slot_index
	`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []PassengerSlot
	for rows.Next() {
		var slot PassengerSlot
		if err := rows.Scan(&slot.ID, &slot.FormInstanceID, &slot.SlotIndex, &slot.RoomLabel, &slot.Status, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (r *Repository) GetSlot(ctx context.Context, slotID uuid.UUID) (PassengerSlot, error) {
	var slot PassengerSlot
	err := r.pool.QueryRow(ctx, `
		SELECT id, form_instance_id, slot_index, room_label, status, created_at, updated_at
		FROM passenger_slots WHERE id = $1
	`, slotID).Scan(&slot.ID, &slot.FormInstanceID, &slot.SlotIndex, &slot.RoomLabel, &slot.Status, &slot.CreatedAt, &slot.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PassengerSlot{}, ErrNotFound
	}
	return slot, err
}

func (r *Repository) MarkSlotFilled(ctx context.Context, slotID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE passenger_slots SET status = $2, updated_at = now() WHERE id = $1
	`, slotID, SlotFilled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CountFilledSlots(ctx context.Context, instanceID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM passenger_slots
		WHERE form_instance_id = $1 AND status = $2
	`, instanceID, SlotFilled).Scan(&count)
	return count, err
}

func (r *Repository) GetResponseBySlot(ctx context.Context, slotID uuid.UUID) (SlotResponse, error) {
	var resp SlotResponse
	err := r.pool.QueryRow(ctx, `
		SELECT id, slot_id, answers, updated_by, created_at, updated_at
		FROM form_responses WHERE slot_id = $1
	`, slotID).Scan(&resp.ID, &resp.SlotID, &resp.Answers, &resp.UpdatedBy, &resp.CreatedAt, &resp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SlotResponse{}, ErrNotFound
	}
	return resp, err
}

func (r *Repository) ListResponses(ctx context.Context, instanceID uuid.UUID) (map[uuid.UUID]SlotResponse, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT fr.id, fr.slot_id, fr.answers, fr.updated_by, fr.created_at, fr.updated_at
		FROM form_responses fr
		JOIN passenger_slots ps ON ps.id = fr.slot_id
		WHERE ps.form_instance_id = $1
	`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := make(map[uuid.UUID]SlotResponse)
	for rows.Next() {
		var resp SlotResponse
		if err := rows.Scan(&resp.ID, &resp.SlotID, &resp.Answers, &resp.UpdatedBy, &resp.CreatedAt, &resp.UpdatedAt); err != nil {
			return nil, err
		}
		responses[resp.SlotID] = resp
	}
	return responses, rows.Err()
}

func (r *Repository) UpsertResponse(ctx context.Context, slotID uuid.UUID, answers map[string]string, updatedBy uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO form_responses (slot_id, answers, updated_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot_id) DO UPDATE SET
			answers = EXCLUDED.answers,
			updated_by = EXCLUDED.updated_by,
			updated_at = now()
	`, slotID, answers, updatedBy)
	return err
}

var _ Store = (*Repository)(nil)
