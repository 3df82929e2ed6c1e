package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is a single audit trail record. UserID is nullable so entries
// survive user deletion.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	UserID     *uuid.UUID      `json:"userId,omitempty"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// ListFilter narrows audit listings.
type ListFilter struct {
	Action     string
	EntityType string
	EntityID   string
	Limit      int
	Offset     int
}

// Store is the persistence port for the audit trail.
type Store interface {
	Insert(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter ListFilter) ([]Entry, int, error)
	DetachUser(ctx context.Context, userID uuid.UUID) error
}

// Repository is the pgx-backed Store implementation.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.UserID, entry.Action, entry.EntityType, entry.EntityID, entry.Details)
	return err
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	where := `WHERE ($1 = '' OR action = $1)
		AND ($2 = '' OR entity_type = $2)
		AND ($3 = '' OR entity_id = $3)`

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM audit_logs `+where,
		filter.Action, filter.EntityType, filter.EntityID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, action, entity_type, entity_id, details, created_at
		FROM audit_logs `+where+`
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, filter.Action, filter.EntityType, filter.EntityID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// DetachUser nulls the user reference on entries belonging to a
// deleted account. The entries themselves are retained.
func (r *Repository) DetachUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE audit_logs SET user_id = NULL WHERE user_id = $1
	`, userID)
	return err
}

var _ Store = (*Repository)(nil)
