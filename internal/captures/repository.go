// Package captures owns the dispatch side of the portal: handing a
// proposal's capture form to a client, by email or by manual link, and
// the access records that authorize the client to open it.
package captures

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// Dispatch modes recorded on an access.
const (
	DispatchModeEmail      = "EMAIL"
	DispatchModeManualLink = "MANUAL_LINK"
)

// Access authorizes one client account to open one proposal's form.
// AccessToken is the opaque credential embedded in form URLs; it is
// minted once and survives re-dispatches, which only reuse the row,
// refresh the mode and dispatcher and bump the counters.
type Access struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	ProposalID       string
	AccessToken      uuid.UUID
	DispatchMode     string
	DispatchedBy     uuid.UUID
	DispatchCount    int
	LastDispatchedAt *time.Time
	CreatedAt        time.Time
}

// UserProposal is one dispatched proposal as its client sees it in the
// portal landing list.
type UserProposal struct {
	ProposalID       string
	DispatchCount    int
	LastDispatchedAt *time.Time
	Status           string
	FilledSlots      int
	TotalSlots       int
	Deadline         *time.Time
}

// Store is the persistence port for access records.
type Store interface {
	UpsertAccess(ctx context.Context, userID uuid.UUID, proposalID, mode string, dispatchedBy uuid.UUID) (Access, error)
	GetAccess(ctx context.Context, userID uuid.UUID, proposalID string) (Access, error)
	GetAccessByToken(ctx context.Context, token uuid.UUID) (Access, error)
	ListAccessesByProposal(ctx context.Context, proposalID string) ([]Access, error)
	ListProposalsForUser(ctx context.Context, userID uuid.UUID) ([]UserProposal, error)
}

// Repository is the pgx-backed Store implementation.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accessColumns = `id, user_id, proposal_id, access_token, dispatch_mode, dispatched_by, dispatch_count, last_dispatched_at, created_at`

func scanAccess(row pgx.Row) (Access, error) {
	var access Access
	err := row.Scan(
		&access.ID, &access.UserID, &access.ProposalID,
		&access.AccessToken, &access.DispatchMode, &access.DispatchedBy,
		&access.DispatchCount, &access.LastDispatchedAt, &access.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Access{}, ErrNotFound
	}
	return access, err
}

func (r *Repository) UpsertAccess(ctx context.Context, userID uuid.UUID, proposalID, mode string, dispatchedBy uuid.UUID) (Access, error) {
	// The token is minted on insert only; a re-dispatch keeps form
	// URLs already in the wild working.
	return scanAccess(r.pool.QueryRow(ctx, `
		INSERT INTO client_proposal_access (user_id, proposal_id, dispatch_mode, dispatched_by, dispatch_count, last_dispatched_at)
		VALUES ($1, $2, $3, $4, 1, now())
		ON CONFLICT (user_id, proposal_id) DO UPDATE SET
			dispatch_mode = EXCLUDED.dispatch_mode,
			dispatched_by = EXCLUDED.dispatched_by,
			dispatch_count = client_proposal_access.dispatch_count + 1,
			last_dispatched_at = now()
		RETURNING `+accessColumns,
		userID, proposalID, mode, dispatchedBy))
}

func (r *Repository) GetAccess(ctx context.Context, userID uuid.UUID, proposalID string) (Access, error) {
	return scanAccess(r.pool.QueryRow(ctx, `
		SELECT `+accessColumns+`
		FROM client_proposal_access
		WHERE user_id = $1 AND proposal_id = $2
	`, userID, proposalID))
}

func (r *Repository) GetAccessByToken(ctx context.Context, token uuid.UUID) (Access, error) {
	return scanAccess(r.pool.QueryRow(ctx, `
		SELECT `+accessColumns+`
		FROM client_proposal_access
		WHERE access_token = $1
	`, token))
}

func (r *Repository) ListAccessesByProposal(ctx context.Context, proposalID string) ([]Access, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accessColumns+`
		FROM client_proposal_access
		WHERE proposal_id = $1
		ORDER BY created_at
	`, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accesses []Access
	for rows.Next() {
		access, err := scanAccess(rows)
		if err != nil {
			return nil, err
		}
		accesses = append(accesses, access)
	}
	return accesses, rows.Err()
}

func (r *Repository) ListProposalsForUser(ctx context.Context, userID uuid.UUID) ([]UserProposal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cpa.proposal_id, cpa.dispatch_count, cpa.last_dispatched_at,
			COALESCE(fi.status, ''), COALESCE(fi.filled_slots, 0), COALESCE(fi.total_slots, 0), fi.deadline
		FROM client_proposal_access cpa
		LEFT JOIN form_instances fi ON fi.proposal_id = cpa.proposal_id
		WHERE cpa.user_id = $1
		ORDER BY cpa.last_dispatched_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []UserProposal
	for rows.Next() {
		var p UserProposal
		if err := rows.Scan(
			&p.ProposalID, &p.DispatchCount, &p.LastDispatchedAt,
			&p.Status, &p.FilledSlots, &p.TotalSlots, &p.Deadline,
		); err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

var _ Store = (*Repository)(nil)
