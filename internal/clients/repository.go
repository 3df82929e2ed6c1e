// Package clients manages the lifecycle of CLIENT accounts created by
// dispatches: listing with capture progress, deactivation, password
// reset and full deletion.
package clients

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// ClientSummary is one client account with its capture totals summed
// over every proposal it was dispatched.
type ClientSummary struct {
	ID                 uuid.UUID
	Email              string
	FullName           string
	IsActive           bool
	MustChangePassword bool
	LastLoginAt        *time.Time
	CreatedAt          time.Time
	ProposalCount      int
	TotalSlots         int
	FilledSlots        int
}

// ClientProposal is one proposal a client has access to, with its
// capture progress.
type ClientProposal struct {
	ProposalID       string
	DispatchCount    int
	LastDispatchedAt *time.Time
	CaptureStatus    string
	FilledSlots      int
	TotalSlots       int
	Deadline         *time.Time
}

// Store is the persistence port for client accounts.
type Store interface {
	ListClients(ctx context.Context, search string, limit, offset int) ([]ClientSummary, error)
	CountClients(ctx context.Context, search string) (int, error)
	GetClient(ctx context.Context, id uuid.UUID) (ClientSummary, error)
	ListClientProposals(ctx context.Context, id uuid.UUID) ([]ClientProposal, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// DeleteCascade removes the client and everything hanging off its
	// proposals in one transaction. Audit rows are detached, not
	// deleted, so the trail outlives the account.
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

const clientSummarySelect = `
	SELECT u.id, u.email, u.full_name, u.is_active, u.must_change_password,
		u.last_login_at, u.created_at,
		count(DISTINCT cpa.proposal_id),
		COALESCE(sum(fi.total_slots), 0), COALESCE(sum(fi.filled_slots), 0)
	FROM users u
	LEFT JOIN client_proposal_access cpa ON cpa.user_id = u.id
	LEFT JOIN form_instances fi ON fi.proposal_id = cpa.proposal_id
`

// Repository is the pgx-backed Store implementation.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanClient(scan func(dest ...any) error) (ClientSummary, error) {
	var c ClientSummary
	err := scan(
		&c.ID, &c.Email, &c.FullName, &c.IsActive, &c.MustChangePassword,
		&c.LastLoginAt, &c.CreatedAt,
		&c.ProposalCount, &c.TotalSlots, &c.FilledSlots,
	)
	return c, err
}

func (r *Repository) ListClients(ctx context.Context, search string, limit, offset int) ([]ClientSummary, error) {
	rows, err := r.pool.Query(ctx, clientSummarySelect+`
		WHERE u.role = 'CLIENT'
		  AND ($1 = '' OR u.email ILIKE '%' || $1 || '%' OR u.full_name ILIKE '%' || $1 || '%')
		GROUP BY u.id
		ORDER BY u.created_at DESC
		LIMIT $2 OFFSET $3
	`, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []ClientSummary
	for rows.Next() {
		client, err := scanClient(rows.Scan)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

func (r *Repository) CountClients(ctx context.Context, search string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM users u
		WHERE u.role = 'CLIENT'
		  AND ($1 = '' OR u.email ILIKE '%' || $1 || '%' OR u.full_name ILIKE '%' || $1 || '%')
	`, search).Scan(&count)
	return count, err
}

func (r *Repository) GetClient(ctx context.Context, id uuid.UUID) (ClientSummary, error) {
	client, err := scanClient(r.pool.QueryRow(ctx, clientSummarySelect+`
		WHERE u.id = $1 AND u.role = 'CLIENT'
		GROUP BY u.id
	`, id).Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return ClientSummary{}, ErrNotFound
	}
	return client, err
}

func (r *Repository) ListClientProposals(ctx context.Context, id uuid.UUID) ([]ClientProposal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cpa.proposal_id, cpa.dispatch_count, cpa.last_dispatched_at,
			COALESCE(fi.status, ''), COALESCE(fi.filled_slots, 0), COALESCE(fi.total_slots, 0), fi.deadline
		FROM client_proposal_access cpa
		LEFT JOIN form_instances fi ON fi.proposal_id = cpa.proposal_id
		WHERE cpa.user_id = $1
		ORDER BY cpa.created_at DESC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []ClientProposal
	for rows.Next() {
		var p ClientProposal
		if err := rows.Scan(
			&p.ProposalID, &p.DispatchCount, &p.LastDispatchedAt,
			&p.CaptureStatus, &p.FilledSlots, &p.TotalSlots, &p.Deadline,
		); err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_active = $2, updated_at = now()
		WHERE id = $1 AND role = 'CLIENT'
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Deletion order is load-bearing: responses before slots before
	// instances before accesses, then the user itself.
	const proposalsOfClient = `SELECT proposal_id FROM client_proposal_access WHERE user_id = $1`

	if _, err = tx.Exec(ctx, `
		DELETE FROM form_responses WHERE slot_id IN (
			SELECT ps.id FROM passenger_slots ps
			JOIN form_instances fi ON fi.id = ps.form_instance_id
			WHERE fi.proposal_id IN (`+proposalsOfClient+`)
		)
	`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `
		DELETE FROM passenger_slots WHERE form_instance_id IN (
			SELECT fi.id FROM form_instances fi
			WHERE fi.proposal_id IN (`+proposalsOfClient+`)
		)
	`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `
		DELETE FROM form_instances WHERE proposal_id IN (`+proposalsOfClient+`)
	`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `
		DELETE FROM client_proposal_access WHERE user_id = $1
	`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `
		UPDATE audit_logs SET user_id = NULL WHERE user_id = $1
	`, id); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM users WHERE id = $1 AND role = 'CLIENT'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = ErrNotFound
		return err
	}

	return tx.Commit(ctx)
}

var _ Store = (*Repository)(nil)
