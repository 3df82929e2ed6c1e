package clients

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"tripforms_backend/internal/email"
	"tripforms_backend/internal/events"
	"tripforms_backend/internal/proposals"
	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/config"
	"tripforms_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PasswordResetter issues a fresh temporary password for an account.
type PasswordResetter interface {
	ResetPassword(ctx context.Context, userID uuid.UUID) (string, error)
}

// Service manages client accounts on behalf of staff.
type Service struct {
	store Store
	auth  PasswordResetter
	mail  email.Sender
	cfg   config.NotificationConfig
	bus   events.Bus
	log   *logger.Logger
}

func NewService(store Store, auth PasswordResetter, mail email.Sender, cfg config.NotificationConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, auth: auth, mail: mail, cfg: cfg, bus: bus, log: log}
}

// ClientView is one client account in the listing.
type ClientView struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	FullName           string     `json:"fullName"`
	IsActive           bool       `json:"isActive"`
	MustChangePassword bool       `json:"mustChangePassword"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	ProposalCount      int        `json:"proposalCount"`
	TotalSlots         int        `json:"totalSlots"`
	FilledSlots        int        `json:"filledSlots"`
	ProgressPercent    int        `json:"progressPercent"`
}

// ListResult is one page of the client listing.
type ListResult struct {
	Items    []ClientView `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

func (s *Service) List(ctx context.Context, search string, page, pageSize int) (ListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	search = strings.TrimSpace(search)

	summaries, err := s.store.ListClients(ctx, search, pageSize, (page-1)*pageSize)
	if err != nil {
		return ListResult{}, err
	}
	total, err := s.store.CountClients(ctx, search)
	if err != nil {
		return ListResult{}, err
	}

	items := make([]ClientView, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, toClientView(summary))
	}
	return ListResult{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ClientProposalView is one dispatched proposal in the client detail.
type ClientProposalView struct {
	ProposalID       string     `json:"proposalId"`
	DispatchCount    int        `json:"dispatchCount"`
	LastDispatchedAt *time.Time `json:"lastDispatchedAt,omitempty"`
	CaptureStatus    string     `json:"captureStatus"`
	FilledSlots      int        `json:"filledSlots"`
	TotalSlots       int        `json:"totalSlots"`
	ProgressPercent  int        `json:"progressPercent"`
	Deadline         *time.Time `json:"deadline,omitempty"`
}

// ClientDetail is a client with its per-proposal progress.
type ClientDetail struct {
	ClientView
	Proposals []ClientProposalView `json:"proposals"`
}

func (s *Service) Detail(ctx context.Context, clientID uuid.UUID) (ClientDetail, error) {
	summary, err := s.getClient(ctx, clientID)
	if err != nil {
		return ClientDetail{}, err
	}

	clientProposals, err := s.store.ListClientProposals(ctx, clientID)
	if err != nil {
		return ClientDetail{}, err
	}

	views := make([]ClientProposalView, 0, len(clientProposals))
	for _, p := range clientProposals {
		status := p.CaptureStatus
		if status == "" {
			status = proposals.StatusNotDispatched
		}
		views = append(views, ClientProposalView{
			ProposalID:       p.ProposalID,
			DispatchCount:    p.DispatchCount,
			LastDispatchedAt: p.LastDispatchedAt,
			CaptureStatus:    status,
			FilledSlots:      p.FilledSlots,
			TotalSlots:       p.TotalSlots,
			ProgressPercent:  percent(p.FilledSlots, p.TotalSlots),
			Deadline:         p.Deadline,
		})
	}
	return ClientDetail{ClientView: toClientView(summary), Proposals: views}, nil
}

// Deactivate blocks the client from signing in. Access records and
// answers stay untouched.
func (s *Service) Deactivate(ctx context.Context, actorID, clientID uuid.UUID) error {
	if err := s.store.SetActive(ctx, clientID, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("client not found")
		}
		return err
	}

	s.bus.Publish(ctx, events.ClientDeactivated{
		BaseEvent: events.NewBaseEvent(),
		UserID:    clientID,
		ActorID:   actorID,
	})
	return nil
}

// Delete removes the client and every record created for it, in one
// transaction. Audit rows survive with the user reference nulled.
func (s *Service) Delete(ctx context.Context, actorID, clientID uuid.UUID) error {
	summary, err := s.getClient(ctx, clientID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteCascade(ctx, clientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("client not found")
		}
		return err
	}

	s.bus.Publish(ctx, events.ClientDeleted{
		BaseEvent: events.NewBaseEvent(),
		UserID:    clientID,
		Email:     summary.Email,
		ActorID:   actorID,
	})
	return nil
}

// ResetResult reports a password reset. The temp password is returned
// so staff can hand it over when the email did not go out.
type ResetResult struct {
	TempPassword string
	EmailSent    bool
	EmailError   string
}

// ResetPassword issues a fresh temporary password and emails it to the
// client. The reset sticks even when the email fails.
func (s *Service) ResetPassword(ctx context.Context, actorID, clientID uuid.UUID) (ResetResult, error) {
	summary, err := s.getClient(ctx, clientID)
	if err != nil {
		return ResetResult{}, err
	}

	tempPassword, err := s.auth.ResetPassword(ctx, clientID)
	if err != nil {
		return ResetResult{}, err
	}

	result := ResetResult{TempPassword: tempPassword}
	loginURL := strings.TrimRight(s.cfg.GetAppBaseURL(), "/") + "/login"
	sendErr := s.mail.SendPasswordResetEmail(ctx, summary.Email, summary.FullName, tempPassword, loginURL)
	switch {
	case sendErr == nil:
		result.EmailSent = true
	case errors.Is(sendErr, email.ErrNotConfigured):
		result.EmailError = apperr.CodeEmailNotConfigured
		s.log.Warn("password reset email skipped, sender not configured", "clientId", clientID)
	default:
		result.EmailError = apperr.CodeEmailSendFailed
		s.log.Error("password reset email failed", "clientId", clientID, "error", sendErr)
	}

	s.bus.Publish(ctx, events.ClientPasswordReset{
		BaseEvent: events.NewBaseEvent(),
		UserID:    clientID,
		ActorID:   actorID,
	})
	return result, nil
}

func (s *Service) getClient(ctx context.Context, clientID uuid.UUID) (ClientSummary, error) {
	summary, err := s.store.GetClient(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return ClientSummary{}, apperr.NotFound("client not found")
	}
	return summary, err
}

func toClientView(c ClientSummary) ClientView {
	return ClientView{
		ID:                 c.ID,
		Email:              c.Email,
		FullName:           c.FullName,
		IsActive:           c.IsActive,
		MustChangePassword: c.MustChangePassword,
		LastLoginAt:        c.LastLoginAt,
		CreatedAt:          c.CreatedAt,
		ProposalCount:      c.ProposalCount,
		TotalSlots:         c.TotalSlots,
		FilledSlots:        c.FilledSlots,
		ProgressPercent:    percent(c.FilledSlots, c.TotalSlots),
	}
}

func percent(filled, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(filled) / float64(total) * 100))
}
