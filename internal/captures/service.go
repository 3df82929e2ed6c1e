package captures

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripforms_backend/internal/email"
	"tripforms_backend/internal/events"
	formsrepo "tripforms_backend/internal/forms/repository"
	"tripforms_backend/internal/policy"
	syncrepo "tripforms_backend/internal/sync/repository"
	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/config"
	"tripforms_backend/platform/logger"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// Proposal line status required before a dispatch is allowed.
const statusConfirmed = "CONFIRMED"

// OrderReader loads a proposal's synced order lines.
type OrderReader interface {
	ListOrdersByProposal(ctx context.Context, proposalID string) ([]syncrepo.SalesOrder, error)
}

// FormGenerator creates (or returns) the capture form for a proposal.
type FormGenerator interface {
	GenerateForProposal(ctx context.Context, proposalID string, orders []syncrepo.SalesOrder, deadline *time.Time) (formsrepo.FormInstance, error)
}

// ProvisionedUser is the client account backing a dispatch.
type ProvisionedUser struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	TempPassword string
	Created      bool
}

// UserProvisioner finds or creates the CLIENT account for an email.
type UserProvisioner interface {
	ProvisionClient(ctx context.Context, email, fullName string) (ProvisionedUser, error)
}

// Service implements the dispatch and manual-link flows.
type Service struct {
	store   Store
	orders  OrderReader
	forms   FormGenerator
	users   UserProvisioner
	mail    email.Sender
	cfg     config.NotificationConfig
	bus     events.Bus
	log     *logger.Logger
}

func NewService(store Store, orders OrderReader, forms FormGenerator, users UserProvisioner, mail email.Sender, cfg config.NotificationConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		orders: orders,
		forms:  forms,
		users:  users,
		mail:   mail,
		cfg:    cfg,
		bus:    bus,
		log:    log,
	}
}

// DispatchResult reports what a dispatch did. AccessToken is the
// credential embedded in FormURL.
type DispatchResult struct {
	Instance    formsrepo.FormInstance
	Access      Access
	AccessToken uuid.UUID
	UserCreated bool
	Redispatch  bool
	FormURL     string
}

// Dispatch hands a proposal's capture form to its client.
//
// Preconditions are checked before any state changes: the first order
// line must be CONFIRMED and a client email must be present. The form,
// account and access commit before the email goes out, so a send
// failure surfaces as an upstream error while the committed state
// stays put; the operator can recover with a manual link.
func (s *Service) Dispatch(ctx context.Context, actorID uuid.UUID, proposalID string, deadline *time.Time) (DispatchResult, error) {
	orders, provisioned, err := s.prepare(ctx, proposalID)
	if err != nil {
		return DispatchResult{}, err
	}

	instance, access, err := s.commit(ctx, proposalID, orders, provisioned, deadline, DispatchModeEmail, actorID)
	if err != nil {
		return DispatchResult{}, err
	}

	result := DispatchResult{
		Instance:    instance,
		Access:      access,
		AccessToken: access.AccessToken,
		UserCreated: provisioned.Created,
		Redispatch:  access.DispatchCount > 1,
		FormURL:     s.formURL(access.AccessToken),
	}

	first := orders[0]
	sendErr := s.mail.SendDispatchEmail(ctx, first.ClientEmail, email.DispatchData{
		ClientName:   first.ClientName,
		ProposalID:   proposalID,
		GameDetails:  first.GameDetails,
		FormURL:      result.FormURL,
		Deadline:     formatDeadline(deadline),
		LoginEmail:   provisioned.Email,
		TempPassword: provisioned.TempPassword,
	})

	s.bus.Publish(ctx, events.CaptureDispatched{
		BaseEvent:   events.NewBaseEvent(),
		ProposalID:  proposalID,
		ClientEmail: first.ClientEmail,
		UserID:      provisioned.ID,
		ActorID:     actorID,
		Redispatch:  result.Redispatch,
		EmailSent:   sendErr == nil,
	})

	if errors.Is(sendErr, email.ErrNotConfigured) {
		s.log.Warn("dispatch email skipped, sender not configured", "proposalId", proposalID)
		return result, apperr.Upstream("no email sender is configured").
			WithCode(apperr.CodeEmailNotConfigured)
	}
	if sendErr != nil {
		s.log.Error("dispatch email failed", "proposalId", proposalID, "error", sendErr)
		return result, apperr.Upstream("dispatch email failed").
			WithCode(apperr.CodeEmailSendFailed)
	}

	return result, nil
}

// ManualLink is a dispatch without email: the operator gets the form
// URL, a QR code for it and the credentials to pass on out of band.
type ManualLink struct {
	Instance     formsrepo.FormInstance
	AccessToken  uuid.UUID
	FormURL      string
	QRCodePNG    string
	LoginEmail   string
	TempPassword string
	UserCreated  bool
}

// GenerateLink runs the dispatch preconditions and state commit, then
// returns the access link instead of emailing it.
func (s *Service) GenerateLink(ctx context.Context, actorID uuid.UUID, proposalID string, deadline *time.Time) (ManualLink, error) {
	orders, provisioned, err := s.prepare(ctx, proposalID)
	if err != nil {
		return ManualLink{}, err
	}

	instance, access, err := s.commit(ctx, proposalID, orders, provisioned, deadline, DispatchModeManualLink, actorID)
	if err != nil {
		return ManualLink{}, err
	}

	formURL := s.formURL(access.AccessToken)
	png, err := qrcode.Encode(formURL, qrcode.Medium, 256)
	if err != nil {
		return ManualLink{}, fmt.Errorf("encode qr code: %w", err)
	}

	s.bus.Publish(ctx, events.CaptureLinkGenerated{
		BaseEvent:  events.NewBaseEvent(),
		ProposalID: proposalID,
		ActorID:    actorID,
	})

	return ManualLink{
		Instance:     instance,
		AccessToken:  access.AccessToken,
		FormURL:      formURL,
		QRCodePNG:    base64.StdEncoding.EncodeToString(png),
		LoginEmail:   provisioned.Email,
		TempPassword: provisioned.TempPassword,
		UserCreated:  provisioned.Created,
	}, nil
}

// MyProposals lists the proposals dispatched to the given account,
// newest dispatch first.
func (s *Service) MyProposals(ctx context.Context, userID uuid.UUID) ([]UserProposal, error) {
	return s.store.ListProposalsForUser(ctx, userID)
}

// ResolveToken maps a form URL token back to its access record.
// Clients may only resolve tokens minted for them; staff may resolve
// any.
func (s *Service) ResolveToken(ctx context.Context, actorID uuid.UUID, actorRole string, token uuid.UUID) (Access, error) {
	access, err := s.store.GetAccessByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return Access{}, apperr.NotFound("unknown access token")
	}
	if err != nil {
		return Access{}, err
	}
	if !policy.IsStaff(actorRole) && access.UserID != actorID {
		return Access{}, apperr.Forbidden("token belongs to another account")
	}
	return access, nil
}

// HasAccess reports whether the client holds an access record for the
// proposal. Satisfies the forms module's access port.
func (s *Service) HasAccess(ctx context.Context, userID uuid.UUID, proposalID string) (bool, error) {
	_, err := s.store.GetAccess(ctx, userID, proposalID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// prepare checks the dispatch preconditions and provisions the client
// account. No proposal-visible state changes happen here besides the
// account itself.
func (s *Service) prepare(ctx context.Context, proposalID string) ([]syncrepo.SalesOrder, ProvisionedUser, error) {
	orders, err := s.orders.ListOrdersByProposal(ctx, proposalID)
	if err != nil {
		return nil, ProvisionedUser{}, err
	}
	if len(orders) == 0 {
		return nil, ProvisionedUser{}, apperr.NotFound("proposal not found")
	}

	first := orders[0]
	if !strings.EqualFold(first.Status, statusConfirmed) {
		return nil, ProvisionedUser{}, apperr.Precondition("proposal is not confirmed").
			WithCode(apperr.CodeNotConfirmed)
	}
	if strings.TrimSpace(first.ClientEmail) == "" {
		return nil, ProvisionedUser{}, apperr.Precondition("proposal has no client email").
			WithCode(apperr.CodeNoEmail)
	}

	provisioned, err := s.users.ProvisionClient(ctx, first.ClientEmail, first.ClientName)
	if err != nil {
		return nil, ProvisionedUser{}, err
	}
	return orders, provisioned, nil
}

func (s *Service) commit(ctx context.Context, proposalID string, orders []syncrepo.SalesOrder, provisioned ProvisionedUser, deadline *time.Time, mode string, dispatchedBy uuid.UUID) (formsrepo.FormInstance, Access, error) {
	instance, err := s.forms.GenerateForProposal(ctx, proposalID, orders, deadline)
	if err != nil {
		return formsrepo.FormInstance{}, Access{}, err
	}

	access, err := s.store.UpsertAccess(ctx, provisioned.ID, proposalID, mode, dispatchedBy)
	if err != nil {
		return formsrepo.FormInstance{}, Access{}, err
	}
	return instance, access, nil
}

func (s *Service) formURL(token uuid.UUID) string {
	base := strings.TrimRight(s.cfg.GetAppBaseURL(), "/")
	return base + "/forms/" + token.String()
}

func formatDeadline(deadline *time.Time) string {
	if deadline == nil {
		return ""
	}
	return deadline.Format("02/01/2006")
}
