package captures

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"tripforms_backend/internal/email"
	"tripforms_backend/internal/events"
	formsrepo "tripforms_backend/internal/forms/repository"
	syncrepo "tripforms_backend/internal/sync/repository"
	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeAccessStore struct {
	accesses map[string]Access
}

func newFakeAccessStore() *fakeAccessStore {
	return &fakeAccessStore{accesses: map[string]Access{}}
}

func accessKey(userID uuid.UUID, proposalID string) string {
	return userID.String() + "/" + proposalID
}

func (s *fakeAccessStore) UpsertAccess(_ context.Context, userID uuid.UUID, proposalID, mode string, dispatchedBy uuid.UUID) (Access, error) {
	key := accessKey(userID, proposalID)
	now := time.Now()
	access, ok := s.accesses[key]
	if !ok {
		access = Access{ID: uuid.New(), UserID: userID, ProposalID: proposalID, AccessToken: uuid.New()}
	}
	access.DispatchMode = mode
	access.DispatchedBy = dispatchedBy
	access.DispatchCount++
	access.LastDispatchedAt = &now
	s.accesses[key] = access
	return access, nil
}

func (s *fakeAccessStore) GetAccessByToken(_ context.Context, token uuid.UUID) (Access, error) {
	for _, access := range s.accesses {
		if access.AccessToken == token {
			return access, nil
		}
	}
	return Access{}, ErrNotFound
}

func (s *fakeAccessStore) GetAccess(_ context.Context, userID uuid.UUID, proposalID string) (Access, error) {
	access, ok := s.accesses[accessKey(userID, proposalID)]
	if !ok {
		return Access{}, ErrNotFound
	}
	return access, nil
}

func (s *fakeAccessStore) ListAccessesByProposal(_ context.Context, proposalID string) ([]Access, error) {
	var out []Access
	for _, access := range s.accesses {
		if access.ProposalID == proposalID {
			out = append(out, access)
		}
	}
	return out, nil
}

func (s *fakeAccessStore) ListProposalsForUser(_ context.Context, userID uuid.UUID) ([]UserProposal, error) {
	var out []UserProposal
	for _, access := range s.accesses {
		if access.UserID == userID {
			out = append(out, UserProposal{
				ProposalID:       access.ProposalID,
				DispatchCount:    access.DispatchCount,
				LastDispatchedAt: access.LastDispatchedAt,
			})
		}
	}
	return out, nil
}

var _ Store = (*fakeAccessStore)(nil)

type fakeOrders struct {
	orders map[string][]syncrepo.SalesOrder
}

func (f *fakeOrders) ListOrdersByProposal(_ context.Context, proposalID string) ([]syncrepo.SalesOrder, error) {
	return f.orders[proposalID], nil
}

type fakeForms struct {
	generated int
}

func (f *fakeForms) GenerateForProposal(_ context.Context, proposalID string, orders []syncrepo.SalesOrder, deadline *time.Time) (formsrepo.FormInstance, error) {
	f.generated++
	total := 0
	for _, o := range orders {
		total += o.Pax
	}
	return formsrepo.FormInstance{
		ID:         uuid.New(),
		ProposalID: proposalID,
		Status:     formsrepo.StatusAwaitingFill,
		TotalSlots: total,
		Deadline:   deadline,
	}, nil
}

type fakeProvisioner struct {
	provisioned int
	existing    map[string]uuid.UUID
}

func (f *fakeProvisioner) ProvisionClient(_ context.Context, addr, fullName string) (ProvisionedUser, error) {
	f.provisioned++
	if f.existing == nil {
		f.existing = map[string]uuid.UUID{}
	}
	if id, ok := f.existing[addr]; ok {
		return ProvisionedUser{ID: id, Email: addr, FullName: fullName}, nil
	}
	id := uuid.New()
	f.existing[addr] = id
	return ProvisionedUser{ID: id, Email: addr, FullName: fullName, TempPassword: "Temp1234!", Created: true}, nil
}

type fakeSender struct {
	sent []email.DispatchData
	err  error
}

func (f *fakeSender) SendDispatchEmail(_ context.Context, _ string, data email.DispatchData) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeSender) SendPasswordResetEmail(context.Context, string, string, string, string) error {
	return f.err
}

func (f *fakeSender) SendCustomEmail(context.Context, string, string, string) error {
	return f.err
}

type fakeNotificationConfig struct{}

func (fakeNotificationConfig) GetAppBaseURL() string { return "https://portal.example.com/" }

func confirmedOrders(addr string) []syncrepo.SalesOrder {
	return []syncrepo.SalesOrder{{
		ProposalID:  "20250601",
		LineNumber:  1,
		Status:      "CONFIRMED",
		ClientName:  "Ana Souza",
		ClientEmail: addr,
		GameDetails: "BRA x ARG",
		Hotel:       "Hilton",
		RoomType:    "Double",
		Rooms:       1,
		Pax:         2,
	}}
}

type captureFixture struct {
	svc         *Service
	store       *fakeAccessStore
	forms       *fakeForms
	provisioner *fakeProvisioner
	sender      *fakeSender
}

func newCaptureFixture(orders []syncrepo.SalesOrder) *captureFixture {
	f := &captureFixture{
		store:       newFakeAccessStore(),
		forms:       &fakeForms{},
		provisioner: &fakeProvisioner{},
		sender:      &fakeSender{},
	}
	log := logger.New("test")
	f.svc = NewService(
		f.store,
		&fakeOrders{orders: map[string][]syncrepo.SalesOrder{"20250601": orders}},
		f.forms,
		f.provisioner,
		f.sender,
		fakeNotificationConfig{},
		events.NewInMemoryBus(log),
		log,
	)
	return f
}

func TestDispatchHappyPath(t *testing.T) {
	f := newCaptureFixture(confirmedOrders("ana@example.com"))

	actorID := uuid.New()
	result, err := f.svc.Dispatch(context.Background(), actorID, "20250601", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.UserCreated {
		t.Fatalf("expected a new client account on first dispatch")
	}
	if result.Redispatch {
		t.Fatalf("first dispatch must not be a redispatch")
	}
	if result.AccessToken == uuid.Nil {
		t.Fatalf("dispatch must return the access token")
	}
	if result.FormURL != "https://portal.example.com/forms/"+result.AccessToken.String() {
		t.Fatalf("the form url must carry the token, got %q", result.FormURL)
	}
	if result.Access.DispatchMode != DispatchModeEmail {
		t.Fatalf("expected mode %s, got %q", DispatchModeEmail, result.Access.DispatchMode)
	}
	if result.Access.DispatchedBy != actorID {
		t.Fatalf("the access must record who dispatched")
	}
	if result.Instance.TotalSlots != 2 {
		t.Fatalf("expected 2 slots, got %d", result.Instance.TotalSlots)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("expected 1 dispatch email, got %d", len(f.sender.sent))
	}
	if f.sender.sent[0].TempPassword == "" {
		t.Fatalf("first dispatch email must carry the temp password")
	}
}

func TestDispatchRejectsUnconfirmedProposals(t *testing.T) {
	orders := confirmedOrders("ana@example.com")
	orders[0].Status = "PENDING"
	f := newCaptureFixture(orders)

	_, err := f.svc.Dispatch(context.Background(), uuid.New(), "20250601", nil)
	if apperr.GetCode(err) != apperr.CodeNotConfirmed {
		t.Fatalf("expected %s, got %v", apperr.CodeNotConfirmed, err)
	}
	if f.forms.generated != 0 || len(f.store.accesses) != 0 {
		t.Fatalf("a rejected dispatch must not create state")
	}
}

func TestDispatchRejectsProposalsWithoutEmail(t *testing.T) {
	f := newCaptureFixture(confirmedOrders("   "))

	_, err := f.svc.Dispatch(context.Background(), uuid.New(), "20250601", nil)
	if apperr.GetCode(err) != apperr.CodeNoEmail {
		t.Fatalf("expected %s, got %v", apperr.CodeNoEmail, err)
	}
	if f.provisioner.provisioned != 0 {
		t.Fatalf("must not provision an account without an email")
	}
}

func TestDispatchUnknownProposalIsNotFound(t *testing.T) {
	f := newCaptureFixture(confirmedOrders("ana@example.com"))

	_, err := f.svc.Dispatch(context.Background(), uuid.New(), "99999999", nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRedispatchReusesAccessAndBumpsCounter(t *testing.T) {
	f := newCaptureFixture(confirmedOrders("ana@example.com"))

	first, err := f.svc.Dispatch(context.Background(), uuid.New(), "20250601", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	result, err := f.svc.Dispatch(context.Background(), uuid.New(), "20250601", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.Redispatch {
		t.Fatalf("second dispatch must be flagged as redispatch")
	}
	if result.Access.DispatchCount != 2 {
		t.Fatalf("expected dispatch count 2, got %d", result.Access.DispatchCount)
	}
	if result.AccessToken != first.AccessToken {
		t.Fatalf("redispatch must keep the original token")
	}
	if result.UserCreated {
		t.Fatalf("redispatch must reuse the existing account")
	}
	if len(f.store.accesses) != 1 {
		t.Fatalf("redispatch must not create a second access record")
	}

	link, err := f.svc.GenerateLink(context.Background(), uuid.New(), "20250601", nil)
	if err != nil {
		t.Fatalf("GenerateLink: %v", err)
	}
	if link.AccessToken != first.AccessToken {
		t.Fatalf("a manual-link redispatch must keep the token")
	}
	for _, access := range f.store.accesses {
		if access.DispatchMode != DispatchModeManualLink {
			t.Fatalf("redispatch must record the latest mode, got %q", access.DispatchMode)
		}
	}
}

func TestDispatchEmailFailureIsUpstreamErrorAndKeepsState(t *testing.T) {
	f := newCaptureFixture(confirmedOrders("ana@example.com"))
	f.sender.err = errors.New("smtp timeout")

	_, err := f.svc.Dispatch(context.Background(), uuid.New(), "20250601", nil)
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected an upstream error, got %v", err)
	}
	if apperr.GetCode(err) != apperr.CodeEmailSendFailed {
		t.Fatalf("expected %s, got %v", apperr.CodeEmailSendFailed, err)
	}
	if len(f.store.accesses) != 1 || f.forms.generated != 1 {
		t.Fatalf("form and access must stay committed after an email failure")
	}
}

func TestDispatchReportsUnconfiguredSender(t *testing.T) {
	f := newCaptureFixture(confirmedOrders("ana@example.com"))
	f.sender.err = email.ErrNotConfigured

	_, err := f.svc.Dispatch(context.Background(), uuid.New(), "20250601", nil)
	if apperr.GetCode(err) != apperr.CodeEmailNotConfigured {
		t.Fatalf("expected %s, got %v", apperr.CodeEmailNotConfigured, err)
	}
	if len(f.store.accesses) != 1 {
		t.Fatalf("the committed state must survive a missing sender")
	}
}

func TestGenerateLinkReturnsQRCodeWithoutEmailing(t *testing.T) {
	f := newCaptureFixture(confirmedOrders("ana@example.com"))

	link, err := f.svc.GenerateLink(context.Background(), uuid.New(), "20250601", nil)
	if err != nil {
		t.Fatalf("GenerateLink: %v", err)
	}
	if link.AccessToken == uuid.Nil {
		t.Fatalf("manual link must return the access token")
	}
	if link.FormURL != "https://portal.example.com/forms/"+link.AccessToken.String() {
		t.Fatalf("unexpected form url %q", link.FormURL)
	}
	if _, err := base64.StdEncoding.DecodeString(link.QRCodePNG); err != nil || link.QRCodePNG == "" {
		t.Fatalf("expected base64 QR code png, got %v", err)
	}
	if link.LoginEmail != "ana@example.com" || link.TempPassword == "" {
		t.Fatalf("manual link must carry the credentials")
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("manual link must not send email")
	}
	if len(f.store.accesses) != 1 {
		t.Fatalf("manual link still grants access")
	}
}

func TestResolveTokenEnforcesOwnership(t *testing.T) {
	f := newCaptureFixture(confirmedOrders("ana@example.com"))

	result, err := f.svc.Dispatch(context.Background(), uuid.New(), "20250601", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	owner := result.Access.UserID

	access, err := f.svc.ResolveToken(context.Background(), owner, "CLIENT", result.AccessToken)
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if access.ProposalID != "20250601" {
		t.Fatalf("expected proposal 20250601, got %q", access.ProposalID)
	}

	if _, err := f.svc.ResolveToken(context.Background(), uuid.New(), "CLIENT", result.AccessToken); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("another client must not resolve the token, got %v", err)
	}
	if _, err := f.svc.ResolveToken(context.Background(), uuid.New(), "ADMIN", result.AccessToken); err != nil {
		t.Fatalf("staff may resolve any token: %v", err)
	}
	if _, err := f.svc.ResolveToken(context.Background(), owner, "CLIENT", uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("an unknown token is not found, got %v", err)
	}
}

func TestHasAccessReflectsAccessRecords(t *testing.T) {
	f := newCaptureFixture(confirmedOrders("ana@example.com"))

	userID := uuid.New()
	ok, err := f.svc.HasAccess(context.Background(), userID, "20250601")
	if err != nil || ok {
		t.Fatalf("expected no access before dispatch, got ok=%v err=%v", ok, err)
	}

	if _, err := f.store.UpsertAccess(context.Background(), userID, "20250601", DispatchModeEmail, uuid.New()); err != nil {
		t.Fatalf("UpsertAccess: %v", err)
	}
	ok, err = f.svc.HasAccess(context.Background(), userID, "20250601")
	if err != nil || !ok {
		t.Fatalf("expected access after dispatch, got ok=%v err=%v", ok, err)
	}
}
