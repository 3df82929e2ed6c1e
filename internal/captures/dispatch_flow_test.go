package captures

import (
	"context"
	"testing"
	"time"

	"tripforms_backend/internal/events"
	"tripforms_backend/internal/fields"
	formsrepo "tripforms_backend/internal/forms/repository"
	formsservice "tripforms_backend/internal/forms/service"
	"tripforms_backend/internal/policy"
	syncrepo "tripforms_backend/internal/sync/repository"
	"tripforms_backend/platform/logger"

	"github.com/google/uuid"
)

// formsStore is an in-memory forms repository so the dispatch flow can
// run against the real forms service instead of a stub generator.
type formsStore struct {
	instances  map[uuid.UUID]formsrepo.FormInstance
	byProposal map[string]uuid.UUID
	slots      map[uuid.UUID]formsrepo.PassengerSlot
	responses  map[uuid.UUID]formsrepo.SlotResponse
}

func newFormsStore() *formsStore {
	return &formsStore{
		instances:  map[uuid.UUID]formsrepo.FormInstance{},
		byProposal: map[string]uuid.UUID{},
		slots:      map[uuid.UUID]formsrepo.PassengerSlot{},
		responses:  map[uuid.UUID]formsrepo.SlotResponse{},
	}
}

func (s *formsStore) CreateInstanceWithSlots(_ context.Context, instance formsrepo.FormInstance, slots []formsrepo.PassengerSlot) (formsrepo.FormInstance, error) {
	instance.ID = uuid.New()
	instance.Status = formsrepo.StatusAwaitingFill
	instance.TotalSlots = len(slots)
	instance.DispatchedAt = time.Now()
	s.instances[instance.ID] = instance
	s.byProposal[instance.ProposalID] = instance.ID

	for _, slot := range slots {
		slot.ID = uuid.New()
		slot.FormInstanceID = instance.ID
		s.slots[slot.ID] = slot
	}
	return instance, nil
}

func (s *formsStore) GetInstanceByProposal(_ context.Context, proposalID string) (formsrepo.FormInstance, error) {
	id, ok := s.byProposal[proposalID]
	if !ok {
		return formsrepo.FormInstance{}, formsrepo.ErrNotFound
	}
	return s.instances[id], nil
}

func (s *formsStore) GetInstanceByID(_ context.Context, instanceID uuid.UUID) (formsrepo.FormInstance, error) {
	instance, ok := s.instances[instanceID]
	if !ok {
		return formsrepo.FormInstance{}, formsrepo.ErrNotFound
	}
	return instance, nil
}

func (s *formsStore) UpdateInstanceProgress(_ context.Context, instanceID uuid.UUID, filled int, status string) error {
	instance := s.instances[instanceID]
	instance.FilledSlots = filled
	instance.Status = status
	s.instances[instanceID] = instance
	return nil
}

func (s *formsStore) UpdateInstanceDispatch(_ context.Context, instanceID uuid.UUID, deadline *time.Time) error {
	instance, ok := s.instances[instanceID]
	if !ok {
		return formsrepo.ErrNotFound
	}
	instance.Deadline = deadline
	instance.DispatchedAt = time.Now()
	s.instances[instanceID] = instance
	return nil
}

func (s *formsStore) ExpireOverdue(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s *formsStore) ListSlots(_ context.Context, instanceID uuid.UUID) ([]formsrepo.PassengerSlot, error) {
	var slots []formsrepo.PassengerSlot
	for _, slot := range s.slots {
		if slot.FormInstanceID == instanceID {
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

func (s *formsStore) GetSlot(_ context.Context, slotID uuid.UUID) (formsrepo.PassengerSlot, error) {
	slot, ok := s.slots[slotID]
	if !ok {
		return formsrepo.PassengerSlot{}, formsrepo.ErrNotFound
	}
	return slot, nil
}

func (s *formsStore) MarkSlotFilled(_ context.Context, slotID uuid.UUID) error {
	slot := s.slots[slotID]
	slot.Status = formsrepo.SlotFilled
	s.slots[slotID] = slot
	return nil
}

func (s *formsStore) CountFilledSlots(_ context.Context, instanceID uuid.UUID) (int, error) {
	count := 0
	for _, slot := range s.slots {
		if slot.FormInstanceID == instanceID && slot.Status == formsrepo.SlotFilled {
			count++
		}
	}
	return count, nil
}

func (s *formsStore) GetResponseBySlot(_ context.Context, slotID uuid.UUID) (formsrepo.SlotResponse, error) {
	resp, ok := s.responses[slotID]
	if !ok {
		return formsrepo.SlotResponse{}, formsrepo.ErrNotFound
	}
	return resp, nil
}

func (s *formsStore) ListResponses(_ context.Context, instanceID uuid.UUID) (map[uuid.UUID]formsrepo.SlotResponse, error) {
	out := map[uuid.UUID]formsrepo.SlotResponse{}
	for slotID, resp := range s.responses {
		if slot, ok := s.slots[slotID]; ok && slot.FormInstanceID == instanceID {
			out[slotID] = resp
		}
	}
	return out, nil
}

func (s *formsStore) UpsertResponse(_ context.Context, slotID uuid.UUID, answers map[string]string, updatedBy uuid.UUID) error {
	copied := make(map[string]string, len(answers))
	for k, v := range answers {
		copied[k] = v
	}
	s.responses[slotID] = formsrepo.SlotResponse{
		SlotID:    slotID,
		Answers:   copied,
		UpdatedBy: &updatedBy,
	}
	return nil
}

var _ formsrepo.Store = (*formsStore)(nil)

func passengerAnswers(name string) map[string]string {
	return map[string]string{
		"full_name":                name,
		"nationality":              "BR",
		"gender":                   "MALE",
		"document_type":            "PASSPORT",
		"document_number":          "ZX998877",
		"document_issuing_country": "BR",
		"document_expiry_date":     "2031-03-01",
		"birth_date":               "1988-11-02",
		"phone":                    "+5511988887777",
		"email":                    "bruno@example.com",
	}
}

// Dispatch and fill, end to end: the staff dispatch generates the form
// through the real forms service, the provisioned client opens it via
// the access record and fills slot by slot until completion.
func TestDispatchAndFillLifecycle(t *testing.T) {
	catalog, err := fields.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)

	fstore := newFormsStore()
	formsSvc := formsservice.New(fstore, catalog, nil, bus, log)

	orders := []syncrepo.SalesOrder{{
		ProposalID:  "20250602",
		LineNumber:  1,
		Status:      "CONFIRMED",
		ClientName:  "Bruno Lima",
		ClientEmail: "bruno@example.com",
		Hotel:       "Hilton",
		RoomType:    "Double",
		Rooms:       1,
		Pax:         2,
		CheckIn:     "2026-06-20",
	}}
	store := newFakeAccessStore()
	capSvc := NewService(
		store,
		&fakeOrders{orders: map[string][]syncrepo.SalesOrder{"20250602": orders}},
		formsSvc,
		&fakeProvisioner{},
		&fakeSender{},
		fakeNotificationConfig{},
		bus,
		log,
	)
	formsSvc.SetAccessChecker(capSvc)

	deadline := time.Now().Add(72 * time.Hour)
	result, err := capSvc.Dispatch(context.Background(), uuid.New(), "20250602", &deadline)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Instance.TotalSlots != 2 {
		t.Fatalf("expected 2 slots for 2 pax, got %d", result.Instance.TotalSlots)
	}
	if result.Instance.Status != formsrepo.StatusAwaitingFill {
		t.Fatalf("a fresh form starts %q, got %q", formsrepo.StatusAwaitingFill, result.Instance.Status)
	}

	client := formsservice.Actor{ID: result.Access.UserID, Role: policy.RoleClient}
	view, err := formsSvc.GetForm(context.Background(), client, "20250602")
	if err != nil {
		t.Fatalf("the dispatched client must reach the form: %v", err)
	}
	if len(view.Slots) != 2 {
		t.Fatalf("expected 2 slots in the form view, got %d", len(view.Slots))
	}

	updated, err := formsSvc.SaveSlot(context.Background(), client, view.Slots[0].Slot.ID, passengerAnswers("Bruno Lima"))
	if err != nil {
		t.Fatalf("SaveSlot: %v", err)
	}
	if updated.Status != formsrepo.StatusInProgress || updated.FilledSlots != 1 {
		t.Fatalf("expected IN_PROGRESS with 1 filled, got %q/%d", updated.Status, updated.FilledSlots)
	}

	updated, err = formsSvc.SaveSlot(context.Background(), client, view.Slots[1].Slot.ID, passengerAnswers("Clara Lima"))
	if err != nil {
		t.Fatalf("SaveSlot: %v", err)
	}
	if updated.Status != formsrepo.StatusCompleted || updated.FilledSlots != 2 {
		t.Fatalf("expected COMPLETED with 2 filled, got %q/%d", updated.Status, updated.FilledSlots)
	}

	// A stranger without an access record stays out.
	stranger := formsservice.Actor{ID: uuid.New(), Role: policy.RoleClient}
	if _, err := formsSvc.GetForm(context.Background(), stranger, "20250602"); err == nil {
		t.Fatalf("expected the access check to reject unknown clients")
	}
}
