package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripforms_backend/internal/events"
	"tripforms_backend/internal/fields"
	"tripforms_backend/internal/forms/generator"
	"tripforms_backend/internal/forms/repository"
	"tripforms_backend/internal/policy"
	syncrepo "tripforms_backend/internal/sync/repository"
	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/logger"
	"tripforms_backend/platform/phone"

	"github.com/google/uuid"
)

// Actor identifies who is performing a form operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// AccessChecker reports whether a client account may reach a proposal.
// The captures module owns the access records; this port keeps forms
// decoupled from it.
type AccessChecker interface {
	HasAccess(ctx context.Context, userID uuid.UUID, proposalID string) (bool, error)
}

// Service implements form reads, slot saves and the deadline sweep.
type Service struct {
	store   repository.Store
	catalog *fields.Catalog
	access  AccessChecker
	bus     events.Bus
	log     *logger.Logger
}

func New(store repository.Store, catalog *fields.Catalog, access AccessChecker, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, catalog: catalog, access: access, bus: bus, log: log}
}

// SetAccessChecker wires the access port after construction. Breaks
// the forms/captures construction cycle in the composition root.
func (s *Service) SetAccessChecker(access AccessChecker) {
	s.access = access
}

// SlotView combines a slot with its recorded answers.
type SlotView struct {
	Slot    repository.PassengerSlot
	Answers map[string]string
}

// FormView is the full form as rendered to a client or staff member.
type FormView struct {
	Instance repository.FormInstance
	Slots    []SlotView
}

// GenerateForProposal creates the form instance and its slots for a
// proposal. An existing instance is reused: re-dispatch never
// regenerates slots or discards answers, but it does take over the
// new deadline and dispatch timestamp.
func (s *Service) GenerateForProposal(ctx context.Context, proposalID string, orders []syncrepo.SalesOrder, deadline *time.Time) (repository.FormInstance, error) {
	existing, err := s.store.GetInstanceByProposal(ctx, proposalID)
	if err == nil {
		return s.redispatch(ctx, existing, deadline)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return repository.FormInstance{}, err
	}

	slots := generator.GenerateSlots(orders)
	if len(slots) == 0 {
		return repository.FormInstance{}, apperr.Precondition("proposal has no passengers to collect")
	}

	instance := repository.FormInstance{
		ProposalID: proposalID,
		Deadline:   deadline,
	}
	return s.store.CreateInstanceWithSlots(ctx, instance, slots)
}

// redispatch moves an existing instance onto the new deadline. An
// EXPIRED instance whose new deadline is open again is revived; the
// recount rederives its real status from the fill count.
func (s *Service) redispatch(ctx context.Context, instance repository.FormInstance, deadline *time.Time) (repository.FormInstance, error) {
	if err := s.store.UpdateInstanceDispatch(ctx, instance.ID, deadline); err != nil {
		return repository.FormInstance{}, err
	}
	instance.Deadline = deadline
	instance.DispatchedAt = time.Now()

	if instance.Status == repository.StatusExpired && (deadline == nil || deadline.After(time.Now())) {
		instance.Status = repository.StatusAwaitingFill
		return s.recount(ctx, instance)
	}
	return instance, nil
}

// GetForm returns the form for a proposal. Clients must hold an access
// record; staff may read any form.
func (s *Service) GetForm(ctx context.Context, actor Actor, proposalID string) (FormView, error) {
	if err := s.authorize(ctx, actor, proposalID); err != nil {
		return FormView{}, err
	}

	instance, err := s.store.GetInstanceByProposal(ctx, proposalID)
	if errors.Is(err, repository.ErrNotFound) {
		return FormView{}, apperr.NotFound("form not found")
	}
	if err != nil {
		return FormView{}, err
	}

	slots, err := s.store.ListSlots(ctx, instance.ID)
	if err != nil {
		return FormView{}, err
	}
	responses, err := s.store.ListResponses(ctx, instance.ID)
	if err != nil {
		return FormView{}, err
	}

	view := FormView{Instance: instance, Slots: make([]SlotView, 0, len(slots))}
	for _, slot := range slots {
		sv := SlotView{Slot: slot, Answers: map[string]string{}}
		if resp, ok := responses[slot.ID]; ok {
			sv.Answers = resp.Answers
		}
		if actor.Role == policy.RoleClient {
			sv.Answers = s.stripAdminOnly(sv.Answers)
		}
		view.Slots = append(view.Slots, sv)
	}
	return view, nil
}

// SaveSlot records answers for a passenger slot. The payload replaces
// whatever was stored before: saving the whole record each time means
// an omitted field is a cleared field. Partial saves are fine; the
// slot only flips to FILLED once every required field is present.
//
// Saves are gated by the deadline for every role. A passed deadline
// needs a re-dispatch before anyone can write again.
//
// Fill progress is always recomputed from a full recount of FILLED
// slots, never incremented, so repeated saves stay idempotent.
func (s *Service) SaveSlot(ctx context.Context, actor Actor, slotID uuid.UUID, answers map[string]string) (repository.FormInstance, error) {
	slot, err := s.store.GetSlot(ctx, slotID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.FormInstance{}, apperr.NotFound("slot not found")
	}
	if err != nil {
		return repository.FormInstance{}, err
	}

	instance, err := s.store.GetInstanceByID(ctx, slot.FormInstanceID)
	if err != nil {
		return repository.FormInstance{}, err
	}

	if err := s.authorize(ctx, actor, instance.ProposalID); err != nil {
		return repository.FormInstance{}, err
	}
	if err := s.deadlineGate(instance); err != nil {
		return repository.FormInstance{}, err
	}

	validated, err := s.validateAnswers(actor, answers)
	if err != nil {
		return repository.FormInstance{}, err
	}

	if err := s.store.UpsertResponse(ctx, slot.ID, validated, actor.ID); err != nil {
		return repository.FormInstance{}, err
	}

	if s.requiredComplete(validated) && slot.Status != repository.SlotFilled {
		if err := s.store.MarkSlotFilled(ctx, slot.ID); err != nil {
			return repository.FormInstance{}, err
		}
	}

	updated, err := s.recount(ctx, instance)
	if err != nil {
		return repository.FormInstance{}, err
	}

	s.bus.Publish(ctx, events.FormSaved{
		BaseEvent:      events.NewBaseEvent(),
		FormInstanceID: instance.ID,
		SlotID:         slot.ID,
		ProposalID:     instance.ProposalID,
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
	})
	if updated.Status == repository.StatusCompleted && instance.Status != repository.StatusCompleted {
		s.bus.Publish(ctx, events.FormCompleted{
			BaseEvent:      events.NewBaseEvent(),
			FormInstanceID: instance.ID,
			ProposalID:     instance.ProposalID,
		})
	}

	return updated, nil
}

// SaveAdminFields merges staff-owned answers into a slot without
// touching slot status or fill progress. Admin edits are metadata
// corrections, not completion signals.
func (s *Service) SaveAdminFields(ctx context.Context, actor Actor, slotID uuid.UUID, answers map[string]string) (map[string]string, error) {
	if !policy.IsStaff(actor.Role) {
		return nil, apperr.Forbidden("staff only")
	}
	if len(answers) == 0 {
		return nil, apperr.Validation("no answers provided")
	}

	for key := range answers {
		field, ok := s.catalog.Get(key)
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("unknown field %q", key))
		}
		if field.FillableBy != fields.FillableByAdmin {
			return nil, apperr.Validation(fmt.Sprintf("field %q is not an admin field", key))
		}
	}

	slot, err := s.store.GetSlot(ctx, slotID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("slot not found")
	}
	if err != nil {
		return nil, err
	}

	instance, err := s.store.GetInstanceByID(ctx, slot.FormInstanceID)
	if err != nil {
		return nil, err
	}

	merged := map[string]string{}
	existing, err := s.store.GetResponseBySlot(ctx, slot.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	for key, value := range existing.Answers {
		merged[key] = value
	}
	for key, value := range answers {
		merged[key] = value
	}

	if err := s.store.UpsertResponse(ctx, slot.ID, merged, actor.ID); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.FormSaved{
		BaseEvent:      events.NewBaseEvent(),
		FormInstanceID: instance.ID,
		SlotID:         slot.ID,
		ProposalID:     instance.ProposalID,
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
	})
	return merged, nil
}

// ExpireOverdue marks every overdue unfinished instance EXPIRED.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	count, err := s.store.ExpireOverdue(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.bus.Publish(ctx, events.FormsExpired{
			BaseEvent: events.NewBaseEvent(),
			Count:     count,
		})
	}
	return count, nil
}

func (s *Service) authorize(ctx context.Context, actor Actor, proposalID string) error {
	if policy.IsStaff(actor.Role) {
		return nil
	}
	if actor.Role != policy.RoleClient {
		return apperr.Forbidden("role may not access forms")
	}
	if s.access == nil {
		return apperr.Internal("access checker not configured")
	}

	ok, err := s.access.HasAccess(ctx, actor.ID, proposalID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("no access to this proposal")
	}
	return nil
}

// deadlineGate rejects saves on expired forms before any mutation
// happens. A passed deadline counts even when the sweep has not
// flipped the status yet.
func (s *Service) deadlineGate(instance repository.FormInstance) error {
	if instance.Status == repository.StatusExpired {
		return apperr.Precondition("the form deadline has passed").WithCode(apperr.CodeDeadlineExpired)
	}
	if instance.Deadline != nil && time.Now().After(*instance.Deadline) {
		return apperr.Precondition("the form deadline has passed").WithCode(apperr.CodeDeadlineExpired)
	}
	return nil
}

// validateAnswers checks field keys and write permissions and
// normalizes phone numbers. The returned map is stored as-is, fully
// replacing any earlier response for the slot.
func (s *Service) validateAnswers(actor Actor, answers map[string]string) (map[string]string, error) {
	if len(answers) == 0 {
		return nil, apperr.Validation("no answers provided")
	}

	out := make(map[string]string, len(answers))
	for key, value := range answers {
		if _, ok := s.catalog.Get(key); !ok {
			return nil, apperr.Validation(fmt.Sprintf("unknown field %q", key))
		}
		if !s.catalog.WritableBy(key, actor.Role) {
			return nil, apperr.Forbidden(fmt.Sprintf("field %q is not editable by your role", key))
		}
		if key == "phone" {
			value = phone.NormalizeE164(value)
		}
		out[key] = value
	}
	return out, nil
}

func (s *Service) requiredComplete(answers map[string]string) bool {
	for _, key := range s.catalog.RequiredClientKeys() {
		if answers[key] == "" {
			return false
		}
	}
	return true
}

// recount recomputes fill progress and derives the instance status.
// EXPIRED is sticky: only the sweep sets it and a recount never
// clears it.
func (s *Service) recount(ctx context.Context, instance repository.FormInstance) (repository.FormInstance, error) {
	filled, err := s.store.CountFilledSlots(ctx, instance.ID)
	if err != nil {
		return repository.FormInstance{}, err
	}

	status := instance.Status
	if status != repository.StatusExpired {
		switch {
		case filled >= instance.TotalSlots && instance.TotalSlots > 0:
			status = repository.StatusCompleted
		case filled > 0:
			status = repository.StatusInProgress
		default:
			status = repository.StatusAwaitingFill
		}
	}

	if err := s.store.UpdateInstanceProgress(ctx, instance.ID, filled, status); err != nil {
		return repository.FormInstance{}, err
	}

	instance.FilledSlots = filled
	instance.Status = status
	return instance, nil
}

// stripAdminOnly removes staff-only answers from a client view.
func (s *Service) stripAdminOnly(answers map[string]string) map[string]string {
	out := map[string]string{}
	for key, value := range answers {
		field, ok := s.catalog.Get(key)
		if !ok || field.FillableBy == fields.FillableByAdmin {
			continue
		}
		out[key] = value
	}
	return out
}
