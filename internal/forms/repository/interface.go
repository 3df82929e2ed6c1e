package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Form instance statuses. EXPIRED is only ever set by the deadline
// sweep; saves derive the other three from the fill count.
const (
	StatusAwaitingFill = "AWAITING_FILL"
	StatusInProgress   = "IN_PROGRESS"
	StatusCompleted    = "COMPLETED"
	StatusExpired      = "EXPIRED"
)

// Passenger slot statuses.
const (
	SlotEmpty  = "EMPTY"
	SlotFilled = "FILLED"
)

// FormInstance is the per-proposal capture form. One instance exists
// per dispatched proposal.
type FormInstance struct {
	ID           uuid.UUID
	ProposalID   string
	Status       string
	TotalSlots   int
	FilledSlots  int
	Deadline     *time.Time
	DispatchedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PassengerSlot is one passenger position on a form. SlotIndex is
// 0-based within the slot's room, so (form, room label, index)
// identifies a passenger.
type PassengerSlot struct {
	ID             uuid.UUID
	FormInstanceID uuid.UUID
	SlotIndex      int
	RoomLabel      string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SlotResponse holds the answers recorded for a slot.
type SlotResponse struct {
	ID        uuid.UUID
	SlotID    uuid.UUID
	Answers   map[string]string
	UpdatedBy *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence port for form instances, slots and
// responses.
type Store interface {
	CreateInstanceWithSlots(ctx context.Context, instance FormInstance, slots []PassengerSlot) (FormInstance, error)
	GetInstanceByProposal(ctx context.Context, proposalID string) (FormInstance, error)
	GetInstanceByID(ctx context.Context, instanceID uuid.UUID) (FormInstance, error)
	UpdateInstanceProgress(ctx context.Context, instanceID uuid.UUID, filled int, status string) error
	// UpdateInstanceDispatch replaces the deadline and refreshes the
	// dispatch timestamp on an existing instance.
	UpdateInstanceDispatch(ctx context.Context, instanceID uuid.UUID, deadline *time.Time) error
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)

	ListSlots(ctx context.Context, instanceID uuid.UUID) ([]PassengerSlot, error)
	GetSlot(ctx context.Context, slotID uuid.UUID) (PassengerSlot, error)
	MarkSlotFilled(ctx context.Context, slotID uuid.UUID) error
	CountFilledSlots(ctx context.Context, instanceID uuid.UUID) (int, error)

	GetResponseBySlot(ctx context.Context, slotID uuid.UUID) (SlotResponse, error)
	ListResponses(ctx context.Context, instanceID uuid.UUID) (map[uuid.UUID]SlotResponse, error)
	UpsertResponse(ctx context.Context, slotID uuid.UUID, answers map[string]string, updatedBy uuid.UUID) error
}
