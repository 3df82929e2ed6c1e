// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"tripforms_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Sync Domain Events
// =============================================================================

// SyncStarted is published when a spreadsheet sync run begins.
type SyncStarted struct {
	BaseEvent
	SyncLogID uuid.UUID `json:"syncLogId"`
	Trigger   string    `json:"trigger"`
}

func (e SyncStarted) EventName() string { return "sync.run.started" }

// SyncCompleted is published when a sync run finishes, fully or partially.
type SyncCompleted struct {
	BaseEvent
	SyncLogID    uuid.UUID `json:"syncLogId"`
	Status       string    `json:"status"`
	RowsRead     int       `json:"rowsRead"`
	RowsUpserted int       `json:"rowsUpserted"`
	RowsSkipped  int       `json:"rowsSkipped"`
	RowsErrored  int       `json:"rowsErrored"`
}

func (e SyncCompleted) EventName() string { return "sync.run.completed" }

// SyncFailed is published when a sync run aborts before processing rows.
type SyncFailed struct {
	BaseEvent
	SyncLogID uuid.UUID `json:"syncLogId"`
	Reason    string    `json:"reason"`
}

func (e SyncFailed) EventName() string { return "sync.run.failed" }

// =============================================================================
// Capture Domain Events
// =============================================================================

// CaptureDispatched is published when a capture form is dispatched to a client.
type CaptureDispatched struct {
	BaseEvent
	ProposalID  string    `json:"proposalId"`
	ClientEmail string    `json:"clientEmail"`
	UserID      uuid.UUID `json:"userId"`
	ActorID     uuid.UUID `json:"actorId"`
	Redispatch  bool      `json:"redispatch"`
	EmailSent   bool      `json:"emailSent"`
}

func (e CaptureDispatched) EventName() string { return "captures.form.dispatched" }

// CaptureLinkGenerated is published when a manual access link is generated.
type CaptureLinkGenerated struct {
	BaseEvent
	ProposalID string    `json:"proposalId"`
	ActorID    uuid.UUID `json:"actorId"`
}

func (e CaptureLinkGenerated) EventName() string { return "captures.link.generated" }

// =============================================================================
// Forms Domain Events
// =============================================================================

// FormSaved is published when a passenger slot save is persisted.
type FormSaved struct {
	BaseEvent
	FormInstanceID uuid.UUID `json:"formInstanceId"`
	SlotID         uuid.UUID `json:"slotId"`
	ProposalID     string    `json:"proposalId"`
	ActorID        uuid.UUID `json:"actorId"`
	ActorRole      string    `json:"actorRole"`
}

func (e FormSaved) EventName() string { return "forms.slot.saved" }

// FormCompleted is published when every slot of a form instance is filled.
type FormCompleted struct {
	BaseEvent
	FormInstanceID uuid.UUID `json:"formInstanceId"`
	ProposalID     string    `json:"proposalId"`
}

func (e FormCompleted) EventName() string { return "forms.instance.completed" }

// FormsExpired is published after the deadline sweep marks instances expired.
type FormsExpired struct {
	BaseEvent
	Count int `json:"count"`
}

func (e FormsExpired) EventName() string { return "forms.instances.expired" }

// =============================================================================
// Clients Domain Events
// =============================================================================

// ClientDeactivated is published when a client account is deactivated.
type ClientDeactivated struct {
	BaseEvent
	UserID  uuid.UUID `json:"userId"`
	ActorID uuid.UUID `json:"actorId"`
}

func (e ClientDeactivated) EventName() string { return "clients.client.deactivated" }

// ClientDeleted is published after a client and all dependent records are removed.
type ClientDeleted struct {
	BaseEvent
	UserID  uuid.UUID `json:"userId"`
	Email   string    `json:"email"`
	ActorID uuid.UUID `json:"actorId"`
}

func (e ClientDeleted) EventName() string { return "clients.client.deleted" }

// ClientPasswordReset is published when staff resets a client password.
type ClientPasswordReset struct {
	BaseEvent
	UserID  uuid.UUID `json:"userId"`
	ActorID uuid.UUID `json:"actorId"`
}

func (e ClientPasswordReset) EventName() string { return "clients.password.reset" }

// =============================================================================
// Auth Domain Events
// =============================================================================

// UserSignedIn is published on successful sign-in.
type UserSignedIn struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

func (e UserSignedIn) EventName() string { return "auth.user.signed_in" }

// PasswordChanged is published when a user changes their own password.
type PasswordChanged struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
}

func (e PasswordChanged) EventName() string { return "auth.password.changed" }
