package audit

import (
	"context"
	"encoding/json"

	"tripforms_backend/internal/events"
	"tripforms_backend/platform/logger"

	"github.com/google/uuid"
)

// Service records audit entries. Recording is fire-and-forget: a
// failed insert is logged but never fails the calling operation.
type Service struct {
	store Store
	log   *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Record persists an audit entry. Details must marshal to JSON; a
// marshal failure drops the details, not the entry.
func (s *Service) Record(ctx context.Context, userID *uuid.UUID, action, entityType, entityID string, details any) {
	var raw json.RawMessage
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			s.log.Warn("audit details not serializable", "action", action, "error", err)
		} else {
			raw = data
		}
	}

	entry := Entry{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    raw,
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		s.log.Error("audit insert failed", "action", action, "entity", entityID, "error", err)
	}
}

// List returns audit entries matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.List(ctx, filter)
}

// DetachUser nulls the user reference for a deleted account.
func (s *Service) DetachUser(ctx context.Context, userID uuid.UUID) error {
	return s.store.DetachUser(ctx, userID)
}

// RegisterHandlers subscribes the audit trail to the domain events
// worth keeping a history of.
func (s *Service) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.CaptureDispatched{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.CaptureDispatched)
		if !ok {
			return nil
		}
		action := "capture.dispatched"
		if evt.Redispatch {
			action = "capture.redispatched"
		}
		s.Record(ctx, &evt.ActorID, action, "proposal", evt.ProposalID, map[string]any{
			"clientEmail": evt.ClientEmail,
			"emailSent":   evt.EmailSent,
		})
		return nil
	}))

	bus.Subscribe(events.CaptureLinkGenerated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.CaptureLinkGenerated)
		if !ok {
			return nil
		}
		s.Record(ctx, &evt.ActorID, "capture.link_generated", "proposal", evt.ProposalID, nil)
		return nil
	}))

	bus.Subscribe(events.FormSaved{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.FormSaved)
		if !ok {
			return nil
		}
		s.Record(ctx, &evt.ActorID, "form.slot_saved", "form_instance", evt.FormInstanceID.String(), map[string]any{
			"slotId":     evt.SlotID,
			"proposalId": evt.ProposalID,
			"actorRole":  evt.ActorRole,
		})
		return nil
	}))

	bus.Subscribe(events.FormCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.FormCompleted)
		if !ok {
			return nil
		}
		s.Record(ctx, nil, "form.completed", "form_instance", evt.FormInstanceID.String(), map[string]any{
			"proposalId": evt.ProposalID,
		})
		return nil
	}))

	bus.Subscribe(events.ClientDeactivated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.ClientDeactivated)
		if !ok {
			return nil
		}
		s.Record(ctx, &evt.ActorID, "client.deactivated", "user", evt.UserID.String(), nil)
		return nil
	}))

	bus.Subscribe(events.ClientDeleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.ClientDeleted)
		if !ok {
			return nil
		}
		s.Record(ctx, &evt.ActorID, "client.deleted", "user", evt.UserID.String(), map[string]any{
			"email": evt.Email,
		})
		return nil
	}))

	bus.Subscribe(events.ClientPasswordReset{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.ClientPasswordReset)
		if !ok {
			return nil
		}
		s.Record(ctx, &evt.ActorID, "client.password_reset", "user", evt.UserID.String(), nil)
		return nil
	}))

	bus.Subscribe(events.SyncCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.SyncCompleted)
		if !ok {
			return nil
		}
		s.Record(ctx, nil, "sync.completed", "sync_log", evt.SyncLogID.String(), map[string]any{
			"status":       evt.Status,
			"rowsRead":     evt.RowsRead,
			"rowsUpserted": evt.RowsUpserted,
			"rowsSkipped":  evt.RowsSkipped,
			"rowsErrored":  evt.RowsErrored,
		})
		return nil
	}))
}
