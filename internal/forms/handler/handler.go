package handler

import (
	"net/http"

	"tripforms_backend/internal/forms/repository"
	"tripforms_backend/internal/forms/service"
	"tripforms_backend/internal/forms/transport"
	"tripforms_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// GetForm returns the form for a proposal, including per-slot answers.
func (h *Handler) GetForm(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	view, err := h.svc.GetForm(c.Request.Context(), service.Actor{ID: id.UserID(), Role: id.Role()}, c.Param("proposalId"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toFormViewResponse(view))
}

// SaveSlot records answers for one passenger slot and returns the
// updated fill progress.
func (h *Handler) SaveSlot(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	slotID, err := uuid.Parse(c.Param("slotId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid slot id", nil)
		return
	}

	var req transport.SaveSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	instance, err := h.svc.SaveSlot(c.Request.Context(), service.Actor{ID: id.UserID(), Role: id.Role()}, slotID, req.Answers)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toInstanceResponse(instance))
}

// SaveAdminFields merges staff-only answers into a slot without
// changing its fill state.
func (h *Handler) SaveAdminFields(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	slotID, err := uuid.Parse(c.Param("slotId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid slot id", nil)
		return
	}

	var req transport.SaveSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	merged, err := h.svc.SaveAdminFields(c.Request.Context(), service.Actor{ID: id.UserID(), Role: id.Role()}, slotID, req.Answers)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"answers": merged})
}

func toInstanceResponse(instance repository.FormInstance) transport.FormInstanceResponse {
	return transport.FormInstanceResponse{
		ID:           instance.ID.String(),
		ProposalID:   instance.ProposalID,
		Status:       instance.Status,
		TotalSlots:   instance.TotalSlots,
		FilledSlots:  instance.FilledSlots,
		Deadline:     instance.Deadline,
		DispatchedAt: instance.DispatchedAt,
	}
}

func toFormViewResponse(view service.FormView) transport.FormViewResponse {
	out := transport.FormViewResponse{
		Instance: toInstanceResponse(view.Instance),
		Slots:    make([]transport.SlotResponse, 0, len(view.Slots)),
	}
	for _, sv := range view.Slots {
		out.Slots = append(out.Slots, transport.SlotResponse{
			ID:        sv.Slot.ID.String(),
			SlotIndex: sv.Slot.SlotIndex,
			RoomLabel: sv.Slot.RoomLabel,
			Status:    sv.Slot.Status,
			Answers:   sv.Answers,
		})
	}
	return out
}
