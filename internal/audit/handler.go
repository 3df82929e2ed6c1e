package audit

import (
	"strconv"

	"tripforms_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler serves audit trail reads.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List returns audit entries, newest first, with optional filters.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, total, err := h.svc.List(c.Request.Context(), ListFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	if entries == nil {
		entries = []Entry{}
	}
	httpkit.OK(c, gin.H{"entries": entries, "total": total})
}
