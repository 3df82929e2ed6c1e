package exports

import (
	"fmt"
	"net/http"

	"tripforms_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ProposalCSV(c *gin.Context) {
	export, err := h.svc.ProposalCSV(c.Request.Context(), c.Param("proposalId"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", export.Content)
}
