package clients

import (
	"net/http"
	"strconv"

	"tripforms_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type resetResponse struct {
	TempPassword string `json:"tempPassword"`
	EmailSent    bool   `json:"emailSent"`
	EmailError   string `json:"emailError,omitempty"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))

	result, err := h.svc.List(c.Request.Context(), c.Query("search"), page, pageSize)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Detail(c *gin.Context) {
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}

	detail, err := h.svc.Detail(c.Request.Context(), clientID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, detail)
}

func (h *Handler) Deactivate(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}

	if err := h.svc.Deactivate(c.Request.Context(), id.UserID(), clientID); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"deactivated": true})
}

func (h *Handler) Delete(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id.UserID(), clientID); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"deleted": true})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	clientID, ok := h.clientID(c)
	if !ok {
		return
	}

	result, err := h.svc.ResetPassword(c.Request.Context(), id.UserID(), clientID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resetResponse{
		TempPassword: result.TempPassword,
		EmailSent:    result.EmailSent,
		EmailError:   result.EmailError,
	})
}

func (h *Handler) clientID(c *gin.Context) (uuid.UUID, bool) {
	clientID, err := uuid.Parse(c.Param("clientId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid client id", nil)
		return uuid.Nil, false
	}
	return clientID, true
}
