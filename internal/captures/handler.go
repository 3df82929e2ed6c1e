package captures

import (
	"net/http"
	"time"

	"tripforms_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type dispatchRequest struct {
	// Deadline is the last day for the client to fill the form,
	// formatted as 2006-01-02. Optional.
	Deadline string `json:"deadline"`
}

type dispatchResponse struct {
	ProposalID  string `json:"proposalId"`
	Status      string `json:"status"`
	TotalSlots  int    `json:"totalSlots"`
	AccessToken string `json:"accessToken"`
	FormURL     string `json:"formUrl"`
	UserCreated bool   `json:"userCreated"`
	Redispatch  bool   `json:"redispatch"`
}

type linkResponse struct {
	ProposalID   string `json:"proposalId"`
	AccessToken  string `json:"accessToken"`
	FormURL      string `json:"formUrl"`
	QRCodePNG    string `json:"qrCodePng"`
	LoginEmail   string `json:"loginEmail"`
	TempPassword string `json:"tempPassword,omitempty"`
	UserCreated  bool   `json:"userCreated"`
}

// Handler serves the staff-facing dispatch endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Dispatch triggers the email dispatch flow for a proposal.
func (h *Handler) Dispatch(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	deadline, ok := h.parseDeadline(c)
	if !ok {
		return
	}

	result, err := h.svc.Dispatch(c.Request.Context(), id.UserID(), c.Param("proposalId"), deadline)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, dispatchResponse{
		ProposalID:  result.Instance.ProposalID,
		Status:      result.Instance.Status,
		TotalSlots:  result.Instance.TotalSlots,
		AccessToken: result.AccessToken.String(),
		FormURL:     result.FormURL,
		UserCreated: result.UserCreated,
		Redispatch:  result.Redispatch,
	})
}

// GenerateLink returns a manual access link plus QR code for a
// proposal, for delivery outside email.
func (h *Handler) GenerateLink(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	deadline, ok := h.parseDeadline(c)
	if !ok {
		return
	}

	link, err := h.svc.GenerateLink(c.Request.Context(), id.UserID(), c.Param("proposalId"), deadline)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, linkResponse{
		ProposalID:   link.Instance.ProposalID,
		AccessToken:  link.AccessToken.String(),
		FormURL:      link.FormURL,
		QRCodePNG:    link.QRCodePNG,
		LoginEmail:   link.LoginEmail,
		TempPassword: link.TempPassword,
		UserCreated:  link.UserCreated,
	})
}

type accessResponse struct {
	ProposalID       string     `json:"proposalId"`
	DispatchMode     string     `json:"dispatchMode"`
	LastDispatchedAt *time.Time `json:"lastDispatchedAt,omitempty"`
}

// ResolveAccess turns a form URL token into the proposal it opens.
func (h *Handler) ResolveAccess(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		httpkit.Error(c, http.StatusNotFound, "unknown access token", nil)
		return
	}

	access, err := h.svc.ResolveToken(c.Request.Context(), id.UserID(), id.Role(), token)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, accessResponse{
		ProposalID:       access.ProposalID,
		DispatchMode:     access.DispatchMode,
		LastDispatchedAt: access.LastDispatchedAt,
	})
}

type myProposalResponse struct {
	ProposalID       string     `json:"proposalId"`
	DispatchCount    int        `json:"dispatchCount"`
	LastDispatchedAt *time.Time `json:"lastDispatchedAt,omitempty"`
	Status           string     `json:"status"`
	FilledSlots      int        `json:"filledSlots"`
	TotalSlots       int        `json:"totalSlots"`
	Deadline         *time.Time `json:"deadline,omitempty"`
}

// MyProposals lists the proposals dispatched to the signed-in account.
func (h *Handler) MyProposals(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	proposals, err := h.svc.MyProposals(c.Request.Context(), id.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	items := make([]myProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		items = append(items, myProposalResponse{
			ProposalID:       p.ProposalID,
			DispatchCount:    p.DispatchCount,
			LastDispatchedAt: p.LastDispatchedAt,
			Status:           p.Status,
			FilledSlots:      p.FilledSlots,
			TotalSlots:       p.TotalSlots,
			Deadline:         p.Deadline,
		})
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) parseDeadline(c *gin.Context) (*time.Time, bool) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return nil, false
	}
	if req.Deadline == "" {
		return nil, true
	}

	day, err := time.Parse("2006-01-02", req.Deadline)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid deadline, expected YYYY-MM-DD", nil)
		return nil, false
	}
	// The whole deadline day is still valid for filling.
	endOfDay := day.Add(24*time.Hour - time.Second)
	return &endOfDay, true
}
