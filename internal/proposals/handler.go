package proposals

import (
	"strconv"

	"tripforms_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(c *gin.Context) {
	query := ListQuery{
		Game:          c.Query("game"),
		Hotel:         c.Query("hotel"),
		Seller:        c.Query("seller"),
		Search:        c.Query("search"),
		CaptureStatus: c.Query("captureStatus"),
		Page:          intQuery(c, "page"),
		PageSize:      intQuery(c, "pageSize"),
	}

	result, err := h.svc.List(c.Request.Context(), query)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Detail(c *gin.Context) {
	detail, err := h.svc.Detail(c.Request.Context(), c.Param("proposalId"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, detail)
}

func (h *Handler) Matrix(c *gin.Context) {
	matrix, err := h.svc.Matrix(c.Request.Context(), c.Param("proposalId"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, matrix)
}

func (h *Handler) FilterOptions(c *gin.Context) {
	options, err := h.svc.FilterOptions(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, options)
}

func intQuery(c *gin.Context, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return value
}
