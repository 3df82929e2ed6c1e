package sync

import (
	"strconv"

	"tripforms_backend/internal/sync/repository"
	"tripforms_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler serves the staff-facing sync endpoints.
type Handler struct {
	runner *Runner
}

func NewHandler(runner *Runner) *Handler {
	return &Handler{runner: runner}
}

// Run triggers a sync pass and waits for it. A concurrent run yields
// 409 with the SYNC_ALREADY_RUNNING code.
func (h *Handler) Run(c *gin.Context) {
	syncLog, err := h.runner.Run(c.Request.Context(), TriggerManual)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, syncLog)
}

// Logs lists recent sync runs, newest first.
func (h *Handler) Logs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	logs, err := h.runner.Logs(c.Request.Context(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	if logs == nil {
		logs = []repository.SyncLog{}
	}
	httpkit.OK(c, gin.H{"logs": logs})
}
