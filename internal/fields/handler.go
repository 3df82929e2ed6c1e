package fields

import (
	"tripforms_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler serves field catalog reads.
type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// List returns the full catalog in display order. Clients use it to
// render the form; staff tools use it for the admin columns.
func (h *Handler) List(c *gin.Context) {
	httpkit.OK(c, gin.H{"fields": h.catalog.All()})
}
