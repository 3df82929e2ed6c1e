package uploads

import (
	apphttp "tripforms_backend/internal/http"
	"tripforms_backend/internal/storage"
	"tripforms_backend/platform/logger"
)

// Module is the uploads module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the uploads module. Store may be nil when MinIO is
// not configured; the routes then answer with a precondition error.
func NewModule(store *storage.Client, bucket string, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(store, bucket, log)}
}

func (m *Module) Name() string {
	return "uploads"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/uploads")
	group.POST("/profile-photo", m.handler.UploadProfilePhoto)
	group.GET("/profile-photo-url", m.handler.ProfilePhotoURL)
}

var _ apphttp.Module = (*Module)(nil)
