package clients

import (
	"tripforms_backend/internal/email"
	"tripforms_backend/internal/events"
	apphttp "tripforms_backend/internal/http"
	"tripforms_backend/internal/policy"
	"tripforms_backend/platform/config"
	"tripforms_backend/platform/httpkit"
	"tripforms_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clients bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, auth PasswordResetter, mail email.Sender, cfg config.NotificationConfig, bus events.Bus, log *logger.Logger) *Module {
	store := NewRepository(pool)
	svc := NewService(store, auth, mail, cfg, bus, log)

	return &Module{handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "clients"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/clients")
	group.GET("", m.handler.List)
	group.GET("/:clientId", m.handler.Detail)
	group.POST("/:clientId/deactivate", m.handler.Deactivate)
	group.POST("/:clientId/reset-password", m.handler.ResetPassword)

	// Deletion is destructive and restricted to MASTER.
	group.DELETE("/:clientId",
		httpkit.RequireRole(policy.RolesFor(policy.ActionClientDelete)...),
		m.handler.Delete)
}

var _ apphttp.Module = (*Module)(nil)
