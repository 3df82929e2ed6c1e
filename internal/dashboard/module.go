package dashboard

import (
	apphttp "tripforms_backend/internal/http"
	"tripforms_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the dashboard module implementing http.Module.
type Module struct {
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	store := NewRepository(pool)
	svc := NewService(store, log)

	return &Module{handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "dashboard"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/dashboard", m.handler.Stats)
}

var _ apphttp.Module = (*Module)(nil)
