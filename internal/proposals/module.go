package proposals

import (
	"tripforms_backend/internal/fields"
	apphttp "tripforms_backend/internal/http"
	"tripforms_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the proposals bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates the proposals module. Orders is a port into the
// sync module's repository.
func NewModule(pool *pgxpool.Pool, orders OrderReader, catalog *fields.Catalog, log *logger.Logger) *Module {
	store := NewRepository(pool)
	svc := NewService(store, orders, catalog, log)
	h := NewHandler(svc)

	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "proposals"
}

// Service returns the proposals service for cross-module wiring (the
// exports module renders its matrix).
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/proposals")
	group.GET("", m.handler.List)
	group.GET("/filters", m.handler.FilterOptions)
	group.GET("/:proposalId", m.handler.Detail)
	group.GET("/:proposalId/matrix", m.handler.Matrix)
}

var _ apphttp.Module = (*Module)(nil)
