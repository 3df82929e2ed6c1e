// Package forms owns the capture form lifecycle: generating passenger
// slots from a proposal's order lines, recording per-slot answers and
// tracking fill progress against the deadline.
package forms

import (
	"tripforms_backend/internal/events"
	"tripforms_backend/internal/fields"
	"tripforms_backend/internal/forms/handler"
	"tripforms_backend/internal/forms/repository"
	"tripforms_backend/internal/forms/service"
	apphttp "tripforms_backend/internal/http"
	"tripforms_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the forms bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the forms module. The access checker is wired
// afterwards via Service().SetAccessChecker to break the construction
// cycle with the captures module.
func NewModule(pool *pgxpool.Pool, catalog *fields.Catalog, bus events.Bus, log *logger.Logger) *Module {
	store := repository.New(pool)
	svc := service.New(store, catalog, nil, bus, log)
	h := handler.New(svc)

	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "forms"
}

// Service returns the forms service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/forms")
	group.GET("/:proposalId", m.handler.GetForm)
	group.PUT("/slots/:slotId", m.handler.SaveSlot)

	ctx.Admin.PUT("/forms/slots/:slotId/admin-fields", m.handler.SaveAdminFields)
}

var _ apphttp.Module = (*Module)(nil)
