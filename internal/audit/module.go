// Package audit keeps an append-only trail of the operations staff and
// clients perform, populated from domain events.
package audit

import (
	"tripforms_backend/internal/events"
	apphttp "tripforms_backend/internal/http"
	"tripforms_backend/internal/policy"
	"tripforms_backend/platform/httpkit"
	"tripforms_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the audit bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), log)
	return &Module{
		handler: NewHandler(svc),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "audit"
}

// Service returns the audit service for cross-module wiring.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterHandlers subscribes audit recording to the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	m.service.RegisterHandlers(bus)
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/audit")
	group.Use(httpkit.RequireRole(policy.RolesFor(policy.ActionAuditRead)...))
	group.GET("", m.handler.List)
}

var _ apphttp.Module = (*Module)(nil)
