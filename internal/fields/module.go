package fields

import (
	apphttp "tripforms_backend/internal/http"
)

// Module exposes the field catalog over HTTP.
type Module struct {
	catalog *Catalog
	handler *Handler
}

func NewModule(catalog *Catalog) *Module {
	return &Module{
		catalog: catalog,
		handler: NewHandler(catalog),
	}
}

func (m *Module) Name() string {
	return "fields"
}

// Catalog returns the loaded catalog for other modules to consume.
func (m *Module) Catalog() *Catalog {
	return m.catalog
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/fields")
	group.GET("", m.handler.List)
}

var _ apphttp.Module = (*Module)(nil)
