package exports

import (
	apphttp "tripforms_backend/internal/http"
	"tripforms_backend/platform/logger"
)

// Module is the exports module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the exports module on top of the proposals matrix.
func NewModule(matrix MatrixProvider, log *logger.Logger) *Module {
	svc := NewService(matrix, log)
	return &Module{handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "exports"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/exports/proposals/:proposalId/csv", m.handler.ProposalCSV)
}

var _ apphttp.Module = (*Module)(nil)
