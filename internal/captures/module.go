package captures

import (
	"context"

	authservice "tripforms_backend/internal/auth/service"
	"tripforms_backend/internal/email"
	"tripforms_backend/internal/events"
	apphttp "tripforms_backend/internal/http"
	"tripforms_backend/platform/config"
	"tripforms_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the captures bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates the captures module. Orders and forms are ports
// into the sync and forms modules, passed in by the composition root.
func NewModule(pool *pgxpool.Pool, orders OrderReader, forms FormGenerator, users *authservice.Service, mail email.Sender, cfg config.NotificationConfig, bus events.Bus, log *logger.Logger) *Module {
	store := NewRepository(pool)
	svc := NewService(store, orders, forms, provisionerAdapter{users}, mail, cfg, bus, log)
	h := NewHandler(svc)

	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "captures"
}

// Service returns the captures service for cross-module wiring (the
// forms module uses it as access checker).
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/captures")
	group.POST("/:proposalId/dispatch", m.handler.Dispatch)
	group.POST("/:proposalId/link", m.handler.GenerateLink)

	ctx.Protected.GET("/my/proposals", m.handler.MyProposals)
	ctx.Protected.GET("/captures/access/:token", m.handler.ResolveAccess)
}

// provisionerAdapter bridges the auth service onto the UserProvisioner
// port without coupling the service to the auth package.
type provisionerAdapter struct {
	auth *authservice.Service
}

func (a provisionerAdapter) ProvisionClient(ctx context.Context, email, fullName string) (ProvisionedUser, error) {
	result, err := a.auth.ProvisionClient(ctx, email, fullName)
	if err != nil {
		return ProvisionedUser{}, err
	}
	return ProvisionedUser{
		ID:           result.User.ID,
		Email:        result.User.Email,
		FullName:     result.User.FullName,
		TempPassword: result.TempPassword,
		Created:      result.Created,
	}, nil
}

var _ UserProvisioner = provisionerAdapter{}
var _ apphttp.Module = (*Module)(nil)
