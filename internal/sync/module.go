package sync

import (
	"tripforms_backend/internal/events"
	apphttp "tripforms_backend/internal/http"
	"tripforms_backend/internal/sync/repository"
	"tripforms_backend/internal/sync/sheets"
	"tripforms_backend/platform/config"
	"tripforms_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig combines the settings the sync module needs.
type ModuleConfig interface {
	config.SheetsConfig
	config.SyncConfig
}

// Module is the sync bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	runner  *Runner
}

func NewModule(pool *pgxpool.Pool, cfg ModuleConfig, bus events.Bus, log *logger.Logger) *Module {
	store := repository.New(pool)
	fetcher := sheets.NewClient(cfg)
	reconciler := NewReconciler(store, log)
	runner := NewRunner(fetcher, reconciler, store, cfg, bus, log)

	return &Module{
		handler: NewHandler(runner),
		runner:  runner,
	}
}

func (m *Module) Name() string {
	return "sync"
}

// Runner returns the sync runner for the background worker.
func (m *Module) Runner() *Runner {
	return m.runner
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/sync")
	group.POST("/run", m.handler.Run)
	group.GET("/logs", m.handler.Logs)
}

var _ apphttp.Module = (*Module)(nil)
