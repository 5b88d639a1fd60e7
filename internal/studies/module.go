// Package studies provides the test reception and study bounded context
// module.
package studies

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "labcrm_backend/internal/http"
	"labcrm_backend/internal/studies/handler"
	"labcrm_backend/internal/studies/repository"
	"labcrm_backend/internal/studies/service"
	platformevents "labcrm_backend/platform/events"
	"labcrm_backend/platform/logger"
	"labcrm_backend/platform/validator"
)

// Module is the studies bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus platformevents.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "studies"
}

// Service returns the study service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterReceptionRoutes(ctx.Protected.Group("/test-receptions"))
	m.handler.RegisterStudyRoutes(ctx.Protected.Group("/studies"))
}

var _ apphttp.Module = (*Module)(nil)
