// Package contracts provides the contract bounded context module.
package contracts

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"labcrm_backend/internal/contracts/handler"
	"labcrm_backend/internal/contracts/repository"
	"labcrm_backend/internal/contracts/service"
	apphttp "labcrm_backend/internal/http"
	platformevents "labcrm_backend/platform/events"
	"labcrm_backend/platform/logger"
	"labcrm_backend/platform/validator"
)

// Module is the contracts bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the contracts module. The lead lister and converter come
// from the leads module; the composition root passes them in so the two
// contexts stay decoupled at the package level.
func NewModule(pool *pgxpool.Pool, eventBus platformevents.Bus, leads service.LeadLister, converter service.Converter, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leads, converter, eventBus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "contracts"
}

// Service returns the contract service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/contracts")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
