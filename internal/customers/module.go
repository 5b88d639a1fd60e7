// Package customers provides the customer management bounded context module.
package customers

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"labcrm_backend/internal/customers/handler"
	"labcrm_backend/internal/customers/repository"
	"labcrm_backend/internal/customers/service"
	apphttp "labcrm_backend/internal/http"
	platformevents "labcrm_backend/platform/events"
	"labcrm_backend/platform/validator"
)

// Module is the customers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus platformevents.Bus, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "customers"
}

// Service returns the customer service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/customers")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
