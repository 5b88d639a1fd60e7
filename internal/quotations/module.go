// Package quotations provides the quotation bounded context module.
package quotations

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "labcrm_backend/internal/http"
	"labcrm_backend/internal/quotations/handler"
	"labcrm_backend/internal/quotations/repository"
	"labcrm_backend/internal/quotations/service"
	platformevents "labcrm_backend/platform/events"
	"labcrm_backend/platform/validator"
)

// Module is the quotations bounded context module implementing http.Module.
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
	return "quotations"
}

// Service returns the quotation service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/quotations")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
