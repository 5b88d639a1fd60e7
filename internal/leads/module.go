// Package leads provides the lead management bounded context module.
// This file wires the repository, engines, and event subscriptions together
// and registers the module's routes.
package leads

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"labcrm_backend/internal/audit"
	"labcrm_backend/internal/events"
	apphttp "labcrm_backend/internal/http"
	"labcrm_backend/internal/leads/automation"
	"labcrm_backend/internal/leads/conversion"
	"labcrm_backend/internal/leads/handler"
	"labcrm_backend/internal/leads/management"
	"labcrm_backend/internal/leads/repository"
	syncengine "labcrm_backend/internal/leads/sync"
	platformevents "labcrm_backend/platform/events"
	"labcrm_backend/platform/logger"
	"labcrm_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	repo       *repository.Repository
	automation *automation.Engine
	conversion *conversion.Service
	sync       *syncengine.Engine
}

// NewModule creates and initializes the leads module with all its
// dependencies, including the event subscriptions that drive pipeline
// automation and contact sync.
func NewModule(pool *pgxpool.Pool, eventBus platformevents.Bus, auditRepo *audit.Repository, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)

	autoEngine := automation.New(repo, log)
	syncEngine := syncengine.New(syncStore{repo}, syncAuditor{auditRepo}, log)
	convService := conversion.New(conversionStore{repo}, syncEngine, eventBus, log)
	mgmtService := management.New(repo, eventBus)

	subscribeAutomation(eventBus, autoEngine, syncEngine, log)

	h := handler.New(mgmtService, autoEngine, convService, val)

	return &Module{
		handler:    h,
		repo:       repo,
		automation: autoEngine,
		conversion: convService,
		sync:       syncEngine,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// AutomationEngine exposes the pipeline engine for other modules' direct use.
func (m *Module) AutomationEngine() *automation.Engine {
	return m.automation
}

// ConversionService exposes the conversion engine for other modules.
func (m *Module) ConversionService() *conversion.Service {
	return m.conversion
}

// SyncEngine exposes the sync engine for the reconciliation worker.
func (m *Module) SyncEngine() *syncengine.Engine {
	return m.sync
}

// Repository exposes the leads repository for the reconciliation worker.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(group)
}

// subscribeAutomation registers the pipeline hooks and the contact-sync
// reactions on the event bus. Handler errors are logged by the bus and never
// reach the publishing operation.
func subscribeAutomation(bus platformevents.Bus, engine *automation.Engine, syncEngine *syncengine.Engine, log *logger.Logger) {
	bus.Subscribe(events.QuotationStatusChangedName, platformevents.HandlerFunc(func(ctx context.Context, event platformevents.Event) error {
		e, ok := event.(events.QuotationStatusChanged)
		if !ok {
			return nil
		}
		_, err := engine.OnQuotationStatusChange(ctx, e.QuotationID, e.NewStatus, e.ActorID)
		return err
	}))

	bus.Subscribe(events.ContractStatusChangedName, platformevents.HandlerFunc(func(ctx context.Context, event platformevents.Event) error {
		e, ok := event.(events.ContractStatusChanged)
		if !ok {
			return nil
		}
		return engine.OnContractStatusChange(ctx, e.ContractID, e.NewStatus)
	}))

	bus.Subscribe(events.TestNumberIssuedName, platformevents.HandlerFunc(func(ctx context.Context, event platformevents.Event) error {
		e, ok := event.(events.TestNumberIssued)
		if !ok {
			return nil
		}
		_, err := engine.OnTestNumberIssued(ctx, e.ReceptionID, e.ActorID)
		return err
	}))

	bus.Subscribe(events.StudyCompletedName, platformevents.HandlerFunc(func(ctx context.Context, event platformevents.Event) error {
		e, ok := event.(events.StudyCompleted)
		if !ok {
			return nil
		}
		_, err := engine.OnStudyCompleted(ctx, e.StudyID, e.ActorID)
		return err
	}))

	bus.Subscribe(events.LeadContactChangedName, platformevents.HandlerFunc(func(ctx context.Context, event platformevents.Event) error {
		e, ok := event.(events.LeadContactChanged)
		if !ok {
			return nil
		}
		_, err := syncEngine.SyncLeadToCustomer(ctx, e.LeadID, e.ActorID)
		return err
	}))

	bus.Subscribe(events.CustomerContactChangedName, platformevents.HandlerFunc(func(ctx context.Context, event platformevents.Event) error {
		e, ok := event.(events.CustomerContactChanged)
		if !ok {
			return nil
		}
		_, err := syncEngine.SyncCustomerToLead(ctx, e.CustomerID, e.ActorID)
		return err
	}))

	log.Info("lead automation subscriptions registered")
}

// conversionStore adapts the repository to the conversion service's store
// interface.
type conversionStore struct {
	repo *repository.Repository
}

func (s conversionStore) Begin(ctx context.Context) (conversion.Tx, error) {
	return s.repo.BeginConversion(ctx)
}

func (s conversionStore) GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	return s.repo.GetByID(ctx, id)
}

// syncStore adapts the repository to the sync engine's store interface.
type syncStore struct {
	repo *repository.Repository
}

func (s syncStore) GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	return s.repo.GetByID(ctx, id)
}

func (s syncStore) GetCustomer(ctx context.Context, id uuid.UUID) (repository.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s syncStore) ListLeadsByCustomer(ctx context.Context, customerID uuid.UUID) ([]repository.Lead, error) {
	return s.repo.ListByCustomerID(ctx, customerID)
}

func (s syncStore) UpdateLeadContactFields(ctx context.Context, id uuid.UUID, params repository.UpdateContactParams, touchUpdatedAt bool) (repository.Lead, error) {
	return s.repo.UpdateContactFields(ctx, id, params, touchUpdatedAt)
}

func (s syncStore) UpdateCustomerContactFields(ctx context.Context, id uuid.UUID, params repository.UpdateContactParams, touchUpdatedAt bool) (repository.Customer, error) {
	return s.repo.UpdateCustomerContactFields(ctx, id, params, touchUpdatedAt)
}

// syncAuditor writes sync audit entries into the shared activity log.
type syncAuditor struct {
	repo *audit.Repository
}

func (a syncAuditor) Record(ctx context.Context, entry syncengine.AuditEntry) error {
	detail := map[string]interface{}{
		"direction":  entry.Direction,
		"leadId":     entry.LeadID,
		"customerId": entry.CustomerID,
		"fields":     entry.Fields,
	}
	for key, value := range entry.Detail {
		detail[key] = value
	}

	return a.repo.Append(ctx, audit.AppendParams{
		Action:     entry.Action,
		EntityType: "lead",
		EntityID:   entry.LeadID,
		ActorID:    entry.ActorID,
		Detail:     detail,
	})
}

var _ apphttp.Module = (*Module)(nil)
