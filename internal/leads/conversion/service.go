// Package conversion turns a lead into a customer as one atomic unit of
// work: customer create-or-update, grade upgrade, lead flip, and quotation
// relinking either all commit or none do.
package conversion

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"labcrm_backend/internal/events"
	"labcrm_backend/internal/leads/domain"
	"labcrm_backend/internal/leads/repository"
	"labcrm_backend/internal/leads/transport"
	"labcrm_backend/platform/apperr"
	platformevents "labcrm_backend/platform/events"
	"labcrm_backend/platform/logger"
)

// Tx is the conversion unit of work. The leads repository's ConversionTx
// satisfies it; tests supply fakes.
type Tx interface {
	GetLeadForUpdate(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (repository.Customer, error)
	CreateCustomer(ctx context.Context, params repository.CreateCustomerParams) (repository.Customer, error)
	UpdateCustomerForConversion(ctx context.Context, id uuid.UUID, params repository.CreateCustomerParams) (repository.Customer, error)
	MarkLeadConverted(ctx context.Context, leadID, customerID uuid.UUID) (repository.Lead, error)
	RelinkQuotations(ctx context.Context, leadID, customerID uuid.UUID) ([]uuid.UUID, error)
	AddActivity(ctx context.Context, params repository.AddActivityParams) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens conversion transactions and serves the plain reads the
// service needs outside them.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error)
}

// Syncer is the sync engine surface the conversion service delegates
// directional field synchronization to.
type Syncer interface {
	SyncLeadToCustomer(ctx context.Context, leadID uuid.UUID, actorID uuid.UUID) (*transport.SyncResult, error)
	SyncCustomerToLead(ctx context.Context, customerID uuid.UUID, actorID uuid.UUID) ([]transport.SyncResult, error)
}

type Service struct {
	store  Store
	syncer Syncer
	bus    platformevents.Bus
	log    *logger.Logger
}

func New(store Store, syncer Syncer, bus platformevents.Bus, log *logger.Logger) *Service {
	return &Service{store: store, syncer: syncer, bus: bus, log: log}
}

// Convert runs the full lead conversion. Not idempotent: a lead that is
// already CONVERTED with a linked customer fails with a conflict, so callers
// must check state first or handle the error.
func (s *Service) Convert(ctx context.Context, leadID uuid.UUID, actorID uuid.UUID) (transport.ConversionResult, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return transport.ConversionResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := tx.GetLeadForUpdate(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.ConversionResult{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return transport.ConversionResult{}, err
	}

	if lead.Status == string(domain.StatusConverted) && lead.CustomerID != nil {
		return transport.ConversionResult{}, apperr.Conflict("lead already converted")
	}

	customer, created, err := s.materializeCustomer(ctx, tx, lead)
	if err != nil {
		return transport.ConversionResult{}, err
	}

	updatedLead, err := tx.MarkLeadConverted(ctx, lead.ID, customer.ID)
	if errors.Is(err, repository.ErrAlreadyConverted) {
		return transport.ConversionResult{}, apperr.Conflict("lead already converted")
	}
	if err != nil {
		return transport.ConversionResult{}, err
	}

	quotationIDs, err := tx.RelinkQuotations(ctx, lead.ID, customer.ID)
	if err != nil {
		return transport.ConversionResult{}, err
	}

	// Inside the transaction so the record commits with the conversion.
	if err := tx.AddActivity(ctx, repository.AddActivityParams{
		LeadID:       lead.ID,
		ActivityType: repository.ActivityConverted,
		Description:  "lead converted to customer",
		Metadata: map[string]interface{}{
			"customerId":          customer.ID,
			"customerCreated":     created,
			"updatedQuotationIds": quotationIDs,
		},
		ActorID: actorPtr(actorID),
	}); err != nil {
		return transport.ConversionResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return transport.ConversionResult{}, err
	}

	s.bus.Publish(ctx, events.LeadConverted{
		BaseEvent:  platformevents.NewBaseEvent(),
		LeadID:     updatedLead.ID,
		CustomerID: customer.ID,
		Created:    created,
		ActorID:    actorID,
	})

	return transport.ConversionResult{
		Lead:                transport.NewLeadResponse(updatedLead),
		Customer:            transport.NewCustomerResponse(customer),
		CustomerCreated:     created,
		UpdatedQuotationIDs: quotationIDs,
	}, nil
}

// materializeCustomer updates the linked customer from the lead's fields, or
// creates a fresh one when no customer is linked yet.
func (s *Service) materializeCustomer(ctx context.Context, tx Tx, lead repository.Lead) (repository.Customer, bool, error) {
	if lead.CustomerID != nil {
		existing, err := tx.GetCustomerForUpdate(ctx, *lead.CustomerID)
		if err != nil {
			return repository.Customer{}, false, err
		}

		updated, err := tx.UpdateCustomerForConversion(ctx, existing.ID, repository.CreateCustomerParams{
			Name:    lead.ContactName,
			Company: lead.CompanyName,
			Email:   lead.ContactEmail,
			Phone:   lead.ContactPhone,
			Grade:   string(domain.UpgradeGrade(domain.Grade(existing.Grade))),
			Notes:   existing.Notes,
		})
		return updated, false, err
	}

	provenance := "converted from lead " + lead.LeadNumber
	created, err := tx.CreateCustomer(ctx, repository.CreateCustomerParams{
		Name:    lead.ContactName,
		Company: lead.CompanyName,
		Email:   lead.ContactEmail,
		Phone:   lead.ContactPhone,
		Grade:   string(domain.GradeCustomer),
		Notes:   &provenance,
	})
	return created, true, err
}

// SyncLeadCustomerData is the legacy directional entry point; it delegates
// to the sync engine so both call paths share one diff and audit shape.
func (s *Service) SyncLeadCustomerData(ctx context.Context, leadID uuid.UUID, direction domain.SyncDirection, actorID uuid.UUID) (*transport.SyncResult, error) {
	switch direction {
	case domain.DirectionLeadToCustomer:
		return s.syncer.SyncLeadToCustomer(ctx, leadID, actorID)
	case domain.DirectionCustomerToLead:
		// Resolve the lead's customer and run the customer-side sync for it.
		results, err := s.syncCustomerSide(ctx, leadID, actorID)
		if err != nil {
			return nil, err
		}
		for i := range results {
			if results[i].LeadID == leadID {
				return &results[i], nil
			}
		}
		return nil, nil
	default:
		return nil, apperr.BadRequest("unknown sync direction")
	}
}

func (s *Service) syncCustomerSide(ctx context.Context, leadID uuid.UUID, actorID uuid.UUID) ([]transport.SyncResult, error) {
	lead, err := s.store.GetLead(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, err
	}
	if lead.CustomerID == nil {
		return nil, apperr.Conflict("lead has no linked customer")
	}
	return s.syncer.SyncCustomerToLead(ctx, *lead.CustomerID, actorID)
}

func actorPtr(actorID uuid.UUID) *uuid.UUID {
	if actorID == uuid.Nil {
		return nil
	}
	return &actorID
}
