// Package service implements contract lifecycle operations, including the
// bulk conversion of the leads behind a signed contract.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"labcrm_backend/internal/contracts/repository"
	"labcrm_backend/internal/contracts/transport"
	"labcrm_backend/internal/events"
	leadstransport "labcrm_backend/internal/leads/transport"
	"labcrm_backend/platform/apperr"
	platformevents "labcrm_backend/platform/events"
	"labcrm_backend/platform/logger"
)

// LeadLister resolves the leads linked to a contract through its quotations.
type LeadLister interface {
	ListContractLeadIDs(ctx context.Context, contractID uuid.UUID) ([]uuid.UUID, error)
}

// Converter is the full lead conversion engine.
type Converter interface {
	Convert(ctx context.Context, leadID uuid.UUID, actorID uuid.UUID) (leadstransport.ConversionResult, error)
}

type Service struct {
	repo      *repository.Repository
	leads     LeadLister
	converter Converter
	bus       platformevents.Bus
	log       *logger.Logger
}

func New(repo *repository.Repository, leads LeadLister, converter Converter, bus platformevents.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, leads: leads, converter: converter, bus: bus, log: log}
}

func (s *Service) Create(ctx context.Context, req transport.CreateContractRequest) (transport.ContractResponse, error) {
	number, err := s.repo.NextContractNumber(ctx, time.Now().Year())
	if err != nil {
		return transport.ContractResponse{}, err
	}

	contract, err := s.repo.Create(ctx, number, req.Title)
	if err != nil {
		return transport.ContractResponse{}, err
	}
	return transport.NewContractResponse(contract), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.ContractResponse, error) {
	contract, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.ContractResponse{}, apperr.NotFound("contract not found")
	}
	if err != nil {
		return transport.ContractResponse{}, err
	}
	return transport.NewContractResponse(contract), nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]transport.ContractResponse, error) {
	contracts, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]transport.ContractResponse, 0, len(contracts))
	for _, contract := range contracts {
		responses = append(responses, transport.NewContractResponse(contract))
	}
	return responses, nil
}

// Sign marks the contract signed and publishes the status change; the leads
// module's subscription flips the attached leads to CONVERTED.
func (s *Service) Sign(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (transport.ContractResponse, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.ContractResponse{}, apperr.NotFound("contract not found")
	}
	if err != nil {
		return transport.ContractResponse{}, err
	}

	contract, err := s.repo.Sign(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.ContractResponse{}, apperr.Conflict("contract already signed")
	}
	if err != nil {
		return transport.ContractResponse{}, err
	}

	s.bus.Publish(ctx, events.ContractStatusChanged{
		BaseEvent:  platformevents.NewBaseEvent(),
		ContractID: contract.ID,
		OldStatus:  existing.Status,
		NewStatus:  contract.Status,
		ActorID:    actorID,
	})

	return transport.NewContractResponse(contract), nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (transport.ContractResponse, error) {
	contract, err := s.repo.Cancel(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.ContractResponse{}, apperr.Conflict("contract missing or already signed")
	}
	if err != nil {
		return transport.ContractResponse{}, err
	}
	return transport.NewContractResponse(contract), nil
}

// ConvertLeads runs the full conversion engine for every lead attached to
// the contract. Individual failures (already converted, missing lead) are
// reported per lead rather than aborting the batch.
func (s *Service) ConvertLeads(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (transport.ConvertLeadsResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ConvertLeadsResponse{}, apperr.NotFound("contract not found")
		}
		return transport.ConvertLeadsResponse{}, err
	}

	leadIDs, err := s.leads.ListContractLeadIDs(ctx, id)
	if err != nil {
		return transport.ConvertLeadsResponse{}, err
	}

	response := transport.ConvertLeadsResponse{
		Converted: make([]leadstransport.ConversionResult, 0, len(leadIDs)),
		Skipped:   make([]transport.SkippedLead, 0),
	}

	for _, leadID := range leadIDs {
		result, err := s.converter.Convert(ctx, leadID, actorID)
		if err != nil {
			if kind := apperr.GetKind(err); kind == apperr.KindConflict || kind == apperr.KindNotFound {
				response.Skipped = append(response.Skipped, transport.SkippedLead{LeadID: leadID, Reason: err.Error()})
				continue
			}
			return transport.ConvertLeadsResponse{}, err
		}
		response.Converted = append(response.Converted, result)
	}

	return response, nil
}
