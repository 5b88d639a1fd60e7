// Package management provides the basic lead lifecycle: create, read, list,
// and contact edits. Pipeline movement lives in the automation package and
// conversion in the conversion package.
package management

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
	"labcrm_backend/platform/phone"
)

type Service struct {
	repo *repository.Repository
	bus  platformevents.Bus
}

func New(repo *repository.Repository, bus platformevents.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		ContactName:  req.ContactName,
		CompanyName:  req.CompanyName,
		ContactEmail: req.ContactEmail,
		ContactPhone: phone.NormalizeE164(req.ContactPhone),
		Source:       req.Source,
		Notes:        req.Notes,
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return transport.NewLeadResponse(lead), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return transport.NewLeadResponse(lead), nil
}

func (s *Service) List(ctx context.Context, status *string, limit, offset int) ([]transport.LeadResponse, error) {
	if status != nil && !domain.IsKnownStatus(domain.Status(*status)) {
		return nil, apperr.BadRequest("unknown lead status")
	}

	leads, err := s.repo.List(ctx, repository.ListLeadsParams{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}

	responses := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		responses = append(responses, transport.NewLeadResponse(lead))
	}
	return responses, nil
}

// UpdateContact edits the lead's contact fields. When the lead is converted,
// a LeadContactChanged event lets the sync engine propagate the edit to the
// linked customer.
func (s *Service) UpdateContact(ctx context.Context, id uuid.UUID, req transport.UpdateLeadContactRequest, actorID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.UpdateContactFields(ctx, id, repository.UpdateContactParams{
		ContactName:  req.ContactName,
		CompanyName:  req.CompanyName,
		ContactEmail: req.ContactEmail,
		ContactPhone: phone.NormalizeE164(req.ContactPhone),
	}, true)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if lead.CustomerID != nil {
		s.bus.Publish(ctx, events.LeadContactChanged{
			BaseEvent: platformevents.NewBaseEvent(),
			LeadID:    lead.ID,
			ActorID:   actorID,
		})
	}

	return transport.NewLeadResponse(lead), nil
}

func (s *Service) Activities(ctx context.Context, id uuid.UUID, limit int) ([]repository.LeadActivity, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, err
	}
	return s.repo.ListActivities(ctx, id, limit)
}
