// Package service implements customer lifecycle operations.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"labcrm_backend/internal/customers/repository"
	"labcrm_backend/internal/customers/transport"
	"labcrm_backend/internal/events"
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

func (s *Service) Create(ctx context.Context, req transport.CreateCustomerRequest) (transport.CustomerResponse, error) {
	grade := req.Grade
	if grade == "" {
		grade = "PROSPECT"
	}

	customer, err := s.repo.Create(ctx, repository.CreateCustomerParams{
		Name:    req.Name,
		Company: req.Company,
		Email:   req.Email,
		Phone:   phone.NormalizeE164(req.Phone),
		Grade:   grade,
		Notes:   req.Notes,
	})
	if err != nil {
		return transport.CustomerResponse{}, err
	}
	return transport.NewCustomerResponse(customer), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.CustomerResponse, error) {
	customer, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.CustomerResponse{}, apperr.NotFound("customer not found")
	}
	if err != nil {
		return transport.CustomerResponse{}, err
	}
	return transport.NewCustomerResponse(customer), nil
}

func (s *Service) List(ctx context.Context, grade *string, limit, offset int) ([]transport.CustomerResponse, error) {
	customers, err := s.repo.List(ctx, repository.ListCustomersParams{Grade: grade, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}

	responses := make([]transport.CustomerResponse, 0, len(customers))
	for _, customer := range customers {
		responses = append(responses, transport.NewCustomerResponse(customer))
	}
	return responses, nil
}

// Update edits a customer. A change to any mapped contact field publishes
// CustomerContactChanged so the sync engine can align the linked leads.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateCustomerRequest, actorID uuid.UUID) (transport.CustomerResponse, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.CustomerResponse{}, apperr.NotFound("customer not found")
	}
	if err != nil {
		return transport.CustomerResponse{}, err
	}

	normalizedPhone := phone.NormalizeE164(req.Phone)
	contactChanged := existing.Name != req.Name ||
		existing.Company != req.Company ||
		existing.Email != req.Email ||
		!phone.Equivalent(existing.Phone, normalizedPhone)

	customer, err := s.repo.Update(ctx, id, repository.UpdateCustomerParams{
		Name:    req.Name,
		Company: req.Company,
		Email:   req.Email,
		Phone:   normalizedPhone,
		Grade:   req.Grade,
		Notes:   req.Notes,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return transport.CustomerResponse{}, apperr.NotFound("customer not found")
	}
	if err != nil {
		return transport.CustomerResponse{}, err
	}

	if contactChanged {
		s.bus.Publish(ctx, events.CustomerContactChanged{
			BaseEvent:  platformevents.NewBaseEvent(),
			CustomerID: customer.ID,
			ActorID:    actorID,
		})
	}

	return transport.NewCustomerResponse(customer), nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.SoftDelete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("customer not found")
	}
	return err
}
