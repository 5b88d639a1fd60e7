// Package service implements quotation lifecycle operations.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"labcrm_backend/internal/events"
	"labcrm_backend/internal/quotations/repository"
	"labcrm_backend/internal/quotations/transport"
	"labcrm_backend/platform/apperr"
	platformevents "labcrm_backend/platform/events"
)

// Quotation statuses and their allowed transitions.
const (
	StatusDraft    = "DRAFT"
	StatusSent     = "SENT"
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
)

var allowedTransitions = map[string][]string{
	StatusDraft: {StatusSent},
	StatusSent:  {StatusAccepted, StatusRejected},
}

type Service struct {
	repo *repository.Repository
	bus  platformevents.Bus
}

func New(repo *repository.Repository, bus platformevents.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

func (s *Service) Create(ctx context.Context, req transport.CreateQuotationRequest, actorID uuid.UUID) (transport.QuotationResponse, error) {
	number, err := s.repo.NextQuotationNumber(ctx, time.Now().Year())
	if err != nil {
		return transport.QuotationResponse{}, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "KRW"
	}

	quotation, err := s.repo.Create(ctx, repository.CreateQuotationParams{
		QuotationNumber: number,
		LeadID:          req.LeadID,
		CustomerID:      req.CustomerID,
		UserID:          actorPtr(actorID),
		TotalAmount:     req.TotalAmount,
		Currency:        currency,
		ValidUntil:      req.ValidUntil,
	})
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	return transport.NewQuotationResponse(quotation), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.QuotationResponse, error) {
	quotation, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.QuotationResponse{}, apperr.NotFound("quotation not found")
	}
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	return transport.NewQuotationResponse(quotation), nil
}

func (s *Service) ListByLead(ctx context.Context, leadID uuid.UUID) ([]transport.QuotationResponse, error) {
	quotations, err := s.repo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return toResponses(quotations), nil
}

func (s *Service) ListByContract(ctx context.Context, contractID uuid.UUID) ([]transport.QuotationResponse, error) {
	quotations, err := s.repo.ListByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return toResponses(quotations), nil
}

// UpdateStatus applies a validated status transition and publishes the
// change so the pipeline automation can react.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus string, actorID uuid.UUID) (transport.QuotationResponse, error) {
	quotation, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.QuotationResponse{}, apperr.NotFound("quotation not found")
	}
	if err != nil {
		return transport.QuotationResponse{}, err
	}

	if !transitionAllowed(quotation.Status, newStatus) {
		return transport.QuotationResponse{}, apperr.Conflict("invalid status transition " + quotation.Status + " -> " + newStatus)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		return transport.QuotationResponse{}, err
	}

	if updated.LeadID != nil {
		s.bus.Publish(ctx, events.QuotationStatusChanged{
			BaseEvent:   platformevents.NewBaseEvent(),
			QuotationID: updated.ID,
			LeadID:      *updated.LeadID,
			OldStatus:   quotation.Status,
			NewStatus:   newStatus,
			ActorID:     actorID,
		})
	}

	return transport.NewQuotationResponse(updated), nil
}

func (s *Service) AttachToContract(ctx context.Context, id uuid.UUID, contractID uuid.UUID) (transport.QuotationResponse, error) {
	quotation, err := s.repo.AttachToContract(ctx, id, contractID)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.QuotationResponse{}, apperr.NotFound("quotation not found")
	}
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	return transport.NewQuotationResponse(quotation), nil
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func toResponses(quotations []repository.Quotation) []transport.QuotationResponse {
	responses := make([]transport.QuotationResponse, 0, len(quotations))
	for _, q := range quotations {
		responses = append(responses, transport.NewQuotationResponse(q))
	}
	return responses
}

func actorPtr(actorID uuid.UUID) *uuid.UUID {
	if actorID == uuid.Nil {
		return nil
	}
	return &actorID
}
