// Package service implements test reception intake and study lifecycle
// operations. Issuing a test number and completing a study both publish
// events that drive the lead pipeline forward.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"labcrm_backend/internal/events"
	"labcrm_backend/internal/studies/repository"
	"labcrm_backend/internal/studies/transport"
	"labcrm_backend/platform/apperr"
	platformevents "labcrm_backend/platform/events"
	"labcrm_backend/platform/logger"
)

type Service struct {
	repo *repository.Repository
	bus  platformevents.Bus
	log  *logger.Logger
}

func New(repo *repository.Repository, bus platformevents.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

func (s *Service) CreateReception(ctx context.Context, req transport.CreateReceptionRequest) (transport.ReceptionResponse, error) {
	reception, err := s.repo.CreateReception(ctx, req.ContractID)
	if err != nil {
		return transport.ReceptionResponse{}, err
	}
	return transport.NewReceptionResponse(reception), nil
}

func (s *Service) GetReception(ctx context.Context, id uuid.UUID) (transport.ReceptionResponse, error) {
	reception, err := s.repo.GetReception(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.ReceptionResponse{}, apperr.NotFound("test reception not found")
	}
	if err != nil {
		return transport.ReceptionResponse{}, err
	}
	return transport.NewReceptionResponse(reception), nil
}

// IssueTestNumber assigns the official test number to a reception and
// publishes the event that advances the lead's pipeline stage.
func (s *Service) IssueTestNumber(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (transport.ReceptionResponse, error) {
	if _, err := s.repo.GetReception(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ReceptionResponse{}, apperr.NotFound("test reception not found")
		}
		return transport.ReceptionResponse{}, err
	}

	reception, err := s.repo.IssueTestNumber(ctx, id, time.Now().Year())
	if errors.Is(err, repository.ErrNotFound) {
		return transport.ReceptionResponse{}, apperr.Conflict("test number already issued")
	}
	if err != nil {
		return transport.ReceptionResponse{}, err
	}

	s.bus.Publish(ctx, events.TestNumberIssued{
		BaseEvent:   platformevents.NewBaseEvent(),
		ReceptionID: reception.ID,
		TestNumber:  *reception.TestNumber,
		ActorID:     actorID,
	})

	return transport.NewReceptionResponse(reception), nil
}

func (s *Service) CreateStudy(ctx context.Context, req transport.CreateStudyRequest) (transport.StudyResponse, error) {
	study, err := s.repo.CreateStudy(ctx, req.ContractID, req.Title)
	if err != nil {
		return transport.StudyResponse{}, err
	}
	return transport.NewStudyResponse(study), nil
}

func (s *Service) GetStudy(ctx context.Context, id uuid.UUID) (transport.StudyResponse, error) {
	study, err := s.repo.GetStudy(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.StudyResponse{}, apperr.NotFound("study not found")
	}
	if err != nil {
		return transport.StudyResponse{}, err
	}
	return transport.NewStudyResponse(study), nil
}

// CompleteStudy marks a study COMPLETED and publishes the completion event.
func (s *Service) CompleteStudy(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (transport.StudyResponse, error) {
	if _, err := s.repo.GetStudy(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.StudyResponse{}, apperr.NotFound("study not found")
		}
		return transport.StudyResponse{}, err
	}

	study, err := s.repo.CompleteStudy(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.StudyResponse{}, apperr.Conflict("study already completed")
	}
	if err != nil {
		return transport.StudyResponse{}, err
	}

	s.bus.Publish(ctx, events.StudyCompleted{
		BaseEvent: platformevents.NewBaseEvent(),
		StudyID:   study.ID,
		ActorID:   actorID,
	})

	return transport.NewStudyResponse(study), nil
}
