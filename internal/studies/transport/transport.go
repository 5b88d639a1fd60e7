// Package transport defines the request and response shapes for the studies
// module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"labcrm_backend/internal/studies/repository"
)

type CreateReceptionRequest struct {
	ContractID uuid.UUID `json:"contractId" validate:"required"`
}

type CreateStudyRequest struct {
	ContractID uuid.UUID `json:"contractId" validate:"required"`
	Title      string    `json:"title" validate:"required,max=200"`
}

type ReceptionResponse struct {
	ID         uuid.UUID  `json:"id"`
	ContractID uuid.UUID  `json:"contractId"`
	TestNumber *string    `json:"testNumber,omitempty"`
	Status     string     `json:"status"`
	ReceivedAt time.Time  `json:"receivedAt"`
	IssuedAt   *time.Time `json:"issuedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type StudyResponse struct {
	ID          uuid.UUID  `json:"id"`
	ContractID  uuid.UUID  `json:"contractId"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func NewReceptionResponse(reception repository.TestReception) ReceptionResponse {
	return ReceptionResponse{
		ID:         reception.ID,
		ContractID: reception.ContractID,
		TestNumber: reception.TestNumber,
		Status:     reception.Status,
		ReceivedAt: reception.ReceivedAt,
		IssuedAt:   reception.IssuedAt,
		CreatedAt:  reception.CreatedAt,
		UpdatedAt:  reception.UpdatedAt,
	}
}

func NewStudyResponse(study repository.Study) StudyResponse {
	return StudyResponse{
		ID:          study.ID,
		ContractID:  study.ContractID,
		Title:       study.Title,
		Status:      study.Status,
		CompletedAt: study.CompletedAt,
		CreatedAt:   study.CreatedAt,
		UpdatedAt:   study.UpdatedAt,
	}
}
