// Package transport defines the request and response shapes for the
// contracts module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"labcrm_backend/internal/contracts/repository"
	leadstransport "labcrm_backend/internal/leads/transport"
)

type CreateContractRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type ContractResponse struct {
	ID             uuid.UUID  `json:"id"`
	ContractNumber string     `json:"contractNumber"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	SignedAt       *time.Time `json:"signedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ConvertLeadsResponse reports the per-lead outcomes of a contract-driven
// bulk conversion.
type ConvertLeadsResponse struct {
	Converted []leadstransport.ConversionResult `json:"converted"`
	Skipped   []SkippedLead                     `json:"skipped"`
}

type SkippedLead struct {
	LeadID uuid.UUID `json:"leadId"`
	Reason string    `json:"reason"`
}

func NewContractResponse(contract repository.Contract) ContractResponse {
	return ContractResponse{
		ID:             contract.ID,
		ContractNumber: contract.ContractNumber,
		Title:          contract.Title,
		Status:         contract.Status,
		SignedAt:       contract.SignedAt,
		CreatedAt:      contract.CreatedAt,
		UpdatedAt:      contract.UpdatedAt,
	}
}
