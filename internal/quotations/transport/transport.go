// Package transport defines the request and response shapes for the
// quotations module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"labcrm_backend/internal/quotations/repository"
)

type CreateQuotationRequest struct {
	LeadID      *uuid.UUID `json:"leadId" validate:"omitempty"`
	CustomerID  *uuid.UUID `json:"customerId" validate:"omitempty"`
	TotalAmount float64    `json:"totalAmount" validate:"gte=0"`
	Currency    string     `json:"currency" validate:"omitempty,len=3"`
	ValidUntil  *time.Time `json:"validUntil" validate:"omitempty"`
}

type UpdateQuotationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=DRAFT SENT ACCEPTED REJECTED"`
}

type AttachContractRequest struct {
	ContractID uuid.UUID `json:"contractId" validate:"required"`
}

type QuotationResponse struct {
	ID              uuid.UUID  `json:"id"`
	QuotationNumber string     `json:"quotationNumber"`
	LeadID          *uuid.UUID `json:"leadId,omitempty"`
	CustomerID      *uuid.UUID `json:"customerId,omitempty"`
	ContractID      *uuid.UUID `json:"contractId,omitempty"`
	Status          string     `json:"status"`
	TotalAmount     float64    `json:"totalAmount"`
	Currency        string     `json:"currency"`
	ValidUntil      *time.Time `json:"validUntil,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func NewQuotationResponse(q repository.Quotation) QuotationResponse {
	return QuotationResponse{
		ID:              q.ID,
		QuotationNumber: q.QuotationNumber,
		LeadID:          q.LeadID,
		CustomerID:      q.CustomerID,
		ContractID:      q.ContractID,
		Status:          q.Status,
		TotalAmount:     q.TotalAmount,
		Currency:        q.Currency,
		ValidUntil:      q.ValidUntil,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}
