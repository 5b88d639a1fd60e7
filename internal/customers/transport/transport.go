// Package transport defines the request and response shapes for the
// customers module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"labcrm_backend/internal/customers/repository"
)

type CreateCustomerRequest struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Company string  `json:"company" validate:"required,max=200"`
	Email   string  `json:"email" validate:"omitempty,email"`
	Phone   string  `json:"phone" validate:"omitempty,max=32"`
	Grade   string  `json:"grade" validate:"omitempty,oneof=LEAD PROSPECT INACTIVE CUSTOMER VIP"`
	Notes   *string `json:"notes" validate:"omitempty,max=2000"`
}

type UpdateCustomerRequest struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Company string  `json:"company" validate:"required,max=200"`
	Email   string  `json:"email" validate:"omitempty,email"`
	Phone   string  `json:"phone" validate:"omitempty,max=32"`
	Grade   string  `json:"grade" validate:"required,oneof=LEAD PROSPECT INACTIVE CUSTOMER VIP"`
	Notes   *string `json:"notes" validate:"omitempty,max=2000"`
}

type CustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Grade     string    `json:"grade"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewCustomerResponse(customer repository.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        customer.ID,
		Name:      customer.Name,
		Company:   customer.Company,
		Email:     customer.Email,
		Phone:     customer.Phone,
		Grade:     customer.Grade,
		Notes:     customer.Notes,
		CreatedAt: customer.CreatedAt,
		UpdatedAt: customer.UpdatedAt,
	}
}
