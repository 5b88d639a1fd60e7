package transport

import "labcrm_backend/internal/leads/repository"

// NewLeadResponse maps a repository lead row to its API shape.
func NewLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:           lead.ID,
		LeadNumber:   lead.LeadNumber,
		ContactName:  lead.ContactName,
		CompanyName:  lead.CompanyName,
		ContactEmail: lead.ContactEmail,
		ContactPhone: lead.ContactPhone,
		Status:       lead.Status,
		StageID:      lead.StageID,
		Source:       lead.Source,
		Notes:        lead.Notes,
		CustomerID:   lead.CustomerID,
		ConvertedAt:  lead.ConvertedAt,
		CreatedAt:    lead.CreatedAt,
		UpdatedAt:    lead.UpdatedAt,
	}
}

// NewCustomerResponse maps a repository customer row to its API shape.
func NewCustomerResponse(customer repository.Customer) CustomerResponse {
	return CustomerResponse{
		ID:      customer.ID,
		Name:    customer.Name,
		Company: customer.Company,
		Email:   customer.Email,
		Phone:   customer.Phone,
		Grade:   customer.Grade,
		Notes:   customer.Notes,
	}
}
