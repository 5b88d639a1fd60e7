// Package transport defines the request and response shapes for the leads
// module, including the result types shared by the automation, conversion,
// and sync engines.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	ContactName  string  `json:"contactName" validate:"required,max=120"`
	CompanyName  string  `json:"companyName" validate:"required,max=200"`
	ContactEmail string  `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone string  `json:"contactPhone" validate:"omitempty,max=32"`
	Source       *string `json:"source" validate:"omitempty,max=60"`
	Notes        *string `json:"notes" validate:"omitempty,max=2000"`
}

type UpdateLeadContactRequest struct {
	ContactName  string `json:"contactName" validate:"required,max=120"`
	CompanyName  string `json:"companyName" validate:"required,max=200"`
	ContactEmail string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone string `json:"contactPhone" validate:"omitempty,max=32"`
}

type UpdateLeadStageRequest struct {
	StageCode string `json:"stageCode" validate:"required,max=40"`
}

type CompleteTaskRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

type SyncRequest struct {
	Direction string `json:"direction" validate:"required,oneof=lead_to_customer customer_to_lead"`
}

type LeadResponse struct {
	ID           uuid.UUID  `json:"id"`
	LeadNumber   string     `json:"leadNumber"`
	ContactName  string     `json:"contactName"`
	CompanyName  string     `json:"companyName"`
	ContactEmail string     `json:"contactEmail"`
	ContactPhone string     `json:"contactPhone"`
	Status       string     `json:"status"`
	StageID      *uuid.UUID `json:"stageId,omitempty"`
	Source       *string    `json:"source,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	CustomerID   *uuid.UUID `json:"customerId,omitempty"`
	ConvertedAt  *time.Time `json:"convertedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type CustomerResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Company string    `json:"company"`
	Email   string    `json:"email"`
	Phone   string    `json:"phone"`
	Grade   string    `json:"grade"`
	Notes   *string   `json:"notes,omitempty"`
}

// LeadStageResult reports a completed stage or status advance. Automation
// hooks return a nil pointer when nothing happened.
type LeadStageResult struct {
	Lead            LeadResponse `json:"lead"`
	PreviousStatus  string       `json:"previousStatus,omitempty"`
	NewStatus       string       `json:"newStatus,omitempty"`
	PreviousStageID *uuid.UUID   `json:"previousStageId,omitempty"`
	NewStageID      *uuid.UUID   `json:"newStageId,omitempty"`
	StageName       string       `json:"stageName,omitempty"`
}

type TaskProgressItem struct {
	TaskID      uuid.UUID  `json:"taskId"`
	Title       string     `json:"title"`
	IsRequired  bool       `json:"isRequired"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy *uuid.UUID `json:"completedBy,omitempty"`
}

type TaskProgressResponse struct {
	LeadID         uuid.UUID          `json:"leadId"`
	StageID        *uuid.UUID         `json:"stageId,omitempty"`
	TotalTasks     int                `json:"totalTasks"`
	CompletedTasks int                `json:"completedTasks"`
	Tasks          []TaskProgressItem `json:"tasks"`
}

// ConversionResult is the outcome of a successful lead conversion.
type ConversionResult struct {
	Lead                LeadResponse     `json:"lead"`
	Customer            CustomerResponse `json:"customer"`
	CustomerCreated     bool             `json:"customerCreated"`
	UpdatedQuotationIDs []uuid.UUID      `json:"updatedQuotationIds"`
}

// ConflictDetails describes a resolved sync conflict.
type ConflictDetails struct {
	LeadUpdatedAt     time.Time `json:"leadUpdatedAt"`
	CustomerUpdatedAt time.Time `json:"customerUpdatedAt"`
	Winner            string    `json:"winner"`
	ConflictingFields []string  `json:"conflictingFields"`
}

// SyncResult reports one directional sync pass between a lead and its
// customer. SyncedFields empty means the pair was already identical.
type SyncResult struct {
	LeadID           uuid.UUID        `json:"leadId"`
	CustomerID       uuid.UUID        `json:"customerId"`
	Direction        string           `json:"direction"`
	SyncedFields     []string         `json:"syncedFields"`
	ConflictResolved bool             `json:"conflictResolved"`
	ConflictDetails  *ConflictDetails `json:"conflictDetails,omitempty"`
}
