// Package events defines the domain events exchanged between modules.
// The transport is the in-process bus in platform/events; this package only
// names the events and their payloads so modules can subscribe without
// importing each other.
package events

import (
	"github.com/google/uuid"

	"labcrm_backend/platform/events"
)

// Event names. Subscribers register against these values.
const (
	QuotationStatusChangedName = "quotation.status_changed"
	ContractStatusChangedName  = "contract.status_changed"
	TestNumberIssuedName       = "study.test_number_issued"
	StudyCompletedName         = "study.completed"
	LeadConvertedName          = "lead.converted"
	LeadContactChangedName     = "lead.contact_changed"
	CustomerContactChangedName = "customer.contact_changed"
)

// QuotationStatusChanged fires after a quotation's status is persisted.
type QuotationStatusChanged struct {
	events.BaseEvent
	QuotationID uuid.UUID `json:"quotationId"`
	LeadID      uuid.UUID `json:"leadId"`
	OldStatus   string    `json:"oldStatus"`
	NewStatus   string    `json:"newStatus"`
	ActorID     uuid.UUID `json:"actorId"`
}

func (e QuotationStatusChanged) EventName() string { return QuotationStatusChangedName }

// ContractStatusChanged fires after a contract's status is persisted.
type ContractStatusChanged struct {
	events.BaseEvent
	ContractID uuid.UUID `json:"contractId"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	ActorID    uuid.UUID `json:"actorId"`
}

func (e ContractStatusChanged) EventName() string { return ContractStatusChangedName }

// TestNumberIssued fires when a test reception receives its official number.
type TestNumberIssued struct {
	events.BaseEvent
	ReceptionID uuid.UUID `json:"receptionId"`
	TestNumber  string    `json:"testNumber"`
	ActorID     uuid.UUID `json:"actorId"`
}

func (e TestNumberIssued) EventName() string { return TestNumberIssuedName }

// StudyCompleted fires when a study reaches its COMPLETED state.
type StudyCompleted struct {
	events.BaseEvent
	StudyID uuid.UUID `json:"studyId"`
	ActorID uuid.UUID `json:"actorId"`
}

func (e StudyCompleted) EventName() string { return StudyCompletedName }

// LeadConverted fires after a lead conversion transaction commits.
type LeadConverted struct {
	events.BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	CustomerID uuid.UUID `json:"customerId"`
	Created    bool      `json:"created"`
	ActorID    uuid.UUID `json:"actorId"`
}

func (e LeadConverted) EventName() string { return LeadConvertedName }

// LeadContactChanged fires after a converted lead's contact fields are edited.
type LeadContactChanged struct {
	events.BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	ActorID uuid.UUID `json:"actorId"`
}

func (e LeadContactChanged) EventName() string { return LeadContactChangedName }

// CustomerContactChanged fires after a customer's contact fields are edited.
type CustomerContactChanged struct {
	events.BaseEvent
	CustomerID uuid.UUID `json:"customerId"`
	ActorID    uuid.UUID `json:"actorId"`
}

func (e CustomerContactChanged) EventName() string { return CustomerContactChangedName }
