// Package sync keeps the duplicated contact fields of a lead and its linked
// customer identical. Writes are deliberately not wrapped in a transaction
// spanning the read-compare-write cycle: concurrent edits resolve by
// last-write-wins on updatedAt, and a scheduled reconciliation pass repairs
// any divergence a race leaves behind.
package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"labcrm_backend/internal/leads/domain"
	"labcrm_backend/internal/leads/repository"
	"labcrm_backend/internal/leads/transport"
	"labcrm_backend/platform/apperr"
	"labcrm_backend/platform/logger"
)

// Winner values recorded in conflict details.
const (
	WinnerLead     = "lead"
	WinnerCustomer = "customer"
)

// Store is the persistence surface the engine needs.
type Store interface {
	GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (repository.Customer, error)
	ListLeadsByCustomer(ctx context.Context, customerID uuid.UUID) ([]repository.Lead, error)
	UpdateLeadContactFields(ctx context.Context, id uuid.UUID, params repository.UpdateContactParams, touchUpdatedAt bool) (repository.Lead, error)
	UpdateCustomerContactFields(ctx context.Context, id uuid.UUID, params repository.UpdateContactParams, touchUpdatedAt bool) (repository.Customer, error)
}

// AuditEntry is one sync audit record.
type AuditEntry struct {
	Action     string
	LeadID     uuid.UUID
	CustomerID uuid.UUID
	Direction  domain.SyncDirection
	Fields     []string
	ActorID    *uuid.UUID
	Detail     map[string]interface{}
}

// Audit actions.
const (
	ActionSync             = "SYNC"
	ActionConflictResolved = "SYNC_CONFLICT_RESOLVED"
)

// Auditor records sync audit entries. Failures are swallowed by the engine.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry) error
}

type Engine struct {
	store   Store
	auditor Auditor
	log     *logger.Logger
}

func New(store Store, auditor Auditor, log *logger.Logger) *Engine {
	return &Engine{store: store, auditor: auditor, log: log}
}

// SyncLeadToCustomer copies the lead's contact fields onto its linked
// customer. A lead without a customer is "nothing to sync" and returns nil.
func (e *Engine) SyncLeadToCustomer(ctx context.Context, leadID uuid.UUID, actorID uuid.UUID) (*transport.SyncResult, error) {
	lead, err := e.store.GetLead(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, err
	}
	if lead.CustomerID == nil {
		return nil, nil
	}

	customer, err := e.store.GetCustomer(ctx, *lead.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("linked customer not found")
	}
	if err != nil {
		return nil, err
	}

	result, err := e.syncPair(ctx, lead, customer, domain.DirectionLeadToCustomer, actorID)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SyncCustomerToLead copies the customer's contact fields onto every lead
// linked to it, one result per lead.
func (e *Engine) SyncCustomerToLead(ctx context.Context, customerID uuid.UUID, actorID uuid.UUID) ([]transport.SyncResult, error) {
	customer, err := e.store.GetCustomer(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("customer not found")
	}
	if err != nil {
		return nil, err
	}

	leads, err := e.store.ListLeadsByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	results := make([]transport.SyncResult, 0, len(leads))
	for _, lead := range leads {
		result, err := e.syncPair(ctx, lead, customer, domain.DirectionCustomerToLead, actorID)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// SyncWithConflictResolution reconciles a pair that may have diverged on
// both sides since lastSyncAt. Both sides edited means a conflict; the side
// with the later updatedAt wins, and the resolution is audited separately.
func (e *Engine) SyncWithConflictResolution(ctx context.Context, leadID uuid.UUID, actorID uuid.UUID, lastSyncAt time.Time) (*transport.SyncResult, error) {
	lead, err := e.store.GetLead(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, err
	}
	if lead.CustomerID == nil {
		return nil, nil
	}

	customer, err := e.store.GetCustomer(ctx, *lead.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("linked customer not found")
	}
	if err != nil {
		return nil, err
	}

	leadChanged := lead.UpdatedAt.After(lastSyncAt)
	customerChanged := customer.UpdatedAt.After(lastSyncAt)

	var direction domain.SyncDirection
	switch {
	case leadChanged && customerChanged:
		// True conflict. Later write wins.
		if lead.UpdatedAt.After(customer.UpdatedAt) {
			direction = domain.DirectionLeadToCustomer
		} else {
			direction = domain.DirectionCustomerToLead
		}
	case customerChanged:
		direction = domain.DirectionCustomerToLead
	default:
		direction = domain.DirectionLeadToCustomer
	}

	result, err := e.syncPair(ctx, lead, customer, direction, actorID)
	if err != nil {
		return nil, err
	}

	if leadChanged && customerChanged && len(result.SyncedFields) > 0 {
		winner := WinnerLead
		if direction == domain.DirectionCustomerToLead {
			winner = WinnerCustomer
		}
		result.ConflictResolved = true
		result.ConflictDetails = &transport.ConflictDetails{
			LeadUpdatedAt:     lead.UpdatedAt,
			CustomerUpdatedAt: customer.UpdatedAt,
			Winner:            winner,
			ConflictingFields: result.SyncedFields,
		}

		e.recordAudit(ctx, AuditEntry{
			Action:     ActionConflictResolved,
			LeadID:     lead.ID,
			CustomerID: customer.ID,
			Direction:  direction,
			Fields:     result.SyncedFields,
			ActorID:    actorPtr(actorID),
			Detail: map[string]interface{}{
				"leadUpdatedAt":     lead.UpdatedAt,
				"customerUpdatedAt": customer.UpdatedAt,
				"winner":            winner,
				"lastSyncAt":        lastSyncAt,
			},
		})
	}

	return &result, nil
}

// syncPair diffs the mapped fields and writes the losing side. An identical
// pair is a success with no write and no audit row.
func (e *Engine) syncPair(ctx context.Context, lead repository.Lead, customer repository.Customer, direction domain.SyncDirection, actorID uuid.UUID) (transport.SyncResult, error) {
	leadFields := domain.ContactFields{
		Name:    lead.ContactName,
		Company: lead.CompanyName,
		Email:   lead.ContactEmail,
		Phone:   lead.ContactPhone,
	}
	customerFields := domain.ContactFields{
		Name:    customer.Name,
		Company: customer.Company,
		Email:   customer.Email,
		Phone:   customer.Phone,
	}

	result := transport.SyncResult{
		LeadID:       lead.ID,
		CustomerID:   customer.ID,
		Direction:    string(direction),
		SyncedFields: []string{},
	}

	diffs := domain.DiffContactFields(leadFields, customerFields)
	if len(diffs) == 0 {
		return result, nil
	}

	columns := domain.ChangedColumns(diffs, direction)

	if direction == domain.DirectionLeadToCustomer {
		merged := domain.ApplyDiffs(customerFields, diffs, direction)
		if _, err := e.store.UpdateCustomerContactFields(ctx, customer.ID, repository.UpdateContactParams{
			ContactName:  merged.Name,
			CompanyName:  merged.Company,
			ContactEmail: merged.Email,
			ContactPhone: merged.Phone,
		}, false); err != nil {
			return transport.SyncResult{}, err
		}
	} else {
		merged := domain.ApplyDiffs(leadFields, diffs, direction)
		if _, err := e.store.UpdateLeadContactFields(ctx, lead.ID, repository.UpdateContactParams{
			ContactName:  merged.Name,
			CompanyName:  merged.Company,
			ContactEmail: merged.Email,
			ContactPhone: merged.Phone,
		}, false); err != nil {
			return transport.SyncResult{}, err
		}
	}

	result.SyncedFields = columns

	e.recordAudit(ctx, AuditEntry{
		Action:     ActionSync,
		LeadID:     lead.ID,
		CustomerID: customer.ID,
		Direction:  direction,
		Fields:     columns,
		ActorID:    actorPtr(actorID),
	})

	return result, nil
}

func (e *Engine) recordAudit(ctx context.Context, entry AuditEntry) {
	if err := e.auditor.Record(ctx, entry); err != nil {
		e.log.AuditWriteFailed("activity_logs", entry.Action, err)
	}
}

func actorPtr(actorID uuid.UUID) *uuid.UUID {
	if actorID == uuid.Nil {
		return nil
	}
	return &actorID
}
