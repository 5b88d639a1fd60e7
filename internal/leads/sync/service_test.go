package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"labcrm_backend/internal/leads/domain"
	"labcrm_backend/internal/leads/repository"
	"labcrm_backend/platform/apperr"
	"labcrm_backend/platform/logger"
)

type fakeStore struct {
	leads     map[uuid.UUID]repository.Lead
	customers map[uuid.UUID]repository.Customer

	leadWrites     int
	customerWrites int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leads:     make(map[uuid.UUID]repository.Lead),
		customers: make(map[uuid.UUID]repository.Customer),
	}
}

func (f *fakeStore) GetLead(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) GetCustomer(_ context.Context, id uuid.UUID) (repository.Customer, error) {
	customer, ok := f.customers[id]
	if !ok {
		return repository.Customer{}, repository.ErrNotFound
	}
	return customer, nil
}

func (f *fakeStore) ListLeadsByCustomer(_ context.Context, customerID uuid.UUID) ([]repository.Lead, error) {
	leads := make([]repository.Lead, 0)
	for _, lead := range f.leads {
		if lead.CustomerID != nil && *lead.CustomerID == customerID {
			leads = append(leads, lead)
		}
	}
	return leads, nil
}

func (f *fakeStore) UpdateLeadContactFields(_ context.Context, id uuid.UUID, params repository.UpdateContactParams, touchUpdatedAt bool) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.ContactName = params.ContactName
	lead.CompanyName = params.CompanyName
	lead.ContactEmail = params.ContactEmail
	lead.ContactPhone = params.ContactPhone
	if touchUpdatedAt {
		lead.UpdatedAt = time.Now()
	}
	f.leads[id] = lead
	f.leadWrites++
	return lead, nil
}

func (f *fakeStore) UpdateCustomerContactFields(_ context.Context, id uuid.UUID, params repository.UpdateContactParams, touchUpdatedAt bool) (repository.Customer, error) {
	customer, ok := f.customers[id]
	if !ok {
		return repository.Customer{}, repository.ErrNotFound
	}
	customer.Name = params.ContactName
	customer.Company = params.CompanyName
	customer.Email = params.ContactEmail
	customer.Phone = params.ContactPhone
	if touchUpdatedAt {
		customer.UpdatedAt = time.Now()
	}
	f.customers[id] = customer
	f.customerWrites++
	return customer, nil
}

type fakeAuditor struct {
	entries []AuditEntry
	fail    bool
}

func (f *fakeAuditor) Record(_ context.Context, entry AuditEntry) error {
	if f.fail {
		return errors.New("audit sink down")
	}
	f.entries = append(f.entries, entry)
	return nil
}

func newEngine(store *fakeStore) (*Engine, *fakeAuditor) {
	auditor := &fakeAuditor{}
	return New(store, auditor, logger.New("test")), auditor
}

func seedPair(store *fakeStore, leadUpdated, customerUpdated time.Time) (uuid.UUID, uuid.UUID) {
	customerID := uuid.New()
	leadID := uuid.New()

	store.customers[customerID] = repository.Customer{
		ID:        customerID,
		Name:      "최은지",
		Company:   "네오팜",
		Email:     "eunji@neopharm.example",
		Phone:     "+821011112222",
		Grade:     "CUSTOMER",
		UpdatedAt: customerUpdated,
	}
	store.leads[leadID] = repository.Lead{
		ID:           leadID,
		LeadNumber:   "L-2026-0007",
		ContactName:  "최은지",
		CompanyName:  "네오팜",
		ContactEmail: "eunji@neopharm.example",
		ContactPhone: "+821011112222",
		Status:       "CONVERTED",
		CustomerID:   &customerID,
		UpdatedAt:    leadUpdated,
	}
	return leadID, customerID
}

func TestSyncLeadToCustomerIdenticalPair(t *testing.T) {
	store := newFakeStore()
	leadID, _ := seedPair(store, time.Now(), time.Now())

	engine, auditor := newEngine(store)
	result, err := engine.SyncLeadToCustomer(context.Background(), leadID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result")
	}
	if len(result.SyncedFields) != 0 {
		t.Errorf("SyncedFields = %v, want empty", result.SyncedFields)
	}
	if store.customerWrites != 0 {
		t.Error("identical pair must not be written")
	}
	if len(auditor.entries) != 0 {
		t.Error("identical pair must not be audited")
	}
}

func TestSyncLeadToCustomerCopiesChanges(t *testing.T) {
	store := newFakeStore()
	leadID, customerID := seedPair(store, time.Now(), time.Now())

	lead := store.leads[leadID]
	lead.ContactEmail = "new@neopharm.example"
	lead.CompanyName = "네오팜(주)"
	store.leads[leadID] = lead

	engine, auditor := newEngine(store)
	result, err := engine.SyncLeadToCustomer(context.Background(), leadID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.SyncedFields) != 2 {
		t.Errorf("SyncedFields = %v, want 2 columns", result.SyncedFields)
	}
	customer := store.customers[customerID]
	if customer.Email != "new@neopharm.example" || customer.Company != "네오팜(주)" {
		t.Errorf("customer not updated: %+v", customer)
	}

	if len(auditor.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(auditor.entries))
	}
	entry := auditor.entries[0]
	if entry.Action != ActionSync || entry.Direction != domain.DirectionLeadToCustomer {
		t.Errorf("audit entry = %+v", entry)
	}
	if entry.LeadID != leadID || entry.CustomerID != customerID {
		t.Error("audit entry ids wrong")
	}
}

func TestSyncLeadToCustomerUnlinkedLead(t *testing.T) {
	store := newFakeStore()
	leadID := uuid.New()
	store.leads[leadID] = repository.Lead{ID: leadID, Status: "NEW"}

	engine, _ := newEngine(store)
	result, err := engine.SyncLeadToCustomer(context.Background(), leadID, uuid.New())
	if err != nil || result != nil {
		t.Fatalf("unlinked lead must be (nil, nil), got result=%v err=%v", result, err)
	}
}

func TestSyncLeadToCustomerNotFound(t *testing.T) {
	engine, _ := newEngine(newFakeStore())
	_, err := engine.SyncLeadToCustomer(context.Background(), uuid.New(), uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Errorf("kind = %v, want NotFound", apperr.GetKind(err))
	}
}

func TestSyncCustomerToLeadFansOut(t *testing.T) {
	store := newFakeStore()
	leadID, customerID := seedPair(store, time.Now(), time.Now())

	secondLeadID := uuid.New()
	store.leads[secondLeadID] = repository.Lead{
		ID:           secondLeadID,
		ContactName:  "다른이름",
		CompanyName:  "네오팜",
		ContactEmail: "stale@neopharm.example",
		ContactPhone: "+821011112222",
		Status:       "CONVERTED",
		CustomerID:   &customerID,
		UpdatedAt:    time.Now(),
	}

	engine, _ := newEngine(store)
	results, err := engine.SyncCustomerToLead(context.Background(), customerID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want one per linked lead", len(results))
	}

	updated := store.leads[secondLeadID]
	if updated.ContactName != "최은지" || updated.ContactEmail != "eunji@neopharm.example" {
		t.Errorf("second lead not aligned to customer: %+v", updated)
	}
	if first := store.leads[leadID]; first.ContactName != "최은지" {
		t.Errorf("identical lead mutated: %+v", first)
	}
}

func TestSyncAuditFailureSwallowed(t *testing.T) {
	store := newFakeStore()
	leadID, customerID := seedPair(store, time.Now(), time.Now())
	lead := store.leads[leadID]
	lead.ContactPhone = "+821033334444"
	store.leads[leadID] = lead

	auditor := &fakeAuditor{fail: true}
	engine := New(store, auditor, logger.New("test"))

	result, err := engine.SyncLeadToCustomer(context.Background(), leadID, uuid.New())
	if err != nil {
		t.Fatalf("audit failure must not propagate: %v", err)
	}
	if len(result.SyncedFields) != 1 {
		t.Errorf("SyncedFields = %v", result.SyncedFields)
	}
	if store.customers[customerID].Phone != "+821033334444" {
		t.Error("write must survive audit failure")
	}
}

func TestSyncWithConflictResolution(t *testing.T) {
	lastSync := time.Now().Add(-time.Hour)

	t.Run("both changed, customer is later", func(t *testing.T) {
		store := newFakeStore()
		leadID, customerID := seedPair(store,
			lastSync.Add(10*time.Minute),
			lastSync.Add(30*time.Minute),
		)

		lead := store.leads[leadID]
		lead.ContactEmail = "lead-edit@neopharm.example"
		store.leads[leadID] = lead
		customer := store.customers[customerID]
		customer.Email = "customer-edit@neopharm.example"
		store.customers[customerID] = customer

		engine, auditor := newEngine(store)
		result, err := engine.SyncWithConflictResolution(context.Background(), leadID, uuid.New(), lastSync)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !result.ConflictResolved {
			t.Fatal("expected a resolved conflict")
		}
		if result.ConflictDetails == nil || result.ConflictDetails.Winner != WinnerCustomer {
			t.Fatalf("details = %+v, want customer winner", result.ConflictDetails)
		}
		if store.leads[leadID].ContactEmail != "customer-edit@neopharm.example" {
			t.Error("customer's value must win")
		}

		var actions []string
		for _, entry := range auditor.entries {
			actions = append(actions, entry.Action)
		}
		if len(actions) != 2 || actions[0] != ActionSync || actions[1] != ActionConflictResolved {
			t.Errorf("audit actions = %v", actions)
		}
	})

	t.Run("both changed, lead is later", func(t *testing.T) {
		store := newFakeStore()
		leadID, customerID := seedPair(store,
			lastSync.Add(30*time.Minute),
			lastSync.Add(10*time.Minute),
		)

		lead := store.leads[leadID]
		lead.ContactEmail = "lead-edit@neopharm.example"
		store.leads[leadID] = lead

		engine, _ := newEngine(store)
		result, err := engine.SyncWithConflictResolution(context.Background(), leadID, uuid.New(), lastSync)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ConflictDetails == nil || result.ConflictDetails.Winner != WinnerLead {
			t.Fatalf("details = %+v, want lead winner", result.ConflictDetails)
		}
		if store.customers[customerID].Email != "lead-edit@neopharm.example" {
			t.Error("lead's value must win")
		}
	})

	t.Run("only customer changed is not a conflict", func(t *testing.T) {
		store := newFakeStore()
		leadID, customerID := seedPair(store,
			lastSync.Add(-time.Minute),
			lastSync.Add(10*time.Minute),
		)
		customer := store.customers[customerID]
		customer.Phone = "+821077778888"
		store.customers[customerID] = customer

		engine, _ := newEngine(store)
		result, err := engine.SyncWithConflictResolution(context.Background(), leadID, uuid.New(), lastSync)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ConflictResolved {
			t.Error("single-side edit must not be flagged as conflict")
		}
		if result.Direction != string(domain.DirectionCustomerToLead) {
			t.Errorf("direction = %s", result.Direction)
		}
		if store.leads[leadID].ContactPhone != "+821077778888" {
			t.Error("lead not reconciled")
		}
	})

	t.Run("identical pair with both timestamps newer", func(t *testing.T) {
		store := newFakeStore()
		leadID, _ := seedPair(store,
			lastSync.Add(10*time.Minute),
			lastSync.Add(20*time.Minute),
		)

		engine, auditor := newEngine(store)
		result, err := engine.SyncWithConflictResolution(context.Background(), leadID, uuid.New(), lastSync)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ConflictResolved || len(result.SyncedFields) != 0 {
			t.Errorf("no-diff pair flagged: %+v", result)
		}
		if len(auditor.entries) != 0 {
			t.Error("no-diff pair audited")
		}
	})
}
