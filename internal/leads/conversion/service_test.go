package conversion

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"labcrm_backend/internal/leads/domain"
	"labcrm_backend/internal/leads/repository"
	"labcrm_backend/internal/leads/transport"
	"labcrm_backend/platform/apperr"
	platformevents "labcrm_backend/platform/events"
	"labcrm_backend/platform/logger"
)

// fakeStore backs the conversion unit of work with in-memory maps. Writes
// are staged per transaction and applied on Commit, discarded on Rollback.
type fakeStore struct {
	leads      map[uuid.UUID]repository.Lead
	customers  map[uuid.UUID]repository.Customer
	quotations map[uuid.UUID]*fakeQuotation
	activities []repository.AddActivityParams
}

type fakeQuotation struct {
	leadID     *uuid.UUID
	customerID *uuid.UUID
	deleted    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leads:      make(map[uuid.UUID]repository.Lead),
		customers:  make(map[uuid.UUID]repository.Customer),
		quotations: make(map[uuid.UUID]*fakeQuotation),
	}
}

type fakeTx struct {
	store     *fakeStore
	committed bool

	leads      map[uuid.UUID]repository.Lead
	customers  map[uuid.UUID]repository.Customer
	relinked   map[uuid.UUID]uuid.UUID
	activities []repository.AddActivityParams
}

func (s *fakeStore) Begin(_ context.Context) (Tx, error) {
	return &fakeTx{
		store:     s,
		leads:     make(map[uuid.UUID]repository.Lead),
		customers: make(map[uuid.UUID]repository.Customer),
		relinked:  make(map[uuid.UUID]uuid.UUID),
	}, nil
}

func (s *fakeStore) GetLead(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (t *fakeTx) view(id uuid.UUID) (repository.Lead, bool) {
	if lead, ok := t.leads[id]; ok {
		return lead, true
	}
	lead, ok := t.store.leads[id]
	return lead, ok
}

func (t *fakeTx) GetLeadForUpdate(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := t.view(id)
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (t *fakeTx) GetCustomerForUpdate(_ context.Context, id uuid.UUID) (repository.Customer, error) {
	if customer, ok := t.customers[id]; ok {
		return customer, nil
	}
	customer, ok := t.store.customers[id]
	if !ok {
		return repository.Customer{}, repository.ErrNotFound
	}
	return customer, nil
}

func (t *fakeTx) CreateCustomer(_ context.Context, params repository.CreateCustomerParams) (repository.Customer, error) {
	customer := repository.Customer{
		ID:        uuid.New(),
		Name:      params.Name,
		Company:   params.Company,
		Email:     params.Email,
		Phone:     params.Phone,
		Grade:     params.Grade,
		Notes:     params.Notes,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	t.customers[customer.ID] = customer
	return customer, nil
}

func (t *fakeTx) UpdateCustomerForConversion(_ context.Context, id uuid.UUID, params repository.CreateCustomerParams) (repository.Customer, error) {
	customer, err := t.GetCustomerForUpdate(context.Background(), id)
	if err != nil {
		return repository.Customer{}, err
	}
	customer.Name = params.Name
	customer.Company = params.Company
	customer.Email = params.Email
	customer.Phone = params.Phone
	customer.Grade = params.Grade
	customer.UpdatedAt = time.Now()
	t.customers[id] = customer
	return customer, nil
}

func (t *fakeTx) MarkLeadConverted(_ context.Context, leadID, customerID uuid.UUID) (repository.Lead, error) {
	lead, ok := t.view(leadID)
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if lead.Status == string(domain.StatusConverted) && lead.CustomerID != nil {
		return repository.Lead{}, repository.ErrAlreadyConverted
	}
	now := time.Now()
	lead.Status = string(domain.StatusConverted)
	lead.CustomerID = &customerID
	if lead.ConvertedAt == nil {
		lead.ConvertedAt = &now
	}
	lead.UpdatedAt = now
	t.leads[leadID] = lead
	return lead, nil
}

func (t *fakeTx) RelinkQuotations(_ context.Context, leadID, customerID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	for id, q := range t.store.quotations {
		if q.deleted || q.leadID == nil || *q.leadID != leadID {
			continue
		}
		if q.customerID != nil && *q.customerID == customerID {
			continue
		}
		t.relinked[id] = customerID
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *fakeTx) AddActivity(_ context.Context, params repository.AddActivityParams) error {
	t.activities = append(t.activities, params)
	return nil
}

func (t *fakeTx) Commit(_ context.Context) error {
	for id, lead := range t.leads {
		t.store.leads[id] = lead
	}
	for id, customer := range t.customers {
		t.store.customers[id] = customer
	}
	for id, customerID := range t.relinked {
		cid := customerID
		t.store.quotations[id].customerID = &cid
	}
	t.store.activities = append(t.store.activities, t.activities...)
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error { return nil }

type fakeSyncer struct {
	leadToCustomerCalls []uuid.UUID
	customerToLeadCalls []uuid.UUID
}

func (f *fakeSyncer) SyncLeadToCustomer(_ context.Context, leadID uuid.UUID, _ uuid.UUID) (*transport.SyncResult, error) {
	f.leadToCustomerCalls = append(f.leadToCustomerCalls, leadID)
	return &transport.SyncResult{LeadID: leadID, Direction: string(domain.DirectionLeadToCustomer), SyncedFields: []string{}}, nil
}

func (f *fakeSyncer) SyncCustomerToLead(_ context.Context, customerID uuid.UUID, _ uuid.UUID) ([]transport.SyncResult, error) {
	f.customerToLeadCalls = append(f.customerToLeadCalls, customerID)
	return []transport.SyncResult{{CustomerID: customerID, Direction: string(domain.DirectionCustomerToLead), SyncedFields: []string{}}}, nil
}

func newService(store *fakeStore) (*Service, *fakeSyncer) {
	log := logger.New("test")
	syncer := &fakeSyncer{}
	return New(store, syncer, platformevents.NewInMemoryBus(log), log), syncer
}

func seedLead(store *fakeStore, status domain.Status) uuid.UUID {
	id := uuid.New()
	store.leads[id] = repository.Lead{
		ID:           id,
		LeadNumber:   "L-2026-0042",
		ContactName:  "박지훈",
		CompanyName:  "세진바이오",
		ContactEmail: "jihoon@sejin.example",
		ContactPhone: "+821098765432",
		Status:       string(status),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	return id
}

func TestConvertCreatesCustomer(t *testing.T) {
	store := newFakeStore()
	leadID := seedLead(store, domain.StatusNegotiation)

	quotationID := uuid.New()
	store.quotations[quotationID] = &fakeQuotation{leadID: &leadID}
	otherQuotation := uuid.New()
	otherLead := uuid.New()
	store.quotations[otherQuotation] = &fakeQuotation{leadID: &otherLead}

	service, _ := newService(store)
	result, err := service.Convert(context.Background(), leadID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.CustomerCreated {
		t.Error("expected a new customer")
	}
	if result.Customer.Grade != string(domain.GradeCustomer) {
		t.Errorf("grade = %s, want CUSTOMER", result.Customer.Grade)
	}
	if result.Customer.Name != "박지훈" || result.Customer.Company != "세진바이오" {
		t.Errorf("contact fields not copied: %+v", result.Customer)
	}
	if result.Customer.Notes == nil || *result.Customer.Notes != "converted from lead L-2026-0042" {
		t.Error("provenance note missing")
	}

	lead := store.leads[leadID]
	if lead.Status != string(domain.StatusConverted) || lead.CustomerID == nil || lead.ConvertedAt == nil {
		t.Errorf("lead not fully converted: %+v", lead)
	}

	if len(result.UpdatedQuotationIDs) != 1 || result.UpdatedQuotationIDs[0] != quotationID {
		t.Errorf("UpdatedQuotationIDs = %v", result.UpdatedQuotationIDs)
	}
	if q := store.quotations[quotationID]; q.customerID == nil || *q.customerID != result.Customer.ID {
		t.Error("quotation not relinked")
	}
	if q := store.quotations[otherQuotation]; q.customerID != nil {
		t.Error("unrelated quotation touched")
	}

	if len(store.activities) != 1 || store.activities[0].ActivityType != repository.ActivityConverted {
		t.Errorf("activities = %+v", store.activities)
	}
}

func TestConvertTwiceFailsWithConflict(t *testing.T) {
	store := newFakeStore()
	leadID := seedLead(store, domain.StatusNegotiation)

	service, _ := newService(store)
	if _, err := service.Convert(context.Background(), leadID, uuid.New()); err != nil {
		t.Fatalf("first conversion failed: %v", err)
	}

	_, err := service.Convert(context.Background(), leadID, uuid.New())
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("second conversion: kind = %v, want Conflict", apperr.GetKind(err))
	}
	if len(store.customers) != 1 {
		t.Errorf("customers = %d, customer was duplicated", len(store.customers))
	}
}

func TestConvertUpgradesLinkedCustomerGrade(t *testing.T) {
	tests := []struct {
		grade string
		want  string
	}{
		{string(domain.GradeProspect), string(domain.GradeCustomer)},
		{string(domain.GradeVIP), string(domain.GradeVIP)},
	}

	for _, tt := range tests {
		t.Run(tt.grade, func(t *testing.T) {
			store := newFakeStore()
			leadID := seedLead(store, domain.StatusNegotiation)

			customerID := uuid.New()
			store.customers[customerID] = repository.Customer{
				ID:    customerID,
				Name:  "구고객",
				Grade: tt.grade,
			}
			lead := store.leads[leadID]
			lead.CustomerID = &customerID
			store.leads[leadID] = lead

			service, _ := newService(store)
			result, err := service.Convert(context.Background(), leadID, uuid.New())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.CustomerCreated {
				t.Error("linked customer must be updated, not created")
			}
			if result.Customer.Grade != tt.want {
				t.Errorf("grade = %s, want %s", result.Customer.Grade, tt.want)
			}
			if result.Customer.Name != "박지훈" {
				t.Error("customer contact fields not refreshed from lead")
			}
		})
	}
}

func TestConvertCompletesMinimalFlip(t *testing.T) {
	// A signed-contract hook may have flipped the lead to CONVERTED without
	// a customer; full conversion must still be able to finish the job.
	store := newFakeStore()
	leadID := seedLead(store, domain.StatusConverted)

	service, _ := newService(store)
	result, err := service.Convert(context.Background(), leadID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.CustomerCreated {
		t.Error("expected customer materialization")
	}
}

func TestConvertNotFound(t *testing.T) {
	service, _ := newService(newFakeStore())
	_, err := service.Convert(context.Background(), uuid.New(), uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Errorf("kind = %v, want NotFound", apperr.GetKind(err))
	}
}

func TestSyncLeadCustomerDataDelegates(t *testing.T) {
	store := newFakeStore()
	leadID := seedLead(store, domain.StatusConverted)
	customerID := uuid.New()
	lead := store.leads[leadID]
	lead.CustomerID = &customerID
	store.leads[leadID] = lead

	service, syncer := newService(store)

	if _, err := service.SyncLeadCustomerData(context.Background(), leadID, domain.DirectionLeadToCustomer, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(syncer.leadToCustomerCalls) != 1 || syncer.leadToCustomerCalls[0] != leadID {
		t.Errorf("lead_to_customer delegation calls = %v", syncer.leadToCustomerCalls)
	}

	if _, err := service.SyncLeadCustomerData(context.Background(), leadID, domain.DirectionCustomerToLead, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(syncer.customerToLeadCalls) != 1 || syncer.customerToLeadCalls[0] != customerID {
		t.Errorf("customer_to_lead delegation calls = %v", syncer.customerToLeadCalls)
	}

	if _, err := service.SyncLeadCustomerData(context.Background(), leadID, domain.SyncDirection("sideways"), uuid.New()); apperr.GetKind(err) != apperr.KindBadRequest {
		t.Error("unknown direction must be a bad request")
	}
}
