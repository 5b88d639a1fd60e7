package domain

import (
	"testing"
)

func TestDiffContactFields(t *testing.T) {
	lead := ContactFields{
		Name:    "김민준",
		Company: "한빛소재",
		Email:   "minjun@hanbit.example",
		Phone:   "+821012345678",
	}

	t.Run("identical fields produce no diff", func(t *testing.T) {
		diffs := DiffContactFields(lead, ContactFields{
			Name:    lead.Name,
			Company: lead.Company,
			Email:   lead.Email,
			Phone:   lead.Phone,
		})
		if len(diffs) != 0 {
			t.Fatalf("expected empty diff, got %d entries", len(diffs))
		}
	})

	t.Run("phone format variants are equivalent", func(t *testing.T) {
		customer := lead
		customer.Phone = "010-1234-5678"
		diffs := DiffContactFields(lead, customer)
		if len(diffs) != 0 {
			t.Fatalf("expected normalized phones to match, got %d diffs", len(diffs))
		}
	})

	t.Run("changed fields are reported per pair", func(t *testing.T) {
		customer := lead
		customer.Email = "sales@hanbit.example"
		customer.Company = "한빛소재(주)"

		diffs := DiffContactFields(lead, customer)
		if len(diffs) != 2 {
			t.Fatalf("expected 2 diffs, got %d", len(diffs))
		}
		kinds := map[FieldKind]bool{}
		for _, d := range diffs {
			kinds[d.Pair.Kind] = true
		}
		if !kinds[FieldCompany] || !kinds[FieldEmail] {
			t.Errorf("expected company and email diffs, got %v", kinds)
		}
	})
}

func TestApplyDiffs(t *testing.T) {
	lead := ContactFields{Name: "이서연", Company: "대양케미칼", Email: "seoyeon@daeyang.example", Phone: "+821055556666"}
	customer := ContactFields{Name: "이서연", Company: "대양화학", Email: "old@daeyang.example", Phone: "+821055556666"}

	diffs := DiffContactFields(lead, customer)

	t.Run("lead wins overwrites customer side", func(t *testing.T) {
		got := ApplyDiffs(customer, diffs, DirectionLeadToCustomer)
		if got.Company != lead.Company || got.Email != lead.Email {
			t.Errorf("customer not updated from lead: %+v", got)
		}
		if got.Name != customer.Name || got.Phone != customer.Phone {
			t.Errorf("untouched fields changed: %+v", got)
		}
	})

	t.Run("customer wins overwrites lead side", func(t *testing.T) {
		got := ApplyDiffs(lead, diffs, DirectionCustomerToLead)
		if got.Company != customer.Company || got.Email != customer.Email {
			t.Errorf("lead not updated from customer: %+v", got)
		}
	})
}

func TestChangedColumns(t *testing.T) {
	diffs := []FieldDiff{
		{Pair: ContactFieldPairs[1]},
		{Pair: ContactFieldPairs[3]},
	}

	toCustomer := ChangedColumns(diffs, DirectionLeadToCustomer)
	if len(toCustomer) != 2 || toCustomer[0] != "company" || toCustomer[1] != "phone" {
		t.Errorf("lead_to_customer columns = %v", toCustomer)
	}

	toLead := ChangedColumns(diffs, DirectionCustomerToLead)
	if len(toLead) != 2 || toLead[0] != "company_name" || toLead[1] != "contact_phone" {
		t.Errorf("customer_to_lead columns = %v", toLead)
	}
}
