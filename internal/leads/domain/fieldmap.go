package domain

import "labcrm_backend/platform/phone"

// SyncDirection names which side's data is copied onto the other.
type SyncDirection string

const (
	DirectionLeadToCustomer SyncDirection = "lead_to_customer"
	DirectionCustomerToLead SyncDirection = "customer_to_lead"
)

// FieldKind identifies one mapped contact field pair.
type FieldKind int

const (
	FieldName FieldKind = iota
	FieldCompany
	FieldEmail
	FieldPhone
)

// FieldPair is one entry in the closed Lead↔Customer field mapping.
type FieldPair struct {
	Kind          FieldKind
	LeadColumn    string
	CustomerColumn string
}

// ContactFieldPairs is the fixed set of duplicated contact fields kept in
// sync between a lead and its linked customer. Adding a synced field means
// adding a row here plus a case in the accessors below; the compiler flags
// any site that misses the new kind.
var ContactFieldPairs = [...]FieldPair{
	{Kind: FieldName, LeadColumn: "contact_name", CustomerColumn: "name"},
	{Kind: FieldCompany, LeadColumn: "company_name", CustomerColumn: "company"},
	{Kind: FieldEmail, LeadColumn: "contact_email", CustomerColumn: "email"},
	{Kind: FieldPhone, LeadColumn: "contact_phone", CustomerColumn: "phone"},
}

// ContactFields is the side-neutral projection of the mapped fields.
type ContactFields struct {
	Name    string
	Company string
	Email   string
	Phone   string
}

// Value returns the field identified by kind.
func (c ContactFields) Value(kind FieldKind) string {
	switch kind {
	case FieldName:
		return c.Name
	case FieldCompany:
		return c.Company
	case FieldEmail:
		return c.Email
	case FieldPhone:
		return c.Phone
	}
	return ""
}

// WithValue returns a copy with the field identified by kind replaced.
func (c ContactFields) WithValue(kind FieldKind, value string) ContactFields {
	switch kind {
	case FieldName:
		c.Name = value
	case FieldCompany:
		c.Company = value
	case FieldEmail:
		c.Email = value
	case FieldPhone:
		c.Phone = value
	}
	return c
}

// FieldDiff records one mapped pair whose values differ between the sides.
type FieldDiff struct {
	Pair          FieldPair
	LeadValue     string
	CustomerValue string
}

// DiffContactFields compares the mapped fields of a lead and its customer.
// Phone numbers are compared after E.164 normalization so formatting
// variants of the same number do not register as a change.
func DiffContactFields(lead, customer ContactFields) []FieldDiff {
	diffs := make([]FieldDiff, 0, len(ContactFieldPairs))
	for _, pair := range ContactFieldPairs {
		leadValue := lead.Value(pair.Kind)
		customerValue := customer.Value(pair.Kind)

		if pair.Kind == FieldPhone {
			if phone.Equivalent(leadValue, customerValue) {
				continue
			}
		} else if leadValue == customerValue {
			continue
		}

		diffs = append(diffs, FieldDiff{
			Pair:          pair,
			LeadValue:     leadValue,
			CustomerValue: customerValue,
		})
	}
	return diffs
}

// ApplyDiffs copies the winning side's values onto target for every diff.
// Direction lead-to-customer takes the lead value; customer-to-lead takes
// the customer value.
func ApplyDiffs(target ContactFields, diffs []FieldDiff, direction SyncDirection) ContactFields {
	for _, diff := range diffs {
		if direction == DirectionLeadToCustomer {
			target = target.WithValue(diff.Pair.Kind, diff.LeadValue)
		} else {
			target = target.WithValue(diff.Pair.Kind, diff.CustomerValue)
		}
	}
	return target
}

// ChangedColumns lists the written-side column names for a diff set, used
// for audit entries and single-row updates.
func ChangedColumns(diffs []FieldDiff, direction SyncDirection) []string {
	columns := make([]string, 0, len(diffs))
	for _, diff := range diffs {
		if direction == DirectionLeadToCustomer {
			columns = append(columns, diff.Pair.CustomerColumn)
		} else {
			columns = append(columns, diff.Pair.LeadColumn)
		}
	}
	return columns
}
