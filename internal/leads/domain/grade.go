package domain

// Grade is a customer's relationship tier.
type Grade string

const (
	GradeLead     Grade = "LEAD"
	GradeProspect Grade = "PROSPECT"
	GradeInactive Grade = "INACTIVE"
	GradeCustomer Grade = "CUSTOMER"
	GradeVIP      Grade = "VIP"
)

// UpgradeGrade applies the one-directional grade lattice used during lead
// conversion: LEAD, PROSPECT, and INACTIVE step up to CUSTOMER; CUSTOMER and
// VIP are left unchanged. Unknown grades pass through untouched so that a
// conversion can never downgrade a customer.
func UpgradeGrade(current Grade) Grade {
	switch current {
	case GradeLead, GradeProspect, GradeInactive:
		return GradeCustomer
	default:
		return current
	}
}
