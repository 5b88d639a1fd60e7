// Package domain provides core business rules for the leads bounded context.
package domain

// Status is a lead's position in the sales pipeline.
type Status string

const (
	StatusNew         Status = "NEW"
	StatusContacted   Status = "CONTACTED"
	StatusQualified   Status = "QUALIFIED"
	StatusProposal    Status = "PROPOSAL"
	StatusNegotiation Status = "NEGOTIATION"
	StatusConverted   Status = "CONVERTED"

	// Terminal exception states. They carry no rank: a LOST or DORMANT lead
	// is never "before" any target and must not be touched by automation.
	StatusLost    Status = "LOST"
	StatusDormant Status = "DORMANT"
)

// statusRank is the explicit ordinal table for the ordered statuses.
// LOST and DORMANT are deliberately absent; absence means incomparable,
// not rank zero.
var statusRank = map[Status]int{
	StatusNew:         1,
	StatusContacted:   2,
	StatusQualified:   3,
	StatusProposal:    4,
	StatusNegotiation: 5,
	StatusConverted:   6,
}

// Rank returns the ordinal of an ordered status. ok is false for
// LOST, DORMANT, and unknown values.
func (s Status) Rank() (int, bool) {
	rank, ok := statusRank[s]
	return rank, ok
}

// Before reports whether s is strictly earlier than target in the pipeline
// order. Either side being unranked makes the pair incomparable and the
// result false.
func (s Status) Before(target Status) bool {
	selfRank, ok := s.Rank()
	if !ok {
		return false
	}
	targetRank, ok := target.Rank()
	if !ok {
		return false
	}
	return selfRank < targetRank
}

// IsTerminalException reports whether the status is one of the unordered
// terminal states that automation must leave alone.
func (s Status) IsTerminalException() bool {
	return s == StatusLost || s == StatusDormant
}

// IsKnownStatus reports whether the value is any recognized lead status.
func IsKnownStatus(s Status) bool {
	if _, ok := statusRank[s]; ok {
		return true
	}
	return s.IsTerminalException()
}

// Pipeline stage catalog codes the automation engine resolves by.
const (
	StageCodeProposal   = "PROPOSAL"
	StageCodeInProgress = "IN_PROGRESS"
	StageCodeCompleted  = "COMPLETED"
)

// Name-substring fallbacks for catalogs that predate semantic codes.
// Stage names in the seeded catalog are Korean.
const (
	StageLabelQuotationSent  = "견적"
	StageLabelTestInProgress = "시험진행"
)
