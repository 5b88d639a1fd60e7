package domain

import "testing"

func TestStatusBefore(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		target Status
		want   bool
	}{
		{"new before proposal", StatusNew, StatusProposal, true},
		{"contacted before negotiation", StatusContacted, StatusNegotiation, true},
		{"proposal not before proposal", StatusProposal, StatusProposal, false},
		{"negotiation not before proposal", StatusNegotiation, StatusProposal, false},
		{"converted not before anything", StatusConverted, StatusNegotiation, false},
		{"lost incomparable", StatusLost, StatusProposal, false},
		{"dormant incomparable", StatusDormant, StatusConverted, false},
		{"target lost incomparable", StatusNew, StatusLost, false},
		{"unknown incomparable", Status("BOGUS"), StatusProposal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Before(tt.target); got != tt.want {
				t.Errorf("Before(%s, %s) = %v, want %v", tt.status, tt.target, got, tt.want)
			}
		})
	}
}

func TestStatusRank(t *testing.T) {
	ordered := []Status{StatusNew, StatusContacted, StatusQualified, StatusProposal, StatusNegotiation, StatusConverted}
	prev := 0
	for _, s := range ordered {
		rank, ok := s.Rank()
		if !ok {
			t.Fatalf("Rank(%s) reported unranked", s)
		}
		if rank <= prev {
			t.Errorf("Rank(%s) = %d, not strictly increasing after %d", s, rank, prev)
		}
		prev = rank
	}

	for _, s := range []Status{StatusLost, StatusDormant, Status("")} {
		if _, ok := s.Rank(); ok {
			t.Errorf("Rank(%s) should be unranked", s)
		}
	}
}

func TestIsTerminalException(t *testing.T) {
	if !StatusLost.IsTerminalException() || !StatusDormant.IsTerminalException() {
		t.Error("LOST and DORMANT must be terminal exceptions")
	}
	if StatusConverted.IsTerminalException() {
		t.Error("CONVERTED is ordered, not a terminal exception")
	}
}

func TestIsKnownStatus(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusContacted, StatusQualified, StatusProposal, StatusNegotiation, StatusConverted, StatusLost, StatusDormant} {
		if !IsKnownStatus(s) {
			t.Errorf("IsKnownStatus(%s) = false", s)
		}
	}
	if IsKnownStatus(Status("ARCHIVED")) {
		t.Error("unknown status accepted")
	}
}
