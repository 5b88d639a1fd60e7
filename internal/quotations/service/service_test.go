package service

import "testing"

func TestTransitionAllowed(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StatusDraft, StatusSent, true},
		{StatusSent, StatusAccepted, true},
		{StatusSent, StatusRejected, true},
		{StatusDraft, StatusAccepted, false},
		{StatusSent, StatusDraft, false},
		{StatusAccepted, StatusRejected, false},
		{StatusRejected, StatusSent, false},
	}

	for _, tt := range tests {
		if got := transitionAllowed(tt.from, tt.to); got != tt.want {
			t.Errorf("transitionAllowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
