package approvals_test

import (
	"testing"
	"time"

	"github.com/preclear-labs/preclear/internal/approvals"
)

func TestApproveSetsFlagAndTimestamp(t *testing.T) {
	var state approvals.ApprovalState
	at := time.Now()

	state = state.Approve(approvals.PartyShipper, at)

	if !state.ShipperApproved {
		t.Error("shipper flag not set")
	}
	if state.ShipperApprovedAt == nil || !state.ShipperApprovedAt.Equal(at) {
		t.Errorf("shipper timestamp = %v, want %v", state.ShipperApprovedAt, at)
	}
	if state.BrokerApproved {
		t.Error("broker flag set by shipper approval")
	}
}

func TestApproveIsMonotonic(t *testing.T) {
	var state approvals.ApprovalState
	first := time.Now()

	state = state.Approve(approvals.PartyBroker, first)
	state = state.Approve(approvals.PartyBroker, first.Add(time.Hour))

	if !state.BrokerApprovedAt.Equal(first) {
		t.Errorf("re-approval moved timestamp to %v, want %v", state.BrokerApprovedAt, first)
	}
}

func TestBothComplete(t *testing.T) {
	at := time.Now()

	tests := []struct {
		name    string
		parties []approvals.Party
		want    bool
	}{
		{"neither", nil, false},
		{"shipper only", []approvals.Party{approvals.PartyShipper}, false},
		{"broker only", []approvals.Party{approvals.PartyBroker}, false},
		{"both", []approvals.Party{approvals.PartyShipper, approvals.PartyBroker}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var state approvals.ApprovalState
			for _, p := range tt.parties {
				state = state.Approve(p, at)
			}
			if got := state.BothComplete(); got != tt.want {
				t.Errorf("BothComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenIssued(t *testing.T) {
	var state approvals.ApprovalState
	if state.TokenIssued() {
		t.Error("fresh state reports token issued")
	}

	token := "ABCDEF0123456789ABCD"
	state.Token = &token
	if !state.TokenIssued() {
		t.Error("state with token reports not issued")
	}
}
