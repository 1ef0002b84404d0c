// Package approvals implements the dual-approval state machine and approval
// token issuance. Each shipment carries two independent approval flags,
// shipper-side and broker-side; a token is minted exactly once when both
// are complete.
package approvals

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Party identifies which side of the dual approval is being recorded.
type Party string

const (
	PartyShipper Party = "shipper"
	PartyBroker  Party = "broker"
)

// ApprovalState is the per-shipment dual-approval record. Flags are
// monotonic; this domain has no un-approval transition.
type ApprovalState struct {
	ShipmentID        uuid.UUID  `json:"shipment_id"`
	ShipperApproved   bool       `json:"shipper_approved"`
	ShipperApprovedAt *time.Time `json:"shipper_approved_at,omitempty"`
	BrokerApproved    bool       `json:"broker_approved"`
	BrokerApprovedAt  *time.Time `json:"broker_approved_at,omitempty"`
	Token             *string    `json:"token,omitempty"`
	TokenIssuedAt     *time.Time `json:"token_issued_at,omitempty"`
}

// BothComplete reports whether both approval flags are set.
func (a ApprovalState) BothComplete() bool {
	return a.ShipperApproved && a.BrokerApproved
}

// TokenIssued reports whether a token has already been minted.
func (a ApprovalState) TokenIssued() bool {
	return a.Token != nil && *a.Token != ""
}

// Approve applies one party's approval, keeping already-set flags and
// timestamps untouched.
func (a ApprovalState) Approve(party Party, at time.Time) ApprovalState {
	switch party {
	case PartyShipper:
		if !a.ShipperApproved {
			a.ShipperApproved = true
			a.ShipperApprovedAt = &at
		}
	case PartyBroker:
		if !a.BrokerApproved {
			a.BrokerApproved = true
			a.BrokerApprovedAt = &at
		}
	}
	return a
}

// newToken mints an opaque 20-character approval token.
func newToken() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:]))[:20]
}
