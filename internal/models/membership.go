package models

// GroupRole is a member's role inside one group.
type GroupRole string

const (
	// GroupRoleAdmin is the single primary administrator. Its UserID always
	// equals the parent group's AdminID.
	GroupRoleAdmin GroupRole = "ADMIN"
	// GroupRoleCoAdmin is a non-exclusive secondary admin role.
	GroupRoleCoAdmin GroupRole = "CO_ADMIN"
	// GroupRoleMember is a regular participant.
	GroupRoleMember GroupRole = "MEMBER"
)

// PaymentStatus tracks one member's contribution within the current cycle.
//
// Transitions within a cycle:
//
//	PENDING --submit--> SUBMITTED --confirm/record--> CONFIRMED
//	PENDING --deadline--> LATE --submit--> SUBMITTED --confirm--> CONFIRMED
//
// AdvanceCycle resets every non-blocked member back to PENDING.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSubmitted PaymentStatus = "SUBMITTED"
	PaymentConfirmed PaymentStatus = "CONFIRMED"
	PaymentLate      PaymentStatus = "LATE"
)

// Membership binds a user to a group. It is owned by its parent DaretGroup
// and identified by the (UserID, GroupID) pair, unique within the group.
type Membership struct {
	// UserID references the participating user.
	UserID string `json:"user_id"`

	// GroupID references the owning group.
	GroupID string `json:"group_id"`

	// Role is the member's role inside the group.
	Role GroupRole `json:"role"`

	// TourPosition is the member's place in the payout rotation, 1..N.
	// Zero until positions are drawn at activation; the creator is fixed
	// at position 1 while the group is still pending.
	TourPosition int `json:"tour_position"`

	// PaymentStatus is the member's contribution state for the current cycle.
	PaymentStatus PaymentStatus `json:"payment_status"`

	// PaymentProofURL is an opaque evidence reference, set only when the
	// member submits a payment for admin review.
	PaymentProofURL string `json:"payment_proof_url,omitempty"`

	// JoinedAt is the Unix timestamp when the member joined.
	JoinedAt int64 `json:"joined_at"`

	// IsBlocked marks a member excluded from contributing and from payouts.
	IsBlocked bool `json:"is_blocked"`

	// MissedPayments counts cycles in which this member was marked late.
	MissedPayments int `json:"missed_payments"`
}
