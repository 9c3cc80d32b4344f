package models

// Contribution is the ledger entry for one settled payment: one member's
// contribution for one cycle of one group. The (GroupID, UserID, Cycle)
// triple is unique, which is what makes settlement idempotent.
type Contribution struct {
	// ID is the unique identifier for the ledger entry (UUID format).
	ID string `json:"id"`

	// GroupID is the group the contribution belongs to.
	GroupID string `json:"group_id"`

	// UserID is the paying member.
	UserID string `json:"user_id"`

	// Cycle is the zero-based cycle index the contribution settles
	// (the group's CurrentTurnIndex at settlement time).
	Cycle int `json:"cycle"`

	// Amount is the settled amount, equal to the group's AmountPerPerson.
	Amount float64 `json:"amount"`

	// Method records how the payment arrived ("MANUAL", "CMI", "PAYPAL").
	Method string `json:"method"`

	// WasLate marks a contribution settled after the member had been
	// marked late for the cycle.
	WasLate bool `json:"was_late"`

	// SettledAt is the Unix timestamp of settlement.
	SettledAt int64 `json:"settled_at"`
}
