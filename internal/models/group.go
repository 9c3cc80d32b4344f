package models

// GroupStatus is the lifecycle state of a daret group.
type GroupStatus string

const (
	// GroupPending: the group is forming; members may still join and no
	// turn positions are assigned (except the creator's fixed position 1).
	GroupPending GroupStatus = "PENDING"
	// GroupActive: the draw has happened, the member list is frozen and
	// payment cycles are running.
	GroupActive GroupStatus = "ACTIVE"
	// GroupCompleted: every member has received their payout.
	GroupCompleted GroupStatus = "COMPLETED"
)

// Periodicity is the length of one payment cycle.
type Periodicity string

const (
	Monthly Periodicity = "MONTHLY"
	Weekly  Periodicity = "WEEKLY"
)

// DrawMode selects how turn positions are assigned at activation.
type DrawMode string

const (
	// DrawRandom assigns positions by a uniformly random permutation.
	DrawRandom DrawMode = "RANDOM"
	// DrawManual uses an explicit ordering supplied by the admin.
	DrawManual DrawMode = "MANUAL"
	// DrawWeighted orders members by descending trust score, so less
	// reliable members contribute several cycles before their own payout.
	DrawWeighted DrawMode = "WEIGHTED"
)

// DaretGroup is the central aggregate: a rotating-savings group from
// formation through sequential payout cycles.
type DaretGroup struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group.
	Name string `json:"name"`

	// AmountPerPerson is the fixed contribution per member per cycle,
	// in currency units. Always positive.
	AmountPerPerson float64 `json:"amount_per_person"`

	// Periodicity is the cycle length (monthly or weekly).
	Periodicity Periodicity `json:"periodicity"`

	// StartDate is the agreed start of the first cycle (YYYY-MM-DD).
	StartDate string `json:"start_date"`

	// Status is the lifecycle state (pending, active, completed).
	Status GroupStatus `json:"status"`

	// AdminID references the member holding the ADMIN role.
	AdminID string `json:"admin_id"`

	// Members is the ordered member list, keyed by UserID (unique per group).
	Members []Membership `json:"members"`

	// CurrentTurnIndex is the zero-based pointer into the turn sequence:
	// the member whose TourPosition equals CurrentTurnIndex+1 is the
	// beneficiary of the running cycle. Always within [0, N-1] while active.
	CurrentTurnIndex int `json:"current_turn_index"`

	// DrawMode records how positions were assigned. Set once, at activation.
	DrawMode DrawMode `json:"draw_mode,omitempty"`

	// DrawSeed is an opaque provenance token generated at activation and
	// immutable thereafter. It is an audit artifact, not a commitment.
	DrawSeed string `json:"draw_seed,omitempty"`

	// DrawDate is the Unix timestamp of the draw.
	DrawDate int64 `json:"draw_date,omitempty"`

	// Version is the optimistic-concurrency counter, incremented on every
	// persisted update.
	Version int64 `json:"version"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"created_at"`
}

// Member returns the membership for the given user, or nil if absent.
func (g *DaretGroup) Member(userID string) *Membership {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

// IsAdmin reports whether the user holds the ADMIN or CO_ADMIN role.
func (g *DaretGroup) IsAdmin(userID string) bool {
	m := g.Member(userID)
	return m != nil && (m.Role == GroupRoleAdmin || m.Role == GroupRoleCoAdmin)
}

// CurrentBeneficiary returns the member whose turn it is, or nil when the
// group is not active. Blocked members keep their turn position, so the
// beneficiary may be blocked.
func (g *DaretGroup) CurrentBeneficiary() *Membership {
	if g.Status != GroupActive {
		return nil
	}
	for i := range g.Members {
		if g.Members[i].TourPosition == g.CurrentTurnIndex+1 {
			return &g.Members[i]
		}
	}
	return nil
}

// PotPerCycle is the pooled amount paid out each cycle: the contribution
// multiplied by the number of non-blocked members.
func (g *DaretGroup) PotPerCycle() float64 {
	n := 0
	for i := range g.Members {
		if !g.Members[i].IsBlocked {
			n++
		}
	}
	return g.AmountPerPerson * float64(n)
}
