package models

// UserRole is the subscription tier of a user account.
type UserRole string

const (
	// RoleFree is the default tier. Free users may administer a limited
	// number of groups at a time.
	RoleFree UserRole = "FREE"
	// RolePremium removes the group-count limit.
	RolePremium UserRole = "PREMIUM"
)

// UserKind distinguishes self-registered accounts from placeholder accounts
// synthesized when an admin invites a contact that has no account yet.
type UserKind string

const (
	// KindRegistered is a user who signed up themselves.
	KindRegistered UserKind = "REGISTERED"
	// KindInvited is a placeholder created by InviteMember. It carries the
	// invited contact (email or phone) and an empty payment history until
	// the invitation is claimed at registration.
	KindInvited UserKind = "INVITED"
)

// UserLevel is the gamification level derived from loyalty points.
type UserLevel string

const (
	LevelBronze  UserLevel = "BRONZE"
	LevelSilver  UserLevel = "SILVER"
	LevelGold    UserLevel = "GOLD"
	LevelDiamond UserLevel = "DIAMOND"
)

// PaymentHistory aggregates a user's contribution record across all groups.
// It is the sole input of the scoring heuristic and is only ever mutated by
// the lifecycle engine when a payment settles.
type PaymentHistory struct {
	// OnTime is the number of contributions settled before the cycle deadline.
	OnTime int `json:"on_time"`

	// Late is the number of contributions settled after being marked late.
	Late int `json:"late"`

	// TotalAmount is the cumulative amount contributed, in currency units.
	TotalAmount float64 `json:"total_amount"`
}

// User represents a participant account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name"`

	// Email is the user's email address (unique among registered users).
	Email string `json:"email"`

	// Phone is the user's phone number.
	Phone string `json:"phone,omitempty"`

	// Role is the subscription tier (FREE or PREMIUM).
	Role UserRole `json:"role"`

	// Kind tags the account as registered or an unclaimed invitation.
	Kind UserKind `json:"kind"`

	// PasswordHash is the bcrypt hash of the user's password.
	// Empty for invited placeholder accounts. Never serialized.
	PasswordHash string `json:"-"`

	// History is the cross-group contribution record used for trust scoring.
	History PaymentHistory `json:"history"`

	// Points are loyalty points awarded when payments settle.
	Points int `json:"points"`

	// Level is derived from Points (see LevelForPoints).
	Level UserLevel `json:"level"`

	// Badges are gamification badges; irrelevant to the lifecycle engine.
	Badges []string `json:"badges,omitempty"`

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64 `json:"created_at"`

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64 `json:"updated_at"`
}

// ProfileComplete reports whether both contact channels are filled in.
// The scoring heuristic grants a small bonus for a complete profile.
func (u *User) ProfileComplete() bool {
	return u.Email != "" && u.Phone != ""
}

// LevelForPoints maps loyalty points to a gamification level.
func LevelForPoints(points int) UserLevel {
	switch {
	case points >= 1000:
		return LevelDiamond
	case points >= 500:
		return LevelGold
	case points >= 200:
		return LevelSilver
	default:
		return LevelBronze
	}
}
