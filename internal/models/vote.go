package models

// VoteStatus is the lifecycle state of a vote session.
type VoteStatus string

const (
	VoteOpen   VoteStatus = "OPEN"
	VoteClosed VoteStatus = "CLOSED"
)

// VoteOption is one answer in a vote session with its running tally.
type VoteOption struct {
	// ID is the unique identifier for the option (UUID format).
	ID string `json:"id"`

	// Label is the option text shown to voters.
	Label string `json:"label"`

	// Count is the number of votes cast for this option.
	Count int `json:"count"`
}

// VoteSession is an in-group poll. Each member may vote at most once,
// tracked by the Voters list.
type VoteSession struct {
	// ID is the unique identifier for the session (UUID format).
	ID string `json:"id"`

	// GroupID is the group the vote belongs to.
	GroupID string `json:"group_id"`

	// CreatorID is the member who opened the vote.
	CreatorID string `json:"creator_id"`

	// Question is the text being voted on.
	Question string `json:"question"`

	// Options are the possible answers. Labels are unique within a session.
	Options []VoteOption `json:"options"`

	// CreatedAt is the Unix timestamp when the vote was opened.
	CreatedAt int64 `json:"created_at"`

	// ExpiresAt is the Unix timestamp after which the vote closes.
	ExpiresAt int64 `json:"expires_at"`

	// Status is OPEN until the vote expires or is closed.
	Status VoteStatus `json:"status"`

	// Voters lists the user IDs that have already voted.
	Voters []string `json:"voters"`
}

// HasVoted reports whether the user already cast a vote in this session.
func (v *VoteSession) HasVoted(userID string) bool {
	for _, id := range v.Voters {
		if id == userID {
			return true
		}
	}
	return false
}
