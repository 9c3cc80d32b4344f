// Package scoring implements the trust-scoring oracle.
//
// The lifecycle engine only ever depends on the Scorer interface; which
// implementation is active (deterministic heuristic or remote LLM with a
// heuristic fallback) is a wiring decision made in main.
package scoring

import (
	"context"

	"github.com/daretna/daretna/internal/models"
)

// Tier buckets a numeric trust score for display and risk decisions.
type Tier string

const (
	TierReliable Tier = "RELIABLE" // score >= 80
	TierAverage  Tier = "AVERAGE"  // score >= 50
	TierRisky    Tier = "RISKY"    // score < 50
)

// TrustScore is the oracle's output for one user.
type TrustScore struct {
	// Value is the trust score, clamped to [0, 100].
	Value int `json:"value"`

	// Tier is the bucket derived from Value.
	Tier Tier `json:"tier"`

	// Explanation is a short human-readable rationale.
	Explanation string `json:"explanation"`

	// SuggestedAmount is the recommended per-cycle contribution ceiling
	// for this user, in currency units.
	SuggestedAmount float64 `json:"suggested_amount"`
}

// Scorer computes a trust score from a user's payment history and profile.
// Implementations must be safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, user *models.User) (TrustScore, error)
}

// TierFor maps a numeric score to its tier.
func TierFor(value int) Tier {
	switch {
	case value >= 80:
		return TierReliable
	case value >= 50:
		return TierAverage
	default:
		return TierRisky
	}
}
