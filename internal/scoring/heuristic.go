package scoring

import (
	"context"

	"github.com/daretna/daretna/internal/models"
)

// Heuristic weights. Base 50, rewarded per on-time payment, penalized per
// late payment, small bonus for a complete profile.
const (
	baseScore       = 50
	onTimeBonus     = 10
	latePenalty     = 5
	completeProfile = 5

	// maxSuggestedAmount caps the recommended per-cycle contribution.
	maxSuggestedAmount = 10000
)

// Ensure HeuristicScorer implements Scorer
var _ Scorer = (*HeuristicScorer)(nil)

// HeuristicScorer is the deterministic reference scorer. Given the same
// payment history and profile it always produces the same score, which is
// what makes WEIGHTED draws reproducible in tests.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the deterministic scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score computes the heuristic trust score for the user.
func (h *HeuristicScorer) Score(_ context.Context, user *models.User) (TrustScore, error) {
	value := baseScore
	value += user.History.OnTime * onTimeBonus
	value -= user.History.Late * latePenalty
	if user.ProfileComplete() {
		value += completeProfile
	}

	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	suggested := float64(value) * 100
	if suggested > maxSuggestedAmount {
		suggested = maxSuggestedAmount
	}

	return TrustScore{
		Value:           value,
		Tier:            TierFor(value),
		Explanation:     "Computed from your payment history.",
		SuggestedAmount: suggested,
	}, nil
}
