// Package calculator computes derived financial views over groups and
// contribution ledgers: payout schedules and per-user summaries. It holds
// pure functions only; nothing here mutates state.
package calculator

import (
	"fmt"
	"sort"
	"time"

	"github.com/daretna/daretna/internal/models"
)

// Payout is one scheduled payout in a group's rotation.
type Payout struct {
	// Cycle is the zero-based cycle index.
	Cycle int `json:"cycle"`

	// UserID is the beneficiary (the member at position Cycle+1).
	UserID string `json:"user_id"`

	// Amount is the pooled payout for the cycle.
	Amount float64 `json:"amount"`

	// Date is the projected payout date (start date plus Cycle periods).
	Date time.Time `json:"date"`

	// Settled reports whether the cycle has already passed
	// (Cycle < CurrentTurnIndex, or the group completed).
	Settled bool `json:"settled"`
}

// Schedule projects the full payout rotation of an active or completed
// group: one payout per member, ordered by turn position, with dates
// derived from the start date and periodicity.
func Schedule(group *models.DaretGroup) ([]Payout, error) {
	if group.Status == models.GroupPending {
		return nil, fmt.Errorf("group %s has no schedule before activation", group.ID)
	}

	start, err := time.Parse("2006-01-02", group.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start date %q: %w", group.StartDate, err)
	}

	ordered := make([]models.Membership, len(group.Members))
	copy(ordered, group.Members)
	sort.Slice(ordered, func(a, b int) bool {
		return ordered[a].TourPosition < ordered[b].TourPosition
	})

	pot := group.PotPerCycle()
	payouts := make([]Payout, 0, len(ordered))
	for i, m := range ordered {
		payouts = append(payouts, Payout{
			Cycle:   i,
			UserID:  m.UserID,
			Amount:  pot,
			Date:    addPeriods(start, group.Periodicity, i),
			Settled: i < group.CurrentTurnIndex || group.Status == models.GroupCompleted,
		})
	}
	return payouts, nil
}

// addPeriods advances the start date by n cycle lengths.
func addPeriods(start time.Time, p models.Periodicity, n int) time.Time {
	if p == models.Weekly {
		return start.AddDate(0, 0, 7*n)
	}
	return start.AddDate(0, n, 0)
}

// FinancialSummary is one user's dashboard view across all their groups.
type FinancialSummary struct {
	// TotalContributed is the lifetime sum of settled contributions.
	TotalContributed float64 `json:"total_contributed"`

	// TotalReceived is the sum of payouts from cycles where this user
	// was the beneficiary.
	TotalReceived float64 `json:"total_received"`

	// NextPaymentDate is the earliest upcoming payout date among the
	// user's active groups; zero when none are active.
	NextPaymentDate time.Time `json:"next_payment_date"`

	// NextPaymentAmount is the contribution due for the next cycle
	// across active groups.
	NextPaymentAmount float64 `json:"next_payment_amount"`
}

// Summarize builds the financial summary for one user from their groups and
// contribution ledger.
func Summarize(userID string, groups []*models.DaretGroup, contributions []*models.Contribution) FinancialSummary {
	var summary FinancialSummary

	for _, c := range contributions {
		summary.TotalContributed += c.Amount
	}

	for _, group := range groups {
		if group.Status == models.GroupPending {
			continue
		}

		member := group.Member(userID)
		if member == nil {
			continue
		}

		// Payouts already received: the user's turn has passed.
		if member.TourPosition > 0 {
			passed := group.CurrentTurnIndex >= member.TourPosition ||
				group.Status == models.GroupCompleted
			if passed {
				summary.TotalReceived += group.PotPerCycle()
			}
		}

		if group.Status != models.GroupActive || member.IsBlocked {
			continue
		}
		if member.PaymentStatus == models.PaymentConfirmed {
			continue
		}

		summary.NextPaymentAmount += group.AmountPerPerson
		if schedule, err := Schedule(group); err == nil {
			due := schedule[group.CurrentTurnIndex].Date
			if summary.NextPaymentDate.IsZero() || due.Before(summary.NextPaymentDate) {
				summary.NextPaymentDate = due
			}
		}
	}
	return summary
}
