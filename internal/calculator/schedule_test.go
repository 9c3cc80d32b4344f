package calculator

import (
	"testing"
	"time"

	"github.com/daretna/daretna/internal/models"
)

func activeGroup() *models.DaretGroup {
	return &models.DaretGroup{
		ID:              "g1",
		AmountPerPerson: 1000,
		Periodicity:     models.Monthly,
		StartDate:       "2026-01-15",
		Status:          models.GroupActive,
		Members: []models.Membership{
			{UserID: "u1", TourPosition: 2},
			{UserID: "u2", TourPosition: 1},
			{UserID: "u3", TourPosition: 3},
		},
		CurrentTurnIndex: 1,
	}
}

func TestSchedule(t *testing.T) {
	t.Run("orders payouts by turn position", func(t *testing.T) {
		payouts, err := Schedule(activeGroup())
		if err != nil {
			t.Fatalf("Schedule failed: %v", err)
		}
		if len(payouts) != 3 {
			t.Fatalf("payouts = %d, want 3", len(payouts))
		}

		wantOrder := []string{"u2", "u1", "u3"}
		for i, p := range payouts {
			if p.UserID != wantOrder[i] {
				t.Errorf("payout %d beneficiary = %s, want %s", i, p.UserID, wantOrder[i])
			}
			if p.Amount != 3000 {
				t.Errorf("payout %d amount = %.2f, want 3000", i, p.Amount)
			}
		}

		// Monthly cycles advance by calendar months from the start date.
		wantDates := []string{"2026-01-15", "2026-02-15", "2026-03-15"}
		for i, p := range payouts {
			if got := p.Date.Format("2006-01-02"); got != wantDates[i] {
				t.Errorf("payout %d date = %s, want %s", i, got, wantDates[i])
			}
		}

		// Cycle 0 has passed; cycles 1 and 2 have not.
		if !payouts[0].Settled || payouts[1].Settled || payouts[2].Settled {
			t.Errorf("settled flags = %v %v %v, want true false false",
				payouts[0].Settled, payouts[1].Settled, payouts[2].Settled)
		}
	})

	t.Run("weekly periodicity", func(t *testing.T) {
		group := activeGroup()
		group.Periodicity = models.Weekly

		payouts, err := Schedule(group)
		if err != nil {
			t.Fatalf("Schedule failed: %v", err)
		}
		want := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)
		if !payouts[2].Date.Equal(want) {
			t.Errorf("third payout date = %s, want %s", payouts[2].Date, want)
		}
	})

	t.Run("pending group has no schedule", func(t *testing.T) {
		group := activeGroup()
		group.Status = models.GroupPending
		if _, err := Schedule(group); err == nil {
			t.Error("expected error for pending group")
		}
	})

	t.Run("completed group settles everything", func(t *testing.T) {
		group := activeGroup()
		group.Status = models.GroupCompleted
		payouts, err := Schedule(group)
		if err != nil {
			t.Fatalf("Schedule failed: %v", err)
		}
		for i, p := range payouts {
			if !p.Settled {
				t.Errorf("payout %d not settled", i)
			}
		}
	})
}

func TestSummarize(t *testing.T) {
	group := activeGroup()
	contributions := []*models.Contribution{
		{GroupID: "g1", UserID: "u2", Cycle: 0, Amount: 1000},
	}

	t.Run("counts contributions and received payouts", func(t *testing.T) {
		// u2 is position 1 and the rotation is at index 1: payout received.
		summary := Summarize("u2", []*models.DaretGroup{group}, contributions)
		if summary.TotalContributed != 1000 {
			t.Errorf("contributed = %.2f, want 1000", summary.TotalContributed)
		}
		if summary.TotalReceived != 3000 {
			t.Errorf("received = %.2f, want 3000", summary.TotalReceived)
		}
		if summary.NextPaymentAmount != 1000 {
			t.Errorf("next amount = %.2f, want 1000", summary.NextPaymentAmount)
		}
		want := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
		if !summary.NextPaymentDate.Equal(want) {
			t.Errorf("next date = %s, want %s", summary.NextPaymentDate, want)
		}
	})

	t.Run("future beneficiary has received nothing", func(t *testing.T) {
		summary := Summarize("u3", []*models.DaretGroup{group}, nil)
		if summary.TotalReceived != 0 {
			t.Errorf("received = %.2f, want 0", summary.TotalReceived)
		}
	})

	t.Run("confirmed member owes nothing this cycle", func(t *testing.T) {
		confirmed := activeGroup()
		confirmed.Members[0].PaymentStatus = models.PaymentConfirmed

		summary := Summarize("u1", []*models.DaretGroup{confirmed}, nil)
		if summary.NextPaymentAmount != 0 {
			t.Errorf("next amount = %.2f, want 0", summary.NextPaymentAmount)
		}
	})

	t.Run("non-member groups are ignored", func(t *testing.T) {
		summary := Summarize("outsider", []*models.DaretGroup{group}, nil)
		if summary.TotalReceived != 0 || summary.NextPaymentAmount != 0 {
			t.Errorf("got %+v, want zero summary", summary)
		}
	})
}
