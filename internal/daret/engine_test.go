package daret

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/daretna/daretna/internal/models"
	"github.com/daretna/daretna/internal/notify"
	"github.com/daretna/daretna/internal/scoring"
	"github.com/daretna/daretna/internal/storage"
	"github.com/daretna/daretna/internal/storage/sqlite"
)

func newTestEngine(t *testing.T) (*Engine, storage.Store) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, scoring.NewHeuristicScorer(), notify.NewStoreNotifier(store)), store
}

var phoneSeq atomic.Int64

func createUser(t *testing.T, store storage.Store, name string) *models.User {
	t.Helper()
	user := &models.User{
		Name:  name,
		Email: fmt.Sprintf("%s@example.com", name),
		Phone: fmt.Sprintf("+21260%07d", phoneSeq.Add(1)),
		Role:  models.RoleFree,
		Kind:  models.KindRegistered,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}

// newActiveGroup creates a group with n members and activates it with a
// manual draw in join order: the admin is position 1.
func newActiveGroup(t *testing.T, e *Engine, store storage.Store, n int) (*models.DaretGroup, []*models.User) {
	t.Helper()
	ctx := context.Background()

	users := make([]*models.User, n)
	for i := range users {
		users[i] = createUser(t, store, fmt.Sprintf("member%d", i))
	}

	group, err := e.CreateGroup(ctx, GroupSpec{
		Name:            "Test Daret",
		AmountPerPerson: 1000,
		Periodicity:     models.Monthly,
		StartDate:       "2026-01-01",
	}, users[0].ID)
	if err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	for _, u := range users[1:] {
		if err := e.JoinGroup(ctx, group.ID, u.ID); err != nil {
			t.Fatalf("failed to join group: %v", err)
		}
	}

	order := make([]string, n)
	for i, u := range users {
		order[i] = u.ID
	}
	if err := e.StartDaret(ctx, group.ID, users[0].ID, models.DrawManual, order); err != nil {
		t.Fatalf("failed to start daret: %v", err)
	}

	group, err = e.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("failed to reload group: %v", err)
	}
	return group, users
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("creator becomes admin at position 1", func(t *testing.T) {
		e, store := newTestEngine(t)
		creator := createUser(t, store, "alice")

		group, err := e.CreateGroup(ctx, GroupSpec{
			Name:            "Family Daret",
			AmountPerPerson: 500,
			Periodicity:     models.Monthly,
		}, creator.ID)
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		if group.Status != models.GroupPending {
			t.Errorf("status = %s, want PENDING", group.Status)
		}
		if group.AdminID != creator.ID {
			t.Errorf("admin_id = %s, want %s", group.AdminID, creator.ID)
		}
		if len(group.Members) != 1 {
			t.Fatalf("members = %d, want 1", len(group.Members))
		}
		m := group.Members[0]
		if m.Role != models.GroupRoleAdmin || m.TourPosition != 1 {
			t.Errorf("creator membership = %s pos %d, want ADMIN pos 1", m.Role, m.TourPosition)
		}

		// Immediately visible to reads.
		if _, err := e.GetGroup(ctx, group.ID); err != nil {
			t.Errorf("group not readable after create: %v", err)
		}
	})

	t.Run("empty name defaults", func(t *testing.T) {
		e, store := newTestEngine(t)
		creator := createUser(t, store, "bob")

		group, err := e.CreateGroup(ctx, GroupSpec{
			AmountPerPerson: 100,
			Periodicity:     models.Weekly,
		}, creator.ID)
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.Name != "New Daret" {
			t.Errorf("name = %q, want %q", group.Name, "New Daret")
		}
		if group.StartDate == "" {
			t.Error("start date not defaulted")
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		e, store := newTestEngine(t)
		creator := createUser(t, store, "carol")

		_, err := e.CreateGroup(ctx, GroupSpec{AmountPerPerson: 0, Periodicity: models.Monthly}, creator.ID)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("zero amount: got %v, want ErrValidation", err)
		}
		_, err = e.CreateGroup(ctx, GroupSpec{AmountPerPerson: 100, Periodicity: "DAILY"}, creator.ID)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("bad periodicity: got %v, want ErrValidation", err)
		}
	})

	t.Run("unknown creator", func(t *testing.T) {
		e, _ := newTestEngine(t)
		_, err := e.CreateGroup(ctx, GroupSpec{AmountPerPerson: 100, Periodicity: models.Monthly}, "missing")
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("got %v, want ErrUserNotFound", err)
		}
	})

	t.Run("free tier limit", func(t *testing.T) {
		e, store := newTestEngine(t)
		creator := createUser(t, store, "dave")

		spec := GroupSpec{AmountPerPerson: 100, Periodicity: models.Monthly}
		for i := 0; i < 2; i++ {
			if _, err := e.CreateGroup(ctx, spec, creator.ID); err != nil {
				t.Fatalf("group %d: %v", i, err)
			}
		}
		if _, err := e.CreateGroup(ctx, spec, creator.ID); !errors.Is(err, ErrGroupLimit) {
			t.Errorf("third group: got %v, want ErrGroupLimit", err)
		}

		// Premium accounts are unlimited.
		creator.Role = models.RolePremium
		if err := store.UpdateUser(ctx, creator); err != nil {
			t.Fatalf("failed to upgrade user: %v", err)
		}
		if _, err := e.CreateGroup(ctx, spec, creator.ID); err != nil {
			t.Errorf("premium third group failed: %v", err)
		}
	})
}

func TestJoinGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("joins pending group", func(t *testing.T) {
		e, store := newTestEngine(t)
		admin := createUser(t, store, "alice")
		joiner := createUser(t, store, "bob")

		group, err := e.CreateGroup(ctx, GroupSpec{AmountPerPerson: 100, Periodicity: models.Monthly}, admin.ID)
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if err := e.JoinGroup(ctx, group.ID, joiner.ID); err != nil {
			t.Fatalf("JoinGroup failed: %v", err)
		}

		group, _ = e.GetGroup(ctx, group.ID)
		m := group.Member(joiner.ID)
		if m == nil {
			t.Fatal("joiner not in member list")
		}
		if m.Role != models.GroupRoleMember || m.TourPosition != 0 {
			t.Errorf("joiner = %s pos %d, want MEMBER pos 0", m.Role, m.TourPosition)
		}
	})

	t.Run("rejects duplicate member", func(t *testing.T) {
		e, store := newTestEngine(t)
		admin := createUser(t, store, "alice")
		joiner := createUser(t, store, "bob")

		group, _ := e.CreateGroup(ctx, GroupSpec{AmountPerPerson: 100, Periodicity: models.Monthly}, admin.ID)
		if err := e.JoinGroup(ctx, group.ID, joiner.ID); err != nil {
			t.Fatalf("JoinGroup failed: %v", err)
		}
		if err := e.JoinGroup(ctx, group.ID, joiner.ID); !errors.Is(err, ErrAlreadyMember) {
			t.Errorf("got %v, want ErrAlreadyMember", err)
		}
		if err := e.JoinGroup(ctx, group.ID, admin.ID); !errors.Is(err, ErrAlreadyMember) {
			t.Errorf("admin rejoin: got %v, want ErrAlreadyMember", err)
		}
	})

	t.Run("rejects join after activation", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, _ := newActiveGroup(t, e, store, 2)
		late := createUser(t, store, "late")

		if err := e.JoinGroup(ctx, group.ID, late.ID); !errors.Is(err, ErrInvalidState) {
			t.Errorf("got %v, want ErrInvalidState", err)
		}
	})

	t.Run("unknown group or user", func(t *testing.T) {
		e, store := newTestEngine(t)
		admin := createUser(t, store, "alice")
		group, _ := e.CreateGroup(ctx, GroupSpec{AmountPerPerson: 100, Periodicity: models.Monthly}, admin.ID)

		if err := e.JoinGroup(ctx, "missing", admin.ID); !errors.Is(err, ErrGroupNotFound) {
			t.Errorf("got %v, want ErrGroupNotFound", err)
		}
		if err := e.JoinGroup(ctx, group.ID, "missing"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("got %v, want ErrUserNotFound", err)
		}
	})
}

func TestInviteMember(t *testing.T) {
	ctx := context.Background()

	t.Run("invites existing account by email", func(t *testing.T) {
		e, store := newTestEngine(t)
		admin := createUser(t, store, "alice")
		invitee := createUser(t, store, "bob")

		group, _ := e.CreateGroup(ctx, GroupSpec{AmountPerPerson: 100, Periodicity: models.Monthly}, admin.ID)
		if err := e.InviteMember(ctx, group.ID, admin.ID, invitee.Email); err != nil {
			t.Fatalf("InviteMember failed: %v", err)
		}

		group, _ = e.GetGroup(ctx, group.ID)
		if group.Member(invitee.ID) == nil {
			t.Error("invitee not in member list")
		}
	})

	t.Run("synthesizes placeholder for unknown contact", func(t *testing.T) {
		e, store := newTestEngine(t)
		admin := createUser(t, store, "alice")

		group, _ := e.CreateGroup(ctx, GroupSpec{AmountPerPerson: 100, Periodicity: models.Monthly}, admin.ID)
		if err := e.InviteMember(ctx, group.ID, admin.ID, "newcomer@example.com"); err != nil {
			t.Fatalf("InviteMember failed: %v", err)
		}

		placeholder, err := store.GetUserByContact(ctx, "newcomer@example.com")
		if err != nil {
			t.Fatalf("placeholder not persisted: %v", err)
		}
		if placeholder.Kind != models.KindInvited {
			t.Errorf("kind = %s, want INVITED", placeholder.Kind)
		}
		if placeholder.Name != "newcomer" {
			t.Errorf("name = %q, want %q", placeholder.Name, "newcomer")
		}

		group, _ = e.GetGroup(ctx, group.ID)
		if group.Member(placeholder.ID) == nil {
			t.Error("placeholder not in member list")
		}
	})

	t.Run("requires admin", func(t *testing.T) {
		e, store := newTestEngine(t)
		admin := createUser(t, store, "alice")
		member := createUser(t, store, "bob")

		group, _ := e.CreateGroup(ctx, GroupSpec{AmountPerPerson: 100, Periodicity: models.Monthly}, admin.ID)
		if err := e.JoinGroup(ctx, group.ID, member.ID); err != nil {
			t.Fatalf("JoinGroup failed: %v", err)
		}

		err := e.InviteMember(ctx, group.ID, member.ID, "x@example.com")
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})

	t.Run("rejects invite after activation", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 2)

		err := e.InviteMember(ctx, group.ID, users[0].ID, "x@example.com")
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("got %v, want ErrInvalidState", err)
		}
	})
}

func TestSubmitPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("moves member to submitted", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 3)

		if err := e.SubmitPayment(ctx, group.ID, users[1].ID, "proof-123"); err != nil {
			t.Fatalf("SubmitPayment failed: %v", err)
		}

		group, _ = e.GetGroup(ctx, group.ID)
		m := group.Member(users[1].ID)
		if m.PaymentStatus != models.PaymentSubmitted {
			t.Errorf("status = %s, want SUBMITTED", m.PaymentStatus)
		}
		if m.PaymentProofURL != "proof-123" {
			t.Errorf("proof = %q, want %q", m.PaymentProofURL, "proof-123")
		}
	})

	t.Run("rejects double submission", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 2)

		if err := e.SubmitPayment(ctx, group.ID, users[1].ID, "p1"); err != nil {
			t.Fatalf("SubmitPayment failed: %v", err)
		}
		if err := e.SubmitPayment(ctx, group.ID, users[1].ID, "p2"); !errors.Is(err, ErrInvalidState) {
			t.Errorf("got %v, want ErrInvalidState", err)
		}
	})

	t.Run("late member may still submit", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 2)

		if _, err := e.MarkLatePayments(ctx, group.ID); err != nil {
			t.Fatalf("MarkLatePayments failed: %v", err)
		}
		if err := e.SubmitPayment(ctx, group.ID, users[1].ID, "proof"); err != nil {
			t.Errorf("late submit failed: %v", err)
		}
	})

	t.Run("rejects pending group and blocked member", func(t *testing.T) {
		e, store := newTestEngine(t)
		admin := createUser(t, store, "alice")
		group, _ := e.CreateGroup(ctx, GroupSpec{AmountPerPerson: 100, Periodicity: models.Monthly}, admin.ID)

		if err := e.SubmitPayment(ctx, group.ID, admin.ID, "p"); !errors.Is(err, ErrInvalidState) {
			t.Errorf("pending group: got %v, want ErrInvalidState", err)
		}

		activeGroup, users := newActiveGroup(t, e, store, 3)
		if err := e.BlockMember(ctx, activeGroup.ID, users[0].ID, users[2].ID); err != nil {
			t.Fatalf("BlockMember failed: %v", err)
		}
		if err := e.SubmitPayment(ctx, activeGroup.ID, users[2].ID, "p"); !errors.Is(err, ErrMemberBlocked) {
			t.Errorf("blocked member: got %v, want ErrMemberBlocked", err)
		}
	})
}

func TestConfirmPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("settles exactly once", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 2)
		admin, payer := users[0], users[1]

		if err := e.SubmitPayment(ctx, group.ID, payer.ID, "proof"); err != nil {
			t.Fatalf("SubmitPayment failed: %v", err)
		}
		if err := e.ConfirmPayment(ctx, group.ID, admin.ID, payer.ID); err != nil {
			t.Fatalf("ConfirmPayment failed: %v", err)
		}

		// A second confirmation is a no-op, not an error.
		if err := e.ConfirmPayment(ctx, group.ID, admin.ID, payer.ID); err != nil {
			t.Fatalf("second ConfirmPayment failed: %v", err)
		}

		group, _ = e.GetGroup(ctx, group.ID)
		if got := group.Member(payer.ID).PaymentStatus; got != models.PaymentConfirmed {
			t.Errorf("status = %s, want CONFIRMED", got)
		}

		// History is counted once despite the double confirm.
		payer, _ = store.GetUser(ctx, payer.ID)
		if payer.History.OnTime != 1 {
			t.Errorf("on_time = %d, want 1", payer.History.OnTime)
		}
		if payer.History.TotalAmount != 1000 {
			t.Errorf("total = %.2f, want 1000", payer.History.TotalAmount)
		}
		if payer.Points != 20 {
			t.Errorf("points = %d, want 20", payer.Points)
		}

		ledger, err := store.ListContributionsByGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("failed to list contributions: %v", err)
		}
		if len(ledger) != 1 {
			t.Fatalf("ledger entries = %d, want 1", len(ledger))
		}
		if ledger[0].Method != "MANUAL" || ledger[0].Cycle != 0 {
			t.Errorf("ledger entry = %s cycle %d, want MANUAL cycle 0", ledger[0].Method, ledger[0].Cycle)
		}
	})

	t.Run("requires admin", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 3)

		err := e.ConfirmPayment(ctx, group.ID, users[1].ID, users[2].ID)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})

	t.Run("records late settlement", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 2)

		if _, err := e.MarkLatePayments(ctx, group.ID); err != nil {
			t.Fatalf("MarkLatePayments failed: %v", err)
		}
		if err := e.ConfirmPayment(ctx, group.ID, users[0].ID, users[1].ID); err != nil {
			t.Fatalf("ConfirmPayment failed: %v", err)
		}

		ledger, _ := store.ListContributionsByGroup(ctx, group.ID)
		var entry *models.Contribution
		for _, c := range ledger {
			if c.UserID == users[1].ID {
				entry = c
			}
		}
		if entry == nil || !entry.WasLate {
			t.Error("late settlement not flagged in ledger")
		}
	})
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	group, users := newActiveGroup(t, e, store, 2)
	payer := users[1]

	// Gateway settlements skip the SUBMITTED step.
	if err := e.RecordPayment(ctx, group.ID, payer.ID, "CMI"); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	// Gateway retries are harmless.
	if err := e.RecordPayment(ctx, group.ID, payer.ID, "CMI"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	payer, _ = store.GetUser(ctx, payer.ID)
	if payer.History.OnTime != 1 {
		t.Errorf("on_time = %d, want 1", payer.History.OnTime)
	}

	ledger, _ := store.ListContributionsByGroup(ctx, group.ID)
	if len(ledger) != 1 || ledger[0].Method != "CMI" {
		t.Fatalf("ledger = %+v, want single CMI entry", ledger)
	}
}

// flakyStore fails a fixed number of group updates to model a write that is
// interrupted between the ledger insert and the membership update.
type flakyStore struct {
	storage.Store
	updateFailures int
}

func (s *flakyStore) UpdateGroup(ctx context.Context, group *models.DaretGroup) error {
	if s.updateFailures > 0 {
		s.updateFailures--
		return storage.ErrVersionConflict
	}
	return s.Store.UpdateGroup(ctx, group)
}

func TestSettlementResumesAfterFailedUpdate(t *testing.T) {
	ctx := context.Background()

	base, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { base.Close() })
	flaky := &flakyStore{Store: base}
	e := New(flaky, scoring.NewHeuristicScorer(), notify.NewStoreNotifier(base))

	group, users := newActiveGroup(t, e, flaky, 2)
	payer := users[1]

	// The ledger row lands but the membership update does not.
	flaky.updateFailures = 1
	if err := e.RecordPayment(ctx, group.ID, payer.ID, "CMI"); !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("got %v, want ErrVersionConflict", err)
	}

	group, _ = e.GetGroup(ctx, group.ID)
	if got := group.Member(payer.ID).PaymentStatus; got != models.PaymentPending {
		t.Fatalf("status after failed update = %s, want PENDING", got)
	}

	// The retry finds the existing ledger row and finishes the settlement.
	if err := e.RecordPayment(ctx, group.ID, payer.ID, "CMI"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	group, _ = e.GetGroup(ctx, group.ID)
	if got := group.Member(payer.ID).PaymentStatus; got != models.PaymentConfirmed {
		t.Errorf("status = %s, want CONFIRMED", got)
	}

	// History counted exactly once across the failed attempt and the retry.
	payer, _ = base.GetUser(ctx, payer.ID)
	if payer.History.OnTime != 1 {
		t.Errorf("on_time = %d, want 1", payer.History.OnTime)
	}
	if payer.History.TotalAmount != 1000 {
		t.Errorf("total = %.2f, want 1000", payer.History.TotalAmount)
	}
	if payer.Points != pointsPerSettlement {
		t.Errorf("points = %d, want %d", payer.Points, pointsPerSettlement)
	}

	ledger, _ := base.ListContributionsByGroup(ctx, group.ID)
	if len(ledger) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(ledger))
	}
}

func TestAdvanceCycle(t *testing.T) {
	ctx := context.Background()

	settleAll := func(t *testing.T, e *Engine, group *models.DaretGroup, users []*models.User) {
		t.Helper()
		for _, u := range users {
			if err := e.RecordPayment(ctx, group.ID, u.ID, "CMI"); err != nil {
				t.Fatalf("failed to settle %s: %v", u.ID, err)
			}
		}
	}

	t.Run("rejects unsettled members without force", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 3)

		err := e.AdvanceCycle(ctx, group.ID, users[0].ID, false)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("got %v, want ErrInvalidState", err)
		}
	})

	t.Run("advances and resets statuses", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 3)
		settleAll(t, e, group, users)

		if err := e.AdvanceCycle(ctx, group.ID, users[0].ID, false); err != nil {
			t.Fatalf("AdvanceCycle failed: %v", err)
		}

		group, _ = e.GetGroup(ctx, group.ID)
		if group.CurrentTurnIndex != 1 {
			t.Errorf("turn index = %d, want 1", group.CurrentTurnIndex)
		}
		if group.Status != models.GroupActive {
			t.Errorf("status = %s, want ACTIVE", group.Status)
		}
		for _, m := range group.Members {
			if m.PaymentStatus != models.PaymentPending {
				t.Errorf("member %s status = %s, want PENDING", m.UserID, m.PaymentStatus)
			}
			if m.PaymentProofURL != "" {
				t.Errorf("member %s proof not cleared", m.UserID)
			}
		}

		// The new beneficiary was notified.
		next := group.CurrentBeneficiary()
		if next == nil {
			t.Fatal("no current beneficiary")
		}
		notifications, _ := store.ListNotificationsForUser(ctx, next.UserID)
		if len(notifications) == 0 {
			t.Error("beneficiary not notified")
		}
	})

	t.Run("force skips the settlement check", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 3)

		if err := e.AdvanceCycle(ctx, group.ID, users[0].ID, true); err != nil {
			t.Fatalf("forced AdvanceCycle failed: %v", err)
		}
		group, _ = e.GetGroup(ctx, group.ID)
		if group.CurrentTurnIndex != 1 {
			t.Errorf("turn index = %d, want 1", group.CurrentTurnIndex)
		}
	})

	t.Run("completes after the last cycle", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 2)

		for cycle := 0; cycle < 2; cycle++ {
			settleAll(t, e, group, users)
			if err := e.AdvanceCycle(ctx, group.ID, users[0].ID, false); err != nil {
				t.Fatalf("cycle %d: %v", cycle, err)
			}
			group, _ = e.GetGroup(ctx, group.ID)
		}

		if group.Status != models.GroupCompleted {
			t.Errorf("status = %s, want COMPLETED", group.Status)
		}
		// No further mutations on a completed group.
		if err := e.AdvanceCycle(ctx, group.ID, users[0].ID, true); !errors.Is(err, ErrInvalidState) {
			t.Errorf("advance completed group: got %v, want ErrInvalidState", err)
		}
	})

	t.Run("requires admin", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 2)

		err := e.AdvanceCycle(ctx, group.ID, users[1].ID, true)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})

	t.Run("blocked members are skipped", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 3)

		if err := e.BlockMember(ctx, group.ID, users[0].ID, users[2].ID); err != nil {
			t.Fatalf("BlockMember failed: %v", err)
		}
		for _, u := range users[:2] {
			if err := e.RecordPayment(ctx, group.ID, u.ID, "CMI"); err != nil {
				t.Fatalf("failed to settle %s: %v", u.ID, err)
			}
		}

		// The blocked member never settled, yet the cycle may advance.
		if err := e.AdvanceCycle(ctx, group.ID, users[0].ID, false); err != nil {
			t.Fatalf("AdvanceCycle failed: %v", err)
		}
	})
}

func TestMarkLatePayments(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	group, users := newActiveGroup(t, e, store, 3)

	// One member settles in time.
	if err := e.RecordPayment(ctx, group.ID, users[1].ID, "CMI"); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	marked, err := e.MarkLatePayments(ctx, group.ID)
	if err != nil {
		t.Fatalf("MarkLatePayments failed: %v", err)
	}
	if marked != 2 {
		t.Errorf("marked = %d, want 2", marked)
	}

	group, _ = e.GetGroup(ctx, group.ID)
	for _, m := range group.Members {
		if m.UserID == users[1].ID {
			if m.PaymentStatus != models.PaymentConfirmed {
				t.Errorf("settled member became %s", m.PaymentStatus)
			}
			continue
		}
		if m.PaymentStatus != models.PaymentLate {
			t.Errorf("member %s status = %s, want LATE", m.UserID, m.PaymentStatus)
		}
		if m.MissedPayments != 1 {
			t.Errorf("member %s missed = %d, want 1", m.UserID, m.MissedPayments)
		}
	}

	// Late history and alert recorded for each marked member.
	lateUser, _ := store.GetUser(ctx, users[2].ID)
	if lateUser.History.Late != 1 {
		t.Errorf("late history = %d, want 1", lateUser.History.Late)
	}
	notifications, _ := store.ListNotificationsForUser(ctx, users[2].ID)
	found := false
	for _, n := range notifications {
		if n.Kind == models.NotifyAlert {
			found = true
		}
	}
	if !found {
		t.Error("no late alert delivered")
	}

	// A second sweep finds nothing new.
	marked, err = e.MarkLatePayments(ctx, group.ID)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if marked != 0 {
		t.Errorf("second sweep marked = %d, want 0", marked)
	}
}

func TestSendReminders(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies unsettled members", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 4)

		if err := e.RecordPayment(ctx, group.ID, users[1].ID, "CMI"); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
		if err := e.BlockMember(ctx, group.ID, users[0].ID, users[3].ID); err != nil {
			t.Fatalf("BlockMember failed: %v", err)
		}

		result, err := e.SendReminders(ctx, group.ID)
		if err != nil {
			t.Fatalf("SendReminders failed: %v", err)
		}
		// Confirmed and blocked members are skipped.
		if len(result.Notified) != 2 {
			t.Fatalf("notified = %v, want 2 members", result.Notified)
		}
		for _, id := range result.Notified {
			if id == users[1].ID || id == users[3].ID {
				t.Errorf("member %s should not be reminded", id)
			}
			notifications, _ := store.ListNotificationsForUser(ctx, id)
			if len(notifications) == 0 {
				t.Errorf("member %s has no notification", id)
			}
		}
	})

	t.Run("requires an active group", func(t *testing.T) {
		e, store := newTestEngine(t)
		admin := createUser(t, store, "alice")
		group, _ := e.CreateGroup(ctx, GroupSpec{AmountPerPerson: 100, Periodicity: models.Monthly}, admin.ID)

		if _, err := e.SendReminders(ctx, group.ID); !errors.Is(err, ErrInvalidState) {
			t.Errorf("pending group: got %v, want ErrInvalidState", err)
		}
		notifications, _ := store.ListNotificationsForUser(ctx, admin.ID)
		if len(notifications) != 0 {
			t.Errorf("pending group delivered %d reminders, want 0", len(notifications))
		}
	})
}

func TestBlockMember(t *testing.T) {
	ctx := context.Background()

	t.Run("blocks a member", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 3)

		if err := e.BlockMember(ctx, group.ID, users[0].ID, users[1].ID); err != nil {
			t.Fatalf("BlockMember failed: %v", err)
		}
		group, _ = e.GetGroup(ctx, group.ID)
		if !group.Member(users[1].ID).IsBlocked {
			t.Error("member not blocked")
		}
		// The pot shrinks accordingly.
		if got := group.PotPerCycle(); got != 2000 {
			t.Errorf("pot = %.2f, want 2000", got)
		}
	})

	t.Run("blocked member keeps their turn", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 3)

		// users[1] holds position 2; blocking does not vacate it.
		if err := e.BlockMember(ctx, group.ID, users[0].ID, users[1].ID); err != nil {
			t.Fatalf("BlockMember failed: %v", err)
		}
		if err := e.AdvanceCycle(ctx, group.ID, users[0].ID, true); err != nil {
			t.Fatalf("AdvanceCycle failed: %v", err)
		}

		group, _ = e.GetGroup(ctx, group.ID)
		b := group.CurrentBeneficiary()
		if b == nil || b.UserID != users[1].ID {
			t.Errorf("beneficiary = %+v, want blocked member %s", b, users[1].ID)
		}
	})

	t.Run("cannot block the admin", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 2)

		err := e.BlockMember(ctx, group.ID, users[0].ID, users[0].ID)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("got %v, want ErrValidation", err)
		}
	})

	t.Run("requires admin", func(t *testing.T) {
		e, store := newTestEngine(t)
		group, users := newActiveGroup(t, e, store, 3)

		err := e.BlockMember(ctx, group.ID, users[1].ID, users[2].ID)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})
}
