// Package daret implements the group lifecycle engine: the sole authority
// for mutating a DaretGroup and its memberships. All group operations, from
// formation through sequential payout cycles, funnel through the Engine,
// which enforces the sequencing invariants and serializes writers per group.
package daret

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/daretna/daretna/internal/models"
	"github.com/daretna/daretna/internal/notify"
	"github.com/daretna/daretna/internal/scoring"
	"github.com/daretna/daretna/internal/storage"
)

const (
	// freeTierGroupLimit is how many running groups a FREE user may
	// administer at once.
	freeTierGroupLimit = 2

	// pointsPerSettlement is the loyalty award for each settled payment.
	pointsPerSettlement = 20

	// defaultGroupName is used when a group is created with an empty name.
	defaultGroupName = "New Daret"
)

var operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "daretna_engine_operations_total",
	Help: "Lifecycle engine operations by name and outcome.",
}, []string{"op", "outcome"})

// GroupSpec carries the caller-supplied fields for a new group.
type GroupSpec struct {
	Name            string
	AmountPerPerson float64
	Periodicity     models.Periodicity
	StartDate       string
}

// ReminderResult reports who was notified by SendReminders.
type ReminderResult struct {
	GroupID  string   `json:"group_id"`
	Notified []string `json:"notified"`
}

// Engine is the group lifecycle engine. All mutating operations are
// serialized per group ID; operations on different groups run in parallel.
type Engine struct {
	store    storage.Store
	scorer   scoring.Scorer
	notifier notify.Notifier
	locks    *keyedMutex
}

// New creates an engine over the given collaborators. The scorer is only
// consulted for WEIGHTED draws; the notifier only for reminders and alerts.
func New(store storage.Store, scorer scoring.Scorer, notifier notify.Notifier) *Engine {
	return &Engine{
		store:    store,
		scorer:   scorer,
		notifier: notifier,
		locks:    newKeyedMutex(),
	}
}

func observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	operationsTotal.WithLabelValues(op, outcome).Inc()
}

// CreateGroup creates a pending group with the creator as its ADMIN member
// at turn position 1. The group is persisted before returning and is
// immediately visible to subsequent reads.
func (e *Engine) CreateGroup(ctx context.Context, spec GroupSpec, creatorID string) (group *models.DaretGroup, err error) {
	defer func() { observe("create_group", err) }()
	slog.Info("CreateGroup request received", "name", spec.Name, "creator_id", creatorID)

	if spec.AmountPerPerson <= 0 {
		return nil, fmt.Errorf("amount per person must be positive: %w", ErrValidation)
	}
	if spec.Periodicity != models.Monthly && spec.Periodicity != models.Weekly {
		return nil, fmt.Errorf("unknown periodicity %q: %w", spec.Periodicity, ErrValidation)
	}

	creator, err := e.store.GetUser(ctx, creatorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("creator %s: %w", creatorID, ErrUserNotFound)
		}
		return nil, err
	}

	if creator.Role == models.RoleFree {
		n, err := e.store.CountGroupsAdministeredBy(ctx, creatorID)
		if err != nil {
			return nil, err
		}
		if n >= freeTierGroupLimit {
			return nil, fmt.Errorf("user %s administers %d groups: %w", creatorID, n, ErrGroupLimit)
		}
	}

	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = defaultGroupName
	}
	startDate := spec.StartDate
	if startDate == "" {
		startDate = time.Now().Format("2006-01-02")
	}

	group = &models.DaretGroup{
		Name:            name,
		AmountPerPerson: spec.AmountPerPerson,
		Periodicity:     spec.Periodicity,
		StartDate:       startDate,
		Status:          models.GroupPending,
		AdminID:         creator.ID,
		Members: []models.Membership{{
			UserID:        creator.ID,
			Role:          models.GroupRoleAdmin,
			TourPosition:  1,
			PaymentStatus: models.PaymentPending,
			JoinedAt:      time.Now().Unix(),
		}},
		CurrentTurnIndex: 0,
	}
	for i := range group.Members {
		group.Members[i].GroupID = group.ID
	}

	if err = e.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID, "name", group.Name)
	return group, nil
}

// JoinGroup adds the user as a regular member of a pending group. No turn
// position is assigned until activation.
func (e *Engine) JoinGroup(ctx context.Context, groupID, userID string) (err error) {
	defer func() { observe("join_group", err) }()
	unlock := e.locks.lock(groupID)
	defer unlock()

	slog.Info("JoinGroup request received", "group_id", groupID, "user_id", userID)

	group, err := e.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
		}
		return err
	}

	if group.Status != models.GroupPending {
		return fmt.Errorf("group %s is %s: %w", groupID, group.Status, ErrInvalidState)
	}
	if group.Member(user.ID) != nil {
		return fmt.Errorf("user %s in group %s: %w", user.ID, groupID, ErrAlreadyMember)
	}

	group.Members = append(group.Members, models.Membership{
		UserID:        user.ID,
		GroupID:       group.ID,
		Role:          models.GroupRoleMember,
		PaymentStatus: models.PaymentPending,
		JoinedAt:      time.Now().Unix(),
	})

	if err = e.store.UpdateGroup(ctx, group); err != nil {
		slog.Error("JoinGroup failed", "group_id", groupID, "error", err)
		return err
	}

	slog.Info("Member joined", "group_id", groupID, "user_id", user.ID, "members", len(group.Members))
	return nil
}

// InviteMember adds a member by email or phone. When no account matches the
// identifier, a placeholder Invited user is synthesized and persisted so the
// admin can pre-seed a roster of not-yet-registered participants.
// Admin-only.
func (e *Engine) InviteMember(ctx context.Context, groupID, actorID, identifier string) (err error) {
	defer func() { observe("invite_member", err) }()
	unlock := e.locks.lock(groupID)
	defer unlock()

	slog.Info("InviteMember request received", "group_id", groupID, "actor_id", actorID)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return fmt.Errorf("empty invite identifier: %w", ErrValidation)
	}

	group, err := e.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsAdmin(actorID) {
		return fmt.Errorf("user %s in group %s: %w", actorID, groupID, ErrUnauthorized)
	}
	if group.Status != models.GroupPending {
		return fmt.Errorf("group %s is %s: %w", groupID, group.Status, ErrInvalidState)
	}

	user, err := e.store.GetUserByContact(ctx, identifier)
	switch {
	case err == nil:
		if group.Member(user.ID) != nil {
			return fmt.Errorf("user %s in group %s: %w", user.ID, groupID, ErrAlreadyMember)
		}
	case errors.Is(err, storage.ErrNotFound):
		user = placeholderUser(identifier)
		if err := e.store.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to create invited user: %w", err)
		}
		slog.Info("Invited placeholder user created", "user_id", user.ID)
	default:
		return err
	}

	group.Members = append(group.Members, models.Membership{
		UserID:        user.ID,
		GroupID:       group.ID,
		Role:          models.GroupRoleMember,
		PaymentStatus: models.PaymentPending,
		JoinedAt:      time.Now().Unix(),
	})

	if err = e.store.UpdateGroup(ctx, group); err != nil {
		slog.Error("InviteMember failed", "group_id", groupID, "error", err)
		return err
	}

	slog.Info("Member invited", "group_id", groupID, "user_id", user.ID)
	return nil
}

// placeholderUser synthesizes an Invited account from a contact identifier.
func placeholderUser(identifier string) *models.User {
	user := &models.User{
		Role: models.RoleFree,
		Kind: models.KindInvited,
	}
	if strings.Contains(identifier, "@") {
		user.Email = identifier
		user.Name = identifier[:strings.Index(identifier, "@")]
	} else {
		user.Phone = identifier
		user.Name = "Guest"
		// Invited accounts need a unique placeholder email for the store.
		user.Email = fmt.Sprintf("invite-%d@daretna.ma", time.Now().UnixNano())
	}
	return user
}

// SubmitPayment records payment evidence for the current cycle. The member
// moves to SUBMITTED; the payer's history is untouched until an admin
// confirms.
func (e *Engine) SubmitPayment(ctx context.Context, groupID, userID, proofRef string) (err error) {
	defer func() { observe("submit_payment", err) }()
	unlock := e.locks.lock(groupID)
	defer unlock()

	slog.Info("SubmitPayment request received", "group_id", groupID, "user_id", userID)

	group, err := e.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.Status != models.GroupActive {
		return fmt.Errorf("group %s is %s: %w", groupID, group.Status, ErrInvalidState)
	}

	member := group.Member(userID)
	if member == nil {
		return fmt.Errorf("user %s in group %s: %w", userID, groupID, ErrNotMember)
	}
	if member.IsBlocked {
		return fmt.Errorf("user %s in group %s: %w", userID, groupID, ErrMemberBlocked)
	}
	if member.PaymentStatus != models.PaymentPending && member.PaymentStatus != models.PaymentLate {
		return fmt.Errorf("payment already %s: %w", member.PaymentStatus, ErrInvalidState)
	}

	member.PaymentStatus = models.PaymentSubmitted
	member.PaymentProofURL = proofRef

	if err = e.store.UpdateGroup(ctx, group); err != nil {
		slog.Error("SubmitPayment failed", "group_id", groupID, "error", err)
		return err
	}

	slog.Info("Payment submitted", "group_id", groupID, "user_id", userID)
	return nil
}

// ConfirmPayment settles a submitted payment. Admin-only; idempotent.
func (e *Engine) ConfirmPayment(ctx context.Context, groupID, actorID, userID string) (err error) {
	defer func() { observe("confirm_payment", err) }()
	unlock := e.locks.lock(groupID)
	defer unlock()

	slog.Info("ConfirmPayment request received", "group_id", groupID, "actor_id", actorID, "user_id", userID)

	group, err := e.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsAdmin(actorID) {
		return fmt.Errorf("user %s in group %s: %w", actorID, groupID, ErrUnauthorized)
	}
	return e.settleLocked(ctx, group, userID, "MANUAL")
}

// RecordPayment settles a payment directly from a successful gateway event,
// skipping the SUBMITTED evidence step. Idempotent.
func (e *Engine) RecordPayment(ctx context.Context, groupID, userID, method string) (err error) {
	defer func() { observe("record_payment", err) }()
	unlock := e.locks.lock(groupID)
	defer unlock()

	slog.Info("RecordPayment request received", "group_id", groupID, "user_id", userID, "method", method)

	group, err := e.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if method == "" {
		method = "GATEWAY"
	}
	return e.settleLocked(ctx, group, userID, method)
}

// settleLocked is the single settlement path shared by ConfirmPayment and
// RecordPayment. Settling an already-CONFIRMED member is a no-op, so the
// payer's history is never double-counted. A ledger row that already exists
// while the member is still unpaid means an earlier attempt was interrupted
// between the ledger write and the group update; the retry resumes that
// settlement rather than reporting success. Caller holds the group lock.
func (e *Engine) settleLocked(ctx context.Context, group *models.DaretGroup, userID, method string) error {
	if group.Status != models.GroupActive {
		return fmt.Errorf("group %s is %s: %w", group.ID, group.Status, ErrInvalidState)
	}

	member := group.Member(userID)
	if member == nil {
		return fmt.Errorf("user %s in group %s: %w", userID, group.ID, ErrNotMember)
	}
	if member.IsBlocked {
		return fmt.Errorf("user %s in group %s: %w", userID, group.ID, ErrMemberBlocked)
	}
	if member.PaymentStatus == models.PaymentConfirmed {
		slog.Info("Payment already settled", "group_id", group.ID, "user_id", userID)
		return nil
	}

	wasLate := member.PaymentStatus == models.PaymentLate

	// Ledger first: the unique (group, user, cycle) entry is the
	// idempotency backstop if two settlement paths race.
	contribution := &models.Contribution{
		GroupID: group.ID,
		UserID:  userID,
		Cycle:   group.CurrentTurnIndex,
		Amount:  group.AmountPerPerson,
		Method:  method,
		WasLate: wasLate,
	}
	if err := e.store.CreateContribution(ctx, contribution); err != nil {
		if !errors.Is(err, storage.ErrDuplicate) {
			return err
		}
		// The member is not CONFIRMED yet the ledger row exists: finish
		// the interrupted settlement instead of returning early on a
		// member still marked unpaid.
		slog.Warn("Resuming interrupted settlement", "group_id", group.ID, "user_id", userID, "cycle", group.CurrentTurnIndex)
	}

	member.PaymentStatus = models.PaymentConfirmed

	if err := e.store.UpdateGroup(ctx, group); err != nil {
		slog.Error("Settlement failed", "group_id", group.ID, "error", err)
		return err
	}

	// Update the payer's long-term history. This is the only path that
	// feeds trust scoring.
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	user.History.OnTime++
	user.History.TotalAmount += group.AmountPerPerson
	user.Points += pointsPerSettlement
	user.Level = models.LevelForPoints(user.Points)
	if err := e.store.UpdateUser(ctx, user); err != nil {
		return err
	}

	slog.Info("Payment settled",
		"group_id", group.ID,
		"user_id", userID,
		"cycle", group.CurrentTurnIndex,
		"method", method,
		"was_late", wasLate,
	)
	return nil
}

// AdvanceCycle moves the rotation forward once every non-blocked member has
// settled (or the admin forces it). Members are reset to PENDING for the
// next cycle; when the rotation completes the group becomes COMPLETED.
// Admin-only.
func (e *Engine) AdvanceCycle(ctx context.Context, groupID, actorID string, force bool) (err error) {
	defer func() { observe("advance_cycle", err) }()
	unlock := e.locks.lock(groupID)
	defer unlock()

	slog.Info("AdvanceCycle request received", "group_id", groupID, "actor_id", actorID, "force", force)

	group, err := e.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsAdmin(actorID) {
		return fmt.Errorf("user %s in group %s: %w", actorID, groupID, ErrUnauthorized)
	}
	if group.Status != models.GroupActive {
		return fmt.Errorf("group %s is %s: %w", groupID, group.Status, ErrInvalidState)
	}

	if !force {
		for i := range group.Members {
			m := &group.Members[i]
			if m.IsBlocked {
				continue
			}
			if m.PaymentStatus != models.PaymentConfirmed {
				return fmt.Errorf("member %s is %s: %w", m.UserID, m.PaymentStatus, ErrInvalidState)
			}
		}
	}

	group.CurrentTurnIndex++
	if group.CurrentTurnIndex >= len(group.Members) {
		group.Status = models.GroupCompleted
	} else {
		for i := range group.Members {
			m := &group.Members[i]
			if m.IsBlocked {
				continue
			}
			m.PaymentStatus = models.PaymentPending
			m.PaymentProofURL = ""
		}
	}

	if err = e.store.UpdateGroup(ctx, group); err != nil {
		slog.Error("AdvanceCycle failed", "group_id", groupID, "error", err)
		return err
	}

	if group.Status == models.GroupCompleted {
		e.systemMessage(ctx, group, "The daret is complete. Every member has received their payout.")
		slog.Info("Group completed", "group_id", groupID)
		return nil
	}

	if b := group.CurrentBeneficiary(); b != nil {
		e.notifyUser(ctx, b.UserID, models.NotifyInfo,
			fmt.Sprintf("It is your turn in %q: you receive the pot of %.2f this cycle.", group.Name, group.PotPerCycle()))
		e.systemMessage(ctx, group, fmt.Sprintf("New cycle started. Turn %d.", group.CurrentTurnIndex+1))
	}

	slog.Info("Cycle advanced", "group_id", groupID, "turn_index", group.CurrentTurnIndex)
	return nil
}

// MarkLatePayments marks all still-PENDING members as LATE and alerts them.
// Invoked when the cycle deadline passes; returns how many members were
// marked.
func (e *Engine) MarkLatePayments(ctx context.Context, groupID string) (marked int, err error) {
	defer func() { observe("mark_late", err) }()
	unlock := e.locks.lock(groupID)
	defer unlock()

	group, err := e.loadGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if group.Status != models.GroupActive {
		return 0, fmt.Errorf("group %s is %s: %w", groupID, group.Status, ErrInvalidState)
	}

	var lateUserIDs []string
	for i := range group.Members {
		m := &group.Members[i]
		if m.IsBlocked || m.PaymentStatus != models.PaymentPending {
			continue
		}
		m.PaymentStatus = models.PaymentLate
		m.MissedPayments++
		lateUserIDs = append(lateUserIDs, m.UserID)
	}
	if len(lateUserIDs) == 0 {
		return 0, nil
	}

	if err = e.store.UpdateGroup(ctx, group); err != nil {
		slog.Error("MarkLatePayments failed", "group_id", groupID, "error", err)
		return 0, err
	}

	for _, userID := range lateUserIDs {
		user, err := e.store.GetUser(ctx, userID)
		if err != nil {
			slog.Warn("Failed to load late member", "user_id", userID, "error", err)
			continue
		}
		user.History.Late++
		if err := e.store.UpdateUser(ctx, user); err != nil {
			slog.Warn("Failed to record late payment in history", "user_id", userID, "error", err)
		}
		e.notifyUser(ctx, userID, models.NotifyAlert,
			fmt.Sprintf("Your contribution of %.2f to %q is late.", group.AmountPerPerson, group.Name))
	}

	slog.Info("Late payments marked", "group_id", groupID, "count", len(lateUserIDs))
	return len(lateUserIDs), nil
}

// SendReminders notifies every member whose payment is not yet confirmed
// for the current cycle. Active groups only; no group state changes.
func (e *Engine) SendReminders(ctx context.Context, groupID string) (result *ReminderResult, err error) {
	defer func() { observe("send_reminders", err) }()

	group, err := e.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != models.GroupActive {
		return nil, fmt.Errorf("group %s is %s: %w", groupID, group.Status, ErrInvalidState)
	}

	result = &ReminderResult{GroupID: groupID}
	for i := range group.Members {
		m := &group.Members[i]
		if m.IsBlocked || m.PaymentStatus == models.PaymentConfirmed {
			continue
		}
		e.notifyUser(ctx, m.UserID, models.NotifyPayment,
			fmt.Sprintf("Reminder: your contribution of %.2f to %q is due.", group.AmountPerPerson, group.Name))
		result.Notified = append(result.Notified, m.UserID)
	}

	slog.Info("Reminders sent", "group_id", groupID, "count", len(result.Notified))
	return result, nil
}

// BlockMember excludes a member from contributing: a blocked member cannot
// submit or settle payments, is skipped by cycle resets, late sweeps and
// reminders, and no longer counts toward the pot. Their turn position is
// kept, so their payout turn still arrives. Admin-only; the admin cannot
// block themselves.
func (e *Engine) BlockMember(ctx context.Context, groupID, actorID, userID string) (err error) {
	defer func() { observe("block_member", err) }()
	unlock := e.locks.lock(groupID)
	defer unlock()

	slog.Info("BlockMember request received", "group_id", groupID, "actor_id", actorID, "user_id", userID)

	group, err := e.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsAdmin(actorID) {
		return fmt.Errorf("user %s in group %s: %w", actorID, groupID, ErrUnauthorized)
	}
	if userID == group.AdminID {
		return fmt.Errorf("cannot block the group admin: %w", ErrValidation)
	}
	member := group.Member(userID)
	if member == nil {
		return fmt.Errorf("user %s in group %s: %w", userID, groupID, ErrNotMember)
	}

	member.IsBlocked = true

	if err = e.store.UpdateGroup(ctx, group); err != nil {
		slog.Error("BlockMember failed", "group_id", groupID, "error", err)
		return err
	}

	e.notifyUser(ctx, userID, models.NotifyAlert,
		fmt.Sprintf("You have been blocked in %q.", group.Name))
	slog.Info("Member blocked", "group_id", groupID, "user_id", userID)
	return nil
}

// GetGroup retrieves a group by ID.
func (e *Engine) GetGroup(ctx context.Context, groupID string) (*models.DaretGroup, error) {
	return e.loadGroup(ctx, groupID)
}

// ListGroups retrieves all groups.
func (e *Engine) ListGroups(ctx context.Context) ([]*models.DaretGroup, error) {
	return e.store.ListGroups(ctx)
}

// ListGroupsForUser retrieves the groups the user belongs to.
func (e *Engine) ListGroupsForUser(ctx context.Context, userID string) ([]*models.DaretGroup, error) {
	return e.store.ListGroupsForUser(ctx, userID)
}

func (e *Engine) loadGroup(ctx context.Context, groupID string) (*models.DaretGroup, error) {
	group, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("group %s: %w", groupID, ErrGroupNotFound)
		}
		return nil, err
	}
	return group, nil
}

// notifyUser delivers a notification, logging instead of failing the
// operation when delivery breaks: notifications are best-effort.
func (e *Engine) notifyUser(ctx context.Context, userID string, kind models.NotificationKind, message string) {
	if e.notifier == nil {
		return
	}
	n := &models.Notification{UserID: userID, Kind: kind, Message: message}
	if err := e.notifier.Notify(ctx, n); err != nil {
		slog.Warn("Notification delivery failed", "user_id", userID, "error", err)
	}
}

// systemMessage appends an engine-emitted message to the group chat;
// best-effort like notifications.
func (e *Engine) systemMessage(ctx context.Context, group *models.DaretGroup, text string) {
	msg := &models.GroupMessage{
		GroupID:  group.ID,
		UserID:   models.SystemUserID,
		UserName: "Daretna",
		Text:     text,
		Kind:     models.MessageText,
		IsSystem: true,
	}
	if err := e.store.AppendGroupMessage(ctx, msg); err != nil {
		slog.Warn("System message failed", "group_id", group.ID, "error", err)
	}
}
