package daret

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/daretna/daretna/internal/models"
)

// minMembersForDraw: a rotation with a single member pays out to itself.
const minMembersForDraw = 2

// StartDaret activates a pending group: the draw assigns every member a
// unique turn position 1..N, the member list freezes and the first cycle
// begins. Activation happens exactly once; invoking StartDaret on an
// already-active group fails without re-drawing. Admin-only.
//
// explicitOrder is only read in MANUAL mode, where it must be a permutation
// of the current member IDs (first entry receives the first payout).
func (e *Engine) StartDaret(ctx context.Context, groupID, actorID string, mode models.DrawMode, explicitOrder []string) (err error) {
	defer func() { observe("start_daret", err) }()
	unlock := e.locks.lock(groupID)
	defer unlock()

	slog.Info("StartDaret request received", "group_id", groupID, "actor_id", actorID, "mode", mode)

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
	if len(group.Members) < minMembersForDraw {
		return fmt.Errorf("group %s has %d members, need at least %d: %w",
			groupID, len(group.Members), minMembersForDraw, ErrValidation)
	}

	positions, err := e.drawPositions(ctx, group, mode, explicitOrder)
	if err != nil {
		return err
	}
	for i := range group.Members {
		group.Members[i].TourPosition = positions[group.Members[i].UserID]
	}

	group.Status = models.GroupActive
	group.DrawMode = mode
	group.DrawSeed = uuid.New().String()[:8]
	group.DrawDate = time.Now().Unix()
	group.CurrentTurnIndex = 0

	if err = e.store.UpdateGroup(ctx, group); err != nil {
		slog.Error("StartDaret failed", "group_id", groupID, "error", err)
		return err
	}

	e.systemMessage(ctx, group,
		fmt.Sprintf("The daret has started (%s draw). %d members, %.2f per cycle.",
			mode, len(group.Members), group.AmountPerPerson))
	for i := range group.Members {
		m := &group.Members[i]
		e.notifyUser(ctx, m.UserID, models.NotifyInfo,
			fmt.Sprintf("%q has started. Your turn position is %d of %d.",
				group.Name, m.TourPosition, len(group.Members)))
	}

	slog.Info("Daret started",
		"group_id", groupID,
		"mode", mode,
		"members", len(group.Members),
		"draw_seed", group.DrawSeed,
	)
	return nil
}

// drawPositions computes the userID -> position assignment for the draw.
func (e *Engine) drawPositions(ctx context.Context, group *models.DaretGroup, mode models.DrawMode, explicitOrder []string) (map[string]int, error) {
	switch mode {
	case models.DrawRandom:
		return randomPositions(group), nil
	case models.DrawManual:
		return manualPositions(group, explicitOrder)
	case models.DrawWeighted:
		return e.weightedPositions(ctx, group)
	default:
		return nil, fmt.Errorf("unknown draw mode %q: %w", mode, ErrValidation)
	}
}

// randomPositions assigns 1..N by a uniformly random permutation.
func randomPositions(group *models.DaretGroup) map[string]int {
	perm := rand.Perm(len(group.Members))
	positions := make(map[string]int, len(group.Members))
	for i := range group.Members {
		positions[group.Members[i].UserID] = perm[i] + 1
	}
	return positions
}

// manualPositions validates the explicit ordering as a permutation of the
// current members and assigns positions in the given order.
func manualPositions(group *models.DaretGroup, order []string) (map[string]int, error) {
	if len(order) != len(group.Members) {
		return nil, fmt.Errorf("manual order has %d entries for %d members: %w",
			len(order), len(group.Members), ErrValidation)
	}
	positions := make(map[string]int, len(order))
	for i, userID := range order {
		if group.Member(userID) == nil {
			return nil, fmt.Errorf("manual order references non-member %s: %w", userID, ErrValidation)
		}
		if _, dup := positions[userID]; dup {
			return nil, fmt.Errorf("manual order repeats member %s: %w", userID, ErrValidation)
		}
		positions[userID] = i + 1
	}
	return positions, nil
}

// weightedPositions orders members by descending trust score, ties broken
// by join order. Less reliable members land late in the rotation, so they
// contribute several cycles before their own payout.
func (e *Engine) weightedPositions(ctx context.Context, group *models.DaretGroup) (map[string]int, error) {
	type scored struct {
		userID    string
		score     int
		joinIndex int
	}

	members := make([]scored, 0, len(group.Members))
	for i := range group.Members {
		user, err := e.store.GetUser(ctx, group.Members[i].UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load member for scoring: %w", err)
		}
		ts, err := e.scorer.Score(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to score member %s: %w", user.ID, err)
		}
		members = append(members, scored{userID: user.ID, score: ts.Value, joinIndex: i})
	}

	sort.SliceStable(members, func(a, b int) bool {
		if members[a].score != members[b].score {
			return members[a].score > members[b].score
		}
		return members[a].joinIndex < members[b].joinIndex
	})

	positions := make(map[string]int, len(members))
	for i, m := range members {
		positions[m.userID] = i + 1
	}
	return positions, nil
}
