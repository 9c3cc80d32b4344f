package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daretna/daretna/internal/models"
	"github.com/daretna/daretna/internal/storage"
)

// CreateGroup persists a new group and its memberships.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.DaretGroup) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	group.Version = 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, amount_per_person, periodicity, start_date,
		 status, admin_id, current_turn_index, draw_mode, draw_seed, draw_date,
		 version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.AmountPerPerson, group.Periodicity,
		group.StartDate, group.Status, group.AdminID, group.CurrentTurnIndex,
		group.DrawMode, group.DrawSeed, group.DrawDate, group.Version,
		group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := insertMemberships(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID, including all memberships in join order.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.DaretGroup, error) {
	group := &models.DaretGroup{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, amount_per_person, periodicity, start_date, status,
		 admin_id, current_turn_index, draw_mode, draw_seed, draw_date, version,
		 created_at
		 FROM groups WHERE id = ?`, id,
	).Scan(&group.ID, &group.Name, &group.AmountPerPerson, &group.Periodicity,
		&group.StartDate, &group.Status, &group.AdminID, &group.CurrentTurnIndex,
		&group.DrawMode, &group.DrawSeed, &group.DrawDate, &group.Version,
		&group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if err := s.loadMemberships(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// UpdateGroup overwrites a group and its memberships with an optimistic
// version check. The caller's Version must match the stored row.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.DaretGroup) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE groups SET name = ?, amount_per_person = ?, periodicity = ?,
		 start_date = ?, status = ?, admin_id = ?, current_turn_index = ?,
		 draw_mode = ?, draw_seed = ?, draw_date = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		group.Name, group.AmountPerPerson, group.Periodicity, group.StartDate,
		group.Status, group.AdminID, group.CurrentTurnIndex, group.DrawMode,
		group.DrawSeed, group.DrawDate, group.ID, group.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		// Distinguish a missing group from a stale version.
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", group.ID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("group %s: %w", group.ID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check group existence: %w", err)
		}
		return fmt.Errorf("group %s: %w", group.ID, storage.ErrVersionConflict)
	}

	// Rewrite memberships to reflect the in-memory aggregate.
	if _, err := tx.ExecContext(ctx, "DELETE FROM memberships WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear memberships: %w", err)
	}
	if err := insertMemberships(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	group.Version++
	return nil
}

// ListGroups retrieves all groups with their memberships.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*models.DaretGroup, error) {
	return s.listGroupsWhere(ctx,
		`SELECT id, name, amount_per_person, periodicity, start_date, status,
		 admin_id, current_turn_index, draw_mode, draw_seed, draw_date, version,
		 created_at FROM groups ORDER BY created_at DESC`)
}

// ListGroupsForUser retrieves the groups the user belongs to.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.DaretGroup, error) {
	return s.listGroupsWhere(ctx,
		`SELECT g.id, g.name, g.amount_per_person, g.periodicity, g.start_date,
		 g.status, g.admin_id, g.current_turn_index, g.draw_mode, g.draw_seed,
		 g.draw_date, g.version, g.created_at
		 FROM groups g
		 JOIN memberships m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY g.created_at DESC`, userID)
}

// CountGroupsAdministeredBy counts the non-completed groups a user administers.
func (s *SQLiteStore) CountGroupsAdministeredBy(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM groups WHERE admin_id = ? AND status != ?",
		userID, models.GroupCompleted,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count administered groups: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) listGroupsWhere(ctx context.Context, query string, args ...any) ([]*models.DaretGroup, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.DaretGroup
	for rows.Next() {
		group := &models.DaretGroup{}
		if err := rows.Scan(&group.ID, &group.Name, &group.AmountPerPerson,
			&group.Periodicity, &group.StartDate, &group.Status, &group.AdminID,
			&group.CurrentTurnIndex, &group.DrawMode, &group.DrawSeed,
			&group.DrawDate, &group.Version, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	for _, group := range groups {
		if err := s.loadMemberships(ctx, group); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *SQLiteStore) loadMemberships(ctx context.Context, group *models.DaretGroup) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, role, tour_position, payment_status, payment_proof_url,
		 joined_at, is_blocked, missed_payments
		 FROM memberships WHERE group_id = ? ORDER BY seq`, group.ID)
	if err != nil {
		return fmt.Errorf("failed to get memberships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m := models.Membership{GroupID: group.ID}
		if err := rows.Scan(&m.UserID, &m.Role, &m.TourPosition, &m.PaymentStatus,
			&m.PaymentProofURL, &m.JoinedAt, &m.IsBlocked, &m.MissedPayments); err != nil {
			return fmt.Errorf("failed to scan membership: %w", err)
		}
		group.Members = append(group.Members, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate memberships: %w", err)
	}
	return nil
}

func insertMemberships(ctx context.Context, tx *sql.Tx, group *models.DaretGroup) error {
	for i := range group.Members {
		m := &group.Members[i]
		if m.JoinedAt == 0 {
			m.JoinedAt = time.Now().Unix()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (group_id, user_id, role, tour_position,
			 payment_status, payment_proof_url, joined_at, is_blocked,
			 missed_payments, seq)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			group.ID, m.UserID, m.Role, m.TourPosition, m.PaymentStatus,
			m.PaymentProofURL, m.JoinedAt, m.IsBlocked, m.MissedPayments, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert membership: %w", err)
		}
	}
	return nil
}
