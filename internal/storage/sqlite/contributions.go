package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daretna/daretna/internal/models"
	"github.com/daretna/daretna/internal/storage"
)

// CreateContribution appends a settlement ledger entry. The unique
// (group_id, user_id, cycle) index rejects double settlement.
func (s *SQLiteStore) CreateContribution(ctx context.Context, c *models.Contribution) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.SettledAt == 0 {
		c.SettledAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contributions (id, group_id, user_id, cycle, amount, method, was_late, settled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.GroupID, c.UserID, c.Cycle, c.Amount, c.Method, c.WasLate, c.SettledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("contribution for group %s user %s cycle %d: %w",
				c.GroupID, c.UserID, c.Cycle, storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert contribution: %w", err)
	}
	return nil
}

// ListContributionsByGroup retrieves a group's settlement ledger, oldest first.
func (s *SQLiteStore) ListContributionsByGroup(ctx context.Context, groupID string) ([]*models.Contribution, error) {
	return s.listContributionsWhere(ctx, "group_id = ?", groupID)
}

// ListContributionsByUser retrieves one user's ledger across all groups.
func (s *SQLiteStore) ListContributionsByUser(ctx context.Context, userID string) ([]*models.Contribution, error) {
	return s.listContributionsWhere(ctx, "user_id = ?", userID)
}

func (s *SQLiteStore) listContributionsWhere(ctx context.Context, where string, arg any) ([]*models.Contribution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, user_id, cycle, amount, method, was_late, settled_at
		 FROM contributions WHERE `+where+` ORDER BY settled_at, cycle`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var out []*models.Contribution
	for rows.Next() {
		c := &models.Contribution{}
		if err := rows.Scan(&c.ID, &c.GroupID, &c.UserID, &c.Cycle, &c.Amount,
			&c.Method, &c.WasLate, &c.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return out, nil
}
