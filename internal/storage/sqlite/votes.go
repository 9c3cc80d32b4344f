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

// SaveVote upserts a vote session with its options and voter list.
func (s *SQLiteStore) SaveVote(ctx context.Context, vote *models.VoteSession) error {
	if vote.ID == "" {
		vote.ID = uuid.New().String()
	}
	if vote.CreatedAt == 0 {
		vote.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO votes (id, group_id, creator_id, question, created_at, expires_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		vote.ID, vote.GroupID, vote.CreatorID, vote.Question, vote.CreatedAt,
		vote.ExpiresAt, vote.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", err)
	}

	// Options and voters are rewritten wholesale; sessions are small.
	if _, err := tx.ExecContext(ctx, "DELETE FROM vote_options WHERE vote_id = ?", vote.ID); err != nil {
		return fmt.Errorf("failed to clear vote options: %w", err)
	}
	for i := range vote.Options {
		opt := &vote.Options[i]
		if opt.ID == "" {
			opt.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO vote_options (id, vote_id, label, count, seq) VALUES (?, ?, ?, ?, ?)",
			opt.ID, vote.ID, opt.Label, opt.Count, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert vote option: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM vote_voters WHERE vote_id = ?", vote.ID); err != nil {
		return fmt.Errorf("failed to clear vote voters: %w", err)
	}
	for _, userID := range vote.Voters {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO vote_voters (vote_id, user_id) VALUES (?, ?)",
			vote.ID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert voter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetVote retrieves a vote session by ID.
func (s *SQLiteStore) GetVote(ctx context.Context, id string) (*models.VoteSession, error) {
	vote := &models.VoteSession{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, creator_id, question, created_at, expires_at, status
		 FROM votes WHERE id = ?`, id,
	).Scan(&vote.ID, &vote.GroupID, &vote.CreatorID, &vote.Question,
		&vote.CreatedAt, &vote.ExpiresAt, &vote.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("vote %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	if err := s.loadVoteDetails(ctx, vote); err != nil {
		return nil, err
	}
	return vote, nil
}

// ListVotesByGroup retrieves a group's vote sessions, newest first.
func (s *SQLiteStore) ListVotesByGroup(ctx context.Context, groupID string) ([]*models.VoteSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, creator_id, question, created_at, expires_at, status
		 FROM votes WHERE group_id = ? ORDER BY created_at DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []*models.VoteSession
	for rows.Next() {
		vote := &models.VoteSession{}
		if err := rows.Scan(&vote.ID, &vote.GroupID, &vote.CreatorID,
			&vote.Question, &vote.CreatedAt, &vote.ExpiresAt, &vote.Status); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	for _, vote := range votes {
		if err := s.loadVoteDetails(ctx, vote); err != nil {
			return nil, err
		}
	}
	return votes, nil
}

func (s *SQLiteStore) loadVoteDetails(ctx context.Context, vote *models.VoteSession) error {
	optRows, err := s.db.QueryContext(ctx,
		"SELECT id, label, count FROM vote_options WHERE vote_id = ? ORDER BY seq", vote.ID)
	if err != nil {
		return fmt.Errorf("failed to get vote options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt models.VoteOption
		if err := optRows.Scan(&opt.ID, &opt.Label, &opt.Count); err != nil {
			return fmt.Errorf("failed to scan vote option: %w", err)
		}
		vote.Options = append(vote.Options, opt)
	}
	if err := optRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate vote options: %w", err)
	}

	voterRows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM vote_voters WHERE vote_id = ?", vote.ID)
	if err != nil {
		return fmt.Errorf("failed to get voters: %w", err)
	}
	defer voterRows.Close()

	for voterRows.Next() {
		var userID string
		if err := voterRows.Scan(&userID); err != nil {
			return fmt.Errorf("failed to scan voter: %w", err)
		}
		vote.Voters = append(vote.Voters, userID)
	}
	if err := voterRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate voters: %w", err)
	}
	return nil
}
