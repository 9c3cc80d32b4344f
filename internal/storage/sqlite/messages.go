package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daretna/daretna/internal/models"
)

// AppendGroupMessage appends a chat message to a group's feed.
func (s *SQLiteStore) AppendGroupMessage(ctx context.Context, msg *models.GroupMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	if msg.Kind == "" {
		msg.Kind = models.MessageText
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_messages (id, group_id, user_id, user_name, text, kind, media_url, is_system, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.GroupID, msg.UserID, msg.UserName, msg.Text, msg.Kind,
		msg.MediaURL, msg.IsSystem, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group message: %w", err)
	}
	return nil
}

// ListGroupMessages retrieves a group's chat feed, oldest first.
func (s *SQLiteStore) ListGroupMessages(ctx context.Context, groupID string) ([]*models.GroupMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, user_id, user_name, text, kind, media_url, is_system, timestamp
		 FROM group_messages WHERE group_id = ? ORDER BY timestamp, id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group messages: %w", err)
	}
	defer rows.Close()

	var msgs []*models.GroupMessage
	for rows.Next() {
		m := &models.GroupMessage{}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.UserName, &m.Text,
			&m.Kind, &m.MediaURL, &m.IsSystem, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan group message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group messages: %w", err)
	}
	return msgs, nil
}
