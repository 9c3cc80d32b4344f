// Package social implements the peripheral in-group collaborators: the
// chat feed and vote sessions. It reads group membership but never touches
// lifecycle state.
package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/daretna/daretna/internal/models"
	"github.com/daretna/daretna/internal/storage"
)

// voteDuration is how long a vote session stays open by default.
const voteDuration = 24 * time.Hour

var (
	// ErrNotMember: the acting user does not belong to the group.
	ErrNotMember = errors.New("user is not a member of this group")

	// ErrAlreadyVoted: each member may vote at most once per session.
	ErrAlreadyVoted = errors.New("user has already voted")

	// ErrVoteClosed: the session has been closed or has expired.
	ErrVoteClosed = errors.New("vote is closed")

	// ErrUnknownOption: the option does not belong to the session.
	ErrUnknownOption = errors.New("unknown vote option")

	// ErrValidation: malformed input (too few options, duplicate labels).
	ErrValidation = errors.New("invalid input")
)

// Service provides group chat and voting on top of the store.
type Service struct {
	store storage.Store
}

// NewService creates a social service over the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// SendMessage appends a chat message authored by a group member.
func (s *Service) SendMessage(ctx context.Context, groupID, userID, text string, kind models.MessageKind, mediaURL string) (*models.GroupMessage, error) {
	if text == "" && mediaURL == "" {
		return nil, fmt.Errorf("empty message: %w", ErrValidation)
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Member(userID) == nil {
		return nil, fmt.Errorf("user %s in group %s: %w", userID, groupID, ErrNotMember)
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	msg := &models.GroupMessage{
		GroupID:  groupID,
		UserID:   userID,
		UserName: user.Name,
		Text:     text,
		Kind:     kind,
		MediaURL: mediaURL,
	}
	if err := s.store.AppendGroupMessage(ctx, msg); err != nil {
		return nil, err
	}

	slog.Info("Group message sent", "group_id", groupID, "user_id", userID, "kind", msg.Kind)
	return msg, nil
}

// ListMessages retrieves a group's chat feed, oldest first.
func (s *Service) ListMessages(ctx context.Context, groupID string) ([]*models.GroupMessage, error) {
	return s.store.ListGroupMessages(ctx, groupID)
}

// CreateVote opens a vote session in a group. Option labels must be unique
// and at least two are required. The session expires after 24 hours.
func (s *Service) CreateVote(ctx context.Context, groupID, creatorID, question string, optionLabels []string) (*models.VoteSession, error) {
	if question == "" {
		return nil, fmt.Errorf("empty question: %w", ErrValidation)
	}
	if len(optionLabels) < 2 {
		return nil, fmt.Errorf("a vote needs at least two options: %w", ErrValidation)
	}
	seen := make(map[string]bool, len(optionLabels))
	for _, label := range optionLabels {
		if label == "" {
			return nil, fmt.Errorf("empty option label: %w", ErrValidation)
		}
		if seen[label] {
			return nil, fmt.Errorf("duplicate option %q: %w", label, ErrValidation)
		}
		seen[label] = true
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Member(creatorID) == nil {
		return nil, fmt.Errorf("user %s in group %s: %w", creatorID, groupID, ErrNotMember)
	}

	now := time.Now()
	vote := &models.VoteSession{
		GroupID:   groupID,
		CreatorID: creatorID,
		Question:  question,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(voteDuration).Unix(),
		Status:    models.VoteOpen,
	}
	for _, label := range optionLabels {
		vote.Options = append(vote.Options, models.VoteOption{Label: label})
	}

	if err := s.store.SaveVote(ctx, vote); err != nil {
		return nil, err
	}

	slog.Info("Vote created", "group_id", groupID, "vote_id", vote.ID, "options", len(vote.Options))
	return vote, nil
}

// CastVote records one member's vote for an option. Each member votes at
// most once; expired sessions are closed on first touch.
func (s *Service) CastVote(ctx context.Context, voteID, userID, optionID string) error {
	vote, err := s.store.GetVote(ctx, voteID)
	if err != nil {
		return err
	}

	group, err := s.store.GetGroup(ctx, vote.GroupID)
	if err != nil {
		return err
	}
	if group.Member(userID) == nil {
		return fmt.Errorf("user %s in group %s: %w", userID, vote.GroupID, ErrNotMember)
	}

	if vote.Status == models.VoteOpen && vote.ExpiresAt <= time.Now().Unix() {
		vote.Status = models.VoteClosed
		if err := s.store.SaveVote(ctx, vote); err != nil {
			return err
		}
	}
	if vote.Status != models.VoteOpen {
		return fmt.Errorf("vote %s: %w", voteID, ErrVoteClosed)
	}
	if vote.HasVoted(userID) {
		return fmt.Errorf("user %s on vote %s: %w", userID, voteID, ErrAlreadyVoted)
	}

	found := false
	for i := range vote.Options {
		if vote.Options[i].ID == optionID {
			vote.Options[i].Count++
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("option %s on vote %s: %w", optionID, voteID, ErrUnknownOption)
	}

	vote.Voters = append(vote.Voters, userID)
	if err := s.store.SaveVote(ctx, vote); err != nil {
		return err
	}

	slog.Info("Vote cast", "vote_id", voteID, "user_id", userID)
	return nil
}

// ListVotes retrieves a group's vote sessions, newest first.
func (s *Service) ListVotes(ctx context.Context, groupID string) ([]*models.VoteSession, error) {
	return s.store.ListVotesByGroup(ctx, groupID)
}

// CloseExpiredVotes closes every open session past its expiry across a
// group. Returns how many sessions were closed.
func (s *Service) CloseExpiredVotes(ctx context.Context, groupID string) (int, error) {
	votes, err := s.store.ListVotesByGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	closed := 0
	for _, vote := range votes {
		if vote.Status != models.VoteOpen || vote.ExpiresAt > now {
			continue
		}
		vote.Status = models.VoteClosed
		if err := s.store.SaveVote(ctx, vote); err != nil {
			return closed, err
		}
		closed++
	}
	if closed > 0 {
		slog.Info("Expired votes closed", "group_id", groupID, "count", closed)
	}
	return closed, nil
}
