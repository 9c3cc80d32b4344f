// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/daretna/daretna/internal/models"
)

// Sentinel errors returned by Store implementations. Callers detect them
// with errors.Is and translate them into domain errors.
var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a uniqueness constraint is violated
	// (duplicate user email, duplicate contribution for a cycle).
	ErrDuplicate = errors.New("already exists")

	// ErrVersionConflict is returned by UpdateGroup when the group was
	// modified since it was read (optimistic concurrency).
	ErrVersionConflict = errors.New("version conflict")
)

// Store defines the persistence contract for the lifecycle engine and its
// collaborators. Each aggregate (user, group with embedded memberships) maps
// to its own keyed record; there are no whole-collection rewrites. The
// abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the engine.
type Store interface {
	// CreateUser persists a new user. The ID and timestamps are populated
	// by the store when unset.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser retrieves a user by ID. Returns ErrNotFound if absent.
	GetUser(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by email. Returns ErrNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByContact retrieves a user whose email or phone matches the
	// given identifier. Returns ErrNotFound if absent.
	GetUserByContact(ctx context.Context, identifier string) (*models.User, error)

	// UpdateUser overwrites an existing user. Returns ErrNotFound if absent.
	UpdateUser(ctx context.Context, user *models.User) error

	// CreateGroup persists a new group and its memberships. The ID and
	// CreatedAt are populated by the store when unset; Version starts at 1.
	CreateGroup(ctx context.Context, group *models.DaretGroup) error

	// GetGroup retrieves a group with its memberships, in join order.
	// Returns ErrNotFound if absent.
	GetGroup(ctx context.Context, id string) (*models.DaretGroup, error)

	// UpdateGroup overwrites a group and its memberships. The stored
	// Version must match group.Version; on success the version is
	// incremented (both in the database and on the passed struct).
	// Returns ErrVersionConflict on mismatch, ErrNotFound if absent.
	UpdateGroup(ctx context.Context, group *models.DaretGroup) error

	// ListGroups retrieves all groups with their memberships.
	ListGroups(ctx context.Context) ([]*models.DaretGroup, error)

	// ListGroupsForUser retrieves the groups the user is a member of.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.DaretGroup, error)

	// CountGroupsAdministeredBy returns how many non-completed groups the
	// user currently administers. Used for the free-tier limit.
	CountGroupsAdministeredBy(ctx context.Context, userID string) (int, error)

	// CreateContribution appends a settlement ledger entry. Returns
	// ErrDuplicate when an entry for (GroupID, UserID, Cycle) already exists.
	CreateContribution(ctx context.Context, c *models.Contribution) error

	// ListContributionsByGroup retrieves a group's ledger, oldest first.
	ListContributionsByGroup(ctx context.Context, groupID string) ([]*models.Contribution, error)

	// ListContributionsByUser retrieves one user's ledger across groups.
	ListContributionsByUser(ctx context.Context, userID string) ([]*models.Contribution, error)

	// AppendGroupMessage appends a chat message to a group's feed.
	AppendGroupMessage(ctx context.Context, msg *models.GroupMessage) error

	// ListGroupMessages retrieves a group's chat feed, oldest first.
	ListGroupMessages(ctx context.Context, groupID string) ([]*models.GroupMessage, error)

	// SaveVote upserts a vote session by ID.
	SaveVote(ctx context.Context, vote *models.VoteSession) error

	// GetVote retrieves a vote session by ID. Returns ErrNotFound if absent.
	GetVote(ctx context.Context, id string) (*models.VoteSession, error)

	// ListVotesByGroup retrieves a group's vote sessions, newest first.
	ListVotesByGroup(ctx context.Context, groupID string) ([]*models.VoteSession, error)

	// CreateNotification persists a notification for a user.
	CreateNotification(ctx context.Context, n *models.Notification) error

	// ListNotificationsForUser retrieves a user's notifications, newest first.
	ListNotificationsForUser(ctx context.Context, userID string) ([]*models.Notification, error)

	// MarkNotificationRead flags a notification as read.
	MarkNotificationRead(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}
