package daret

import "errors"

// Typed failures surfaced by engine operations. Every operation either
// completes and persists, or fails with one of these before any write.
var (
	// ErrGroupNotFound: the referenced group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrUserNotFound: the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrAlreadyMember: the user is already a member of the group.
	ErrAlreadyMember = errors.New("user is already a member of this group")

	// ErrNotMember: the user is not a member of the group.
	ErrNotMember = errors.New("user is not a member of this group")

	// ErrInvalidState: the operation is not allowed in the group's current
	// status (joining an active group, starting an already-started group,
	// advancing a pending group).
	ErrInvalidState = errors.New("operation not allowed in current group state")

	// ErrValidation: malformed input (non-positive amount, manual order
	// that is not a permutation of the members).
	ErrValidation = errors.New("invalid input")

	// ErrUnauthorized: the acting user lacks the admin role required for
	// the operation.
	ErrUnauthorized = errors.New("admin privileges required")

	// ErrMemberBlocked: the member is blocked and cannot contribute.
	ErrMemberBlocked = errors.New("member is blocked")

	// ErrGroupLimit: a free-tier user already administers the maximum
	// number of running groups.
	ErrGroupLimit = errors.New("free tier group limit reached")
)
