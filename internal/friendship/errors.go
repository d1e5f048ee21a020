// internal/friendship/errors.go
package friendship

import "errors"

var (
	// ErrSelfRequest indicates a user tried to friend themselves.
	ErrSelfRequest = errors.New("cannot send a friend request to yourself")

	// ErrUserNotFound indicates the target user does not exist or is deactivated.
	ErrUserNotFound = errors.New("user not found")

	// ErrRequestAlreadyPending indicates a pending request already exists for the pair.
	ErrRequestAlreadyPending = errors.New("friend request already pending")

	// ErrAlreadyFriends indicates the pair already has an accepted relationship.
	ErrAlreadyFriends = errors.New("already friends")

	// ErrNotFound indicates the relationship does not exist. It also covers
	// records the actor is not authorized to act on, so callers cannot probe
	// for the existence of other users' requests.
	ErrNotFound = errors.New("relationship not found")

	// ErrDuplicateRelationship indicates a concurrent insert lost the
	// compare-and-insert race for the pair.
	ErrDuplicateRelationship = errors.New("relationship already exists")

	// ErrInvalidTransition indicates an accept on a record that is not pending.
	ErrInvalidTransition = errors.New("relationship is not pending")

	// ErrStoreUnavailable wraps unexpected persistence faults surfaced to callers.
	ErrStoreUnavailable = errors.New("relationship store unavailable")
)
