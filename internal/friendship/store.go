// internal/friendship/store.go
package friendship

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract for relationships. The store exclusively
// owns Relationship records; the engine re-reads current state on every
// operation rather than caching across calls.
//
// Pair lookups are direction-agnostic: FindPair(a, b) and FindPair(b, a)
// resolve to the same record. Insert must be atomic and conditioned on pair
// absence, so two racing inserts for the same pair yield exactly one success
// and one ErrDuplicateRelationship.
type Store interface {
	// FindPair returns the relationship between the two users in either
	// direction, or ErrNotFound.
	FindPair(ctx context.Context, userA, userB uuid.UUID) (Relationship, error)

	// FindByID returns the relationship with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (Relationship, error)

	// ListPendingForRecipient returns all pending relationships whose
	// recipient is userID.
	ListPendingForRecipient(ctx context.Context, userID uuid.UUID) ([]Relationship, error)

	// ListAcceptedFor returns all accepted relationships touching userID at
	// either endpoint.
	ListAcceptedFor(ctx context.Context, userID uuid.UUID) ([]Relationship, error)

	// ListForUser returns every relationship touching userID, any status,
	// either direction. Used to build suggestion exclusion sets.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Relationship, error)

	// Insert creates a new pending relationship, or fails with
	// ErrDuplicateRelationship if any record already exists for the pair.
	Insert(ctx context.Context, requesterID, recipientID uuid.UUID) (Relationship, error)

	// MarkAccepted transitions the record to accepted, stamping AcceptedAt.
	// Fails with ErrNotFound if absent, ErrInvalidTransition if not pending.
	MarkAccepted(ctx context.Context, id uuid.UUID) (Relationship, error)

	// Delete removes the record. Deleting an absent record is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserDirectory is the external user-account collaborator consumed by the
// engine and the suggestion generator. Implementations report deactivated
// users the same as missing ones.
type UserDirectory interface {
	// Lookup returns the public profile for an existing, active user, or
	// ErrUserNotFound.
	Lookup(ctx context.Context, userID uuid.UUID) (Profile, error)

	// ListActive returns the public profiles of all active users.
	ListActive(ctx context.Context) ([]Profile, error)
}

// PresenceReader supplies last-seen timestamps for friend-list entries. It is
// advisory: implementations should degrade to (zero, false) rather than fail.
type PresenceReader interface {
	LastSeen(ctx context.Context, userID uuid.UUID) (time.Time, bool)
}
