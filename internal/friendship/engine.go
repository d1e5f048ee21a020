// internal/friendship/engine.go
package friendship

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPageSize is used when ListFriends is called with pageSize <= 0.
	DefaultPageSize = 20
	// MaxPageSize caps the page size a caller may request.
	MaxPageSize = 100
)

// Engine owns all relationship transition rules. Every mutating operation
// re-reads current state from the injected Store before acting, so the engine
// itself is stateless and safe for concurrent use.
type Engine struct {
	store    Store
	users    UserDirectory
	mutual   *MutualCounter
	presence PresenceReader
	log      *logrus.Logger
}

// NewEngine constructs an Engine. presence may be nil, in which case friend
// entries carry no lastSeenAt.
func NewEngine(store Store, users UserDirectory, presence PresenceReader, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		store:    store,
		users:    users,
		mutual:   NewMutualCounter(store, log),
		presence: presence,
		log:      log,
	}
}

// Mutual exposes the engine's mutual-friend calculator.
func (e *Engine) Mutual() *MutualCounter { return e.mutual }

// RequestFriendship creates a pending relationship from actor to target.
//
// Fails with ErrSelfRequest, ErrUserNotFound (target missing or deactivated),
// ErrRequestAlreadyPending or ErrAlreadyFriends depending on existing state,
// and ErrDuplicateRelationship when a concurrent request wins the insert race.
func (e *Engine) RequestFriendship(ctx context.Context, actorID, targetID uuid.UUID) (RequestResult, error) {
	if actorID == targetID {
		return RequestResult{}, ErrSelfRequest
	}

	target, err := e.users.Lookup(ctx, targetID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return RequestResult{}, ErrUserNotFound
		}
		return RequestResult{}, e.storeFault("lookup target user", err)
	}

	existing, err := e.store.FindPair(ctx, actorID, targetID)
	switch {
	case err == nil:
		if existing.Status == StatusAccepted {
			return RequestResult{}, ErrAlreadyFriends
		}
		return RequestResult{}, ErrRequestAlreadyPending
	case errors.Is(err, ErrNotFound):
		// no existing record, proceed
	default:
		return RequestResult{}, e.storeFault("find pair", err)
	}

	rel, err := e.store.Insert(ctx, actorID, targetID)
	if err != nil {
		if errors.Is(err, ErrDuplicateRelationship) {
			return RequestResult{}, ErrDuplicateRelationship
		}
		return RequestResult{}, e.storeFault("insert relationship", err)
	}

	e.log.WithFields(logrus.Fields{
		"relationship_id": rel.ID,
		"requester_id":    actorID,
		"recipient_id":    targetID,
	}).Info("friend request created")

	return RequestResult{Relationship: rel, User: target}, nil
}

// AcceptFriendship transitions a pending request to accepted. Only the
// recipient may accept; anyone else gets ErrNotFound, indistinguishable from
// a missing record.
func (e *Engine) AcceptFriendship(ctx context.Context, actorID, relationshipID uuid.UUID) (RequestResult, error) {
	rel, err := e.authorizedPending(ctx, actorID, relationshipID)
	if err != nil {
		return RequestResult{}, err
	}

	updated, err := e.store.MarkAccepted(ctx, rel.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidTransition):
			return RequestResult{}, err
		default:
			return RequestResult{}, e.storeFault("mark accepted", err)
		}
	}

	requester, err := e.users.Lookup(ctx, updated.RequesterID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return RequestResult{}, e.storeFault("lookup requester", err)
	}

	e.log.WithFields(logrus.Fields{
		"relationship_id": updated.ID,
		"requester_id":    updated.RequesterID,
		"recipient_id":    updated.RecipientID,
	}).Info("friend request accepted")

	return RequestResult{Relationship: updated, User: requester}, nil
}

// DeclineFriendship deletes a pending request outright. The record is
// forgotten, not archived, so the requester may retry immediately. Same
// authorization rule as AcceptFriendship.
func (e *Engine) DeclineFriendship(ctx context.Context, actorID, relationshipID uuid.UUID) error {
	rel, err := e.authorizedPending(ctx, actorID, relationshipID)
	if err != nil {
		return err
	}

	if err := e.store.Delete(ctx, rel.ID); err != nil {
		return e.storeFault("delete relationship", err)
	}

	e.log.WithFields(logrus.Fields{
		"relationship_id": rel.ID,
		"recipient_id":    actorID,
	}).Info("friend request declined")
	return nil
}

// RemoveFriendship deletes an accepted relationship between the actor and
// otherUserID. Symmetric: either endpoint may remove. A pair that is not
// currently friends yields ErrNotFound.
func (e *Engine) RemoveFriendship(ctx context.Context, actorID, otherUserID uuid.UUID) error {
	rel, err := e.store.FindPair(ctx, actorID, otherUserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return e.storeFault("find pair", err)
	}
	if rel.Status != StatusAccepted || !rel.Involves(actorID) {
		return ErrNotFound
	}

	if err := e.store.Delete(ctx, rel.ID); err != nil {
		return e.storeFault("delete relationship", err)
	}

	e.log.WithFields(logrus.Fields{
		"relationship_id": rel.ID,
		"user_id":         actorID,
		"other_id":        otherUserID,
	}).Info("friendship removed")
	return nil
}

// ListIncomingRequests returns all pending requests addressed to userID,
// newest first, each enriched with the requester's profile and the mutual
// friend count between requester and userID.
func (e *Engine) ListIncomingRequests(ctx context.Context, userID uuid.UUID) ([]IncomingRequest, error) {
	rels, err := e.store.ListPendingForRecipient(ctx, userID)
	if err != nil {
		return nil, e.storeFault("list pending", err)
	}

	sort.Slice(rels, func(i, j int) bool {
		return rels[i].RequestedAt.After(rels[j].RequestedAt)
	})

	out := make([]IncomingRequest, 0, len(rels))
	for _, rel := range rels {
		requester, err := e.users.Lookup(ctx, rel.RequesterID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				// requester deactivated since requesting; skip the entry
				continue
			}
			return nil, e.storeFault("lookup requester", err)
		}
		out = append(out, IncomingRequest{
			Relationship:  rel,
			Requester:     requester,
			MutualFriends: e.mutual.Count(ctx, rel.RequesterID, userID),
		})
	}
	return out, nil
}

// ListFriends returns one page of userID's accepted friendships, most
// recently accepted first, each resolved to the counterparty.
func (e *Engine) ListFriends(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]FriendEntry, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	rels, err := e.store.ListAcceptedFor(ctx, userID)
	if err != nil {
		return nil, e.storeFault("list accepted", err)
	}

	sort.Slice(rels, func(i, j int) bool {
		ti, tj := rels[i].AcceptedAt, rels[j].AcceptedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})

	start := (page - 1) * pageSize
	if start >= len(rels) {
		return []FriendEntry{}, nil
	}
	end := start + pageSize
	if end > len(rels) {
		end = len(rels)
	}

	out := make([]FriendEntry, 0, end-start)
	for _, rel := range rels[start:end] {
		otherID := rel.Other(userID)
		profile, err := e.users.Lookup(ctx, otherID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				continue
			}
			return nil, e.storeFault("lookup friend", err)
		}

		friend := FriendProfile{Profile: profile}
		if e.presence != nil {
			if seen, ok := e.presence.LastSeen(ctx, otherID); ok {
				friend.LastSeenAt = &seen
			}
		}

		entry := FriendEntry{RelationshipID: rel.ID, Friend: friend}
		if rel.AcceptedAt != nil {
			entry.AcceptedAt = *rel.AcceptedAt
		}
		out = append(out, entry)
	}
	return out, nil
}

// authorizedPending loads a relationship and checks that it is pending and
// addressed to actorID. Any violation collapses to ErrNotFound except a
// non-pending record owned by the actor, which is ErrInvalidTransition.
func (e *Engine) authorizedPending(ctx context.Context, actorID, relationshipID uuid.UUID) (Relationship, error) {
	rel, err := e.store.FindByID(ctx, relationshipID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Relationship{}, ErrNotFound
		}
		return Relationship{}, e.storeFault("find relationship", err)
	}
	if rel.RecipientID != actorID {
		return Relationship{}, ErrNotFound
	}
	if rel.Status != StatusPending {
		return Relationship{}, ErrInvalidTransition
	}
	return rel, nil
}

// storeFault logs an unexpected persistence fault and converts it to the
// generic ErrStoreUnavailable surfaced to engine callers.
func (e *Engine) storeFault(op string, err error) error {
	e.log.WithError(err).Errorf("relationship store fault during %s", op)
	return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
}
