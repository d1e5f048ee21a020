// internal/friendship/memory_store.go
package friendship

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewMemoryStore returns a Store backed by in-memory maps, used by tests and
// local development. The mutex makes Insert a true compare-and-insert: two
// racing inserts for the same pair resolve to one winner.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[uuid.UUID]Relationship),
		byPair: make(map[pairKey]uuid.UUID),
	}
}

// MemoryStore implements Store without external persistence.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]Relationship
	byPair map[pairKey]uuid.UUID
}

// pairKey normalizes an unordered user pair so both directions map to the
// same key.
type pairKey struct {
	lo, hi uuid.UUID
}

func newPairKey(a, b uuid.UUID) pairKey {
	if a.String() > b.String() {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// FindPair looks up the relationship between two users in either direction.
func (s *MemoryStore) FindPair(_ context.Context, userA, userB uuid.UUID) (Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[newPairKey(userA, userB)]
	if !ok {
		return Relationship{}, ErrNotFound
	}
	return s.byID[id], nil
}

// FindByID looks up a relationship by id.
func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rel, ok := s.byID[id]
	if !ok {
		return Relationship{}, ErrNotFound
	}
	return rel, nil
}

// ListPendingForRecipient returns pending relationships addressed to userID.
func (s *MemoryStore) ListPendingForRecipient(_ context.Context, userID uuid.UUID) ([]Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Relationship
	for _, rel := range s.byID {
		if rel.Status == StatusPending && rel.RecipientID == userID {
			out = append(out, rel)
		}
	}
	return out, nil
}

// ListAcceptedFor returns accepted relationships touching userID.
func (s *MemoryStore) ListAcceptedFor(_ context.Context, userID uuid.UUID) ([]Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Relationship
	for _, rel := range s.byID {
		if rel.Status == StatusAccepted && rel.Involves(userID) {
			out = append(out, rel)
		}
	}
	return out, nil
}

// ListForUser returns every relationship touching userID regardless of status.
func (s *MemoryStore) ListForUser(_ context.Context, userID uuid.UUID) ([]Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Relationship
	for _, rel := range s.byID {
		if rel.Involves(userID) {
			out = append(out, rel)
		}
	}
	return out, nil
}

// Insert creates a pending relationship if and only if no record exists for
// the pair.
func (s *MemoryStore) Insert(_ context.Context, requesterID, recipientID uuid.UUID) (Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := newPairKey(requesterID, recipientID)
	if _, exists := s.byPair[key]; exists {
		return Relationship{}, ErrDuplicateRelationship
	}

	rel := Relationship{
		ID:          uuid.New(),
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      StatusPending,
		RequestedAt: time.Now().UTC(),
	}
	s.byID[rel.ID] = rel
	s.byPair[key] = rel.ID
	return rel, nil
}

// MarkAccepted transitions a pending relationship to accepted.
func (s *MemoryStore) MarkAccepted(_ context.Context, id uuid.UUID) (Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.byID[id]
	if !ok {
		return Relationship{}, ErrNotFound
	}
	if rel.Status != StatusPending {
		return Relationship{}, ErrInvalidTransition
	}

	now := time.Now().UTC()
	rel.Status = StatusAccepted
	rel.AcceptedAt = &now
	s.byID[id] = rel
	return rel, nil
}

// Delete removes a relationship; deleting an absent id is a no-op.
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	delete(s.byPair, newPairKey(rel.RequesterID, rel.RecipientID))
	return nil
}

var _ Store = (*MemoryStore)(nil)
