// internal/friendship/mutual.go
package friendship

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MutualCounter computes the size of the intersection of two users' accepted
// friend sets. The count is always advisory, annotating other results, so it
// never fails: store faults are logged and the count degrades to 0.
type MutualCounter struct {
	store Store
	log   *logrus.Logger
}

// NewMutualCounter constructs a counter over the given store.
func NewMutualCounter(store Store, log *logrus.Logger) *MutualCounter {
	if log == nil {
		log = logrus.New()
	}
	return &MutualCounter{store: store, log: log}
}

// Count returns |friendSet(a) ∩ friendSet(b)|. Count(x, x) is defined as the
// size of x's friend set.
func (m *MutualCounter) Count(ctx context.Context, userA, userB uuid.UUID) int {
	setA, err := m.friendSet(ctx, userA)
	if err != nil {
		m.log.WithError(err).WithField("user_id", userA).Warn("mutual count degraded to 0")
		return 0
	}
	if userA == userB {
		return len(setA)
	}

	setB, err := m.friendSet(ctx, userB)
	if err != nil {
		m.log.WithError(err).WithField("user_id", userB).Warn("mutual count degraded to 0")
		return 0
	}

	// intersect the smaller set against the larger
	if len(setB) < len(setA) {
		setA, setB = setB, setA
	}
	n := 0
	for id := range setA {
		if _, ok := setB[id]; ok {
			n++
		}
	}
	return n
}

func (m *MutualCounter) friendSet(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rels, err := m.store.ListAcceptedFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]struct{}, len(rels))
	for _, rel := range rels {
		set[rel.Other(userID)] = struct{}{}
	}
	return set, nil
}
