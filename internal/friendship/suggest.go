// internal/friendship/suggest.go
package friendship

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Suggester produces bounded candidate lists for new friend requests. The
// exclusion set is recomputed on every call; relationship changes invalidate
// it immediately, so nothing is cached.
type Suggester struct {
	store  Store
	users  UserDirectory
	mutual *MutualCounter
	log    *logrus.Logger

	// shuffle permutes the candidate pool. Selection order is deliberately
	// unspecified; tests may pin this for determinism.
	shuffle func(n int, swap func(i, j int))
}

// NewSuggester constructs a Suggester over the same store the engine uses.
func NewSuggester(store Store, users UserDirectory, log *logrus.Logger) *Suggester {
	if log == nil {
		log = logrus.New()
	}
	return &Suggester{
		store:   store,
		users:   users,
		mutual:  NewMutualCounter(store, log),
		log:     log,
		shuffle: rand.Shuffle,
	}
}

// Suggest returns up to limit active users with no current relationship to
// userID (pending or accepted, either direction), each annotated with its
// mutual-friend count. An empty pool yields an empty list, not an error.
func (s *Suggester) Suggest(ctx context.Context, userID uuid.UUID, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		return []Suggestion{}, nil
	}

	excluded, err := s.exclusionSet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("build exclusion set: %w", ErrStoreUnavailable)
	}

	candidates, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", ErrStoreUnavailable)
	}

	pool := candidates[:0:0]
	for _, c := range candidates {
		if c.ID == userID {
			continue
		}
		if _, ok := excluded[c.ID]; ok {
			continue
		}
		pool = append(pool, c)
	}

	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > limit {
		pool = pool[:limit]
	}

	out := make([]Suggestion, 0, len(pool))
	for _, c := range pool {
		out = append(out, Suggestion{
			Profile:       c,
			MutualFriends: s.mutual.Count(ctx, userID, c.ID),
		})
	}
	return out, nil
}

// exclusionSet collects every user currently related to userID in any state
// or direction.
func (s *Suggester) exclusionSet(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rels, err := s.store.ListForUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	excluded := make(map[uuid.UUID]struct{}, len(rels))
	for _, rel := range rels {
		excluded[rel.Other(userID)] = struct{}{}
	}
	return excluded, nil
}
