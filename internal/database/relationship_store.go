// internal/database/relationship_store.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tanglesocial/tangle/internal/friendship"
)

// RelationshipStore is the PostgreSQL-backed friendship.Store. All pair
// lookups go through a single normalized-pair predicate so direction checks
// live in exactly one place, and the unique index on
// (LEAST(requester_id, recipient_id), GREATEST(requester_id, recipient_id))
// makes Insert a compare-and-insert: concurrent duplicate requests resolve to
// one winner.
type RelationshipStore struct {
	pool *pgxpool.Pool
}

// NewRelationshipStore constructs a relationship store over the given pool.
func NewRelationshipStore(pool *pgxpool.Pool) *RelationshipStore {
	return &RelationshipStore{pool: pool}
}

const relationshipColumns = `id, requester_id, recipient_id, status, requested_at, accepted_at`

// FindPair returns the relationship between two users regardless of direction.
func (s *RelationshipStore) FindPair(ctx context.Context, userA, userB uuid.UUID) (friendship.Relationship, error) {
	q := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE LEAST(requester_id, recipient_id) = LEAST($1::uuid, $2::uuid)
		  AND GREATEST(requester_id, recipient_id) = GREATEST($1::uuid, $2::uuid)
	`
	return s.queryOne(ctx, q, userA, userB)
}

// FindByID returns the relationship with the given id.
func (s *RelationshipStore) FindByID(ctx context.Context, id uuid.UUID) (friendship.Relationship, error) {
	q := `SELECT ` + relationshipColumns + ` FROM relationships WHERE id = $1`
	return s.queryOne(ctx, q, id)
}

// ListPendingForRecipient returns pending requests addressed to userID,
// newest first.
func (s *RelationshipStore) ListPendingForRecipient(ctx context.Context, userID uuid.UUID) ([]friendship.Relationship, error) {
	q := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE recipient_id = $1 AND status = 'pending'
		ORDER BY requested_at DESC
	`
	return s.queryMany(ctx, q, userID)
}

// ListAcceptedFor returns accepted relationships touching userID, most
// recently accepted first.
func (s *RelationshipStore) ListAcceptedFor(ctx context.Context, userID uuid.UUID) ([]friendship.Relationship, error) {
	q := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE (requester_id = $1 OR recipient_id = $1) AND status = 'accepted'
		ORDER BY accepted_at DESC
	`
	return s.queryMany(ctx, q, userID)
}

// ListForUser returns every relationship touching userID, any status.
func (s *RelationshipStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]friendship.Relationship, error) {
	q := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE requester_id = $1 OR recipient_id = $1
	`
	return s.queryMany(ctx, q, userID)
}

// Insert creates a pending relationship. ON CONFLICT DO NOTHING over the
// normalized-pair unique index means a lost race returns no row, which is
// reported as ErrDuplicateRelationship.
func (s *RelationshipStore) Insert(ctx context.Context, requesterID, recipientID uuid.UUID) (friendship.Relationship, error) {
	q := `
		INSERT INTO relationships (id, requester_id, recipient_id, status, requested_at)
		VALUES ($1, $2, $3, 'pending', NOW())
		ON CONFLICT DO NOTHING
		RETURNING ` + relationshipColumns

	var rel friendship.Relationship
	err := s.pool.QueryRow(ctx, q, uuid.New(), requesterID, recipientID).Scan(
		&rel.ID, &rel.RequesterID, &rel.RecipientID, &rel.Status, &rel.RequestedAt, &rel.AcceptedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return friendship.Relationship{}, friendship.ErrDuplicateRelationship
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return friendship.Relationship{}, friendship.ErrDuplicateRelationship
		}
		return friendship.Relationship{}, fmt.Errorf("insert relationship: %w", err)
	}
	return rel, nil
}

// MarkAccepted transitions a pending relationship to accepted, stamping
// accepted_at. A zero-row update is disambiguated into ErrNotFound or
// ErrInvalidTransition inside the same transaction.
func (s *RelationshipStore) MarkAccepted(ctx context.Context, id uuid.UUID) (friendship.Relationship, error) {
	var rel friendship.Relationship
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE relationships
			SET status = 'accepted', accepted_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING ` + relationshipColumns

		err := tx.QueryRow(ctx, q, id).Scan(
			&rel.ID, &rel.RequesterID, &rel.RecipientID, &rel.Status, &rel.RequestedAt, &rel.AcceptedAt,
		)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("mark accepted: %w", err)
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM relationships WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check relationship existence: %w", err)
		}
		if exists {
			return friendship.ErrInvalidTransition
		}
		return friendship.ErrNotFound
	})
	if err != nil {
		return friendship.Relationship{}, err
	}
	return rel, nil
}

// Delete removes the relationship; absent ids are a no-op.
func (s *RelationshipStore) Delete(ctx context.Context, id uuid.UUID) error {
	q := `DELETE FROM relationships WHERE id = $1`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, id)
		return err
	})
}

func (s *RelationshipStore) queryOne(ctx context.Context, q string, args ...any) (friendship.Relationship, error) {
	var rel friendship.Relationship
	err := s.pool.QueryRow(ctx, q, args...).Scan(
		&rel.ID, &rel.RequesterID, &rel.RecipientID, &rel.Status, &rel.RequestedAt, &rel.AcceptedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return friendship.Relationship{}, friendship.ErrNotFound
		}
		return friendship.Relationship{}, fmt.Errorf("query relationship: %w", err)
	}
	return rel, nil
}

func (s *RelationshipStore) queryMany(ctx context.Context, q string, args ...any) ([]friendship.Relationship, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var rels []friendship.Relationship
	for rows.Next() {
		var rel friendship.Relationship
		if err := rows.Scan(&rel.ID, &rel.RequesterID, &rel.RecipientID, &rel.Status, &rel.RequestedAt, &rel.AcceptedAt); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relationships: %w", err)
	}
	return rels, nil
}

var _ friendship.Store = (*RelationshipStore)(nil)
