// internal/database/users.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tanglesocial/tangle/internal/auth"
	"github.com/tanglesocial/tangle/internal/friendship"
	"github.com/tanglesocial/tangle/internal/models"
)

// UserStore is the PostgreSQL-backed user account repository. It also serves
// as the engine's UserDirectory: existence and active-status checks resolve
// against the same users table.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore constructs a user store over the given pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, email, password, username, profile_picture, bio, is_active, created_at`

// Create inserts a new user, hashing the plaintext password first.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	hash, err := auth.CreateHash(user.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = hash
	user.IsActive = true

	q := `
		INSERT INTO users (id, email, password, username, profile_picture, bio, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW())
	`
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			user.ID, user.Email, user.Password, user.Username, user.ProfilePicture, user.Bio,
		)
		return execErr
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByEmail fetches a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.queryOne(ctx, q, email)
}

// GetByID fetches a user by id.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.queryOne(ctx, q, id)
}

// Authenticate checks credentials and returns a signed JWT for the user.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (string, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("user not found or db error: %w", err)
	}

	match, err := auth.ComparePasswordAndHash(password, user.Password)
	if err != nil || !match {
		return "", fmt.Errorf("invalid credentials")
	}

	token, err := auth.CreateJWT(user.ID.String())
	if err != nil {
		return "", fmt.Errorf("create jwt: %w", err)
	}
	return token, nil
}

// Deactivate marks a user inactive; the directory then reports them missing.
func (s *UserStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	q := `UPDATE users SET is_active = FALSE WHERE id = $1`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Lookup implements friendship.UserDirectory. Deactivated users are reported
// the same as missing ones.
func (s *UserStore) Lookup(ctx context.Context, userID uuid.UUID) (friendship.Profile, error) {
	q := `SELECT id, username, profile_picture FROM users WHERE id = $1 AND is_active`
	var p friendship.Profile
	err := s.pool.QueryRow(ctx, q, userID).Scan(&p.ID, &p.Username, &p.ProfilePicture)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return friendship.Profile{}, friendship.ErrUserNotFound
		}
		return friendship.Profile{}, fmt.Errorf("lookup user: %w", err)
	}
	return p, nil
}

// ListActive implements friendship.UserDirectory.
func (s *UserStore) ListActive(ctx context.Context) ([]friendship.Profile, error) {
	q := `SELECT id, username, profile_picture FROM users WHERE is_active`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var profiles []friendship.Profile
	for rows.Next() {
		var p friendship.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.ProfilePicture); err != nil {
			return nil, fmt.Errorf("scan user profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return profiles, nil
}

func (s *UserStore) queryOne(ctx context.Context, q string, arg any) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.Password, &u.Username,
		&u.ProfilePicture, &u.Bio, &u.IsActive, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

var _ friendship.UserDirectory = (*UserStore)(nil)
