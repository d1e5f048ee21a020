// internal/database/posts.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tanglesocial/tangle/internal/models"
)

// PostStore persists posts and comments.
type PostStore struct {
	pool *pgxpool.Pool
}

func NewPostStore(pool *pgxpool.Pool) *PostStore {
	return &PostStore{pool: pool}
}

// CreatePost inserts a new post for the author.
func (s *PostStore) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	q := `
		INSERT INTO posts (id, author_id, body, image_url, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, post.ID, post.AuthorID, post.Body, post.ImageURL)
		return err
	})
}

// GetPost fetches a single post by id.
func (s *PostStore) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	q := `SELECT id, author_id, body, image_url, created_at FROM posts WHERE id = $1`
	var p models.Post
	err := s.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.AuthorID, &p.Body, &p.ImageURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query post: %w", err)
	}
	return &p, nil
}

// ListFeed returns the user's own posts and their accepted friends' posts,
// reverse chronological.
func (s *PostStore) ListFeed(ctx context.Context, userID uuid.UUID, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := `
		WITH accepted_friends AS (
			SELECT CASE
				WHEN r.requester_id = $1 THEN r.recipient_id
				ELSE r.requester_id
			END AS friend_id
			FROM relationships r
			WHERE r.status = 'accepted'
			  AND (r.requester_id = $1 OR r.recipient_id = $1)
		)
		SELECT id, author_id, body, image_url, created_at
		FROM posts
		WHERE author_id = $1 OR author_id IN (SELECT friend_id FROM accepted_friends)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Body, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed: %w", err)
	}
	return posts, nil
}

// CreateComment inserts a comment on an existing post.
func (s *PostStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	q := `
		INSERT INTO comments (id, post_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, comment.ID, comment.PostID, comment.AuthorID, comment.Body)
		return err
	})
}

// ListComments returns a post's comments, oldest first.
func (s *PostStore) ListComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	q := `
		SELECT id, post_id, author_id, body, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.pool.Query(ctx, q, postID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}
