package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"Quillpad/internal/core/posts"

	"github.com/google/uuid"
)

const postColumns = `id, owner_id, title, content, attachment_url, created_at, updated_at`

type postgresPostRepo struct {
	db *sql.DB
}

// NewPostRepository creates a new PostgreSQL post repository
func NewPostRepository(db *sql.DB) posts.Repository {
	return &postgresPostRepo{db: db}
}

// Create inserts a new post. id and timestamps are assigned by the database.
func (r *postgresPostRepo) Create(ctx context.Context, post *posts.Post) (*posts.Post, error) {
	query := `
		INSERT INTO posts (owner_id, title, content, attachment_url)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + postColumns

	created, err := scanPost(r.db.QueryRowContext(ctx, query,
		post.OwnerID, post.Title, post.Content, nullString(post.AttachmentURL)))
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	return created, nil
}

// ListByOwner returns one page of the owner's posts, newest first
func (r *postgresPostRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*posts.Post, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return []*posts.Post{}, nil
	}

	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	result := make([]*posts.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		result = append(result, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return result, nil
}

// GetByOwner returns the post only when it belongs to ownerID
func (r *postgresPostRepo) GetByOwner(ctx context.Context, ownerID, postID string) (*posts.Post, error) {
	if !validIDs(ownerID, postID) {
		return nil, posts.ErrNotFound
	}

	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND owner_id = $2`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, postID, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// UpdateByOwner replaces title and content in a single owner-scoped statement.
// The attachment URL is only replaced when a new one is supplied.
func (r *postgresPostRepo) UpdateByOwner(ctx context.Context, ownerID, postID string, update posts.PostUpdate) (*posts.Post, error) {
	if !validIDs(ownerID, postID) {
		return nil, posts.ErrNotFound
	}

	query := `
		UPDATE posts
		SET title = $3,
			content = $4,
			attachment_url = COALESCE($5, attachment_url),
			updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + postColumns

	post, err := scanPost(r.db.QueryRowContext(ctx, query,
		postID, ownerID, update.Title, update.Content, nullString(update.AttachmentURL)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return post, nil
}

// DeleteByOwner removes the post in a single owner-scoped statement
func (r *postgresPostRepo) DeleteByOwner(ctx context.Context, ownerID, postID string) error {
	if !validIDs(ownerID, postID) {
		return posts.ErrNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1 AND owner_id = $2`, postID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return posts.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*posts.Post, error) {
	post := &posts.Post{}
	var attachmentURL sql.NullString
	err := row.Scan(&post.ID, &post.OwnerID, &post.Title, &post.Content,
		&attachmentURL, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if attachmentURL.Valid {
		post.AttachmentURL = &attachmentURL.String
	}
	return post, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// validIDs reports whether every id is a UUID; anything else cannot match a row
func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}
