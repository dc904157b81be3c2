package posts

import "context"

// Service defines the business logic interface for posts.
// Every operation is scoped to the owner taken from the verified session.
type Service interface {
	// ListPosts returns one page of the owner's posts, newest first
	ListPosts(ctx context.Context, ownerID string, params ListParams) ([]*Post, error)

	// GetPost returns a single post owned by ownerID
	GetPost(ctx context.Context, ownerID, postID string) (*Post, error)

	// CreatePost validates the request, uploads the attachment (if any), then persists
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)

	// UpdatePost replaces title and content, and the attachment when one is supplied
	UpdatePost(ctx context.Context, req UpdatePostRequest) (*Post, error)

	// DeletePost removes a post owned by ownerID
	DeletePost(ctx context.Context, ownerID, postID string) error
}

// Repository defines the data access interface for posts.
// The owner-scoped mutations are single atomic operations; there is no
// separate fetch-then-check step.
type Repository interface {
	// Create assigns the id and timestamps and returns the stored post
	Create(ctx context.Context, post *Post) (*Post, error)

	// ListByOwner returns posts ordered by created_at DESC, id DESC
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*Post, error)

	// GetByOwner returns ErrNotFound unless a post matches both id and owner
	GetByOwner(ctx context.Context, ownerID, postID string) (*Post, error)

	// UpdateByOwner applies the update and bumps updated_at, or returns ErrNotFound
	UpdateByOwner(ctx context.Context, ownerID, postID string, update PostUpdate) (*Post, error)

	// DeleteByOwner removes the post, or returns ErrNotFound
	DeleteByOwner(ctx context.Context, ownerID, postID string) error
}
