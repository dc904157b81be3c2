package memory

import (
	"context"
	"sort"
	"sync"

	"Quillpad/internal/core/posts"

	"github.com/google/uuid"
)

// PostRepository is a map-backed posts.Repository.
// Every owner-scoped operation holds the lock for its whole check-and-write.
type PostRepository struct {
	posts map[string]*posts.Post
	clock *clock
	mu    sync.RWMutex
}

// NewPostRepository creates an empty in-memory post repository
func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts: make(map[string]*posts.Post),
		clock: newClock(),
	}
}

// Create stores a copy of post with a fresh id and timestamps
func (r *PostRepository) Create(ctx context.Context, post *posts.Post) (*posts.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.next()
	stored := &posts.Post{
		ID:            uuid.NewString(),
		OwnerID:       post.OwnerID,
		Title:         post.Title,
		Content:       post.Content,
		AttachmentURL: copyString(post.AttachmentURL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.posts[stored.ID] = stored
	return clonePost(stored), nil
}

// ListByOwner returns posts ordered by created_at DESC, id DESC
func (r *PostRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*posts.Post, error) {
	r.mu.RLock()
	owned := make([]*posts.Post, 0)
	for _, p := range r.posts {
		if p.OwnerID == ownerID {
			owned = append(owned, clonePost(p))
		}
	}
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID > owned[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(owned) {
		return []*posts.Post{}, nil
	}
	end := len(owned)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return owned[offset:end], nil
}

// GetByOwner returns posts.ErrNotFound unless id and owner both match
func (r *PostRepository) GetByOwner(ctx context.Context, ownerID, postID string) (*posts.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[postID]
	if !ok || p.OwnerID != ownerID {
		return nil, posts.ErrNotFound
	}
	return clonePost(p), nil
}

// UpdateByOwner applies the update when id and owner both match
func (r *PostRepository) UpdateByOwner(ctx context.Context, ownerID, postID string, update posts.PostUpdate) (*posts.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok || p.OwnerID != ownerID {
		return nil, posts.ErrNotFound
	}

	p.Title = update.Title
	p.Content = update.Content
	if update.AttachmentURL != nil {
		p.AttachmentURL = copyString(update.AttachmentURL)
	}
	p.UpdatedAt = r.clock.next()
	return clonePost(p), nil
}

// DeleteByOwner removes the post when id and owner both match
func (r *PostRepository) DeleteByOwner(ctx context.Context, ownerID, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok || p.OwnerID != ownerID {
		return posts.ErrNotFound
	}
	delete(r.posts, postID)
	return nil
}

func clonePost(p *posts.Post) *posts.Post {
	copied := *p
	copied.AttachmentURL = copyString(p.AttachmentURL)
	return &copied
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
