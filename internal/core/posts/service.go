package posts

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"Quillpad/internal/core/attachments"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"
)

// Pagination defaults
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Content limits
const (
	maxContentLength  = 100000 // bytes
	maxTitleLength    = 3000   // bytes
	maxTitleGraphemes = 300
)

type postService struct {
	repo        Repository
	attachments attachments.Service
}

// NewPostService creates a new post service.
// attachmentService may be nil, in which case any supplied attachment fails to upload.
func NewPostService(repo Repository, attachmentService attachments.Service) (Service, error) {
	if repo == nil {
		return nil, ErrNilDependency
	}
	return &postService{
		repo:        repo,
		attachments: attachmentService,
	}, nil
}

// ListPosts returns a page of the owner's posts. Pages past the end are empty.
func (s *postService) ListPosts(ctx context.Context, ownerID string, params ListParams) ([]*Post, error) {
	page, limit := normalizeListParams(params)
	// Past any offset a store can hold; (page-1)*limit would overflow
	if page-1 > (math.MaxInt-limit)/limit {
		return []*Post{}, nil
	}
	offset := (page - 1) * limit

	result, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if result == nil {
		result = []*Post{}
	}
	return result, nil
}

// GetPost returns a single owner-scoped post
func (s *postService) GetPost(ctx context.Context, ownerID, postID string) (*Post, error) {
	if !isPostID(postID) {
		return nil, ErrNotFound
	}
	return s.repo.GetByOwner(ctx, ownerID, postID)
}

// CreatePost creates a new post
// Flow:
// 1. Validate title and content
// 2. Upload the attachment, if any (no post is persisted when this fails)
// 3. Persist the post
func (s *postService) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	title, content, err := validateFields(req.Title, req.Content)
	if err != nil {
		return nil, err
	}
	if req.OwnerID == "" {
		return nil, NewValidationError("ownerId", "owner is required")
	}

	attachmentURL, err := s.storeAttachment(ctx, req.Attachment)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &Post{
		OwnerID:       req.OwnerID,
		Title:         title,
		Content:       content,
		AttachmentURL: attachmentURL,
	})
	if err != nil {
		if attachmentURL != nil {
			slog.Warn("[POST-CREATE] attachment uploaded but post not persisted",
				"owner_id", req.OwnerID, "attachment_url", *attachmentURL, "error", err)
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	slog.Info("[POST-CREATE] post created", "post_id", created.ID, "owner_id", created.OwnerID)
	return created, nil
}

// UpdatePost replaces the title and content of an owned post
func (s *postService) UpdatePost(ctx context.Context, req UpdatePostRequest) (*Post, error) {
	title, content, err := validateFields(req.Title, req.Content)
	if err != nil {
		return nil, err
	}
	if !isPostID(req.PostID) {
		return nil, ErrNotFound
	}

	// Fail before the upload so a non-owner never pushes an asset to the host.
	// UpdateByOwner still decides ownership for the write itself.
	if req.Attachment != nil {
		if _, err := s.repo.GetByOwner(ctx, req.OwnerID, req.PostID); err != nil {
			return nil, err
		}
	}

	attachmentURL, err := s.storeAttachment(ctx, req.Attachment)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateByOwner(ctx, req.OwnerID, req.PostID, PostUpdate{
		Title:         title,
		Content:       content,
		AttachmentURL: attachmentURL,
	})
	if err != nil {
		if attachmentURL != nil {
			slog.Warn("[POST-UPDATE] attachment uploaded but post not updated",
				"post_id", req.PostID, "attachment_url", *attachmentURL, "error", err)
		}
		return nil, err
	}
	return updated, nil
}

// DeletePost removes an owned post
func (s *postService) DeletePost(ctx context.Context, ownerID, postID string) error {
	if !isPostID(postID) {
		return ErrNotFound
	}
	if err := s.repo.DeleteByOwner(ctx, ownerID, postID); err != nil {
		return err
	}
	slog.Info("[POST-DELETE] post deleted", "post_id", postID, "owner_id", ownerID)
	return nil
}

func (s *postService) storeAttachment(ctx context.Context, att *attachments.Attachment) (*string, error) {
	if att == nil {
		return nil, nil
	}
	if s.attachments == nil {
		return nil, fmt.Errorf("%w: attachments are not configured", attachments.ErrUploadFailed)
	}
	url, err := s.attachments.Store(ctx, att)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

func normalizeListParams(params ListParams) (int, int) {
	page, limit := params.Page, params.Limit
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// validateFields trims and checks title and content
func validateFields(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)

	if title == "" {
		return "", "", NewValidationError("title", "title is required")
	}
	if len(title) > maxTitleLength {
		return "", "", NewValidationError("title",
			fmt.Sprintf("title too long (max %d bytes)", maxTitleLength))
	}
	if uniseg.GraphemeClusterCount(title) > maxTitleGraphemes {
		return "", "", NewValidationError("title",
			fmt.Sprintf("title too long (max %d characters)", maxTitleGraphemes))
	}

	if content == "" {
		return "", "", NewValidationError("content", "content is required")
	}
	if len(content) > maxContentLength {
		return "", "", NewValidationError("content",
			fmt.Sprintf("content too long (max %d characters)", maxContentLength))
	}

	return title, content, nil
}

// isPostID reports whether id can name a stored post
func isPostID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
