package posts

import (
	"time"

	"Quillpad/internal/core/attachments"
)

// Post represents a blog post owned by a single user
type Post struct {
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
	AttachmentURL *string   `json:"attachmentUrl" db:"attachment_url"`
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Content       string    `json:"content" db:"content"`
	OwnerID       string    `json:"ownerId" db:"owner_id"`
}

// PostUpdate carries the new field values for an owner-scoped update.
// A nil AttachmentURL keeps the existing attachment.
type PostUpdate struct {
	AttachmentURL *string
	Title         string
	Content       string
}

// ListParams selects a page of an owner's posts
type ListParams struct {
	Page  int
	Limit int
}

// CreatePostRequest represents input for creating a new post
type CreatePostRequest struct {
	Attachment *attachments.Attachment
	OwnerID    string
	Title      string
	Content    string
}

// UpdatePostRequest represents input for replacing a post's title and content.
// Attachment is optional; when nil the stored attachment URL is retained.
type UpdatePostRequest struct {
	Attachment *attachments.Attachment
	OwnerID    string
	PostID     string
	Title      string
	Content    string
}
