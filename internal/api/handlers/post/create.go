package post

import (
	"net/http"

	"Quillpad/internal/api/handlers"
	"Quillpad/internal/api/middleware"
	"Quillpad/internal/core/posts"
)

// CreateHandler handles post creation requests
type CreateHandler struct {
	service posts.Service
}

// NewCreateHandler creates a new create handler
func NewCreateHandler(service posts.Service) *CreateHandler {
	return &CreateHandler{
		service: service,
	}
}

// HandleCreate handles POST /posts
// Body is multipart/form-data with title, content and an optional image part.
// The owner always comes from the verified token, never from the body.
func (h *CreateHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		handlers.WriteError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
		return
	}

	form, ok := parsePostForm(w, r)
	if !ok {
		return
	}

	post, err := h.service.CreatePost(r.Context(), posts.CreatePostRequest{
		OwnerID:    userID,
		Title:      form.title,
		Content:    form.content,
		Attachment: form.attachment,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, post)
}
