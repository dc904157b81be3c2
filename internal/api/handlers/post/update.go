package post

import (
	"net/http"

	"Quillpad/internal/api/handlers"
	"Quillpad/internal/api/middleware"
	"Quillpad/internal/core/posts"

	"github.com/go-chi/chi/v5"
)

// UpdateHandler handles post edits
type UpdateHandler struct {
	service posts.Service
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(service posts.Service) *UpdateHandler {
	return &UpdateHandler{service: service}
}

// HandleUpdate handles PUT /posts/{id}
// Without an image part the existing attachment is kept.
func (h *UpdateHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		handlers.WriteError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
		return
	}

	form, ok := parsePostForm(w, r)
	if !ok {
		return
	}

	post, err := h.service.UpdatePost(r.Context(), posts.UpdatePostRequest{
		OwnerID:    userID,
		PostID:     chi.URLParam(r, "id"),
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
