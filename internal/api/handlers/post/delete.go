package post

import (
	"net/http"

	"Quillpad/internal/api/handlers"
	"Quillpad/internal/api/middleware"
	"Quillpad/internal/core/posts"

	"github.com/go-chi/chi/v5"
)

// DeleteHandler handles post deletion requests
type DeleteHandler struct {
	service posts.Service
}

// NewDeleteHandler creates a new delete handler
func NewDeleteHandler(service posts.Service) *DeleteHandler {
	return &DeleteHandler{service: service}
}

// HandleDelete handles DELETE /posts/{id}
// Only the owner can delete; anyone else gets the same 404 as a missing post.
func (h *DeleteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		handlers.WriteError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
		return
	}

	if err := h.service.DeletePost(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Post deleted successfully",
	})
}
