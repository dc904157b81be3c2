package post

import (
	"errors"
	"net/http"
	"strconv"

	"Quillpad/internal/api/handlers"
	"Quillpad/internal/api/middleware"
	"Quillpad/internal/core/posts"
)

// ListHandler handles paginated listing of the caller's posts
type ListHandler struct {
	service posts.Service
}

// NewListHandler creates a new list handler
func NewListHandler(service posts.Service) *ListHandler {
	return &ListHandler{service: service}
}

// HandleList handles GET /posts?page=&limit=
func (h *ListHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		handlers.WriteError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
		return
	}

	query := r.URL.Query()
	params := posts.ListParams{
		Page:  parseIntParam(query.Get("page")),
		Limit: parseIntParam(query.Get("limit")),
	}

	result, err := h.service.ListPosts(r.Context(), userID, params)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, result)
}

// parseIntParam returns 0 for absent or non-numeric values so the service default applies.
// Out-of-range numbers saturate at the int bounds.
func parseIntParam(raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return v
}
