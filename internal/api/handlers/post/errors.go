package post

import (
	"errors"
	"log/slog"
	"net/http"

	"Quillpad/internal/api/handlers"
	"Quillpad/internal/core/attachments"
	"Quillpad/internal/core/posts"
)

// handleServiceError maps service errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	var valErr *posts.ValidationError
	switch {
	case errors.As(err, &valErr):
		handlers.WriteError(w, http.StatusBadRequest, "ValidationFailed", valErr.Message)

	case errors.Is(err, posts.ErrNotFound):
		handlers.WriteError(w, http.StatusNotFound, "NotFoundOrForbidden",
			"Post not found or you don't have permission")

	case errors.Is(err, attachments.ErrImageTooLarge):
		handlers.WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge", err.Error())

	case errors.Is(err, attachments.ErrUnsupportedFormat):
		handlers.WriteError(w, http.StatusBadRequest, "ValidationFailed", err.Error())

	case errors.Is(err, attachments.ErrUploadFailed):
		slog.Error("[POST] attachment upload failed", "error", err)
		handlers.WriteError(w, http.StatusBadGateway, "UploadFailed", "Failed to upload image")

	default:
		// Don't leak internal error details to clients
		slog.Error("[POST] unexpected error in post handler", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "StoreFailure",
			"An internal error occurred")
	}
}
