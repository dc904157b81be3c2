package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"Quillpad/internal/api/handlers"
	"Quillpad/internal/core/users"
)

// MaxJSONBodyBytes caps credential request bodies
const MaxJSONBodyBytes = 64 << 10

// handleServiceError maps auth service errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	var valErr *users.ValidationError
	switch {
	case errors.As(err, &valErr):
		handlers.WriteError(w, http.StatusBadRequest, "ValidationFailed", valErr.Message)

	case errors.Is(err, users.ErrUsernameTaken):
		handlers.WriteError(w, http.StatusBadRequest, "DuplicateUsername", "Username already exists")

	case errors.Is(err, users.ErrUserNotFound):
		handlers.WriteError(w, http.StatusUnauthorized, "NotFound", "User not found")

	case errors.Is(err, users.ErrInvalidCredentials):
		handlers.WriteError(w, http.StatusUnauthorized, "InvalidCredentials", "Invalid password")

	default:
		// Don't leak internal error details to clients
		slog.Error("[AUTH] unexpected error in auth handler", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "StoreFailure", "An internal error occurred")
	}
}
