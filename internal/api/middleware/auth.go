package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"Quillpad/internal/auth"
)

// Context keys for storing user information
type contextKey string

const (
	UserIDKey contextKey = "user_id"
)

// TokenVerifier maps a bearer token to the user id it was issued for.
// users.Service implements it.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// BearerAuthMiddleware enforces session-token authentication for protected routes
type BearerAuthMiddleware struct {
	verifier TokenVerifier
}

// NewBearerAuthMiddleware creates a new bearer auth middleware
func NewBearerAuthMiddleware(verifier TokenVerifier) *BearerAuthMiddleware {
	return &BearerAuthMiddleware{verifier: verifier}
}

// RequireAuth middleware ensures the request carries a valid, unexpired token.
// Every failure is answered with the same 401 body; the cause is only logged.
// On success the user id is injected into the request context.
func (m *BearerAuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logAuthFailure(r, "missing_header", auth.ErrMissingToken)
			writeAuthError(w)
			return
		}

		// Must be Bearer token
		if !strings.HasPrefix(authHeader, "Bearer ") {
			logAuthFailure(r, "bad_scheme", auth.ErrInvalidToken)
			writeAuthError(w)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		userID, err := m.verifier.VerifyToken(token)
		if err != nil {
			failure := "verification_failed"
			if errors.Is(err, auth.ErrTokenExpired) {
				failure = "expired"
			}
			logAuthFailure(r, failure, err)
			writeAuthError(w)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the authenticated user's id from the request context
// Returns empty string if not authenticated
func GetUserID(r *http.Request) string {
	return GetAuthenticatedUserID(r.Context())
}

// GetAuthenticatedUserID extracts the authenticated user's id from a context
func GetAuthenticatedUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// SetTestUserID sets the user id in the context for testing purposes
// This function should ONLY be used in tests to mock authenticated users
func SetTestUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func logAuthFailure(r *http.Request, failure string, err error) {
	slog.Warn("[AUTH_FAILURE]",
		"type", failure,
		"ip", r.RemoteAddr,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
}

// writeAuthError writes the uniform 401 response
func writeAuthError(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
}

func writeJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":   errorType,
		"message": message,
	}); err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}
