package routes

import (
	"fmt"

	authHandlers "Quillpad/internal/api/handlers/auth"
	"Quillpad/internal/api/middleware"
	"Quillpad/internal/core/users"

	"github.com/go-chi/chi/v5"
)

// Per-IP budget for credential endpoints: 10 requests per minute.
const (
	credentialRatePerSecond = 10.0 / 60.0
	credentialBurst         = 10
)

// RegisterAuthRoutes registers the unauthenticated account endpoints
func RegisterAuthRoutes(r chi.Router, service users.Service) error {
	credentialLimiter, err := middleware.NewRateLimiter(credentialRatePerSecond, credentialBurst, 0)
	if err != nil {
		return fmt.Errorf("failed to create credential rate limiter: %w", err)
	}

	registerHandler := authHandlers.NewRegisterHandler(service)
	loginHandler := authHandlers.NewLoginHandler(service)

	r.With(credentialLimiter.Middleware).Post("/register", registerHandler.HandleRegister)
	r.With(credentialLimiter.Middleware).Post("/login", loginHandler.HandleLogin)
	return nil
}
