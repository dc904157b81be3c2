package routes

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORSMiddleware allows the browser frontend to call the API.
// Credentials are only allowed with an explicit origin list.
func CORSMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300, // 5 minutes
	})
}
