package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterHealthRoute registers the liveness check
func RegisterHealthRoute(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
