package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"Quillpad/internal/api/handlers"
	"Quillpad/internal/core/users"
)

// RegisterHandler handles account registration
type RegisterHandler struct {
	service users.Service
}

// NewRegisterHandler creates a new register handler
func NewRegisterHandler(service users.Service) *RegisterHandler {
	return &RegisterHandler{service: service}
}

// HandleRegister handles POST /register
func (h *RegisterHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes)

	var req users.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.service.Register(r.Context(), req); err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "User registered successfully",
	})
}

// decodeJSON decodes the request body, writing the error response on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handlers.WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge",
				"Request body too large (max 64KB)")
			return false
		}
		handlers.WriteError(w, http.StatusBadRequest, "ValidationFailed", "Invalid request body")
		return false
	}
	return true
}
