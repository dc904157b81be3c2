package auth

import (
	"net/http"

	"Quillpad/internal/api/handlers"
	"Quillpad/internal/core/users"
)

// LoginHandler handles credential verification and token issuance
type LoginHandler struct {
	service users.Service
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(service users.Service) *LoginHandler {
	return &LoginHandler{service: service}
}

// HandleLogin handles POST /login
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes)

	var req users.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, resp)
}
