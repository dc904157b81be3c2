package users

import (
	"time"
)

// User is a registered account.
// PasswordHash never leaves the server; it is excluded from JSON.
type User struct {
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
}

// RegisterRequest represents the input for registering a new account
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest represents the input for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
	Token     string    `json:"token"`
}
