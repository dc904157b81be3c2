package users

import (
	"context"
	"time"

	"Quillpad/internal/auth"
)

// UserRepository defines the interface for credential persistence
type UserRepository interface {
	// Create inserts a new user and returns it with server-assigned fields.
	// Implementations MUST enforce username uniqueness atomically (a unique
	// constraint, not a lookup before insert) and return ErrUsernameTaken.
	Create(ctx context.Context, user *User) (*User, error)

	// GetByUsername returns ErrUserNotFound if no user has that username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns ErrUserNotFound if no user has that id.
	GetByID(ctx context.Context, id string) (*User, error)
}

// PasswordHasher is the slow, salted one-way password primitive.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns ErrInvalidCredentials on mismatch.
	Compare(hash, password string) error
}

// TokenIssuer is the signed session token primitive.
// *auth.TokenIssuer implements it.
type TokenIssuer interface {
	Issue(userID string) (token string, expiresAt time.Time, err error)
	Verify(token string) (*auth.Claims, error)
}

// Service defines the interface for account business logic
type Service interface {
	// Register creates an account. Returns a *ValidationError for empty or
	// oversized input and ErrUsernameTaken for duplicates.
	Register(ctx context.Context, req RegisterRequest) (*User, error)

	// Login verifies credentials and issues a session token.
	// Returns ErrUserNotFound or ErrInvalidCredentials.
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)

	// VerifyToken maps a bearer token to the user id it was issued for.
	// Returns auth.ErrMissingToken, auth.ErrInvalidToken or auth.ErrTokenExpired.
	VerifyToken(token string) (string, error)
}
