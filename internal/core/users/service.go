package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// MaxUsernameLength is the longest accepted username, in runes
const MaxUsernameLength = 64

type userService struct {
	userRepo UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
}

// NewUserService creates a new account service
func NewUserService(userRepo UserRepository, hasher PasswordHasher, tokens TokenIssuer) Service {
	return &userService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
	}
}

// Register creates a new account with a hashed password
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validateCredentials(req.Username, req.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	// Repository enforces uniqueness via constraint
	user, err := s.userRepo.Create(ctx, &User{
		Username:     req.Username,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	slog.Info("[AUTH] user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies credentials and issues a session token.
// "not found" and "wrong password" stay distinct; callers decide how much to reveal.
func (s *userService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return nil, NewValidationError("username", "username is required")
	}
	if req.Password == "" {
		return nil, NewValidationError("password", "password is required")
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			slog.Info("[AUTH] login for unknown user", "username", req.Username)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			slog.Info("[AUTH] invalid password", "username", req.Username)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("[AUTH] login successful", "user_id", user.ID)
	return &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyToken returns the user id bound to token
func (s *userService) VerifyToken(token string) (string, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func validateCredentials(username, password string) error {
	if username == "" {
		return NewValidationError("username", "username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return NewValidationError("username",
			fmt.Sprintf("username too long (max %d characters)", MaxUsernameLength))
	}
	if password == "" {
		return NewValidationError("password", "password is required")
	}
	if len(password) > MaxPasswordBytes {
		return NewValidationError("password",
			fmt.Sprintf("password too long (max %d bytes)", MaxPasswordBytes))
	}
	return nil
}
