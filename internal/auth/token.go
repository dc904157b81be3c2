package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the "iss" claim stamped on every session token.
const Issuer = "quillpad"

// DefaultTokenTTL is the session lifetime. Tokens cannot be refreshed.
const DefaultTokenTTL = time.Hour

// Verification errors. All three must be rejected identically at the HTTP
// boundary; they are distinguished for logging and tests.
var (
	// ErrMissingToken is returned when no token was presented
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidToken is returned for malformed tokens, bad signatures,
	// unexpected algorithms, or missing claims
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for well-formed tokens whose exp is in the past
	ErrTokenExpired = errors.New("token expired")

	// ErrEmptySecret is returned when constructing an issuer without a signing secret
	ErrEmptySecret = errors.New("token signing secret must not be empty")
)

// Claims are the session token claims. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens with a process-wide secret.
// It holds no per-token state and is safe for concurrent use.
type TokenIssuer struct {
	now    func() time.Time
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a token issuer. A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenIssuer(secret []byte, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue creates a signed token for userID expiring TTL from now.
func (i *TokenIssuer) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}

	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.ttl)

	return i.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}, expiresAt)
}

func (i *TokenIssuer) sign(claims Claims, expiresAt time.Time) (string, time.Time, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature, algorithm, issuer and expiry of tokenString
// and returns its claims. The returned error is always one of ErrMissingToken,
// ErrInvalidToken or ErrTokenExpired, wrapping the parser error when there is one.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}
