package middleware

import (
	"net"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// DefaultMaxClients bounds how many per-client buckets are tracked at once.
// The least recently seen client is evicted first.
const DefaultMaxClients = 10000

// RateLimiter applies a token bucket per client IP
type RateLimiter struct {
	clients *lru.Cache[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
}

// NewRateLimiter creates a rate limiter allowing rps requests per second
// with bursts of up to burst requests per client.
func NewRateLimiter(rps float64, burst, maxClients int) (*RateLimiter, error) {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	cache, err := lru.New[string, *rate.Limiter](maxClients)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		clients: cache,
		limit:   rate.Limit(rps),
		burst:   burst,
	}, nil
}

// Middleware returns a rate limiting middleware
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiterFor(getClientIP(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "RateLimitExceeded", "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterFor returns the client's bucket, creating it on first sight
func (rl *RateLimiter) limiterFor(clientID string) *rate.Limiter {
	if limiter, ok := rl.clients.Get(clientID); ok {
		return limiter
	}
	// Two first requests may race here; PeekOrAdd keeps whichever bucket landed first
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	if existing, ok, _ := rl.clients.PeekOrAdd(clientID, limiter); ok {
		return existing
	}
	return limiter
}

// getClientIP extracts the client IP from the request.
// chi's RealIP middleware has already applied X-Forwarded-For / X-Real-IP
// to RemoteAddr when the server runs behind a proxy.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
