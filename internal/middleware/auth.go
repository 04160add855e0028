package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ukydev/aero-console/internal/actions"
	"github.com/ukydev/aero-console/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	TokenContextKey contextKey = "token"
)

// WriteError writes a JSON {"detail": ...} error body, the shape the console
// client reads server messages from.
func WriteError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// TokenAuth rejects requests that carry no acceptable access token.
type TokenAuth struct {
	valid func(token string) bool
	skip  []string
}

// NewTokenAuth creates a TokenAuth. Paths starting with one of skip are let
// through untouched.
func NewTokenAuth(valid func(token string) bool, skip ...string) *TokenAuth {
	return &TokenAuth{valid: valid, skip: skip}
}

// Authenticate validates the request token and stores it in the request
// context.
func (m *TokenAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.shouldSkip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := TokenFromRequest(r)
		if token == "" {
			WriteError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if !m.valid(token) {
			WriteError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), TokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *TokenAuth) shouldSkip(path string) bool {
	for _, p := range m.skip {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// TokenFromRequest reads a bearer token from the Authorization header, then
// from the token query parameter used by websocket clients.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// TokenFromContext returns the token stored by Authenticate.
func TokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(TokenContextKey).(string)
	return tok, ok
}

// RequireRole lets the request through when the role behind its token is one
// of allowed, or outranks it.
func RequireRole(roleOf func(token string) models.Role, allowed ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := TokenFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !actions.IsRoleAllowed(roleOf(token), allowed) {
				WriteError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter bounds requests per client IP over a sliding window.
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	requests map[string][]time.Time
}

// NewRateLimiter allows max requests per client within window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:      max,
		window:   window,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
}

// Limit applies the limiter to next.
func (m *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.allow(clientIP(r)) {
			WriteError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *RateLimiter) allow(ip string) bool {
	now := m.now()
	cutoff := now.Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := m.requests[ip][:0]
	for _, ts := range m.requests[ip] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	if len(recent) >= m.max {
		m.requests[ip] = recent
		return false
	}
	m.requests[ip] = append(recent, now)
	return true
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip := r.RemoteAddr
	if i := strings.LastIndex(ip, ":"); i != -1 {
		ip = ip[:i]
	}
	return ip
}
