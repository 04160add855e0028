package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ukydev/aero-console/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrNoSession    = errors.New("not signed in")
)

// ParseClaims reads the console-relevant claims from an access token. The
// signature is not verified; the backend does that on every request.
func ParseClaims(tokenString string) (*models.Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}

	out := &models.Claims{
		UserID:         firstString(claims, "sub", "user_id"),
		Username:       firstString(claims, "username", "email"),
		Role:           models.Role(firstString(claims, "role")),
		OrganizationID: firstString(claims, "organization_id", "org_id"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.Exp = exp.Unix()
	}
	if out.UserID == "" {
		return nil, ErrInvalidToken
	}
	return out, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if s, ok := claims[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Snapshot is the persisted form of a Session.
type Snapshot struct {
	Tokens models.TokenPair `json:"tokens"`
	User   *models.User     `json:"user,omitempty"`
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithDefaultOrganization is used when neither the user nor the token names
// an organization.
func WithDefaultOrganization(id string) Option {
	return func(s *Session) { s.defaultOrg = id }
}

// Session holds the signed-in operator's token pair and profile. It
// satisfies the REST client's token store.
type Session struct {
	now        func() time.Time
	defaultOrg string

	mu       sync.RWMutex
	tokens   models.TokenPair
	claims   *models.Claims
	user     *models.User
	onChange func(Snapshot)
}

// NewSession creates a signed-out Session.
func NewSession(opts ...Option) *Session {
	s := &Session{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after every token or profile change.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Set stores a new token pair. An access token whose claims cannot be read
// is kept but yields no role.
func (s *Session) Set(pair models.TokenPair) {
	claims, _ := ParseClaims(pair.AccessToken)
	s.mu.Lock()
	s.tokens = pair
	s.claims = claims
	s.mu.Unlock()
	s.changed()
}

// SignIn stores a login response.
func (s *Session) SignIn(resp models.LoginResponse) {
	claims, _ := ParseClaims(resp.AccessToken)
	user := resp.User
	s.mu.Lock()
	s.tokens = resp.TokenPair
	s.claims = claims
	s.user = &user
	s.mu.Unlock()
	s.changed()
}

// SetUser replaces the cached profile.
func (s *Session) SetUser(u models.User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	s.changed()
}

// Clear signs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	s.tokens = models.TokenPair{}
	s.claims = nil
	s.user = nil
	s.mu.Unlock()
	s.changed()
}

func (s *Session) changed() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn(s.Snapshot())
	}
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.RefreshToken
}

// Claims returns the claims of the current access token.
func (s *Session) Claims() (models.Claims, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens.AccessToken == "" {
		return models.Claims{}, ErrNoSession
	}
	if s.claims == nil {
		return models.Claims{}, ErrInvalidToken
	}
	return *s.claims, nil
}

// User returns the cached profile.
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Role prefers the profile's role over the token's. A signed-out session has
// no role.
func (s *Session) Role() models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens.AccessToken == "" {
		return ""
	}
	if s.user != nil && s.user.Role != "" {
		return s.user.Role
	}
	if s.claims != nil {
		return s.claims.Role
	}
	return ""
}

// OrganizationID resolves the operator's organization from the profile, then
// the token, then the configured default.
func (s *Session) OrganizationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user != nil && s.user.OrganizationID != "" {
		return s.user.OrganizationID
	}
	if s.claims != nil && s.claims.OrganizationID != "" {
		return s.claims.OrganizationID
	}
	return s.defaultOrg
}

// Authenticated reports whether an access token is held.
func (s *Session) Authenticated() bool {
	return s.AccessToken() != ""
}

// Expired reports whether the access token's expiry has passed. Tokens
// without an expiry never expire; a missing token counts as expired.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens.AccessToken == "" {
		return true
	}
	if s.claims == nil || s.claims.Exp == 0 {
		return false
	}
	return !s.now().Before(time.Unix(s.claims.Exp, 0))
}

// Snapshot returns the persisted form of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Tokens: s.tokens}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Restore replaces the session with snap without firing the change hook.
func (s *Session) Restore(snap Snapshot) {
	claims, _ := ParseClaims(snap.Tokens.AccessToken)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = snap.Tokens
	s.claims = claims
	s.user = nil
	if snap.User != nil {
		u := *snap.User
		s.user = &u
	}
}
