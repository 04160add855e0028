package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/aero-console/internal/models"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestParseClaims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		claims  jwt.MapClaims
		want    models.Claims
		wantErr bool
	}{
		{
			name:   "sub and organization_id",
			claims: jwt.MapClaims{"sub": "u1", "email": "ops@example.com", "role": "pilot", "organization_id": "org-1", "exp": exp.Unix()},
			want:   models.Claims{UserID: "u1", Username: "ops@example.com", Role: models.RolePilot, OrganizationID: "org-1", Exp: exp.Unix()},
		},
		{
			name:   "legacy user_id and org_id",
			claims: jwt.MapClaims{"user_id": "u2", "username": "ops", "role": "admin", "org_id": "org-2"},
			want:   models.Claims{UserID: "u2", Username: "ops", Role: models.RoleAdmin, OrganizationID: "org-2"},
		},
		{
			name:    "no subject",
			claims:  jwt.MapClaims{"role": "admin"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClaims("Bearer " + signed(t, tt.claims))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}

	_, err := ParseClaims("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)
	_, err = ParseClaims("")
	assert.Equal(t, ErrInvalidToken, err)
}

func TestSession_RoleAndOrganization(t *testing.T) {
	s := NewSession(WithDefaultOrganization("org-default"))
	assert.Empty(t, s.Role())
	assert.Equal(t, "org-default", s.OrganizationID())

	s.Set(models.TokenPair{
		AccessToken:  signed(t, jwt.MapClaims{"sub": "u1", "role": "operator", "organization_id": "org-token"}),
		RefreshToken: "r1",
	})
	assert.Equal(t, models.RoleOperator, s.Role())
	assert.Equal(t, "org-token", s.OrganizationID())

	s.SetUser(models.User{ID: "u1", Role: models.RolePilot, OrganizationID: "org-user"})
	assert.Equal(t, models.RolePilot, s.Role(), "profile role wins over the token")
	assert.Equal(t, "org-user", s.OrganizationID())

	s.Clear()
	assert.Empty(t, s.Role())
	assert.False(t, s.Authenticated())
	_, err := s.Claims()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSession_UnreadableTokenKeepsPair(t *testing.T) {
	s := NewSession()
	s.Set(models.TokenPair{AccessToken: "opaque", RefreshToken: "r"})

	assert.Equal(t, "opaque", s.AccessToken())
	assert.Equal(t, "r", s.RefreshToken())
	assert.Empty(t, s.Role())
	_, err := s.Claims()
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, s.Expired())
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(WithClock(func() time.Time { return now }))
	assert.True(t, s.Expired(), "no token counts as expired")

	s.Set(models.TokenPair{AccessToken: signed(t, jwt.MapClaims{"sub": "u", "exp": now.Add(time.Minute).Unix()})})
	assert.False(t, s.Expired())

	s.Set(models.TokenPair{AccessToken: signed(t, jwt.MapClaims{"sub": "u", "exp": now.Add(-time.Minute).Unix()})})
	assert.True(t, s.Expired())
}

func TestSession_SnapshotRestore(t *testing.T) {
	src := NewSession()
	src.SignIn(models.LoginResponse{
		TokenPair: models.TokenPair{
			AccessToken:  signed(t, jwt.MapClaims{"sub": "u1", "role": "admin"}),
			RefreshToken: "r1",
		},
		User: models.User{ID: "u1", Name: "Ops", Role: models.RoleAdmin},
	})

	var fired int
	dst := NewSession()
	dst.OnChange(func(Snapshot) { fired++ })
	dst.Restore(src.Snapshot())

	assert.Zero(t, fired, "restore does not echo back to persistence")
	assert.Equal(t, src.Snapshot(), dst.Snapshot())
	assert.Equal(t, models.RoleAdmin, dst.Role())
	u, ok := dst.User()
	require.True(t, ok)
	assert.Equal(t, "Ops", u.Name)

	dst.Set(models.TokenPair{AccessToken: "a2", RefreshToken: "r2"})
	assert.Equal(t, 1, fired)
}
