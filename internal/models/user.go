package models

// Role represents user roles in the system
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RolePilot      Role = "pilot"
	RoleOperator   Role = "operator"
	RoleViewer     Role = "viewer"
)

// roleRanks is the fixed total order used for every role comparison.
var roleRanks = map[Role]int{
	RoleSuperAdmin: 5,
	RoleAdmin:      4,
	RolePilot:      3,
	RoleOperator:   2,
	RoleViewer:     1,
}

// Rank returns the hierarchy rank of a role. Unknown roles rank 0.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r ranks at or above required.
func (r Role) AtLeast(required Role) bool {
	return r.Rank() >= required.Rank()
}

// User represents the signed-in operator as returned by the auth API
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
	Organization   string `json:"organization,omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is the access/refresh pair issued by login and refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	TokenPair
	User User `json:"user"`
}

// Claims represents the JWT claims the console reads from an access token
type Claims struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"organization_id"`
	Exp            int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	_, ok := roleRanks[role]
	return ok
}
