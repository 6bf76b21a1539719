package domain

import (
	"context"
	"time"
)

// Role codes used for authorization of mutating operations.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// SystemActor is recorded as the performer of transitions triggered by the
// service itself, such as a failed payment cancelling its registration.
const SystemActor = "system"

// User represents a registered user.
// swagger:model User
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRole grants a role to a user, optionally until ExpiresAt.
type UserRole struct {
	UserID    string     `json:"user_id"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Active reports whether the grant is in force at now.
func (r UserRole) Active(now time.Time) bool {
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// Principal is the identity carried by a verified token. Roles are the claims
// at issue time; authorization of mutating operations reads RoleRepository.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the token claimed any of the given roles.
func (p Principal) HasRole(want ...string) bool { return HasRole(p.Roles, want...) }

// TokenVerifier verifies a token and returns the principal it was issued for.
type TokenVerifier interface {
	Verify(token string) (Principal, error)
}

// UserRepository defines read access to users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// RoleRepository defines read access to role grants.
type RoleRepository interface {
	// ListActiveByUserID returns the role codes granted to the user that have not expired at now.
	ListActiveByUserID(ctx context.Context, userID string, now time.Time) ([]string, error)
}

// HasRole reports whether roles contains any of want.
func HasRole(roles []string, want ...string) bool {
	for _, r := range roles {
		for _, w := range want {
			if r == w {
				return true
			}
		}
	}
	return false
}
