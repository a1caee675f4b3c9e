package auth

import (
	"context"
	"time"
)

type ctxKey string

const ContextUserKey ctxKey = "user"

// User is the authenticated principal attached to a request.
type User struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	IsActive    bool     `json:"is_active"`
	IsVerified  bool     `json:"is_verified"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func (u *User) HasPermission(code string) bool {
	for _, p := range u.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every code is in the effective permission set.
func (u *User) HasAllPermissions(codes ...string) bool {
	for _, c := range codes {
		if !u.HasPermission(c) {
			return false
		}
	}
	return true
}

func (u *User) MissingPermissions(codes ...string) []string {
	var missing []string
	for _, c := range codes {
		if !u.HasPermission(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

func (u *User) HasAnyRole(names ...string) bool {
	for _, n := range names {
		if u.HasRole(n) {
			return true
		}
	}
	return false
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok && u != nil
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

// Credentials is what login needs from the user store.
type Credentials struct {
	UserID       string
	Email        string
	PasswordHash string
	IsActive     bool
}

type RepositoryAPI interface {
	// GetCredentialsByEmail returns nil, nil when no live user has the email.
	GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	// GetUserByID returns nil, nil when no live user has the id.
	GetUserByID(ctx context.Context, userID string) (*User, error)
	// GetGrants returns role names and the union of role and direct permission codes.
	GetGrants(ctx context.Context, userID string) (roles []string, permissions []string, err error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}
