package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the claim set carried by a session token. The permission keys
// are a snapshot taken at login; the liveness flags are re-checked against the
// store by the guard and must never be trusted on their own.
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Role() string
	PermissionKeys() []string
	HasPermission(key string) bool
	Active() bool
	Verified() bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID         string   `json:"uid,omitempty"`
	UserEmail   string   `json:"email,omitempty"`
	RoleKey     string   `json:"role,omitempty"`
	Permissions []string `json:"perms,omitempty"`
	IsActive    bool     `json:"active"`
	IsVerified  bool     `json:"verified"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the email claim
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// Role returns the role key
func (c *JWTClaims) Role() string {
	return c.RoleKey
}

// PermissionKeys returns the permission snapshot embedded at signing time
func (c *JWTClaims) PermissionKeys() []string {
	return c.Permissions
}

// HasPermission checks the embedded permission snapshot for a key
func (c *JWTClaims) HasPermission(key string) bool {
	for _, p := range c.Permissions {
		if p == key {
			return true
		}
	}
	return false
}

// Active returns the is_active flag as of signing time
func (c *JWTClaims) Active() bool {
	return c.IsActive
}

// Verified returns the is_verified flag as of signing time
func (c *JWTClaims) Verified() bool {
	return c.IsVerified
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
