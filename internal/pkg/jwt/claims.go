// internal/pkg/jwt/claims.go
package jwt

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

const PurposeAccess = "access"

// Claims represents the JWT claims. Subject carries the identity ID and ID
// the session id (jti).
type Claims struct {
	Email          string   `json:"email"`
	Roles          []string `json:"roles,omitempty"`
	Provider       string   `json:"provider,omitempty"`
	SessionPurpose string   `json:"session_purpose"`
	jwt.RegisteredClaims
}

func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}
