// internal/domain/auth/entity.go
package auth

import (
	"context"
	"time"
)

const RoleAdmin = "admin"

// Identity is an authenticated operator.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Provider string `json:"provider"` // remote or local
}

// Authenticator checks an email and password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	Name() string
}

// Session is what the server remembers about an issued token.
type Session struct {
	JTI        string    `json:"jti"`
	IdentityID string    `json:"identity_id"`
	Email      string    `json:"email"`
	Roles      []string  `json:"roles"`
	Provider   string    `json:"provider"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	LoginAt    time.Time `json:"login_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
