// internal/service/auth/local.go
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"luckylogic-crm/internal/domain/auth"
	xerrors "luckylogic-crm/internal/pkg/errors"

	"golang.org/x/crypto/bcrypt"
)

// LocalAuthenticator checks credentials against a single bootstrap admin
// configured through the environment. The password is hashed at startup and
// the plaintext is not kept.
type LocalAuthenticator struct {
	id    string
	email string
	hash  []byte
}

// NewLocalAuthenticator hashes the configured admin password with bcrypt.
func NewLocalAuthenticator(email, password string) (*LocalAuthenticator, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("admin email and password must be provided via environment variables")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	sum := sha256.Sum256([]byte(email))
	return &LocalAuthenticator{
		id:    "local-" + hex.EncodeToString(sum[:8]),
		email: email,
		hash:  hash,
	}, nil
}

func (a *LocalAuthenticator) Name() string { return "local" }

// Authenticate checks the credentials against the configured admin.
func (a *LocalAuthenticator) Authenticate(ctx context.Context, email, password string) (*auth.Identity, error) {
	emailOK := strings.ToLower(strings.TrimSpace(email)) == a.email
	// Run the comparison even for an unknown email.
	pwErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !emailOK || pwErr != nil {
		return nil, xerrors.ErrUnauthorized
	}

	return &auth.Identity{
		ID:       a.id,
		Email:    a.email,
		Role:     auth.RoleAdmin,
		Provider: a.Name(),
	}, nil
}
