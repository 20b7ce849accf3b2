// internal/repository/supabase/auth_client.go
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"luckylogic-crm/internal/domain/auth"
	xerrors "luckylogic-crm/internal/pkg/errors"
)

// PasswordAuthenticator signs operators in against the hosted auth service.
type PasswordAuthenticator struct {
	client *Client
}

// NewPasswordAuthenticator signs admins in with the GoTrue password grant.
func NewPasswordAuthenticator(client *Client) *PasswordAuthenticator {
	return &PasswordAuthenticator{client: client}
}

var _ auth.Authenticator = (*PasswordAuthenticator)(nil)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

func (a *PasswordAuthenticator) Name() string { return "remote" }

// Authenticate exchanges email and password for the remote identity.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (*auth.Identity, error) {
	var tok tokenResponse
	_, err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body: map[string]string{
			"email":    email,
			"password": password,
		},
	}, &tok)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && (e.Status == http.StatusBadRequest || e.Status == http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %s", xerrors.ErrUnauthorized, e.Message)
		}
		return nil, err
	}

	if tok.User.ID == "" {
		return nil, fmt.Errorf("auth service returned no user")
	}

	return &auth.Identity{
		ID:       tok.User.ID,
		Email:    tok.User.Email,
		Role:     auth.RoleAdmin,
		Provider: a.Name(),
	}, nil
}
