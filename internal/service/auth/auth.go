// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"luckylogic-crm/internal/domain/auth"
	xerrors "luckylogic-crm/internal/pkg/errors"
	"luckylogic-crm/internal/pkg/jwt"
	"luckylogic-crm/internal/pkg/session"

	"go.uber.org/zap"
)

// SessionRevoker closes live connections that belong to a revoked session.
type SessionRevoker interface {
	DisconnectSession(identityID, sessionID, reason string)
}

type AuthService struct {
	authenticator  auth.Authenticator
	jwtManager     *jwt.Manager
	sessionManager *session.Manager
	rateLimiter    *session.RateLimiter
	revoker        SessionRevoker
	logger         *zap.Logger
}

func NewAuthService(
	authenticator auth.Authenticator,
	jwtManager *jwt.Manager,
	sessionManager *session.Manager,
	rateLimiter *session.RateLimiter,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		authenticator:  authenticator,
		jwtManager:     jwtManager,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		logger:         logger,
	}
}

// SetRevoker is called once the realtime hub exists, which itself needs the
// service to validate tokens.
func (s *AuthService) SetRevoker(r SessionRevoker) {
	s.revoker = r
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	allowed, remaining, err := s.rateLimiter.CheckLoginAttempt(ctx, req.IPAddress, email)
	if err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: too many login attempts, please try again in 15 minutes", xerrors.ErrRateLimited)
	}

	identity, err := s.authenticator.Authenticate(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, xerrors.ErrUnauthorized) {
			s.logger.Info("login rejected",
				zap.String("email", email),
				zap.String("ip", req.IPAddress),
				zap.Int64("attempts_remaining", remaining),
			)
			return nil, fmt.Errorf("%w: invalid credentials (attempts remaining: %d)", xerrors.ErrUnauthorized, remaining)
		}
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	if err := s.rateLimiter.ResetLoginAttempts(ctx, req.IPAddress, email); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}

	roles := []string{auth.RoleAdmin}
	tok, err := s.jwtManager.Generator.GenerateAccessToken(identity.ID, identity.Email, identity.Provider, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	sess := &auth.Session{
		JTI:        tok.JTI,
		IdentityID: identity.ID,
		Email:      identity.Email,
		Roles:      roles,
		Provider:   identity.Provider,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		LoginAt:    time.Now(),
		ExpiresAt:  tok.ExpiresAt,
	}
	if err := s.sessionManager.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("admin logged in",
		zap.String("identity_id", identity.ID),
		zap.String("email", identity.Email),
		zap.String("provider", identity.Provider),
	)

	return &auth.LoginResponse{
		AccessToken: tok.Value,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(tok.ExpiresAt).Seconds()),
		ExpiresAt:   tok.ExpiresAt,
		User:        *identity,
	}, nil
}

// Logout ends the session and revokes the token.
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := s.sessionManager.DeleteSession(ctx, claims.Subject, claims.ID, exp); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if s.revoker != nil {
		s.revoker.DisconnectSession(claims.Subject, claims.ID, "logout")
	}

	s.logger.Info("admin logged out", zap.String("identity_id", claims.Subject), zap.String("jti", claims.ID))
	return nil
}

// ValidateToken verifies the signature, the blacklist and the session.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnauthorized, err)
	}

	blacklisted, err := s.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return nil, fmt.Errorf("%w: token has been revoked", xerrors.ErrUnauthorized)
	}

	if _, err := s.sessionManager.GetSession(ctx, claims.Subject, claims.ID); err != nil {
		return nil, fmt.Errorf("session not found or expired: %w", err)
	}

	return claims, nil
}

// GetSession returns the session behind a validated token.
func (s *AuthService) GetSession(ctx context.Context, claims *jwt.Claims) (*auth.Session, error) {
	return s.sessionManager.GetSession(ctx, claims.Subject, claims.ID)
}
