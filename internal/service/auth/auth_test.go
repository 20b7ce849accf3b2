package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"luckylogic-crm/internal/domain/auth"
	"luckylogic-crm/internal/kvstore"
	xerrors "luckylogic-crm/internal/pkg/errors"
	"luckylogic-crm/internal/pkg/jwt"
	"luckylogic-crm/internal/pkg/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type fakeRevoker struct{ revoked []string }

func (r *fakeRevoker) DisconnectSession(identityID, sessionID, reason string) {
	r.revoked = append(r.revoked, sessionID)
}

func newService(t *testing.T) *AuthService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := kvstore.NewRedisStoreFromClient(rdb)

	local, err := NewLocalAuthenticator("Admin@Example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("local authenticator: %v", err)
	}
	jm, err := jwt.LoadAndBuild(jwt.Config{Issuer: "crm-api", Audience: "crm-admin", TTL: time.Hour})
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}
	return NewAuthService(local, jm, session.NewManager(store), session.NewRateLimiter(store), zap.NewNop())
}

func TestLogin_ValidateAndLogout(t *testing.T) {
	svc := newService(t)
	revoker := &fakeRevoker{}
	svc.SetRevoker(revoker)
	ctx := context.Background()

	resp, err := svc.Login(ctx, &auth.LoginRequest{Email: "admin@example.com", Password: "s3cret-pass", IPAddress: "1.1.1.1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.User.Role != auth.RoleAdmin {
		t.Fatalf("unexpected response %+v", resp)
	}

	claims, err := svc.ValidateToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Email != "admin@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}

	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, resp.AccessToken); !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
	if len(revoker.revoked) != 1 || revoker.revoked[0] != claims.ID {
		t.Fatalf("expected live connections to be revoked, got %v", revoker.revoked)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newService(t)
	_, err := svc.Login(context.Background(), &auth.LoginRequest{Email: "admin@example.com", Password: "nope", IPAddress: "1.1.1.1"})
	if !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLogin_LocksAfterFiveAttempts(t *testing.T) {
	svc := newService(t)
	req := &auth.LoginRequest{Email: "admin@example.com", Password: "nope", IPAddress: "2.2.2.2"}
	for i := 0; i < 5; i++ {
		_, _ = svc.Login(context.Background(), req)
	}

	req.Password = "s3cret-pass"
	_, err := svc.Login(context.Background(), req)
	if !errors.Is(err, xerrors.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited after five failures, got %v", err)
	}
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	svc := newService(t)
	if _, err := svc.ValidateToken(context.Background(), "not-a-token"); !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
