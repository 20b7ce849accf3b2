package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"luckylogic-crm/internal/domain/auth"
	"luckylogic-crm/internal/kvstore"
	xerrors "luckylogic-crm/internal/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStore(t *testing.T) kvstore.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return kvstore.NewRedisStoreFromClient(rdb)
}

func TestManager_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newStore(t))

	s := &auth.Session{
		JTI:        "jti-1",
		IdentityID: "u-1",
		Email:      "admin@example.com",
		Roles:      []string{"admin"},
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	if err := m.CreateSession(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := m.GetSession(ctx, "u-1", "jti-1")
	if err != nil || got.Email != "admin@example.com" {
		t.Fatalf("expected session, got %+v (%v)", got, err)
	}

	if err := m.DeleteSession(ctx, "u-1", "jti-1", s.ExpiresAt); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.GetSession(ctx, "u-1", "jti-1"); !errors.Is(err, xerrors.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	blacklisted, err := m.IsTokenBlacklisted(ctx, "jti-1")
	if err != nil || !blacklisted {
		t.Fatalf("expected token to be blacklisted, got %v (%v)", blacklisted, err)
	}
}

func TestManager_RejectsExpiredSession(t *testing.T) {
	m := NewManager(newStore(t))
	err := m.CreateSession(context.Background(), &auth.Session{JTI: "x", IdentityID: "u", ExpiresAt: time.Now().Add(-time.Second)})
	if err == nil {
		t.Fatalf("expected error for expired session")
	}
}

func TestRateLimiter_FiveAttempts(t *testing.T) {
	ctx := context.Background()
	r := NewRateLimiter(newStore(t))

	for i := 1; i <= 5; i++ {
		ok, remaining, err := r.CheckLoginAttempt(ctx, "1.2.3.4", "a@b.c")
		if err != nil || !ok {
			t.Fatalf("attempt %d should be allowed (%v)", i, err)
		}
		if remaining != int64(5-i) {
			t.Fatalf("attempt %d: expected %d remaining, got %d", i, 5-i, remaining)
		}
	}
	ok, _, _ := r.CheckLoginAttempt(ctx, "1.2.3.4", "a@b.c")
	if ok {
		t.Fatalf("sixth attempt should be blocked")
	}

	if err := r.ResetLoginAttempts(ctx, "1.2.3.4", "a@b.c"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	left, err := r.GetRemainingAttempts(ctx, "1.2.3.4", "a@b.c")
	if err != nil || left != 5 {
		t.Fatalf("expected 5 remaining after reset, got %d (%v)", left, err)
	}
}
