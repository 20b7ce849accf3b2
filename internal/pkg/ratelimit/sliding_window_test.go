package ratelimit

import (
	"context"
	"testing"
	"time"

	"luckylogic-crm/internal/kvstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newStore(t *testing.T) (kvstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return kvstore.NewRedisStoreFromClient(rdb), mr
}

func TestSlidingWindow_AdmitsTenThenRejects(t *testing.T) {
	store, _ := newStore(t)
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	l := NewSlidingWindow(store, 10, 10*time.Second, WithClock(clock.Now))
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be admitted", i)
		}
		if res.Remaining != 10-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i, 10-i, res.Remaining)
		}
		clock.Advance(100 * time.Millisecond)
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("allow 11: %v", err)
	}
	if res.Allowed {
		t.Fatalf("11th request should be rejected")
	}
	// oldest entry at t0, now is t0+1s, so the slot frees in 9s
	if got := res.RetryAfter(clock.Now()); got != 9 {
		t.Fatalf("expected Retry-After 9, got %d", got)
	}
}

func TestSlidingWindow_KeysAreIndependent(t *testing.T) {
	store, mr := newStore(t)
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	l := NewSlidingWindow(store, 1, 10*time.Second, WithClock(clock.Now))
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "10.0.0.1"); !res.Allowed {
		t.Fatalf("first key should be admitted")
	}
	if res, _ := l.Allow(ctx, "10.0.0.2"); !res.Allowed {
		t.Fatalf("second key should be admitted")
	}
	if !mr.Exists("ratelimit_10.0.0.1") {
		t.Fatalf("expected key ratelimit_10.0.0.1 to exist")
	}
}

func TestSlidingWindow_RejectedRequestsAreNotRecorded(t *testing.T) {
	store, _ := newStore(t)
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	l := NewSlidingWindow(store, 2, 10*time.Second, WithClock(clock.Now))
	ctx := context.Background()

	l.Allow(ctx, "ip")
	l.Allow(ctx, "ip")

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		if res, _ := l.Allow(ctx, "ip"); res.Allowed {
			t.Fatalf("request under pressure should be rejected")
		}
	}

	// the window opened at t0 and closes at t0+10s regardless of the rejections
	clock.Advance(5*time.Second + time.Millisecond)
	res, err := l.Allow(ctx, "ip")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("slot should have freed after the window elapsed")
	}
}

func TestResult_RetryAfterMinimumOne(t *testing.T) {
	now := time.Now()
	r := Result{Reset: now.Add(-time.Second)}
	if got := r.RetryAfter(now); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	r = Result{Reset: now.Add(1500 * time.Millisecond)}
	if got := r.RetryAfter(now); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestStats_Record(t *testing.T) {
	store, mr := newStore(t)
	s := NewStats(store, "ratelimit:stats", time.Hour)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := s.Record(context.Background(), Event{Allowed: true, Method: "GET", Path: "/api/v1/customers", At: at}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(context.Background(), Event{Allowed: false, Method: "GET", Path: "/api/v1/customers", At: at}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if got := mr.HGet("ratelimit:stats:total", "allowed"); got != "1" {
		t.Fatalf("expected allowed=1, got %q", got)
	}
	if got := mr.HGet("ratelimit:stats:minute:202501020304", "denied"); got != "1" {
		t.Fatalf("expected denied=1 in minute bucket, got %q", got)
	}
	if got := mr.HGet("ratelimit:stats:route", "GET /api/v1/customers:allowed"); got != "1" {
		t.Fatalf("expected route counter, got %q", got)
	}
}
