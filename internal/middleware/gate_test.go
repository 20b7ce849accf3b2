package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"luckylogic-crm/internal/kvstore"
	"luckylogic-crm/internal/pkg/ratelimit"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("dial tcp: connection refused")
}

func (brokenLimiter) Now() time.Time { return time.Now() }

type recordingStats struct {
	events []ratelimit.Event
}

func (r *recordingStats) Record(_ context.Context, ev ratelimit.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func newGateRouter(opts GateOptions) *gin.Engine {
	r := gin.New()
	r.Use(Gate(opts))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func newWindow(t *testing.T, now func() time.Time) *ratelimit.SlidingWindow {
	t.Helper()
	mr := miniredis.RunT(t)
	store := kvstore.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })
	return ratelimit.NewSlidingWindow(store, 10, 10*time.Second, ratelimit.WithClock(now))
}

func doGet(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":51000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGate_RejectsEleventhRequest(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	stats := &recordingStats{}
	r := newGateRouter(GateOptions{
		Limiter: newWindow(t, func() time.Time { return now }),
		Stats:   stats,
	})

	for i := 0; i < 10; i++ {
		w := doGet(r, "203.0.113.7")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d, want 200", i+1, w.Code)
		}
		if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
			t.Fatalf("request %d: X-Frame-Options = %q", i+1, got)
		}
		if w.Header().Get("Content-Security-Policy") == "" {
			t.Fatalf("request %d: missing Content-Security-Policy", i+1)
		}
	}

	w := doGet(r, "203.0.113.7")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("11th request: got status %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "10" {
		t.Fatalf("Retry-After = %q, want 10", got)
	}
	if got := w.Body.String(); got != "Too Many Requests" {
		t.Fatalf("body = %q", got)
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("security headers should not be set on a rejection")
	}

	if len(stats.events) != 11 {
		t.Fatalf("recorded %d events, want 11", len(stats.events))
	}
	if stats.events[10].Allowed {
		t.Fatalf("last event should be a rejection")
	}
}

func TestGate_WindowSlides(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := newGateRouter(GateOptions{Limiter: newWindow(t, func() time.Time { return now })})

	for i := 0; i < 10; i++ {
		doGet(r, "198.51.100.2")
		now = now.Add(500 * time.Millisecond)
	}
	if w := doGet(r, "198.51.100.2"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429", w.Code)
	}

	// The first request falls out of the window 10s after it was made.
	now = time.Unix(1_700_000_010, 1_000_000)
	if w := doGet(r, "198.51.100.2"); w.Code != http.StatusOK {
		t.Fatalf("after slide: got %d, want 200", w.Code)
	}
}

func TestGate_ClientsAreIndependent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := newGateRouter(GateOptions{Limiter: newWindow(t, func() time.Time { return now })})

	for i := 0; i < 10; i++ {
		doGet(r, "192.0.2.1")
	}
	if w := doGet(r, "192.0.2.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("first client: got %d, want 429", w.Code)
	}
	if w := doGet(r, "192.0.2.2"); w.Code != http.StatusOK {
		t.Fatalf("second client: got %d, want 200", w.Code)
	}
}

func TestGate_FailOpen(t *testing.T) {
	r := newGateRouter(GateOptions{Limiter: brokenLimiter{}, FailMode: FailOpen})

	w := doGet(r, "192.0.2.9")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing when failing open")
	}
}

func TestGate_FailClosed(t *testing.T) {
	r := newGateRouter(GateOptions{Limiter: brokenLimiter{}, FailMode: FailClosed})

	if w := doGet(r, "192.0.2.9"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", w.Code)
	}
}
