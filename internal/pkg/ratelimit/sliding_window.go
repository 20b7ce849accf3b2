// internal/pkg/ratelimit/sliding_window.go
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"luckylogic-crm/internal/kvstore"

	"github.com/oklog/ulid/v2"
)

// slidingLog keeps one sorted-set member per admitted request, scored by its
// arrival time in milliseconds. Rejected requests are not recorded.
var slidingLog = kvstore.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, window)
  count = count + 1
  allowed = 1
end

local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end

local remaining = limit - count
if remaining < 0 then
  remaining = 0
end
return {allowed, remaining, reset}
`)

// Result is the outcome of one limiter decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// RetryAfter is the whole number of seconds until a slot frees up, never
// less than one.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(r.Reset.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// SlidingWindow admits at most Limit requests per identifier in any rolling
// Window.
type SlidingWindow struct {
	store  kvstore.Store
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

type Option func(*SlidingWindow)

// WithPrefix sets the key prefix. The default produces keys like ratelimit_1.2.3.4.
func WithPrefix(prefix string) Option {
	return func(l *SlidingWindow) { l.prefix = prefix }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindow) { l.now = now }
}

// NewSlidingWindow admits limit requests per identifier in any window.
func NewSlidingWindow(store kvstore.Store, limit int, window time.Duration, opts ...Option) *SlidingWindow {
	l := &SlidingWindow{
		store:  store,
		limit:  limit,
		window: window,
		prefix: "ratelimit_",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the sorted-set key for identifier.
func (l *SlidingWindow) Key(identifier string) string {
	return l.prefix + identifier
}

func (l *SlidingWindow) Limit() int { return l.limit }

func (l *SlidingWindow) Window() time.Duration { return l.window }

// Now returns the limiter's clock reading.
func (l *SlidingWindow) Now() time.Time { return l.now() }

// Allow records the request if it fits in the window.
func (l *SlidingWindow) Allow(ctx context.Context, identifier string) (Result, error) {
	now := l.now()
	nowMs := now.UnixMilli()

	raw, err := l.store.Eval(ctx, slidingLog, []string{l.Key(identifier)},
		nowMs, l.window.Milliseconds(), l.limit, ulid.Make().String())
	if err != nil {
		return Result{}, fmt.Errorf("sliding window eval failed: %w", err)
	}

	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 3 {
		return Result{}, fmt.Errorf("unexpected sliding window reply: %#v", raw)
	}

	allowed, err := asInt64(vals[0])
	if err != nil {
		return Result{}, err
	}
	remaining, err := asInt64(vals[1])
	if err != nil {
		return Result{}, err
	}
	resetMs, err := asInt64(vals[2])
	if err != nil {
		return Result{}, err
	}

	return Result{
		Allowed:   allowed == 1,
		Limit:     l.limit,
		Remaining: int(remaining),
		Reset:     time.UnixMilli(resetMs),
	}, nil
}

func asInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	default:
		return 0, fmt.Errorf("unexpected sliding window value %T", v)
	}
}
