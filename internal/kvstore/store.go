// internal/kvstore/store.go
package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNil is returned when a key does not exist.
var ErrNil = errors.New("kvstore: nil")

// Cmd is a raw command, e.g. Cmd{"HINCRBY", "stats:total", "allowed", 1}.
type Cmd []interface{}

// Store is the counter store used by the rate limiter, sessions and caches.
// It is satisfied by a Redis protocol client and by the Upstash REST proxy.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Eval(ctx context.Context, script *Script, keys []string, args ...interface{}) (interface{}, error)
	Pipeline(ctx context.Context, cmds ...Cmd) error
	Ping(ctx context.Context) error
	Close() error
	Backend() string
}

// Script is a Lua script addressed by its SHA1 digest.
type Script struct {
	src string
	rs  *redis.Script
}

// NewScript wraps Lua source. The SHA1 is computed once.
func NewScript(src string) *Script {
	return &Script{src: src, rs: redis.NewScript(src)}
}

// Hash returns the script SHA1 used with EVALSHA.
func (s *Script) Hash() string { return s.rs.Hash() }

// Source returns the Lua text sent on an EVAL fallback.
func (s *Script) Source() string { return s.src }
