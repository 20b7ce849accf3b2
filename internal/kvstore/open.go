// internal/kvstore/open.go
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config selects a backend. RedisURL wins when both are set.
type Config struct {
	RedisURL  string
	RESTURL   string
	RESTToken string
	PoolSize  int
}

var ErrNotConfigured = errors.New("counter store is not configured: set REDIS_URL or UPSTASH_REDIS_REST_URL and UPSTASH_REDIS_REST_TOKEN")

// Open builds the configured store and verifies connectivity.
func Open(cfg Config) (Store, error) {
	switch {
	case cfg.RedisURL != "":
		return NewRedisStore(cfg.RedisURL, cfg.PoolSize)
	case cfg.RESTURL != "" && cfg.RESTToken != "":
		s := NewRESTStore(cfg.RESTURL, cfg.RESTToken, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach Upstash: %w", err)
		}
		return s, nil
	default:
		return nil, ErrNotConfigured
	}
}
