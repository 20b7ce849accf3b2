// internal/pkg/ratelimit/stats.go
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"luckylogic-crm/internal/kvstore"
)

// Event is one gate decision.
type Event struct {
	Identifier string
	Allowed    bool
	Method     string
	Path       string
	At         time.Time
}

// StatsRecorder is best-effort: callers log errors and move on.
type StatsRecorder interface {
	Record(ctx context.Context, ev Event) error
}

// Stats writes decision counters as hashes: a cumulative total, a per-minute
// bucket that expires after ttl, and per-route fields.
type Stats struct {
	store  kvstore.Store
	prefix string
	ttl    time.Duration
}

func NewStats(store kvstore.Store, prefix string, ttl time.Duration) *Stats {
	if prefix == "" {
		prefix = "ratelimit:stats"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Stats{store: store, prefix: strings.Trim(prefix, ":"), ttl: ttl}
}

// Record counts one gate decision in the totals and its minute bucket.
func (s *Stats) Record(ctx context.Context, ev Event) error {
	if s == nil || s.store == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	cmds := []kvstore.Cmd{
		{"HINCRBY", s.prefix + ":total", field, 1},
		{"HINCRBY", bucketKey, field, 1},
		{"EXPIRE", bucketKey, int64(s.ttl.Seconds())},
	}

	route := strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path))
	if route != "" {
		cmds = append(cmds, kvstore.Cmd{"HINCRBY", s.prefix + ":route", route + ":" + field, 1})
	}

	return s.store.Pipeline(ctx, cmds...)
}
