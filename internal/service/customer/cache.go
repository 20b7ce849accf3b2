// internal/service/customer/cache.go
package customer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"luckylogic-crm/internal/domain/customer"
	"luckylogic-crm/internal/kvstore"

	"go.uber.org/zap"
)

// ListCache keeps list pages for a short TTL. Every mutation bumps a
// generation counter so older pages are never read again.
type ListCache struct {
	store  kvstore.Store
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewListCache returns a cache over store. A zero ttl disables it.
func NewListCache(store kvstore.Store, ttl time.Duration, logger *zap.Logger) *ListCache {
	return &ListCache{store: store, ttl: ttl, prefix: "customers:list", logger: logger}
}

func (c *ListCache) enabled() bool {
	return c != nil && c.store != nil && c.ttl > 0
}

// PageKey resolves the cache key for one page under the current generation.
// Resolve it before reading the backend so a page loaded across a mutation
// lands under the generation that mutation retired.
func (c *ListCache) PageKey(ctx context.Context, search string, page int) (string, bool) {
	if !c.enabled() {
		return "", false
	}
	key, err := c.key(ctx, search, page)
	if err != nil {
		return "", false
	}
	return key, true
}

// Get returns the page stored under key.
func (c *ListCache) Get(ctx context.Context, key string) (*customer.CustomerListResponse, bool) {
	if !c.enabled() || key == "" {
		return nil, false
	}

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNil) {
			c.logger.Warn("list cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var resp customer.CustomerListResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Put stores a page under a key resolved by PageKey.
func (c *ListCache) Put(ctx context.Context, key string, resp *customer.CustomerListResponse) {
	if !c.enabled() || key == "" {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, string(data), c.ttl); err != nil {
		c.logger.Warn("list cache write failed", zap.Error(err))
	}
}

// Invalidate retires every cached page.
func (c *ListCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if _, err := c.store.Incr(ctx, c.prefix+":gen"); err != nil {
		c.logger.Warn("list cache invalidation failed", zap.Error(err))
	}
}

func (c *ListCache) key(ctx context.Context, search string, page int) (string, error) {
	gen, err := c.store.Get(ctx, c.prefix+":gen")
	if errors.Is(err, kvstore.ErrNil) {
		gen = "0"
	} else if err != nil {
		c.logger.Warn("list cache generation read failed", zap.Error(err))
		return "", err
	}
	return fmt.Sprintf("%s:%s:%d:%s", c.prefix, gen, page, url.QueryEscape(strings.ToLower(search))), nil
}
