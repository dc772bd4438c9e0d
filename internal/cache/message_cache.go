package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/messagely/internal/config"
	"github.com/iliyamo/messagely/internal/model"
)

// MessageCache caches message details in Redis as JSON.  A nil
// *MessageCache, or one without a client, behaves as an always-empty cache.
type MessageCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewMessageCache returns nil when caching is disabled or rdb is nil.
func NewMessageCache(cfg config.CacheConfig, rdb *redis.Client) *MessageCache {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &MessageCache{rdb: rdb, ttl: cfg.TTL, prefix: cfg.Prefix}
}

// Key returns the Redis key of message id.
func (c *MessageCache) Key(id uint64) string {
	return c.prefix + ":message:" + strconv.FormatUint(id, 10)
}

// Get returns the cached detail, or ok=false on a miss.
func (c *MessageCache) Get(ctx context.Context, id uint64) (model.MessageDetail, bool, error) {
	if c == nil || c.rdb == nil {
		return model.MessageDetail{}, false, nil
	}
	b, err := c.rdb.Get(ctx, c.Key(id)).Bytes()
	if err == redis.Nil {
		return model.MessageDetail{}, false, nil
	}
	if err != nil {
		return model.MessageDetail{}, false, err
	}
	var d model.MessageDetail
	if err := json.Unmarshal(b, &d); err != nil {
		return model.MessageDetail{}, false, err
	}
	return d, true, nil
}

// Set stores d under its ID.
func (c *MessageCache) Set(ctx context.Context, d model.MessageDetail) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.Key(d.ID), b, c.ttl).Err()
}

// Invalidate drops the cached detail of id (cache invalidation on write).
func (c *MessageCache) Invalidate(ctx context.Context, id uint64) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, c.Key(id)).Err()
}
