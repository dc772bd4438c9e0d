package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/messagely/internal/config"
	"github.com/iliyamo/messagely/internal/model"
)

func TestNewMessageCache_DisabledReturnsNil(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()

	assert.Nil(t, NewMessageCache(config.CacheConfig{Enabled: false}, rdb))
	assert.Nil(t, NewMessageCache(config.CacheConfig{Enabled: true}, nil))
}

func TestMessageCache_NilIsEmpty(t *testing.T) {
	var c *MessageCache
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, c.Set(ctx, model.MessageDetail{ID: 1}))
	require.NoError(t, c.Invalidate(ctx, 1))
}

func TestMessageCache_Key(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()

	c := NewMessageCache(config.CacheConfig{Enabled: true, TTL: time.Second, Prefix: "cache"}, rdb)
	require.NotNil(t, c)
	assert.Equal(t, "cache:message:42", c.Key(42))
}

func newRedisCache(t *testing.T, ttl time.Duration) (*MessageCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := NewMessageCache(config.CacheConfig{Enabled: true, TTL: ttl, Prefix: "cache"}, rdb)
	require.NotNil(t, c)
	return c, mr
}

func TestMessageCache_MissThenRoundTrip(t *testing.T) {
	c, mr := newRedisCache(t, 30*time.Second)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok, "empty redis must be a miss")

	sent := time.Date(2025, 3, 1, 10, 0, 0, 123456000, time.UTC)
	read := sent.Add(time.Minute)
	in := model.MessageDetail{
		ID:       7,
		Body:     "hi",
		SentAt:   sent,
		ReadAt:   &read,
		FromUser: model.UserRef{Username: "alice", FirstName: "A", LastName: "L", Phone: "1"},
		ToUser:   model.UserRef{Username: "bob", FirstName: "B", LastName: "L", Phone: "2"},
	}
	require.NoError(t, c.Set(ctx, in))
	assert.Equal(t, 30*time.Second, mr.TTL(c.Key(7)))

	got, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, sent.Equal(got.SentAt))
	require.NotNil(t, got.ReadAt)
	assert.True(t, read.Equal(*got.ReadAt))
	assert.Equal(t, in.FromUser, got.FromUser)
	assert.Equal(t, in.ToUser, got.ToUser)

	unread := in
	unread.ID = 8
	unread.ReadAt = nil
	require.NoError(t, c.Set(ctx, unread))
	got, ok, err = c.Get(ctx, 8)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, got.ReadAt)
}

func TestMessageCache_InvalidateAndExpiry(t *testing.T) {
	c, mr := newRedisCache(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, model.MessageDetail{ID: 1, Body: "a"}))
	require.NoError(t, c.Invalidate(ctx, 1))
	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, model.MessageDetail{ID: 2, Body: "b"}))
	mr.FastForward(31 * time.Second)
	_, ok, err = c.Get(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire after the TTL")
}

func TestMessageCache_CorruptEntryIsError(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	require.NoError(t, mr.Set(c.Key(3), "{not json"))

	_, ok, err := c.Get(context.Background(), 3)
	assert.Error(t, err)
	assert.False(t, ok)
}
