package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestCache(t *testing.T) *Cache {
	mr := miniredis.RunT(t)
	return New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

// TestCache_SetGetRoundtrip tests storing and reading a structured value
func TestCache_SetGetRoundtrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Version int64  `json:"version"`
		Content string `json:"content"`
	}

	c.Set(ctx, "hist:doc-1:v:3", payload{Version: 3, Content: "Hello"}, time.Hour)

	var got payload
	found, err := c.Get(ctx, "hist:doc-1:v:3", &got)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(3), got.Version)
	assert.Equal(t, "Hello", got.Content)
}

// TestCache_Miss tests reads for keys that were never set
func TestCache_Miss(t *testing.T) {
	c := newTestCache(t)

	var got map[string]any
	found, err := c.Get(context.Background(), "hist:doc-1:v:99", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

// TestCache_DisabledIsNoop tests running without redis configured
func TestCache_DisabledIsNoop(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	c.Set(ctx, "key", "value", time.Hour)

	var got string
	found, err := c.Get(ctx, "key", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}
