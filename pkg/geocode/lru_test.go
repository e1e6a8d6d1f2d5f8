package geocode

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(10, time.Minute)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Set(ctx, "a", &Result{Input: "a", Matched: true})
	r, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "a", r.Input)

	// Callers get a copy.
	r.Input = "changed"
	r, _ = c.Get(ctx, "a")
	assert.Equal(t, "a", r.Input)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}

func TestLRUCache_Eviction(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(ctx, fmt.Sprint(i), &Result{Input: fmt.Sprint(i)})
	}
	// Touch 0 so 1 becomes the oldest.
	_, ok := c.Get(ctx, "0")
	require.True(t, ok)

	c.Set(ctx, "3", &Result{Input: "3"})

	_, ok = c.Get(ctx, "1")
	assert.False(t, ok)
	for _, k := range []string{"0", "2", "3"} {
		_, ok = c.Get(ctx, k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, 3, c.Stats().Entries)
}

func TestLRUCache_Update(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2, time.Minute)

	c.Set(ctx, "a", &Result{Input: "old"})
	c.Set(ctx, "a", &Result{Input: "new"})
	c.Set(ctx, "nil", nil)

	r, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "new", r.Input)
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestLRUCache_TTL(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(10, 10*time.Millisecond)

	c.Set(ctx, "a", &Result{Input: "a"})
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestLRUCache_Purge(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(10, 0)

	c.Set(ctx, "a", &Result{Input: "a"})
	c.Purge()

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}
