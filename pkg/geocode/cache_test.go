package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_Deterministic(t *testing.T) {
	addr := AddressInput{Line: "123 Main St Springfield IL 62701"}

	key1 := cacheKey(addr)
	key2 := cacheKey(addr)
	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 64) // SHA-256 hex is 64 chars
}

func TestCacheKey_Normalized(t *testing.T) {
	a := AddressInput{Line: "123 Main St  Springfield"}
	b := AddressInput{Line: "123 MAIN ST springfield "}
	c := AddressInput{Street: "123 Main St", City: "Springfield"}

	assert.Equal(t, cacheKey(a), cacheKey(b))
	assert.Equal(t, cacheKey(a), cacheKey(c))
	assert.NotEqual(t, cacheKey(a), cacheKey(AddressInput{Line: "124 Main St Springfield"}))
}

func TestStoreCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cache := NewStoreCache(store, 24*time.Hour)

	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)

	in := &Result{Input: "123 Main St", Matched: true, Latitude: 39.8, Longitude: -89.65, Street: "MAIN ST", Before: &Corner{Address: 101}}
	cache.Set(ctx, "k", in)
	assert.Equal(t, 24*time.Hour, store.ttls["k"])

	out, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestStoreCache_Errors(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cache := NewStoreCache(store, time.Hour)

	store.data["bad"] = []byte("{not json")
	_, ok := cache.Get(ctx, "bad")
	assert.False(t, ok)

	store.err = errors.New("disk full")
	cache.Set(ctx, "k", &Result{Matched: true})
	_, ok = cache.Get(ctx, "k")
	assert.False(t, ok)
}
