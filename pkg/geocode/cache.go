package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Cache stores geocode results by cache key. Implementations must be safe
// for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool)
	Set(ctx context.Context, key string, r *Result)
}

// ResultStore is the persistence a StoreCache needs.
type ResultStore interface {
	GetCachedGeocode(ctx context.Context, key string) ([]byte, error)
	SetCachedGeocode(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// cacheKey returns SHA-256 hex of the normalized address for cache lookup.
func cacheKey(addr AddressInput) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(formatOneLine(addr))), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// StoreCache keeps results in a persistent store as JSON.
type StoreCache struct {
	store ResultStore
	ttl   time.Duration
}

// NewStoreCache returns a Cache backed by store with the given TTL.
func NewStoreCache(store ResultStore, ttl time.Duration) *StoreCache {
	return &StoreCache{store: store, ttl: ttl}
}

// Get implements Cache.
func (c *StoreCache) Get(ctx context.Context, key string) (*Result, bool) {
	data, err := c.store.GetCachedGeocode(ctx, key)
	if err != nil {
		zap.L().Debug("geocode cache: read failed", zap.String("key", keyPrefix(key)), zap.Error(err))
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		zap.L().Debug("geocode cache: bad entry", zap.String("key", keyPrefix(key)), zap.Error(err))
		return nil, false
	}
	zap.L().Debug("geocode cache hit", zap.String("key", keyPrefix(key)), zap.Bool("matched", r.Matched))
	return &r, true
}

// Set implements Cache.
func (c *StoreCache) Set(ctx context.Context, key string, r *Result) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.store.SetCachedGeocode(ctx, key, data, c.ttl); err != nil {
		zap.L().Warn("geocode cache: write failed", zap.String("key", keyPrefix(key)), zap.Error(err))
	}
}

func keyPrefix(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
