package geocode

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/addrmap/internal/addrindex"
	"github.com/sells-group/addrmap/internal/geofind"
)

// CascadeClient tries providers in order until one matches, such as a
// regional address map before a national one.
type CascadeClient struct {
	providers        []Provider
	cache            Cache
	batchConcurrency int
}

// CascadeOption configures the CascadeClient.
type CascadeOption func(*CascadeClient)

// WithCache enables result caching, including cached non-matches.
func WithCache(cache Cache) CascadeOption {
	return func(c *CascadeClient) {
		c.cache = cache
	}
}

// WithBatchConcurrency sets the max parallel calls for BatchGeocode.
func WithBatchConcurrency(n int) CascadeOption {
	return func(c *CascadeClient) {
		if n > 0 {
			c.batchConcurrency = n
		}
	}
}

// NewCascadeClient creates a CascadeClient that tries providers in order.
func NewCascadeClient(providers []Provider, opts ...CascadeOption) *CascadeClient {
	c := &CascadeClient{
		providers:        providers,
		batchConcurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode implements Client by trying each provider in order. Provider
// errors move on to the next provider; the last error is returned only when
// no provider produced an answer.
func (c *CascadeClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	key := cacheKey(addr)

	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, key); ok {
			cached.ID = addr.ID
			return cached, nil
		}
	}

	var lastResult *Result
	var lastErr error
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := p.Geocode(ctx, addr)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			zap.L().Debug("cascade: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if result != nil && result.Matched {
			if c.cache != nil {
				c.cache.Set(ctx, key, result)
			}
			return result, nil
		}
		if result != nil {
			lastResult = result
		}
	}

	if lastResult == nil && lastErr != nil {
		return nil, lastErr
	}

	// All providers missed. Cache the negative result.
	noMatch := &Result{ID: addr.ID, Input: formatOneLine(addr), Matched: false, Source: "cascade"}
	if lastResult != nil {
		noMatch.Source = lastResult.Source
	}
	if c.cache != nil && lastErr == nil {
		c.cache.Set(ctx, key, noMatch)
	}
	return noMatch, nil
}

// BatchGeocode implements Client by geocoding addresses in parallel. Results
// are in input order. A failed address yields an unmatched result with Error
// set; the batch itself fails only when ctx ends.
func (c *CascadeClient) BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	for i := range addrs {
		if addrs[i].ID == "" {
			addrs[i].ID = strconv.Itoa(i)
		}
	}

	results := make([]Result, len(addrs))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.batchConcurrency)

	for i, addr := range addrs {
		eg.Go(func() error {
			r, gcErr := c.Geocode(gCtx, addr)
			if gcErr == nil && r != nil {
				results[i] = *r
				return nil
			}
			results[i] = Result{ID: addr.ID, Input: formatOneLine(addr), Matched: false, Source: "cascade"}
			if gcErr == nil || gCtx.Err() != nil {
				return nil
			}
			results[i].Error = gcErr.Error()
			zap.L().Error("cascade: geocode failed",
				zap.String("id", addr.ID),
				zap.Bool("corrupt", addrindex.IsCorrupt(gcErr)),
				zap.Bool("alias_loop", errors.Is(gcErr, geofind.ErrAliasLoop)),
				zap.Error(gcErr),
			)
			return nil //nolint:nilerr // individual geocode failures don't fail the batch
		})
	}

	_ = eg.Wait()
	return results, ctx.Err()
}
