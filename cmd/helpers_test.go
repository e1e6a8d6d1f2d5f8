package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrmap/internal/addrindex"
	"github.com/sells-group/addrmap/internal/addrindex/addrindextest"
	"github.com/sells-group/addrmap/internal/config"
	"github.com/sells-group/addrmap/pkg/geocode"
)

// testConfig returns a config over a fresh Springfield fixture with the
// same defaults config.Load applies.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Index:   config.IndexConfig{Path: addrindextest.Springfield().WriteTemp(t)},
		Store:   config.StoreConfig{Driver: "sqlite"},
		Geocode: config.GeocodeConfig{PoolSize: 2, GeohashPrecision: 9},
		Batch:   config.BatchConfig{Concurrency: 2, CacheTTLHours: 1},
		Server: config.ServerConfig{
			Port:            8080,
			RateLimit:       1000,
			RateBurst:       1000,
			CORSOrigins:     []string{"*"},
			CacheEntries:    100,
			CacheTTLMinutes: 5,
			MaxBatch:        10,
		},
	}
}

func testClient(t *testing.T, path string) *geocode.AddrMapClient {
	t.Helper()
	c := geocode.NewAddrMapClient(path, geocode.WithPoolSize(2))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// corruptZip points zip's slot in the zip table into the header.
func corruptZip(t *testing.T, path string, zip int64) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0, 0, 0, 4}, addrindex.HeaderSize+4*zip)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
