package geocode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrmap/internal/addrindex"
	"github.com/sells-group/addrmap/internal/addrindex/addrindextest"
	"github.com/sells-group/addrmap/internal/geofind"
)

func TestAddrMapClient_Match(t *testing.T) {
	c := springfield(t)

	r, err := c.Geocode(context.Background(), AddressInput{ID: "a1", Line: "123 Main St Springfield IL 62701"})
	require.NoError(t, err)
	require.True(t, r.Matched)

	assert.Equal(t, "a1", r.ID)
	assert.Equal(t, "addrmap", r.Source)
	assert.Equal(t, QualityInterpolated, r.Quality)
	assert.Equal(t, 123, r.HouseNumber)
	assert.Equal(t, "MAIN ST", r.Street)
	assert.Equal(t, "SPRINGFIELD", r.City)
	assert.Equal(t, "IL", r.State)
	assert.Equal(t, 62701, r.ZipCode)
	assert.Equal(t, "L", r.Side)
	assert.InDelta(t, 39.80022, r.Latitude, 1e-9)
	assert.InDelta(t, -89.64978, r.Longitude, 1e-9)
	assert.Equal(t, &Corner{Address: 101, Latitude: 39.8, Longitude: -89.65}, r.Before)
	assert.Equal(t, &Corner{Address: 197, Latitude: 39.801, Longitude: -89.649}, r.After)

	assert.Len(t, r.Geohash, 9)
	assert.Equal(t, "dp04rv", r.Geohash[:6])
	// 0.001 degrees both ways at 39.8N.
	assert.InDelta(t, 140.2, r.SegmentMeters, 0.1)
}

func TestAddrMapClient_StructuredInput(t *testing.T) {
	c := springfield(t, WithName("il"), WithGeohashPrecision(0))

	r, err := c.Geocode(context.Background(), AddressInput{Street: "51 Elm St", City: "Springfield", ZipCode: "62702"})
	require.NoError(t, err)
	require.True(t, r.Matched)

	assert.Equal(t, "il", r.Source)
	assert.Equal(t, QualityControlPoint, r.Quality)
	assert.Empty(t, r.Geohash)
	assert.InDelta(t, 39.8105, r.Latitude, 1e-9)
	assert.InDelta(t, 55.6, r.SegmentMeters, 0.1)
}

func TestAddrMapClient_NoMatch(t *testing.T) {
	c := springfield(t)

	for _, line := range []string{"", "123 Nowhere Rd", "Main St"} {
		r, err := c.Geocode(context.Background(), AddressInput{ID: "x", Line: line})
		require.NoError(t, err, line)
		assert.False(t, r.Matched, line)
		assert.Equal(t, "x", r.ID)
		assert.Equal(t, "addrmap", r.Source)
	}
}

func TestAddrMapClient_MissingFile(t *testing.T) {
	c := NewAddrMapClient(filepath.Join(t.TempDir(), "missing.idx"))
	defer c.Close() //nolint:errcheck

	assert.False(t, c.Available())
	_, err := c.Geocode(context.Background(), AddressInput{Line: "123 Main St"})
	require.Error(t, err)

	// A failed open does not use up a pool slot.
	c.mu.Lock()
	assert.Zero(t, c.opened)
	c.mu.Unlock()
}

func TestAddrMapClient_CanceledContext(t *testing.T) {
	c := springfield(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Geocode(ctx, AddressInput{Line: "123 Main St"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAddrMapClient_PoolBound(t *testing.T) {
	c := springfield(t, WithPoolSize(2))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Geocode(context.Background(), AddressInput{Line: "150 Main St Springfield"})
			assert.NoError(t, err)
			assert.True(t, r.Matched)
		}()
	}
	wg.Wait()

	c.mu.Lock()
	assert.LessOrEqual(t, c.opened, 2)
	c.mu.Unlock()
	assert.LessOrEqual(t, len(c.engines), 2)
}

func TestAddrMapClient_Close(t *testing.T) {
	c := springfield(t)
	_, err := c.Geocode(context.Background(), AddressInput{Line: "123 Main St"})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.False(t, c.Available())
	c.mu.Lock()
	assert.Zero(t, c.opened)
	c.mu.Unlock()

	_, err = c.Geocode(context.Background(), AddressInput{Line: "123 Main St"})
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestAddrMapClient_BatchGeocode(t *testing.T) {
	c := springfield(t, WithPoolSize(3))

	results, err := c.BatchGeocode(context.Background(), []AddressInput{
		{Line: "123 Main St Springfield"},
		{Line: "999 Nowhere"},
		{ID: "elm", Line: "51 Elm St"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "0", results[0].ID)
	assert.True(t, results[0].Matched)
	assert.Equal(t, "1", results[1].ID)
	assert.False(t, results[1].Matched)
	assert.Equal(t, "elm", results[2].ID)
	assert.Equal(t, "ELM ST", results[2].Street)
}

func TestAddrMapClient_BatchGeocodeCorruptIndex(t *testing.T) {
	path := addrindextest.Springfield().WriteTemp(t)

	// Point zip 62701's slot into the header.
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0, 0, 0, 4}, addrindex.HeaderSize+4*62701)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	c := NewAddrMapClient(path)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Geocode(context.Background(), AddressInput{Line: "123 Main St 62701"})
	require.True(t, addrindex.IsCorrupt(err))

	results, err := c.BatchGeocode(context.Background(), []AddressInput{
		{ID: "bad", Line: "123 Main St 62701"},
		{ID: "good", Line: "51 Elm St Springfield 62702"},
		{ID: "miss", Line: "9 Nowhere Rd"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Matched)
	assert.Contains(t, results[0].Error, "corrupt index")
	assert.True(t, results[1].Matched)
	assert.Empty(t, results[1].Error)
	assert.False(t, results[2].Matched)
	assert.Empty(t, results[2].Error)
}

func TestAddrMapClient_WaiterWakesAfterFailedOpen(t *testing.T) {
	errOpen := errors.New("open failed")
	started := make(chan struct{})
	gate := make(chan struct{})
	var calls atomic.Int32

	c := NewAddrMapClient("unused.idx", WithPoolSize(1))
	c.openEngine = func(string) (*geofind.Engine, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-gate
		}
		return nil, errOpen
	}

	first := make(chan error, 1)
	go func() {
		_, _, err := c.Find(context.Background(), "1 Main St")
		first <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	second := make(chan error, 1)
	go func() {
		_, _, err := c.Find(ctx, "1 Main St")
		second <- err
	}()

	// Give the second caller time to block on the full pool.
	time.Sleep(20 * time.Millisecond)
	close(gate)

	assert.ErrorIs(t, <-first, errOpen)
	err := <-second
	assert.ErrorIs(t, err, errOpen)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), calls.Load())
}
