package geocode

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sells-group/addrmap/internal/addrindex/addrindextest"
)

// mockProvider implements Provider for testing cascade behavior.
type mockProvider struct {
	name      string
	available bool
	result    *Result
	err       error
	calls     atomic.Int32
}

func (m *mockProvider) Name() string    { return m.name }
func (m *mockProvider) Available() bool { return m.available }
func (m *mockProvider) Geocode(_ context.Context, addr AddressInput) (*Result, error) {
	m.calls.Add(1)
	if m.result == nil {
		return nil, m.err
	}
	r := *m.result
	r.ID = addr.ID
	return &r, m.err
}

// memStore implements ResultStore in memory.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (s *memStore) GetCachedGeocode(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.data[key], nil
}

func (s *memStore) SetCachedGeocode(_ context.Context, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = data
	s.ttls[key] = ttl
	return nil
}

// springfield writes the Springfield fixture and returns a client over it.
func springfield(t *testing.T, opts ...Option) *AddrMapClient {
	t.Helper()
	c := NewAddrMapClient(addrindextest.Springfield().WriteTemp(t), opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
