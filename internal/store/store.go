// Package store persists geocode results between runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Store defines the persistence interface for cached geocode results.
// Values are opaque bytes keyed by address hash.
type Store interface {
	// Geocode cache
	GetCachedGeocode(ctx context.Context, key string) ([]byte, error)
	SetCachedGeocode(ctx context.Context, key string, data []byte, ttl time.Duration) error
	DeleteExpiredGeocodes(ctx context.Context) (int, error)
	CountGeocodes(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open opens the store for driver ("sqlite" or "postgres") and runs its
// migration.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case "sqlite", "":
		st, err = NewSQLite(dsn)
	case "postgres":
		st, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
