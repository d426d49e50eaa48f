package datastore

import (
	"context"
	"fmt"
)

// DataStore is the app-facing handle on the catalog store.
type DataStore interface {
	Ping(ctx context.Context) error
	Close() error
	// SetConnPool applies connection pool limits.
	SetConnPool(maxOpen, maxIdle int)
	// Snapshot publishes a copy of the store through the snapshot strategy.
	// Close takes a final one.
	Snapshot(ctx context.Context) error

	// NewContext opens a persistence context for one request or command.
	// The caller must Close it.
	NewContext(ctx context.Context) (*Context, error)
}

// Config captures DB driver and DSN-like parameters.
type Config struct {
	Driver   string // e.g. "sqlite" (default)
	Source   string // extra hint for path decisions (e.g., "gcs")
	Path     string // explicit database file; overrides Source
	Strategy SnapshotStrategy
	Model    *Model // nil means CatalogModel
}

// Open selects and opens a datastore by driver.
func Open(ctx context.Context, cfg Config) (DataStore, error) {
	if cfg.Model == nil {
		cfg.Model = CatalogModel()
	}
	switch cfg.Driver {
	case "", "sqlite":
		return openSQLite(ctx, cfg)
	default:
		return nil, fmt.Errorf("datastore: unsupported driver %q", cfg.Driver)
	}
}
