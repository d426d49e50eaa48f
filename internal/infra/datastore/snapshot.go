package datastore

import "context"

// SnapshotStrategy holds driver-specific snapshot hooks run when the store opens and closes.
// - SQLite: restore from object storage, then VACUUM INTO + two-phase upload on shutdown
// - other drivers can plug in a no-op implementation
type SnapshotStrategy interface {
	OnStartup(ctx context.Context, dbPath string) error
	OnShutdown(ctx context.Context, dbPath string) error
}

// NoopSnapshotStrategy does nothing.
type NoopSnapshotStrategy struct{}

func (NoopSnapshotStrategy) OnStartup(ctx context.Context, dbPath string) error  { return nil }
func (NoopSnapshotStrategy) OnShutdown(ctx context.Context, dbPath string) error { return nil }
