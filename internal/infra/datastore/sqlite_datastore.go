package datastore

import (
	"context"
	"database/sql"
	"log/slog"

	sqlitedriver "github.com/screensound/catalog/internal/infra/datastore/sqlite"
)

type sqliteStore struct {
	ctx      context.Context
	db       *sql.DB
	dbPath   string
	strategy SnapshotStrategy
	model    *Model
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return readErr("ping", err)
	}
	return nil
}

func (s *sqliteStore) Snapshot(ctx context.Context) error {
	if s.strategy == nil {
		return nil
	}
	return s.strategy.OnShutdown(ctx, s.dbPath)
}

func (s *sqliteStore) Close() error {
	// the final snapshot is delegated to the strategy
	if err := s.Snapshot(s.ctx); err != nil {
		slog.ErrorContext(s.ctx, "snapshot shutdown failed", slog.Any("error", err))
	}
	return s.db.Close()
}

// SetConnPool applies SQLite pool limits.
// - maxOpen: maximum number of open connections
// - maxIdle: maximum number of idle connections
func (s *sqliteStore) SetConnPool(maxOpen, maxIdle int) {
	if maxOpen > 0 {
		s.db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		s.db.SetMaxIdleConns(maxIdle)
	}
}

func (s *sqliteStore) NewContext(ctx context.Context) (*Context, error) {
	return NewContext(ctx, s.db, s.model)
}

func openSQLite(ctx context.Context, cfg Config) (DataStore, error) {
	dbPath := sqlitedriver.Path(cfg.Source, cfg.Path)
	// startup restore is delegated to the strategy
	if cfg.Strategy != nil {
		if err := cfg.Strategy.OnStartup(ctx, dbPath); err != nil {
			return nil, readErr("snapshot startup", err)
		}
	}
	db, err := sqlitedriver.Open(ctx, dbPath)
	if err != nil {
		return nil, readErr("open "+dbPath, err)
	}
	slog.InfoContext(ctx, "datastore opened", slog.String("driver", "sqlite"), slog.String("path", dbPath))
	return &sqliteStore{
		ctx:      ctx,
		db:       db,
		dbPath:   dbPath,
		strategy: cfg.Strategy,
		model:    cfg.Model,
	}, nil
}
