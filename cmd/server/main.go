package main

import (
	"cmp"
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	apphttp "github.com/screensound/catalog/internal/app/http"
	"github.com/screensound/catalog/internal/httpx"
	"github.com/screensound/catalog/internal/infra/config"
	"github.com/screensound/catalog/internal/infra/datastore"
	sqlitestrat "github.com/screensound/catalog/internal/infra/datastore/sqlite"
	"github.com/screensound/catalog/internal/infra/platform/logger"
	storageif "github.com/screensound/catalog/internal/infra/storage"
	gcsstore "github.com/screensound/catalog/internal/infra/storage/gcs"
	localstore "github.com/screensound/catalog/internal/infra/storage/local"
)

func main() {
	cfg := config.Load()
	lvl := logger.ParseLevel(cfg.LogLevel)
	slog.SetDefault(logger.New(cfg.LogProvider, lvl))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := datastore.Open(ctx, datastore.Config{
		Driver:   cfg.DBDriver,
		Source:   cfg.SqliteSource,
		Path:     cfg.SqlitePath,
		Strategy: snapshotStrategy(cfg),
	})
	if err != nil {
		log.Fatalf("datastore open error: %v", err)
	}
	// pool: 10 open, 10 idle
	ds.SetConnPool(10, 10)
	defer func() {
		if err := ds.Close(); err != nil {
			slog.Error("datastore close failed", slog.Any("err", err))
		}
	}()

	metrics, err := httpx.NewMetrics(nil)
	if err != nil {
		log.Fatalf("metrics init error: %v", err)
	}

	r := chi.NewRouter()
	r.Use(httpx.RequestIDMiddleware)
	r.Use(httpx.LoggingMiddleware)
	r.Use(httpx.RecoverMiddleware)
	r.Use(httpx.MaintenanceMiddleware(cfg.MaintenanceEnabled))
	r.Use(metrics.Middleware)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	apphttp.Register(r, ds)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           http.TimeoutHandler(r, 5*time.Second, "timeout"),
		ReadHeaderTimeout: 500 * time.Millisecond,
		ReadTimeout:       time.Second,
		IdleTimeout:       30 * time.Second,
	}

	if cfg.PeriodicBackupEnabled() {
		go periodicBackup(ctx, ds, time.Duration(cfg.PeriodicBackupIntervalMinutes())*time.Minute)
	}

	go func() {
		slog.Info("server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
		slog.Info("server stopped accepting new conns")
	}()

	<-ctx.Done()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		slog.Error("shutdown error", slog.Any("err", err))
		return
	}
	slog.Info("graceful shutdown complete")
}

// snapshotStrategy picks where snapshots go (SQLite only).
func snapshotStrategy(cfg config.AppConfig) datastore.SnapshotStrategy {
	if cfg.DBDriver != "" && cfg.DBDriver != "sqlite" {
		return datastore.NoopSnapshotStrategy{}
	}
	switch {
	case cfg.SnapshotEnabled():
		var objStore storageif.ObjectStore = &gcsstore.Adapter{}
		return sqlitestrat.GCSSnapshotStrategy{ObjectStore: objStore, Bucket: cfg.SqliteBucket}
	case cfg.LocalSnapshotEnabled():
		return sqlitestrat.LocalSnapshotStrategy{OutputDir: cfg.SnapshotDir, Keep: cfg.SnapshotKeepCount()}
	case cfg.StorageProvider == "dir" && cfg.SqliteBucket != "":
		// GCS layout on the local disk, handy for trying the two-phase upload offline
		return sqlitestrat.GCSSnapshotStrategy{ObjectStore: localstore.Dir{Root: cmp.Or(cfg.SnapshotDir, "./tmp/objects")}, Bucket: cfg.SqliteBucket}
	}
	return datastore.NoopSnapshotStrategy{}
}

func periodicBackup(ctx context.Context, ds datastore.DataStore, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := ds.Snapshot(ctx); err != nil {
				slog.Warn("periodic backup failed", slog.Any("err", err))
				continue
			}
			slog.Info("periodic backup done")
		}
	}
}
