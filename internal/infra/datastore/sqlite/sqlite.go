package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const FileName = "catalog.sqlite"

// Path decides the DB file path.
// - explicit path wins (its directory is created)
// - "gcs": use /tmp for Cloud Run ephemeral FS
// - otherwise: local ./tmp
func Path(source, path string) string {
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			_ = os.MkdirAll(dir, 0755)
		}
		return path
	}
	if source == "gcs" {
		return filepath.Join("/tmp", FileName)
	}
	_ = os.MkdirAll("./tmp", 0755)
	return filepath.Join("./tmp", FileName)
}

// Pragmas applied to every pooled connection:
//
//	journal_mode=WAL: readers do not block the single writer
//	synchronous=NORMAL: durability/throughput balance under WAL
//	busy_timeout: wait on lock contention instead of failing immediately (ms)
//	foreign_keys=ON: songs.artist_id and the join table are enforced by the store
//
// _txlock=immediate takes the write lock at BEGIN so a flush never upgrades mid-transaction.
const busyTimeoutMs = 2000

func dsnWithPragma(path string) string {
	return fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_txlock=immediate", path, busyTimeoutMs)
}

const schema = `
CREATE TABLE IF NOT EXISTS artists (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  bio TEXT NOT NULL DEFAULT '',
  profile_photo TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS songs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  release_year INTEGER,
  artist_id INTEGER NOT NULL REFERENCES artists(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_songs_artist_id ON songs(artist_id);
CREATE TABLE IF NOT EXISTS genres (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS song_genres (
  song_id INTEGER NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
  genre_id INTEGER NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
  PRIMARY KEY (song_id, genre_id)
);
CREATE INDEX IF NOT EXISTS idx_song_genres_genre_id ON song_genres(genre_id);
`

// Open opens the database at path, verifies it is reachable and makes sure the
// catalog tables exist. It does not migrate existing tables.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsnWithPragma(path))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	if err := InitSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// InitSchema creates the catalog tables when they are missing.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SnapshotTo writes a consistent copy of the database with VACUUM INTO.
//
// modernc.org/sqlite does not expose the online backup API, so VACUUM INTO is
// used instead; it blocks writers while it runs.
// - opens a separate connection with busy_timeout so SQLITE_BUSY is not immediate
// - retries a few times with a short backoff on BUSY
// - outPath must be trusted: VACUUM INTO cannot be parameterized
func SnapshotTo(ctx context.Context, dbPath, outPath string) error {
	const (
		maxRetries    = 3
		baseBackoffMs = 200
	)

	db, err := sql.Open("sqlite", dsnWithPragma(dbPath))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			slog.WarnContext(ctx, "snapshot: db close error", slog.Any("error", cerr))
		}
	}()

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		// keep the WAL from growing across snapshots
		_, _ = db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);")
		_, err := db.ExecContext(ctx, fmt.Sprintf(`VACUUM INTO '%s';`, outPath))
		if err == nil {
			slog.InfoContext(ctx, "snapshot: success", slog.Int("attempt", i+1), slog.String("out", outPath))
			return nil
		}
		lastErr = err
		if !IsBusyErr(err) {
			slog.ErrorContext(ctx, "snapshot: failed", slog.Int("attempt", i+1), slog.Any("error", err))
			return err
		}
		backoff := time.Duration(baseBackoffMs*(i+1)) * time.Millisecond
		slog.WarnContext(ctx, "snapshot: busy, retrying", slog.Int("attempt", i+1), slog.Duration("sleep", backoff), slog.Any("error", err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	slog.ErrorContext(ctx, "snapshot: all retries failed", slog.Any("error", lastErr))
	return lastErr
}

// IsBusyErr reports SQLITE_BUSY ("database is locked") errors.
func IsBusyErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "SQLITE_BUSY") || strings.Contains(s, "database is locked")
}

// IsConstraintErr reports constraint violations (foreign key, not null, unique, check).
func IsConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "SQLITE_CONSTRAINT") || strings.Contains(s, "constraint failed")
}
