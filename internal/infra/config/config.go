package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// AppConfig is read from the environment and handed to the whole app.
type AppConfig struct {
	Port            string // HTTP port (8080 when unset)
	LogProvider     string // gcp | text
	LogLevel        string // -4 | 0 | 4 | 8 or debug/info/warn/error
	MaintenanceMode string // on | off

	DBDriver     string // sqlite
	SqliteSource string // local | gcs
	SqlitePath   string // explicit database file, wins over SqliteSource

	StorageProvider string // gcs | local | dir | none
	SqliteBucket    string // bucket name
	SnapshotDir     string // snapshot directory (local) or object root (dir)
	SnapshotKeep    string // local snapshots to keep (default 5)

	PeriodicBackup       string // on | off (default off)
	PeriodicBackupMinute string // integer minutes (default 10)
}

// Load reads the given .env files (".env" when none are given) into the
// process environment without overriding variables that are already set,
// then builds the config. Missing files are ignored.
func Load(files ...string) AppConfig {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
	return NewFromEnv()
}

func NewFromEnv() AppConfig {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return AppConfig{
		Port:                 port,
		LogProvider:          os.Getenv("LOG_PROVIDER"),
		LogLevel:             os.Getenv("LOG_LEVEL"),
		MaintenanceMode:      os.Getenv("MAINTENANCE_MODE"),
		DBDriver:             os.Getenv("DB_DRIVER"),
		SqliteSource:         os.Getenv("SQLITE_SOURCE"),
		SqlitePath:           os.Getenv("SQLITE_PATH"),
		StorageProvider:      os.Getenv("STORAGE_PROVIDER"),
		SqliteBucket:         os.Getenv("SQLITE_BUCKET"),
		SnapshotDir:          os.Getenv("SNAPSHOT_DIR"),
		SnapshotKeep:         os.Getenv("SNAPSHOT_KEEP"),
		PeriodicBackup:       os.Getenv("PERIODIC_BACKUP"),
		PeriodicBackupMinute: os.Getenv("PERIODIC_BACKUP_MINUTE"),
	}
}

// MaintenanceEnabled reports whether requests should be answered with 503.
func (c AppConfig) MaintenanceEnabled() bool { return c.MaintenanceMode == "on" }

// SnapshotEnabled reports whether snapshots are synced with GCS.
func (c AppConfig) SnapshotEnabled() bool {
	return c.StorageProvider == "gcs" && c.SqliteBucket != ""
}

// LocalSnapshotEnabled reports whether snapshots are written to a local directory.
func (c AppConfig) LocalSnapshotEnabled() bool {
	return c.StorageProvider == "local" && c.SnapshotDir != ""
}

// SnapshotKeepCount returns how many local snapshots to keep (default 5).
func (c AppConfig) SnapshotKeepCount() int { return positiveOr(c.SnapshotKeep, 5) }

// PeriodicBackupEnabled reports whether periodic backups are on (default off).
func (c AppConfig) PeriodicBackupEnabled() bool { return c.PeriodicBackup == "on" }

// PeriodicBackupIntervalMinutes returns the interval in minutes (10 when unset or invalid).
func (c AppConfig) PeriodicBackupIntervalMinutes() int { return positiveOr(c.PeriodicBackupMinute, 10) }

func positiveOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
