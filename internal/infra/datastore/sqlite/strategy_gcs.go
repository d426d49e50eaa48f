package sqlite

import (
	"context"
	"os"
	"path/filepath"

	storageif "github.com/screensound/catalog/internal/infra/storage"
	"github.com/screensound/catalog/internal/util/clock"
)

// GCSSnapshotStrategy keeps the SQLite file in sync with an ObjectStore (GCS).
// - startup: download the current object to the local path
// - shutdown: VACUUM INTO snapshot, then two-phase upload plus a dated copy under backups/
type GCSSnapshotStrategy struct {
	ObjectStore storageif.ObjectStore
	Bucket      string
	Object      string // defaults to FileName
}

func (s GCSSnapshotStrategy) object() string {
	if s.Object == "" {
		return FileName
	}
	return s.Object
}

func (s GCSSnapshotStrategy) OnStartup(ctx context.Context, dbPath string) error {
	if s.ObjectStore == nil || s.Bucket == "" {
		return nil
	}
	return s.ObjectStore.DownloadIfNeeded(ctx, s.Bucket, s.object(), dbPath)
}

func (s GCSSnapshotStrategy) OnShutdown(ctx context.Context, dbPath string) error {
	if s.ObjectStore == nil || s.Bucket == "" {
		return nil
	}
	snap := filepath.Join(os.TempDir(), snapshotName())
	if err := SnapshotTo(ctx, dbPath, snap); err != nil {
		return err
	}
	defer os.Remove(snap)
	return s.ObjectStore.UploadTwoPhaseWithBackup(ctx, s.Bucket, s.object(), BackupKey(s.object()), snap)
}

// BackupKey returns backups/yyyy-mm-dd/HHMMSS-<object>.
func BackupKey(object string) string {
	t := clock.Now().UTC()
	return "backups/" + t.Format("2006-01-02") + "/" + t.Format("150405") + "-" + filepath.Base(object)
}
