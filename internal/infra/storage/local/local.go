package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	storageif "github.com/screensound/catalog/internal/infra/storage"
)

// Noop implements ObjectStore with no-ops.
type Noop struct{}

func (Noop) DownloadIfNeeded(ctx context.Context, bucket, object, dest string) error { return nil }
func (Noop) UploadTwoPhaseWithBackup(ctx context.Context, bucket, currentObject, backupObject, localPath string) error {
	return nil
}

// Dir implements ObjectStore on the local filesystem: <Root>/<bucket>/<object>.
type Dir struct {
	Root string
}

var (
	_ storageif.ObjectStore = Noop{}
	_ storageif.ObjectStore = Dir{}
)

func (d Dir) path(bucket, object string) string {
	return filepath.Join(d.Root, bucket, filepath.FromSlash(object))
}

func (d Dir) DownloadIfNeeded(ctx context.Context, bucket, object, dest string) error {
	src := d.path(bucket, object)
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		// keep an existing local file; otherwise start from an empty database
		f, cErr := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY, 0644)
		if cErr != nil {
			return cErr
		}
		return f.Close()
	}
	return copyFile(src, dest)
}

func (d Dir) UploadTwoPhaseWithBackup(ctx context.Context, bucket, currentObject, backupObject, localPath string) error {
	tmp := d.path(bucket, currentObject) + ".tmp"
	if err := copyFile(localPath, tmp); err != nil {
		return err
	}
	defer os.Remove(tmp)
	if backupObject != "" {
		if err := copyFile(tmp, d.path(bucket, backupObject)); err != nil {
			return err
		}
	}
	return os.Rename(tmp, d.path(bucket, currentObject))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
