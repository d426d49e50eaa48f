package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"

	storageif "github.com/screensound/catalog/internal/infra/storage"
	"github.com/screensound/catalog/internal/util/clock"
)

// Adapter implements storage.ObjectStore on GCS.
// It is only used at startup and shutdown, so a client is created per call.
type Adapter struct {
	// NewClient overrides client construction (defaults to storage.NewClient).
	NewClient func(ctx context.Context) (*storage.Client, error)
}

var _ storageif.ObjectStore = (*Adapter)(nil)

func (a *Adapter) client(ctx context.Context) (*storage.Client, error) {
	if a.NewClient != nil {
		return a.NewClient(ctx)
	}
	return storage.NewClient(ctx)
}

// DownloadIfNeeded fetches object into dest. Creates an empty file if the object does not exist.
func (a *Adapter) DownloadIfNeeded(ctx context.Context, bucket, object, dest string) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			slog.WarnContext(ctx, "catalog db not found on GCS, starting empty", slog.String("object", object))
			f, cErr := os.Create(dest)
			if cErr != nil {
				return cErr
			}
			return f.Close()
		}
		return fmt.Errorf("gcs read %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, rc)
	return err
}

// UploadTwoPhaseWithBackup publishes localPath via a tmp object so readers never see a partial upload.
func (a *Adapter) UploadTwoPhaseWithBackup(ctx context.Context, bucket, currentObject, backupObject, localPath string) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	bkt := client.Bucket(bucket)
	tmp := bkt.Object(currentObject + ".tmp-" + clock.UTCFormatted("20060102-150405"))

	// 1. upload to tmp object
	if err := upload(ctx, tmp, localPath); err != nil {
		return err
	}
	defer func() {
		if err := tmp.Delete(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			slog.WarnContext(ctx, "gcs tmp delete failed", slog.Any("error", err))
		}
	}()

	// 2. copy tmp -> current
	if _, err := bkt.Object(currentObject).CopierFrom(tmp).Run(ctx); err != nil {
		return fmt.Errorf("gcs publish %s: %w", currentObject, err)
	}

	// 3. copy tmp -> backup
	if backupObject != "" {
		if _, err := bkt.Object(backupObject).CopierFrom(tmp).Run(ctx); err != nil {
			return fmt.Errorf("gcs backup %s: %w", backupObject, err)
		}
	}
	return nil
}

func upload(ctx context.Context, obj *storage.ObjectHandle, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	wc := obj.NewWriter(ctx)
	if _, err := io.Copy(wc, f); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}
