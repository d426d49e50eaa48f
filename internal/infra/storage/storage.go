package storage

import "context"

// ObjectStore abstracts the minimal object-storage API used for catalog DB snapshots.
type ObjectStore interface {
	// DownloadIfNeeded copies object to dest. A missing object leaves an empty dest file.
	DownloadIfNeeded(ctx context.Context, bucket, object, dest string) error
	// UploadTwoPhaseWithBackup uploads localPath to a tmp object, copies it to
	// currentObject and backupObject, then removes the tmp object.
	UploadTwoPhaseWithBackup(ctx context.Context, bucket, currentObject, backupObject, localPath string) error
}
