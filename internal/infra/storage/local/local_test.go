package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirUploadPublishesCurrentAndBackup(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	src := filepath.Join(t.TempDir(), "snap.sqlite")
	require.NoError(t, os.WriteFile(src, []byte("v1"), 0644))

	d := Dir{Root: root}
	require.NoError(t, d.UploadTwoPhaseWithBackup(ctx, "bucket", "catalog.sqlite", "backups/2026-01-02/030405-catalog.sqlite", src))

	cur, err := os.ReadFile(filepath.Join(root, "bucket", "catalog.sqlite"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(cur))
	bak, err := os.ReadFile(filepath.Join(root, "bucket", "backups", "2026-01-02", "030405-catalog.sqlite"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(bak))
	assert.NoFileExists(t, filepath.Join(root, "bucket", "catalog.sqlite.tmp"))
}

func TestDirDownload(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d := Dir{Root: root}

	t.Run("missing object creates empty file", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "catalog.sqlite")
		require.NoError(t, d.DownloadIfNeeded(ctx, "bucket", "catalog.sqlite", dest))
		info, err := os.Stat(dest)
		require.NoError(t, err)
		assert.Zero(t, info.Size())
	})

	t.Run("missing object keeps local file", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "catalog.sqlite")
		require.NoError(t, os.WriteFile(dest, []byte("local"), 0644))
		require.NoError(t, d.DownloadIfNeeded(ctx, "bucket", "catalog.sqlite", dest))
		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "local", string(got))
	})

	t.Run("existing object is copied", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "bucket"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "bucket", "catalog.sqlite"), []byte("remote"), 0644))
		dest := filepath.Join(t.TempDir(), "catalog.sqlite")
		require.NoError(t, d.DownloadIfNeeded(ctx, "bucket", "catalog.sqlite", dest))
		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "remote", string(got))
	})
}

func TestNoopDoesNothing(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "catalog.sqlite")
	require.NoError(t, Noop{}.DownloadIfNeeded(context.Background(), "b", "o", dest))
	assert.NoFileExists(t, dest)
	require.NoError(t, Noop{}.UploadTwoPhaseWithBackup(context.Background(), "b", "o", "bk", dest))
}
