package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/screensound/catalog/internal/util/clock"
)

const snapshotPrefix = "catalog-snapshot-"

func snapshotName() string {
	return snapshotPrefix + clock.UTCFormatted("20060102-150405") + ".sqlite"
}

// LocalSnapshotStrategy writes a snapshot into OutputDir on shutdown and keeps
// at most Keep of them (0 keeps all).
type LocalSnapshotStrategy struct {
	OutputDir string
	Keep      int
}

func (LocalSnapshotStrategy) OnStartup(ctx context.Context, dbPath string) error { return nil }

func (s LocalSnapshotStrategy) OnShutdown(ctx context.Context, dbPath string) error {
	dir := s.OutputDir
	if dir == "" {
		dir = filepath.Join("./tmp", "backups")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := SnapshotTo(ctx, dbPath, filepath.Join(dir, snapshotName())); err != nil {
		return err
	}
	return s.prune(dir)
}

func (s LocalSnapshotStrategy) prune(dir string) error {
	if s.Keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var snaps []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), snapshotPrefix) {
			snaps = append(snaps, e.Name())
		}
	}
	// names embed a sortable UTC timestamp
	sort.Strings(snaps)
	for len(snaps) > s.Keep {
		if err := os.Remove(filepath.Join(dir, snaps[0])); err != nil {
			return err
		}
		snaps = snaps[1:]
	}
	return nil
}
