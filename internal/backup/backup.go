// Package backup snapshots every collection of a store into a directory of
// JSON files and reads back the manifest describing the snapshot.
//
// Layout: one compact JSON array per collection named <collection>.json,
// records without their identifier field, plus a pretty-printed manifest.
// The manifest is written last; its presence marks the files next to it as
// a complete backup.
package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

const filePerm = 0o644

// DefaultSkipPrefixes names collections that hold derived data and are
// never backed up.
var DefaultSkipPrefixes = []string{"cached"}

// Options configures one backup run.
type Options struct {
	// Dir receives the per-collection files. Created if missing.
	Dir string
	// MetaFile is the manifest file name, relative to Dir unless absolute.
	MetaFile string
	// SkipPrefixes excludes collections whose name starts with any entry.
	SkipPrefixes []string
	// Now stamps the manifest. Defaults to time.Now.
	Now func() time.Time
}

// ManifestPath resolves the manifest location for dir and metaFile.
func ManifestPath(dir, metaFile string) string {
	if filepath.IsAbs(metaFile) {
		return metaFile
	}
	return filepath.Join(dir, metaFile)
}

// Run backs up every non-skipped collection of store and returns the
// manifest it wrote. The statistics are captured before any collection is
// read. A failure aborts the run and leaves already written files in place
// with no new manifest.
func Run(ctx context.Context, store types.Store, opts Options) (types.BackupManifest, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	all, err := store.Stats(ctx)
	if err != nil {
		return types.BackupManifest{}, fmt.Errorf("backup stats: %w", err)
	}
	stats := make([]types.CollectionStats, 0, len(all))
	for _, s := range all {
		if !skippable(s.Name, opts.SkipPrefixes) {
			stats = append(stats, s)
		}
	}
	manifest := types.NewBackupManifest(now(), stats)

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return types.BackupManifest{}, fmt.Errorf("creating backup dir: %w", err)
	}

	names, err := store.CollectionNames(ctx)
	if err != nil {
		return types.BackupManifest{}, fmt.Errorf("backup collections: %w", err)
	}
	for _, name := range names {
		if skippable(name, opts.SkipPrefixes) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return types.BackupManifest{}, err
		}
		if strings.ContainsAny(name, `/\`) {
			return types.BackupManifest{}, fmt.Errorf("backup %q: %w", name, types.ErrInvalidName)
		}

		records, err := store.FindAll(ctx, name)
		if err != nil {
			return types.BackupManifest{}, fmt.Errorf("backup %s: %w", name, err)
		}
		for _, rec := range records {
			if m, ok := rec.(map[string]any); ok {
				delete(m, types.IDField)
			}
		}

		data, err := json.Marshal(records)
		if err != nil {
			return types.BackupManifest{}, fmt.Errorf("encoding %s: %w", name, err)
		}
		if err := writeAtomic(filepath.Join(opts.Dir, name+".json"), data); err != nil {
			return types.BackupManifest{}, fmt.Errorf("writing %s: %w", name, err)
		}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return types.BackupManifest{}, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := writeAtomic(ManifestPath(opts.Dir, opts.MetaFile), data); err != nil {
		return types.BackupManifest{}, fmt.Errorf("writing manifest: %w", err)
	}
	return manifest, nil
}

// ReadManifest reads the manifest at path verbatim.
func ReadManifest(path string) (types.BackupManifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.BackupManifest{}, fmt.Errorf("%w: %s", types.ErrManifestNotFound, path)
	}
	if err != nil {
		return types.BackupManifest{}, fmt.Errorf("reading manifest: %w", err)
	}

	var m types.BackupManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return types.BackupManifest{}, fmt.Errorf("decoding manifest: %w", err)
	}
	return m, nil
}

func skippable(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// writeAtomic writes data to a temp file in the target directory, syncs it,
// and renames it over path. The result is world-readable like any other
// file the bridge writes.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".backup-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing data: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
