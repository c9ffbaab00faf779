package tilestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/barrygee/tileslurp/internal/tile"
)

// staleStaging is the age after which a staging file is taken to be left
// over from a crashed run.
const staleStaging = time.Minute

// Disk stores tiles as {root}/{z}/{x}/{y}.png on the local filesystem.
//
// Writes go to a temporary sibling file that is fsynced and renamed into
// place, so a tile is either absent or complete under its final name.
// Staging files orphaned by a crash are removed the next time the same tile
// is written.
type Disk struct {
	root string
}

// NewDisk returns a Disk rooted at root, creating the directory if needed.
func NewDisk(root string) (*Disk, error) {
	if root == "" {
		return nil, errors.New("tilestore: root directory must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create tile directory: %w", err)
	}
	return &Disk{root: root}, nil
}

// Root returns the directory tiles are stored under.
func (d *Disk) Root() string {
	return d.root
}

// Path returns the file path for a.
func (d *Disk) Path(a tile.Address) string {
	return filepath.Join(d.root, filepath.FromSlash(tile.Key(a)))
}

// Exists reports whether a non-empty file is stored for a. A zero-byte file
// left by an earlier crash is removed and reported as absent.
func (d *Disk) Exists(_ context.Context, a tile.Address) (bool, error) {
	path := d.Path(a)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat tile %s: %w", tile.Key(a), err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("stat tile %s: is a directory", tile.Key(a))
	}

	if info.Size() == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("remove empty tile %s: %w", tile.Key(a), err)
		}
		return false, nil
	}
	return true, nil
}

// Write stores data for a, replacing any existing file.
func (d *Disk) Write(ctx context.Context, a tile.Address, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyTile
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := d.Path(a)
	dir := filepath.Dir(path)

	// MkdirAll succeeds if another worker created the directory first.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create tile directory: %w", err)
	}
	removeStaleStaging(dir, filepath.Base(path))

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write tile %s: %w", tile.Key(a), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync tile %s: %w", tile.Key(a), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close tile %s: %w", tile.Key(a), err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("commit tile %s: %w", tile.Key(a), err)
	}

	syncDir(dir)
	return nil
}

// Close is a no-op for Disk.
func (d *Disk) Close() error {
	return nil
}

// removeStaleStaging deletes old staging files for the tile named base in
// dir. Recent ones may belong to a concurrent writer and are kept.
func removeStaleStaging(dir, base string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	prefix := base + ".tmp-"
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || time.Since(info.ModTime()) < staleStaging {
			continue
		}
		_ = os.Remove(filepath.Join(dir, e.Name()))
	}
}

// syncDir persists the rename. Not every platform supports fsync on a
// directory, so errors are ignored.
func syncDir(dir string) {
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = f.Sync()
	_ = f.Close()
}
