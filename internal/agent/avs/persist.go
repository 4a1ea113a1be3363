package avs

import (
	"fmt"
	"os"
	"path/filepath"
)

// tmpSuffix mirrors the write-to-temp-then-rename discipline used for
// atomic snapshot replacement: write fully, fsync, then rename over the
// destination so a crash mid-write never leaves a half-written file in
// the path readers use.
const tmpSuffix = ".tmp"

// Persist writes the store's current snapshot to path atomically. On
// failure the in-memory state is left untouched and the error is
// returned to the caller.
func (s *Store) Persist(path string) error {
	blob := s.SerializeBlob()

	dir := filepath.Dir(path)
	tmpPath := path + tmpSuffix

	fh, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("avs: open temp file: %w", err)
	}

	if _, err := fh.Write(blob); err != nil {
		fh.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("avs: write temp file: %w", err)
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("avs: sync temp file: %w", err)
	}
	if err := fh.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("avs: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("avs: rename temp file into place: %w", err)
	}

	if dirFh, err := os.Open(dir); err == nil {
		_ = dirFh.Sync()
		dirFh.Close()
	}

	return nil
}
