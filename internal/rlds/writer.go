package rlds

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/droid-datasets/rldsbuild/internal/fsutil"
)

// Writer persists emitted episode records. The production dataset
// container (sharding, compression) lives downstream; DirectoryWriter is
// the built-in implementation emitting one JSON file per episode.
type Writer interface {
	WriteEpisode(rec *EpisodeRecord) error
	Close() error
}

// DirectoryWriter writes each episode record as a numbered JSON file in
// one output directory.
type DirectoryWriter struct {
	fs    fsutil.FileSystem
	dir   string
	count int
}

// NewDirectoryWriter creates the output directory if needed. A nil fs
// uses the real filesystem.
func NewDirectoryWriter(fs fsutil.FileSystem, dir string) (*DirectoryWriter, error) {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return &DirectoryWriter{fs: fs, dir: dir}, nil
}

// WriteEpisode persists one record. Not safe for concurrent use; the
// driver serializes writes.
func (w *DirectoryWriter) WriteEpisode(rec *EpisodeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling episode: %w", err)
	}
	name := filepath.Join(w.dir, fmt.Sprintf("episode_%06d.json", w.count))
	if err := w.fs.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	w.count++
	return nil
}

// Count returns the number of episodes written so far.
func (w *DirectoryWriter) Count() int { return w.count }

// Close is a no-op for the directory writer.
func (w *DirectoryWriter) Close() error { return nil }

// ReadEpisodeFile loads one emitted episode record back, used by tests
// and inspection tooling.
func ReadEpisodeFile(fs fsutil.FileSystem, path string) (*EpisodeRecord, error) {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec EpisodeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &rec, nil
}
