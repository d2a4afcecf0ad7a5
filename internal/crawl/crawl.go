// Package crawl discovers candidate episode directories under collection
// roots.
package crawl

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/droid-datasets/rldsbuild/internal/fsutil"
)

const (
	// successSubdir holds completed demonstrations; failed attempts live
	// elsewhere and are never crawled.
	successSubdir = "success"

	// LogFileName is the trajectory log an eligible episode must carry.
	LogFileName = "trajectory.h5"

	// RecordingsSubdir is the camera recording directory an eligible
	// episode must carry, relative to the episode directory.
	RecordingsSubdir = "recordings/MP4"
)

// Crawler discovers episode directories on a FileSystem.
type Crawler struct {
	fs fsutil.FileSystem
}

// New creates a Crawler. A nil fs uses the real filesystem.
func New(fs fsutil.FileSystem) *Crawler {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Crawler{fs: fs}
}

// Crawl lists candidate episode directories two levels below
// <root>/success for every root, lexicographically sorted so dataset
// builds are reproducible across runs and machines. Empty root entries
// are ignored; a non-directory root is a configuration error.
func (c *Crawler) Crawl(roots []string) ([]string, error) {
	var all []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		info, err := c.fs.Stat(root)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("crawl: not a directory: %s", root)
		}

		matches, err := c.fs.Glob(filepath.Join(root, successSubdir, "*", "*"))
		if err != nil {
			return nil, fmt.Errorf("crawl: globbing %s: %w", root, err)
		}
		all = append(all, matches...)
	}
	// Glob results are sorted per root; the concatenation across roots
	// needs one more pass to stay deterministic.
	sort.Strings(all)
	return all, nil
}

// Eligible reports whether an episode directory holds both the trajectory
// log and the camera recordings.
func (c *Crawler) Eligible(episodeDir string) bool {
	return c.fs.Exists(filepath.Join(episodeDir, LogFileName)) &&
		c.fs.Exists(filepath.Join(episodeDir, RecordingsSubdir))
}

// FilterEligible keeps only episode directories that pass Eligible.
func (c *Crawler) FilterEligible(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if c.Eligible(d) {
			out = append(out, d)
		}
	}
	return out
}

// LogPath returns the trajectory log path of an episode directory.
func LogPath(episodeDir string) string {
	return filepath.Join(episodeDir, LogFileName)
}

// RecordingsPath returns the camera recording directory of an episode
// directory.
func RecordingsPath(episodeDir string) string {
	return filepath.Join(episodeDir, RecordingsSubdir)
}
