package video

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFactory records what OpenDirectory asked for and serves fakes.
func fakeFactory(opened map[string]bool) DecoderFactory {
	return func(path string, grayscale bool) (Decoder, error) {
		opened[filepath.Base(path)] = grayscale
		channels := 3
		if grayscale {
			channels = 1
		}
		return NewFakeDecoder(4, 3, channels, 5), nil
	}
}

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	return dir
}

func TestOpenDirectoryClassifiesBySuffix(t *testing.T) {
	dir := writeFiles(t, "111.mp4", "111_depth.mp4", "222.mp4", "222_depth.mp4")

	opened := map[string]bool{}
	m, err := OpenDirectory(dir, nil, fakeFactory(opened))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, []string{"111", "111_depth", "222", "222_depth"}, m.Serials())
	assert.False(t, opened["111.mp4"])
	assert.True(t, opened["111_depth.mp4"])
	assert.False(t, opened["222.mp4"])
	assert.True(t, opened["222_depth.mp4"])
}

func TestOpenDirectoryRejectsUnrecognizedFile(t *testing.T) {
	dir := writeFiles(t, "111.mp4", "notes.txt")

	_, err := OpenDirectory(dir, nil, fakeFactory(map[string]bool{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notes.txt")
}

func TestOpenDirectoryEmpty(t *testing.T) {
	_, err := OpenDirectory(t.TempDir(), nil, fakeFactory(map[string]bool{}))
	assert.Error(t, err)
}

func TestOpenDirectoryMissing(t *testing.T) {
	_, err := OpenDirectory(filepath.Join(t.TempDir(), "nope"), nil, fakeFactory(map[string]bool{}))
	assert.Error(t, err)
}
