package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droid-datasets/rldsbuild/internal/fsutil"
)

func newFS(t *testing.T, episodes ...string) *fsutil.MemoryFileSystem {
	t.Helper()
	m := fsutil.NewMemoryFileSystem()
	for _, ep := range episodes {
		require.NoError(t, m.WriteFile(ep+"/"+LogFileName, []byte("h5"), 0644))
		require.NoError(t, m.MkdirAll(ep+"/"+RecordingsSubdir, 0755))
	}
	return m
}

func TestCrawlSortedAcrossRoots(t *testing.T) {
	m := newFS(t,
		"/data2/success/day1/ep1",
		"/data1/success/day2/ep1",
		"/data1/success/day1/ep2",
		"/data1/success/day1/ep1",
	)

	got, err := New(m).Crawl([]string{"/data2", "/data1"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/data1/success/day1/ep1",
		"/data1/success/day1/ep2",
		"/data1/success/day2/ep1",
		"/data2/success/day1/ep1",
	}, got)
}

func TestCrawlIgnoresNonSuccess(t *testing.T) {
	m := newFS(t, "/data/success/day1/ep1")
	require.NoError(t, m.MkdirAll("/data/failure/day1/ep9", 0755))

	got, err := New(m).Crawl([]string{"/data"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/success/day1/ep1"}, got)
}

func TestCrawlSkipsEmptyRootEntries(t *testing.T) {
	m := newFS(t, "/data/success/day1/ep1")

	got, err := New(m).Crawl([]string{"", "/data", ""})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCrawlBadRoot(t *testing.T) {
	m := newFS(t, "/data/success/day1/ep1")

	_, err := New(m).Crawl([]string{"/missing"})
	assert.Error(t, err)

	// A root that is a file, not a directory, is also rejected.
	require.NoError(t, m.WriteFile("/rootfile", []byte("x"), 0644))
	_, err = New(m).Crawl([]string{"/rootfile"})
	assert.Error(t, err)
}

func TestFilterEligible(t *testing.T) {
	m := newFS(t, "/data/success/day1/ep1")
	// ep2 lacks recordings, ep3 lacks the log.
	require.NoError(t, m.WriteFile("/data/success/day1/ep2/"+LogFileName, []byte("h5"), 0644))
	require.NoError(t, m.MkdirAll("/data/success/day1/ep3/"+RecordingsSubdir, 0755))

	c := New(m)
	dirs, err := c.Crawl([]string{"/data"})
	require.NoError(t, err)
	require.Len(t, dirs, 3)

	assert.Equal(t, []string{"/data/success/day1/ep1"}, c.FilterEligible(dirs))
}

func TestEpisodePaths(t *testing.T) {
	assert.Equal(t, "/d/ep1/trajectory.h5", LogPath("/d/ep1"))
	assert.Equal(t, "/d/ep1/recordings/MP4", RecordingsPath("/d/ep1"))
}
