package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	runID, err := db.BeginRun("ppgm", 42)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	other, err := db.BeginRun("ppgm", 42)
	require.NoError(t, err)
	assert.NotEqual(t, runID, other, "run ids must be unique")

	require.NoError(t, db.FinishRun(runID))
}

func TestOutcomesAndSummary(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.BeginRun("ppgm", 1)
	require.NoError(t, err)

	require.NoError(t, db.RecordEpisode(runID, "/d/ep1/trajectory.h5", StatusOK, 120, 3*time.Second, ""))
	require.NoError(t, db.RecordEpisode(runID, "/d/ep2/trajectory.h5", StatusTruncated, 40, 2*time.Second, ""))
	require.NoError(t, db.RecordEpisode(runID, "/d/ep3/trajectory.h5", StatusFailed, 0, time.Second, "no task label"))
	require.NoError(t, db.RecordEpisode(runID, "/d/ep4/trajectory.h5", StatusOK, 90, 3*time.Second, ""))

	outcomes, err := db.Outcomes(runID)
	require.NoError(t, err)
	require.Len(t, outcomes, 4)
	assert.Equal(t, "/d/ep1/trajectory.h5", outcomes[0].LogPath)
	assert.Equal(t, StatusFailed, outcomes[2].Status)
	assert.Equal(t, "no task label", outcomes[2].Error)

	summary, err := db.Summary(runID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{StatusOK: 2, StatusTruncated: 1, StatusFailed: 1}, summary)
}

func TestStepCountsExcludeFailures(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.BeginRun("tdroid_knock_object_over", 7)
	require.NoError(t, err)

	require.NoError(t, db.RecordEpisode(runID, "/d/a/trajectory.h5", StatusOK, 100, time.Second, ""))
	require.NoError(t, db.RecordEpisode(runID, "/d/b/trajectory.h5", StatusFailed, 0, time.Second, "boom"))
	require.NoError(t, db.RecordEpisode(runID, "/d/c/trajectory.h5", StatusTruncated, 55, time.Second, ""))

	counts, err := db.StepCounts(runID)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 55}, counts)
}

func TestRunsAreIsolated(t *testing.T) {
	db := openTestDB(t)
	run1, err := db.BeginRun("ppgm", 1)
	require.NoError(t, err)
	run2, err := db.BeginRun("ppgm", 2)
	require.NoError(t, err)

	require.NoError(t, db.RecordEpisode(run1, "/d/a/trajectory.h5", StatusOK, 10, time.Second, ""))
	require.NoError(t, db.RecordEpisode(run2, "/d/b/trajectory.h5", StatusOK, 20, time.Second, ""))

	outcomes, err := db.Outcomes(run1)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, 10, outcomes[0].Steps)
}
