// Package manifest records build runs and their per-episode outcomes in a
// SQLite database, so partial builds can be audited and rerun.
package manifest

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the manifest database at path. Use
// ":memory:" for an ephemeral manifest.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			dataset TEXT,
			seed BIGINT,
			started TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			finished TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS episodes (
			episode_id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			log_path TEXT,
			status TEXT,
			steps INT,
			duration_ms BIGINT,
			error TEXT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// Episode statuses.
const (
	StatusOK        = "ok"
	StatusTruncated = "truncated"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// BeginRun registers a new build run and returns its id.
func (db *DB) BeginRun(dataset string, seed int64) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec("INSERT INTO runs (run_id, dataset, seed) VALUES (?, ?, ?)", id, dataset, seed)
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishRun stamps the run's completion time.
func (db *DB) FinishRun(runID string) error {
	_, err := db.Exec("UPDATE runs SET finished = CURRENT_TIMESTAMP WHERE run_id = ?", runID)
	return err
}

// RecordEpisode records the outcome of one episode build. errMsg is empty
// unless status is failed.
func (db *DB) RecordEpisode(runID, logPath, status string, steps int, duration time.Duration, errMsg string) error {
	_, err := db.Exec(
		"INSERT INTO episodes (run_id, log_path, status, steps, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)",
		runID, logPath, status, steps, duration.Milliseconds(), errMsg)
	return err
}

// Outcome is one recorded episode outcome.
type Outcome struct {
	LogPath string
	Status  string
	Steps   int
	Error   string
}

func (o *Outcome) String() string {
	return fmt.Sprintf("%s: %s (%d steps)", o.LogPath, o.Status, o.Steps)
}

// Outcomes lists the recorded outcomes of one run in insertion order.
func (db *DB) Outcomes(runID string) ([]Outcome, error) {
	rows, err := db.Query(
		"SELECT log_path, status, steps, error FROM episodes WHERE run_id = ? ORDER BY episode_id",
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.LogPath, &o.Status, &o.Steps, &o.Error); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Summary aggregates a run's outcomes by status.
func (db *DB) Summary(runID string) (map[string]int, error) {
	rows, err := db.Query(
		"SELECT status, COUNT(*) FROM episodes WHERE run_id = ? GROUP BY status", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		summary[status] = n
	}
	return summary, rows.Err()
}

// StepCounts returns the step counts of a run's non-failed episodes, for
// the end-of-run statistics report.
func (db *DB) StepCounts(runID string) ([]float64, error) {
	rows, err := db.Query(
		"SELECT steps FROM episodes WHERE run_id = ? AND status IN (?, ?) ORDER BY episode_id",
		runID, StatusOK, StatusTruncated)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []float64
	for rows.Next() {
		var n float64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		counts = append(counts, n)
	}
	return counts, rows.Err()
}
