package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"go-shard-query/internal/model"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS query_runs (
	id TEXT PRIMARY KEY,
	data_source TEXT NOT NULL,
	query TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS shard_failures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	param TEXT NOT NULL,
	message TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id TEXT PRIMARY KEY,
	result TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS shard_metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	param TEXT NOT NULL,
	outcome TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	duration INTEGER NOT NULL,
	attempts INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_shard_failures_run ON shard_failures (run_id);
CREATE INDEX IF NOT EXISTS idx_shard_metrics_run ON shard_metrics (run_id);
`

// Store keeps query runs and their results in SQLite
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at path and makes sure the tables exist.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time, and a single shared in-memory database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// ------------------- Runs -------------------

// SaveRun stores a new run
func (s *Store) SaveRun(run model.QueryRun) error {
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.Status == "" {
		run.Status = model.StatusPending
	}
	run.UpdatedAt = now

	_, err := s.db.NamedExec(`INSERT INTO query_runs (id, data_source, query, status, error, created_at, updated_at)
		VALUES (:id, :data_source, :query, :status, :error, :created_at, :updated_at)`, run)
	return err
}

// UpdateRunStatus sets a run's status and error message
func (s *Store) UpdateRunStatus(runID, status, message string) error {
	res, err := s.db.Exec(`UPDATE query_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, message, time.Now().UTC(), runID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// GetRun fetches one run
func (s *Store) GetRun(runID string) (*model.QueryRun, error) {
	var run model.QueryRun
	err := s.db.Get(&run, `SELECT id, data_source, query, status, error, created_at, updated_at FROM query_runs WHERE id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RunFilter narrows ListRuns; zero values match everything
type RunFilter struct {
	DataSource string
	Status     string
	Limit      uint64
}

// ListRuns returns runs newest first
func (s *Store) ListRuns(filter RunFilter) ([]model.QueryRun, error) {
	q := sq.Select("id", "data_source", "query", "status", "error", "created_at", "updated_at").
		From("query_runs").
		OrderBy("created_at DESC", "id")

	if filter.DataSource != "" {
		q = q.Where(sq.Eq{"data_source": filter.DataSource})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	runs := []model.QueryRun{}
	if err := s.db.Select(&runs, query, args...); err != nil {
		return nil, err
	}
	return runs, nil
}

// DeleteRun removes a run with its result, failures and metrics
func (s *Store) DeleteRun(runID string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}

	res, err := tx.Exec(`DELETE FROM query_runs WHERE id = ?`, runID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := expectRow(res); err != nil {
		tx.Rollback()
		return err
	}

	for _, table := range []string{"run_results", "shard_failures", "shard_metrics"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ------------------- Results -------------------

// SaveRunResult stores (or replaces) the final result of a run
func (s *Store) SaveRunResult(runID string, result *model.QueryResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO run_results (run_id, result, created_at) VALUES (?, ?, ?)`,
		runID, string(payload), time.Now().UTC())
	return err
}

// GetRunResult fetches the final result of a run. Numbers come back as json.Number
// so that integers keep their precision.
func (s *Store) GetRunResult(runID string) (*model.QueryResult, error) {
	var payload string
	err := s.db.Get(&payload, `SELECT result FROM run_results WHERE run_id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()

	var result model.QueryResult
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}

// SaveShardFailures replaces the recorded shard failures of a run, keeping their order
func (s *Store) SaveShardFailures(runID string, failures []model.ShardFailure) error {
	q := sq.Insert("shard_failures").Columns("run_id", "position", "param", "message")
	for i, f := range failures {
		q = q.Values(runID, i, f.Param, f.Message)
	}
	return s.replaceRows("shard_failures", runID, len(failures), q)
}

// GetShardFailures returns a run's shard failures in shard order
func (s *Store) GetShardFailures(runID string) ([]model.ShardFailure, error) {
	failures := []model.ShardFailure{}
	err := s.db.Select(&failures, `SELECT param, message FROM shard_failures WHERE run_id = ? ORDER BY position`, runID)
	return failures, err
}

// SaveShardMetrics replaces the recorded per-shard metrics of a run
func (s *Store) SaveShardMetrics(runID string, metrics []model.ShardMetrics) error {
	q := sq.Insert("shard_metrics").Columns("run_id", "param", "outcome", "row_count", "duration", "attempts", "error")
	for _, m := range metrics {
		q = q.Values(runID, m.Param, m.Outcome, m.Rows, int64(m.Duration), m.Attempts, m.Error)
	}
	return s.replaceRows("shard_metrics", runID, len(metrics), q)
}

// GetShardMetrics returns the per-shard metrics of a run in the order they were recorded
func (s *Store) GetShardMetrics(runID string) ([]model.ShardMetrics, error) {
	metrics := []model.ShardMetrics{}
	err := s.db.Select(&metrics, `SELECT run_id, param, outcome, row_count, duration, attempts, error
		FROM shard_metrics WHERE run_id = ? ORDER BY id`, runID)
	return metrics, err
}

// replaceRows deletes the run's rows from table and runs the insert, in one transaction
func (s *Store) replaceRows(table, runID string, n int, insert sq.InsertBuilder) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
		tx.Rollback()
		return err
	}

	if n > 0 {
		query, args, err := insert.ToSql()
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(query, args...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}
