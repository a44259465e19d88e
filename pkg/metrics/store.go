package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the durable, append-only log of execution records. One Store is
// constructed at process start and passed by handle to every session; there
// is no hidden singleton.
type Store struct {
	db   *sql.DB
	path string

	initMu sync.Mutex
	ready  bool

	// writeMu serializes writers. Readers go straight to the database;
	// WAL mode keeps them off the write path.
	writeMu sync.Mutex
}

// NewStore opens the SQLite database, creating parent directories as
// needed. Schema creation is deferred to EnsureReady so that opening a
// store is cheap for processes that never record anything.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	// WAL mode lets historical queries proceed while a writer holds the
	// write section.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// EnsureReady lazily creates the schema. Safe to call concurrently from
// many sessions; the migration runs exactly once per process.
func (s *Store) EnsureReady() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.ready {
		return nil
	}

	query := `
	CREATE TABLE IF NOT EXISTS execution_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		scenario_name TEXT NOT NULL,
		device_id TEXT NOT NULL,
		task_name TEXT NOT NULL,
		app_reqs_json TEXT,
		status TEXT NOT NULL,
		latency_ms INTEGER NOT NULL,
		metric_value REAL,
		error_msg TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_scenario_timestamp
	ON execution_metrics(scenario_name, timestamp);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create execution_metrics table: %w", err)
	}

	s.ready = true
	return nil
}

// Append writes one record. Concurrent callers are serialized under the
// write lock; no record is lost or interleave-corrupted under load.
func (s *Store) Append(ctx context.Context, rec ExecutionRecord) error {
	if err := s.EnsureReady(); err != nil {
		return err
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var reqsJSON string
	if rec.Requirements != nil {
		data, err := json.Marshal(rec.Requirements)
		if err != nil {
			// Degrade to an empty payload rather than losing the record.
			log.Printf("metrics: failed to serialize request payload for %s/%s: %v", rec.ScenarioName, rec.DeviceID, err)
		} else {
			reqsJSON = string(data)
		}
	}

	var metric sql.NullFloat64
	if rec.MetricValue != nil {
		metric = sql.NullFloat64{Float64: *rec.MetricValue, Valid: true}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_metrics
		(run_id, timestamp, scenario_name, device_id, task_name, app_reqs_json, status, latency_ms, metric_value, error_msg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, ts.Format(time.RFC3339Nano), rec.ScenarioName, rec.DeviceID, rec.TaskName,
		reqsJSON, string(rec.Status), rec.LatencyMS, metric, rec.ErrorMsg)
	if err != nil {
		return fmt.Errorf("failed to append execution record: %w", err)
	}

	return nil
}

// CountByRun returns the number of records appended under one run ID.
func (s *Store) CountByRun(ctx context.Context, runID string) (int, error) {
	if err := s.EnsureReady(); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM execution_metrics WHERE run_id = ?", runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records for run %s: %w", runID, err)
	}
	return count, nil
}

// RecordsByScenario returns up to limit records for a scenario, newest
// first. limit <= 0 defaults to 100.
func (s *Store) RecordsByScenario(ctx context.Context, scenarioName string, limit int) ([]ExecutionRecord, error) {
	if err := s.EnsureReady(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, timestamp, scenario_name, device_id, task_name, app_reqs_json, status, latency_ms, metric_value, error_msg
		FROM execution_metrics
		WHERE scenario_name = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, scenarioName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records for scenario %s: %w", scenarioName, err)
	}
	defer rows.Close()

	var records []ExecutionRecord
	for rows.Next() {
		var (
			rec      ExecutionRecord
			ts       string
			reqsJSON sql.NullString
			status   string
			metric   sql.NullFloat64
			errMsg   sql.NullString
		)
		if err := rows.Scan(&rec.RunID, &ts, &rec.ScenarioName, &rec.DeviceID, &rec.TaskName,
			&reqsJSON, &status, &rec.LatencyMS, &metric, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan execution record: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = parsed
		}
		if reqsJSON.Valid && reqsJSON.String != "" {
			var reqs any
			if err := json.Unmarshal([]byte(reqsJSON.String), &reqs); err == nil {
				rec.Requirements = reqs
			}
		}
		rec.Status = Status(status)
		if metric.Valid {
			v := metric.Float64
			rec.MetricValue = &v
		}
		rec.ErrorMsg = errMsg.String
		records = append(records, rec)
	}

	return records, rows.Err()
}
