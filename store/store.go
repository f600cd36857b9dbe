// Package store implements the Result Store: a small relational sink,
// conceptually the schema described in spec.md §6, backed by
// jmoiron/sqlx over modernc.org/sqlite (a pure-Go driver, no cgo),
// the same pairing the teacher repo uses for its own SQLite-backed
// plugin example.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/marcelom97/scimprobe/model"
)

// Store owns the SQLite connection and exposes the CRUD surface the
// Command Facade needs.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the schema.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS server_configs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			base_url TEXT NOT NULL,
			auth_kind TEXT NOT NULL,
			token TEXT,
			username TEXT,
			password TEXT,
			api_header TEXT,
			api_value TEXT,
			accept_invalid_certs INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS test_runs (
			id TEXT PRIMARY KEY,
			server_config_id TEXT NOT NULL REFERENCES server_configs(id),
			run_type TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			summary_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_test_runs_server ON test_runs(server_config_id)`,
		`CREATE TABLE IF NOT EXISTS validation_results (
			id TEXT PRIMARY KEY,
			test_run_id TEXT NOT NULL REFERENCES test_runs(id),
			test_name TEXT NOT NULL,
			category TEXT NOT NULL,
			http_method TEXT NOT NULL,
			url TEXT NOT NULL,
			request_body TEXT,
			response_status INTEGER,
			response_body TEXT,
			duration_ms INTEGER NOT NULL,
			passed INTEGER NOT NULL,
			failure_reason TEXT,
			executed_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_validation_results_run ON validation_results(test_run_id)`,
		`CREATE TABLE IF NOT EXISTS load_test_results (
			id TEXT PRIMARY KEY,
			test_run_id TEXT NOT NULL REFERENCES test_runs(id),
			request_index INTEGER NOT NULL,
			http_method TEXT NOT NULL,
			url TEXT NOT NULL,
			request_body TEXT,
			status_code INTEGER,
			duration_ms INTEGER NOT NULL,
			success INTEGER NOT NULL,
			error_message TEXT,
			timestamp TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_load_test_results_run ON load_test_results(test_run_id)`,
		`CREATE TABLE IF NOT EXISTS field_mapping_rules (
			id TEXT PRIMARY KEY,
			server_config_id TEXT NOT NULL REFERENCES server_configs(id),
			scim_attribute TEXT NOT NULL,
			display_name TEXT NOT NULL,
			required INTEGER NOT NULL,
			format TEXT NOT NULL,
			regex_pattern TEXT,
			description TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_field_mapping_rules_server ON field_mapping_rules(server_config_id)`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sample_data (
			id TEXT PRIMARY KEY,
			server_config_id TEXT NOT NULL REFERENCES server_configs(id),
			resource_type TEXT NOT NULL,
			name TEXT NOT NULL,
			data_json TEXT NOT NULL,
			is_default INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sample_data_server ON sample_data(server_config_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// --- Test runs ---

func (s *Store) SaveTestRun(ctx context.Context, run model.TestRun) error {
	const q = `INSERT INTO test_runs (id, server_config_id, run_type, status, started_at, completed_at, summary_json)
		VALUES (:id, :server_config_id, :run_type, :status, :started_at, :completed_at, :summary_json)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status, completed_at=excluded.completed_at, summary_json=excluded.summary_json`
	_, err := s.db.NamedExecContext(ctx, q, testRunRow(run))
	return err
}

func (s *Store) GetTestRun(ctx context.Context, id string) (*model.TestRun, error) {
	var row dbTestRun
	err := s.db.GetContext(ctx, &row, `SELECT * FROM test_runs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run := row.toModel()
	return &run, nil
}

func (s *Store) GetTestRuns(ctx context.Context, serverConfigID, runType string) ([]model.TestRun, error) {
	query := `SELECT * FROM test_runs WHERE 1=1`
	var args []any
	if serverConfigID != "" {
		query += ` AND server_config_id = ?`
		args = append(args, serverConfigID)
	}
	if runType != "" {
		query += ` AND run_type = ?`
		args = append(args, runType)
	}
	query += ` ORDER BY started_at DESC`

	var rows []dbTestRun
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	runs := make([]model.TestRun, 0, len(rows))
	for _, r := range rows {
		runs = append(runs, r.toModel())
	}
	return runs, nil
}

// DeleteTestRun removes a run and cascades to its results, per spec.md §8
// ("deleting a run deletes all its results; no orphan rows remain").
func (s *Store) DeleteTestRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM load_test_results WHERE test_run_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM validation_results WHERE test_run_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM test_runs WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Validation results ---

func (s *Store) SaveValidationResult(ctx context.Context, r model.ValidationResult) error {
	const q = `INSERT INTO validation_results
		(id, test_run_id, test_name, category, http_method, url, request_body, response_status, response_body, duration_ms, passed, failure_reason, executed_at)
		VALUES (:id, :test_run_id, :test_name, :category, :http_method, :url, :request_body, :response_status, :response_body, :duration_ms, :passed, :failure_reason, :executed_at)`
	_, err := s.db.NamedExecContext(ctx, q, validationResultRow(r))
	return err
}

func (s *Store) GetValidationResults(ctx context.Context, testRunID string) ([]model.ValidationResult, error) {
	var rows []dbValidationResult
	const q = `SELECT * FROM validation_results WHERE test_run_id = ? ORDER BY executed_at ASC`
	if err := s.db.SelectContext(ctx, &rows, q, testRunID); err != nil {
		return nil, err
	}
	out := make([]model.ValidationResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// --- Load test results ---

// SaveLoadTestResults batches every result of a run's completion into a
// single transaction, per spec.md §6.
func (s *Store) SaveLoadTestResults(ctx context.Context, results []model.LoadTestResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO load_test_results
		(id, test_run_id, request_index, http_method, url, request_body, status_code, duration_ms, success, error_message, timestamp)
		VALUES (:id, :test_run_id, :request_index, :http_method, :url, :request_body, :status_code, :duration_ms, :success, :error_message, :timestamp)`
	stmt, err := tx.PrepareNamedContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, loadTestResultRow(r)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetLoadTestResults(ctx context.Context, testRunID string) ([]model.LoadTestResult, error) {
	var rows []dbLoadTestResult
	const q = `SELECT * FROM load_test_results WHERE test_run_id = ? ORDER BY request_index ASC`
	if err := s.db.SelectContext(ctx, &rows, q, testRunID); err != nil {
		return nil, err
	}
	out := make([]model.LoadTestResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// --- App settings ---

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM app_settings WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) SaveSetting(ctx context.Context, key, value string) error {
	const q = `INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`
	_, err := s.db.ExecContext(ctx, q, key, value, time.Now())
	return err
}

// --- Clear ---

// ClearAllData deletes every row from every table except app_settings,
// per spec.md §6's clear_all_data command contract.
func (s *Store) ClearAllData(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmts := []string{
		`DELETE FROM load_test_results`,
		`DELETE FROM validation_results`,
		`DELETE FROM test_runs`,
		`DELETE FROM field_mapping_rules`,
		`DELETE FROM sample_data`,
		`DELETE FROM server_configs`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
