package state

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore persists run state in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema initializes the database schema.
func (s *SQLiteStore) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// --- Run operations ---

// CreateRun creates a new pipeline run in running state.
func (s *SQLiteStore) CreateRun() (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := s.db.QueryRow(
		`SELECT id, status, started_at, completed_at, error FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Status, &run.StartedAt, &completedAt, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errorVal any
	if errMsg != "" {
		errorVal = errMsg
	}
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, now, errorVal, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, status, started_at, completed_at, error FROM runs
		 ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.Status, &run.StartedAt, &completedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- Stage run operations ---

// StartStage records a stage beginning execution within a run.
func (s *SQLiteStore) StartStage(runID, stage, inputHash string) (*StageRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	sr := &StageRun{
		ID:        generateID(),
		RunID:     runID,
		Stage:     stage,
		Status:    StageStatusRunning,
		InputHash: inputHash,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO stage_runs (id, run_id, stage, status, input_hash, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sr.ID, sr.RunID, sr.Stage, sr.Status, sr.InputHash, sr.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start stage: %w", err)
	}
	return sr, nil
}

// FinishStage records a stage outcome.
func (s *SQLiteStore) FinishStage(id string, status StageStatus, rowsOut, durationMS int64, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errorVal any
	if errMsg != "" {
		errorVal = errMsg
	}
	_, err := s.db.Exec(
		`UPDATE stage_runs SET status = ?, rows_out = ?, duration_ms = ?, error = ? WHERE id = ?`,
		status, rowsOut, durationMS, errorVal, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish stage: %w", err)
	}
	return nil
}

// RecordSkippedStage records a stage that did not execute.
func (s *SQLiteStore) RecordSkippedStage(runID, stage, inputHash, reason string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errorVal any
	if reason != "" {
		errorVal = reason
	}
	_, err := s.db.Exec(
		`INSERT INTO stage_runs (id, run_id, stage, status, input_hash, started_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		generateID(), runID, stage, StageStatusSkipped, inputHash, time.Now().UTC(), errorVal,
	)
	if err != nil {
		return fmt.Errorf("failed to record skipped stage: %w", err)
	}
	return nil
}

// ListStageRuns retrieves all stage executions of a run in start order.
func (s *SQLiteStore) ListStageRuns(runID string) ([]*StageRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, stage, status, input_hash, rows_out, duration_ms, started_at, error
		 FROM stage_runs WHERE run_id = ? ORDER BY started_at, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage runs: %w", err)
	}
	defer rows.Close()

	var stageRuns []*StageRun
	for rows.Next() {
		sr, err := scanStageRun(rows)
		if err != nil {
			return nil, err
		}
		stageRuns = append(stageRuns, sr)
	}
	return stageRuns, rows.Err()
}

// LastSuccessfulHash returns the input hash of the most recent completed
// execution of a stage, or "" when the stage never completed.
func (s *SQLiteStore) LastSuccessfulHash(stage string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	var hash sql.NullString
	err := s.db.QueryRow(
		`SELECT input_hash FROM stage_runs
		 WHERE stage = ? AND status = ?
		 ORDER BY started_at DESC, id DESC LIMIT 1`,
		stage, StageStatusCompleted,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last stage hash: %w", err)
	}
	return hash.String, nil
}

func scanStageRun(rows *sql.Rows) (*StageRun, error) {
	sr := &StageRun{}
	var inputHash, errMsg sql.NullString
	var rowsOut, durationMS sql.NullInt64
	err := rows.Scan(&sr.ID, &sr.RunID, &sr.Stage, &sr.Status, &inputHash,
		&rowsOut, &durationMS, &sr.StartedAt, &errMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stage run: %w", err)
	}
	sr.InputHash = inputHash.String
	sr.RowsOut = rowsOut.Int64
	sr.DurationMS = durationMS.Int64
	sr.Error = errMsg.String
	return sr, nil
}
