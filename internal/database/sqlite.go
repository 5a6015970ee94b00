package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wp-migrate/internal/database/migrations"
	"wp-migrate/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase stores run history in SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path, creating it if needed, and
// migrates it to the latest schema. path can be ":memory:".
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing, already migrated connection.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// wpm is a single writer; one connection also keeps :memory: databases
	// from splitting across the pool.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Path is the file the database lives in; empty for wrapped connections.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Run operations

func (s *SQLiteDatabase) CreateRun(run *model.Run) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO runs (id, operation, parameters, started_at, status, summary) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Operation, run.Parameters, run.StartedAt.UTC(), run.Status, run.Summary)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FinishRun(id string, status string, summary string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE runs SET status = ?, summary = ?, finished_at = ? WHERE id = ?`,
		status, summary, finishedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing run: no run with id %s", id)
	}
	return nil
}

const runColumns = `id, operation, parameters, started_at, finished_at, status, summary`

func scanRun(row interface{ Scan(...any) error }) (*model.Run, error) {
	var run model.Run
	var finishedAt sql.NullTime
	if err := row.Scan(&run.ID, &run.Operation, &run.Parameters, &run.StartedAt, &finishedAt, &run.Status, &run.Summary); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

func (s *SQLiteDatabase) FindRun(id string) (*model.Run, error) {
	row := s.db.QueryRowContext(context.Background(), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding run: %w", err)
	}
	return run, nil
}

func (s *SQLiteDatabase) ListRuns(limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Mapping operations

// RecordMappings replaces the mappings of kind recorded for runID.
func (s *SQLiteDatabase) RecordMappings(runID string, kind string, ids map[int]string) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_mappings WHERE run_id = ? AND kind = ?`, runID, kind); err != nil {
		return fmt.Errorf("clearing mappings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entry_mappings (run_id, kind, source_id, entry_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing mapping insert: %w", err)
	}
	defer stmt.Close()

	for sourceID, entryID := range ids {
		if _, err := stmt.ExecContext(ctx, runID, kind, sourceID, entryID); err != nil {
			return fmt.Errorf("inserting mapping %s %d: %w", kind, sourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListMappings returns the mappings of kind for runID ordered by source id.
func (s *SQLiteDatabase) ListMappings(runID string, kind string) ([]*model.EntryMapping, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT run_id, kind, source_id, entry_id FROM entry_mappings WHERE run_id = ? AND kind = ? ORDER BY source_id`,
		runID, kind)
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*model.EntryMapping
	for rows.Next() {
		var m model.EntryMapping
		if err := rows.Scan(&m.RunID, &m.Kind, &m.SourceID, &m.EntryID); err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}
		mappings = append(mappings, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	return mappings, nil
}

// Warning operations

func (s *SQLiteDatabase) RecordWarnings(runID string, warnings []model.Warning) error {
	if len(warnings) == 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_warnings (run_id, kind, source_id, reason) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing warning insert: %w", err)
	}
	defer stmt.Close()

	for _, w := range warnings {
		if _, err := stmt.ExecContext(ctx, runID, w.Kind, w.SourceID, w.Reason); err != nil {
			return fmt.Errorf("inserting warning: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListWarnings(runID string) ([]*model.Warning, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT run_id, kind, source_id, reason FROM run_warnings WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing warnings: %w", err)
	}
	defer rows.Close()

	var warnings []*model.Warning
	for rows.Next() {
		var w model.Warning
		if err := rows.Scan(&w.RunID, &w.Kind, &w.SourceID, &w.Reason); err != nil {
			return nil, fmt.Errorf("scanning warning: %w", err)
		}
		warnings = append(warnings, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing warnings: %w", err)
	}
	return warnings, nil
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}
