// Package dataset builds the merged municipality-year panel in DuckDB and
// exports it as final_dataset.csv.
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// DB wraps a DuckDB database holding the analysis tables.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) a DuckDB database file. Use ":memory:" for an
// in-memory database.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (d *DB) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if _, err := d.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (d *DB) Query(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error) {
	rows, err := d.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}

// QueryRow executes a query expected to return at most one row.
func (d *DB) QueryRow(ctx context.Context, sqlStr string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, sqlStr, args...)
}

// LoadCSV creates a table from a CSV file using DuckDB's schema inference.
func (d *DB) LoadCSV(ctx context.Context, tableName, filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	query := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto('%s', header=true)",
		tableName, absPath,
	)
	if err := d.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV into %s: %w", tableName, err)
	}
	return nil
}

// CopyTo exports a table or view to a CSV file with a header row.
func (d *DB) CopyTo(ctx context.Context, tableName, filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	query := fmt.Sprintf("COPY %s TO '%s' (HEADER, DELIMITER ',')", tableName, absPath)
	if err := d.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to export %s: %w", tableName, err)
	}
	return nil
}
